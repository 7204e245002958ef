package core

import "fmt"

// InvalidInputError reports a malformed detection or record handed to the
// core by an external collaborator.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// MemoryUnavailableError reports a persistence outage beyond local recovery.
// Read failures inside ProcessAnalysis degrade to empty memory instead of
// producing this error; it surfaces only where degradation is not possible.
type MemoryUnavailableError struct {
	ProjectID string
	Op        string
	Err       error
}

func (e MemoryUnavailableError) Error() string {
	return fmt.Sprintf("element memory unavailable for project %s during %s: %v", e.ProjectID, e.Op, e.Err)
}

func (e MemoryUnavailableError) Unwrap() error { return e.Err }

// ComputationError reports an internal failure of a progress or validation
// computation, distinct from bad input and from persistence outages.
type ComputationError struct {
	Op  string
	Err error
}

func (e ComputationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e ComputationError) Unwrap() error { return e.Err }
