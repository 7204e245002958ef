package domain

import (
	"context"
	"strings"
)

// DetectionBatch provides read-only access to a detection set for rule
// evaluation.
type DetectionBatch struct {
	Elements   []DetectedElement
	StrictMode bool

	types    map[string]struct{}
	statuses map[string][]ConstructionStatus
}

// NewDetectionBatch indexes a detection set for rule evaluation.
func NewDetectionBatch(elements []DetectedElement, strict bool) DetectionBatch {
	batch := DetectionBatch{
		Elements:   elements,
		StrictMode: strict,
		types:      make(map[string]struct{}, len(elements)),
		statuses:   make(map[string][]ConstructionStatus, len(elements)),
	}
	for _, elem := range elements {
		t := strings.ToLower(elem.ElementType)
		batch.types[t] = struct{}{}
		batch.statuses[t] = append(batch.statuses[t], elem.Status)
	}
	return batch
}

// HasType reports whether the lowercased element type is present in the batch.
func (b DetectionBatch) HasType(elementType string) bool {
	_, ok := b.types[elementType]
	return ok
}

// HasAnyType reports whether any of the given types is present.
func (b DetectionBatch) HasAnyType(elementTypes ...string) bool {
	for _, t := range elementTypes {
		if b.HasType(t) {
			return true
		}
	}
	return false
}

// StatusesByType returns construction statuses grouped by lowercased type.
func (b DetectionBatch) StatusesByType() map[string][]ConstructionStatus {
	return b.statuses
}

// Rule evaluates a detection batch for geometric or sequence plausibility.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, batch DetectionBatch) ([]ValidationIssue, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their issues.
func (e *RulesEngine) Evaluate(ctx context.Context, batch DetectionBatch) ([]ValidationIssue, error) {
	var combined []ValidationIssue
	for _, rule := range e.rules {
		issues, err := rule.Evaluate(ctx, batch)
		if err != nil {
			return nil, err
		}
		combined = append(combined, issues...)
	}
	return combined, nil
}
