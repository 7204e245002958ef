package core

import (
	"context"

	"virag/pkg/domain"
)

var (
	verticalTypes   = []string{"column", "wall"}
	foundationTypes = []string{"foundation", "footing", "pile", "slab"}
)

// FoundationPresenceRule flags vertical elements detected without any visible
// foundation. Not a hallucination marker: foundations are legitimately hidden
// underground, so the issue is medium severity unless strict mode is on.
func FoundationPresenceRule() domain.Rule {
	return foundationPresenceRule{}
}

type foundationPresenceRule struct{}

func (foundationPresenceRule) Name() string { return "missing_foundation" }

func (foundationPresenceRule) Evaluate(_ context.Context, batch DetectionBatch) ([]ValidationIssue, error) {
	if !batch.HasAnyType(verticalTypes...) || batch.HasAnyType(foundationTypes...) {
		return nil, nil
	}
	severity := SeverityMedium
	if batch.StrictMode {
		severity = SeverityHigh
	}
	return []ValidationIssue{{
		Rule:     "missing_foundation",
		Severity: severity,
		Message:  "vertical elements without foundation",
	}}, nil
}
