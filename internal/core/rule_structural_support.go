package core

import (
	"context"
	"fmt"
	"strings"

	"virag/pkg/domain"
)

// structuralDependencies lists, per dependent type, the types that can carry
// its load. A dependent detected without any of its supports in the same
// photo is a likely vision-model hallucination.
var structuralDependencies = map[string][]string{
	"beam": {"column", "wall"},
	"slab": {"beam", "wall", "column"},
}

// StructuralSupportRule flags dependent elements detected without any
// plausible supporting element.
func StructuralSupportRule() domain.Rule {
	return structuralSupportRule{}
}

type structuralSupportRule struct{}

func (structuralSupportRule) Name() string { return "missing_structural_support" }

func (structuralSupportRule) Evaluate(_ context.Context, batch DetectionBatch) ([]ValidationIssue, error) {
	var issues []ValidationIssue
	for elemType, supports := range structuralDependencies {
		if !batch.HasType(elemType) {
			continue
		}
		if batch.HasAnyType(supports...) {
			continue
		}
		issues = append(issues, ValidationIssue{
			Rule:                "missing_structural_support",
			Severity:            SeverityHigh,
			ElementType:         elemType,
			Message:             fmt.Sprintf("%s without support (%s)", elemType, strings.Join(supports, ", ")),
			LikelyHallucination: true,
		})
	}
	return issues, nil
}
