package core

import (
	"context"
	"fmt"

	"virag/pkg/domain"
)

// constructionSequence orders element types by build phase. A type marked
// completed while an earlier-phase type is still entirely not started points
// at an implausible detection.
var constructionSequence = map[string]int{
	"foundation": 1,
	"footing":    1,
	"pile":       1,
	"column":     2,
	"wall":       2,
	"beam":       3,
	"slab":       3,
	"roof":       4,
	"finishing":  5,
}

// Types outside the table sort after every known phase.
const sequenceUnranked = 999

// ConstructionSequenceRule flags completed elements whose prerequisite phases
// have not started.
func ConstructionSequenceRule() domain.Rule {
	return constructionSequenceRule{}
}

type constructionSequenceRule struct{}

func (constructionSequenceRule) Name() string { return "invalid_sequence" }

func (constructionSequenceRule) Evaluate(_ context.Context, batch DetectionBatch) ([]ValidationIssue, error) {
	statusByType := batch.StatusesByType()

	var issues []ValidationIssue
	for elemType, statuses := range statusByType {
		if !hasStatus(statuses, ConstructionCompleted) {
			continue
		}
		order := sequenceOrder(elemType)
		for earlierType, earlierOrder := range constructionSequence {
			if earlierOrder >= order {
				continue
			}
			earlierStatuses, ok := statusByType[earlierType]
			if !ok {
				continue
			}
			if hasStatus(earlierStatuses, ConstructionNotStarted) && !hasStatus(earlierStatuses, ConstructionCompleted) {
				issues = append(issues, ValidationIssue{
					Rule:                "invalid_sequence",
					Severity:            SeverityHigh,
					ElementType:         elemType,
					Message:             fmt.Sprintf("%s completed but %s not started", elemType, earlierType),
					LikelyHallucination: true,
				})
			}
		}
	}
	return issues, nil
}

func sequenceOrder(elementType string) int {
	if order, ok := constructionSequence[elementType]; ok {
		return order
	}
	return sequenceUnranked
}

func hasStatus(statuses []ConstructionStatus, want ConstructionStatus) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
