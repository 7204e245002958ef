package core

import (
	"context"
	"strings"

	"virag/pkg/domain"
)

// Default confidence-penalty coefficients. Not tuned against a labeled
// validation set; keep them configurable.
const (
	DefaultPenaltyHigh   = 0.15
	DefaultPenaltyMedium = 0.05
	DefaultPenaltyCap    = 0.5
)

// GeometricValidator runs plausibility rules over a detection batch before it
// reaches memory reconciliation. Purely advisory: it never mutates memory and
// never blocks a detection on its own.
type GeometricValidator struct {
	engine *RulesEngine

	// Penalty coefficients per issue severity, and the total cap.
	PenaltyHigh   float64
	PenaltyMedium float64
	PenaltyCap    float64
}

// NewGeometricValidator constructs a validator with the built-in rule set and
// default penalty coefficients.
func NewGeometricValidator() *GeometricValidator {
	return NewGeometricValidatorWithEngine(NewDefaultRulesEngine())
}

// NewGeometricValidatorWithEngine constructs a validator over a caller-built
// rules engine.
func NewGeometricValidatorWithEngine(engine *RulesEngine) *GeometricValidator {
	return &GeometricValidator{
		engine:        engine,
		PenaltyHigh:   DefaultPenaltyHigh,
		PenaltyMedium: DefaultPenaltyMedium,
		PenaltyCap:    DefaultPenaltyCap,
	}
}

// Validate evaluates every registered rule and aggregates issues, the capped
// confidence penalty, and the suspicious subset. An element is suspicious when
// its type appears in a high-severity hallucination-flagged issue and its own
// detection confidence is medium or low; a high-confidence detection outweighs
// the heuristic.
func (v *GeometricValidator) Validate(ctx context.Context, elements []DetectedElement, strict bool) (ValidationResult, error) {
	if len(elements) == 0 {
		return ValidationResult{IsPlausible: true}, nil
	}

	batch := domain.NewDetectionBatch(elements, strict)
	issues, err := v.engine.Evaluate(ctx, batch)
	if err != nil {
		return ValidationResult{}, err
	}

	var high, medium int
	suspiciousTypes := make(map[string]struct{})
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
		if issue.Severity == SeverityHigh && issue.LikelyHallucination && issue.ElementType != "" {
			suspiciousTypes[issue.ElementType] = struct{}{}
		}
	}

	penalty := float64(high)*v.PenaltyHigh + float64(medium)*v.PenaltyMedium
	if penalty > v.PenaltyCap {
		penalty = v.PenaltyCap
	}

	var validated, suspicious []DetectedElement
	for _, elem := range elements {
		_, flagged := suspiciousTypes[strings.ToLower(elem.ElementType)]
		if flagged && elem.Confidence != ConfidenceHigh {
			suspicious = append(suspicious, elem)
			continue
		}
		validated = append(validated, elem)
	}

	return ValidationResult{
		IsPlausible:        high == 0,
		Issues:             issues,
		ConfidencePenalty:  penalty,
		ValidatedElements:  validated,
		SuspiciousElements: suspicious,
	}, nil
}
