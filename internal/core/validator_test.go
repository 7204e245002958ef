package core

import (
	"context"
	"testing"
)

func detection(elementType string, status ConstructionStatus, confidence ConfidenceLevel) DetectedElement {
	return DetectedElement{
		ElementType:  elementType,
		CountVisible: 1,
		Status:       status,
		Confidence:   confidence,
	}
}

func TestValidateEmptyBatchIsPlausible(t *testing.T) {
	v := NewGeometricValidator()
	result, err := v.Validate(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.IsPlausible {
		t.Fatal("empty batch should be plausible")
	}
	if result.ConfidencePenalty != 0 {
		t.Fatalf("expected zero penalty, got %v", result.ConfidencePenalty)
	}
}

func TestValidateBeamWithoutSupport(t *testing.T) {
	v := NewGeometricValidator()
	elements := []DetectedElement{detection("beam", ConstructionInProgress, ConfidenceMedium)}

	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.IsPlausible {
		t.Fatal("beam without column or wall should not be plausible")
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "missing_structural_support" && issue.ElementType == "beam" {
			found = true
			if issue.Severity != SeverityHigh {
				t.Fatalf("expected high severity, got %s", issue.Severity)
			}
			if !issue.LikelyHallucination {
				t.Fatal("support issue should be flagged as likely hallucination")
			}
		}
	}
	if !found {
		t.Fatalf("missing structural support issue not reported: %+v", result.Issues)
	}
	if len(result.SuspiciousElements) != 1 {
		t.Fatalf("expected 1 suspicious element, got %d", len(result.SuspiciousElements))
	}
	if len(result.ValidatedElements) != 0 {
		t.Fatalf("expected 0 validated elements, got %d", len(result.ValidatedElements))
	}
}

func TestValidateBeamWithColumnIsPlausible(t *testing.T) {
	v := NewGeometricValidator()
	elements := []DetectedElement{
		detection("beam", ConstructionInProgress, ConfidenceMedium),
		detection("column", ConstructionInProgress, ConfidenceHigh),
		detection("foundation", ConstructionCompleted, ConfidenceHigh),
	}
	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.IsPlausible {
		t.Fatalf("expected plausible batch, issues: %+v", result.Issues)
	}
	if len(result.ValidatedElements) != 3 {
		t.Fatalf("expected all elements validated, got %d", len(result.ValidatedElements))
	}
}

func TestValidateHighConfidenceDetectionIsNotSuspicious(t *testing.T) {
	v := NewGeometricValidator()
	elements := []DetectedElement{detection("beam", ConstructionInProgress, ConfidenceHigh)}

	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.SuspiciousElements) != 0 {
		t.Fatalf("high confidence detection must not be suspicious: %+v", result.SuspiciousElements)
	}
	if len(result.ValidatedElements) != 1 {
		t.Fatalf("expected element kept, got %d validated", len(result.ValidatedElements))
	}
	// The issue itself is still reported.
	if result.IsPlausible {
		t.Fatal("issue should still mark the batch implausible")
	}
}

func TestValidateFoundationSeverityDependsOnStrictMode(t *testing.T) {
	v := NewGeometricValidator()
	elements := []DetectedElement{detection("column", ConstructionInProgress, ConfidenceMedium)}

	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.IsPlausible {
		t.Fatal("medium-only issues should keep the batch plausible")
	}
	if len(result.Issues) != 1 || result.Issues[0].Severity != SeverityMedium {
		t.Fatalf("expected one medium issue, got %+v", result.Issues)
	}
	if result.Issues[0].LikelyHallucination {
		t.Fatal("foundation issue must not be a hallucination marker")
	}
	if result.ConfidencePenalty != DefaultPenaltyMedium {
		t.Fatalf("expected penalty %v, got %v", DefaultPenaltyMedium, result.ConfidencePenalty)
	}

	strict, err := v.Validate(context.Background(), elements, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strict.IsPlausible {
		t.Fatal("strict mode should upgrade the issue to high severity")
	}
	if len(strict.Issues) != 1 || strict.Issues[0].Severity != SeverityHigh {
		t.Fatalf("expected one high issue in strict mode, got %+v", strict.Issues)
	}
	// No element type on foundation issues, so nothing becomes suspicious.
	if len(strict.SuspiciousElements) != 0 {
		t.Fatalf("foundation issue must not flag elements: %+v", strict.SuspiciousElements)
	}
}

func TestValidateSequenceViolation(t *testing.T) {
	v := NewGeometricValidator()
	elements := []DetectedElement{
		detection("roof", ConstructionCompleted, ConfidenceLow),
		detection("foundation", ConstructionNotStarted, ConfidenceHigh),
		detection("column", ConstructionInProgress, ConfidenceHigh),
		detection("wall", ConstructionInProgress, ConfidenceHigh),
	}
	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "invalid_sequence" {
			found = true
			if issue.ElementType != "roof" {
				t.Fatalf("sequence issue should carry the completed type, got %q", issue.ElementType)
			}
			if !issue.LikelyHallucination || issue.Severity != SeverityHigh {
				t.Fatalf("unexpected sequence issue shape: %+v", issue)
			}
		}
	}
	if !found {
		t.Fatalf("sequence violation not reported: %+v", result.Issues)
	}
	if len(result.SuspiciousElements) != 1 || result.SuspiciousElements[0].ElementType != "roof" {
		t.Fatalf("expected the low-confidence roof to be suspicious, got %+v", result.SuspiciousElements)
	}
}

func TestValidatePenaltyCap(t *testing.T) {
	v := NewGeometricValidator()
	// beam and slab unsupported plus completed roof over a not started
	// foundation piles up enough high issues to hit the cap.
	elements := []DetectedElement{
		detection("beam", ConstructionCompleted, ConfidenceLow),
		detection("slab", ConstructionCompleted, ConfidenceLow),
		detection("roof", ConstructionCompleted, ConfidenceLow),
		detection("foundation", ConstructionNotStarted, ConfidenceHigh),
	}
	result, err := v.Validate(context.Background(), elements, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ConfidencePenalty > DefaultPenaltyCap {
		t.Fatalf("penalty %v exceeds cap %v", result.ConfidencePenalty, DefaultPenaltyCap)
	}
	if result.ConfidencePenalty != DefaultPenaltyCap {
		t.Fatalf("expected penalty capped at %v, got %v", DefaultPenaltyCap, result.ConfidencePenalty)
	}
}
