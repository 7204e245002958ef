package vision

import (
	"strings"
	"testing"

	"virag/pkg/domain"
)

const sampleOutput = `{
	"viewing_conditions": {
		"viewing_angle": "frontal",
		"lighting_quality": "good",
		"image_clarity": "clear"
	},
	"elements_detected": [
		{"element_type": "column", "confidence": "high", "status": "in_progress", "description": "concrete columns with formwork", "count": 4},
		{"element_type": "wall", "confidence": "medium", "status": "completed", "description": "masonry wall"}
	],
	"confidence_score": 0.85
}`

func TestParseObservation(t *testing.T) {
	obs, err := ParseObservation(sampleOutput)
	if err != nil {
		t.Fatalf("ParseObservation: %v", err)
	}
	if obs.ViewingConditions.ViewingAngle != "frontal" {
		t.Fatalf("unexpected conditions: %+v", obs.ViewingConditions)
	}
	if len(obs.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(obs.Elements))
	}
	if obs.Elements[0].Count == nil || *obs.Elements[0].Count != 4 {
		t.Fatalf("count not decoded: %+v", obs.Elements[0])
	}
	if obs.ConfidenceScore != 0.85 {
		t.Fatalf("unexpected score %v", obs.ConfidenceScore)
	}
}

func TestParseObservationStripsProseAndFences(t *testing.T) {
	wrapped := "Sure, here is the analysis:\n```json\n" + sampleOutput + "\n```\nLet me know if you need more."
	obs, err := ParseObservation(wrapped)
	if err != nil {
		t.Fatalf("ParseObservation: %v", err)
	}
	if len(obs.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(obs.Elements))
	}
}

func TestParseObservationNoJSON(t *testing.T) {
	if _, err := ParseObservation("the image shows a building under construction"); err == nil {
		t.Fatal("expected error for output without JSON")
	}
}

func TestParseObservationInvalidJSON(t *testing.T) {
	if _, err := ParseObservation(`{"elements_detected": [`); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestParseObservationScoreOutOfRange(t *testing.T) {
	out := strings.Replace(sampleOutput, "0.85", "1.7", 1)
	if _, err := ParseObservation(out); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestDetectedElementsConversion(t *testing.T) {
	obs, err := ParseObservation(sampleOutput)
	if err != nil {
		t.Fatalf("ParseObservation: %v", err)
	}
	obs.Elements = append(obs.Elements,
		ObservedElement{ElementType: "", Description: "dropped"},
		ObservedElement{ElementType: "beam", Confidence: "definitely", Status: "melted"},
	)

	detected := obs.DetectedElements()
	if len(detected) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(detected))
	}
	if detected[0].Confidence != domain.ConfidenceHigh || detected[0].CountVisible != 4 {
		t.Fatalf("unexpected column: %+v", detected[0])
	}
	if detected[1].Status != domain.ConstructionCompleted || detected[1].CountVisible != 1 {
		t.Fatalf("element without count must default to 1: %+v", detected[1])
	}
	// Unknown confidence and status degrade rather than fail.
	if detected[2].Confidence != domain.ConfidenceLow || detected[2].Status != domain.ConstructionInProgress {
		t.Fatalf("unexpected degraded element: %+v", detected[2])
	}
	for _, d := range detected {
		if d.EffectiveCount != nil {
			t.Fatalf("effective count is assigned by reconciliation, not parsing: %+v", d)
		}
	}
}
