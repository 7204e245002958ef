// Package vision turns construction site photos into structured element
// observations using a vision language model served behind Ollama.
package vision

import (
	"context"

	"virag/pkg/domain"
)

// ViewingConditions describes the photo quality context reported by the model.
type ViewingConditions struct {
	ViewingAngle    string `json:"viewing_angle"`
	LightingQuality string `json:"lighting_quality"`
	ImageClarity    string `json:"image_clarity"`
}

// ObservedElement is a single element the model reported seeing.
type ObservedElement struct {
	ElementType string `json:"element_type"`
	Confidence  string `json:"confidence"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Count       *int   `json:"count,omitempty"`
}

// Observation is the structured result of analyzing one photo.
type Observation struct {
	ViewingConditions ViewingConditions `json:"viewing_conditions"`
	Elements          []ObservedElement `json:"elements_detected"`
	ConfidenceScore   float64           `json:"confidence_score"`
}

// Analyzer produces a structured observation for a photo. The expected
// elements, when provided, are offered to the model as reference context only.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, expected []domain.ExpectedElement) (Observation, error)
}

// DetectedElements converts the observation into typed detections, dropping
// entries whose element type is empty. Unknown confidence strings degrade to
// low, unknown status strings to in_progress, matching the parser defaults
// used upstream. An element without a count reading counts as one instance;
// effective counts are assigned later by memory reconciliation.
func (o Observation) DetectedElements() []domain.DetectedElement {
	out := make([]domain.DetectedElement, 0, len(o.Elements))
	for _, el := range o.Elements {
		if el.ElementType == "" {
			continue
		}
		conf, err := domain.ParseConfidence(el.Confidence)
		if err != nil {
			conf = domain.ConfidenceLow
		}
		status, err := domain.ParseConstructionStatus(el.Status)
		if err != nil {
			status = domain.ConstructionInProgress
		}
		count := 1
		if el.Count != nil && *el.Count >= 0 {
			count = *el.Count
		}
		out = append(out, domain.DetectedElement{
			ElementType:  el.ElementType,
			Confidence:   conf,
			Status:       status,
			Description:  el.Description,
			CountVisible: count,
		})
	}
	return out
}
