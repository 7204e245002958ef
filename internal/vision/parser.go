package vision

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseObservation extracts the first JSON object from raw model output and
// decodes it. Models routinely wrap the JSON in prose or code fences, so
// everything outside the outermost braces is ignored.
func ParseObservation(output string) (Observation, error) {
	block := jsonBlockRe.FindString(output)
	if block == "" {
		return Observation{}, fmt.Errorf("no JSON object in model output")
	}
	var obs Observation
	if err := json.Unmarshal([]byte(block), &obs); err != nil {
		return Observation{}, fmt.Errorf("decode model output: %w", err)
	}
	if obs.ConfidenceScore < 0 || obs.ConfidenceScore > 1 {
		return Observation{}, fmt.Errorf("confidence score %v out of range", obs.ConfidenceScore)
	}
	return obs, nil
}
