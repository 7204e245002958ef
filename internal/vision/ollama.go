package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"

	ollama "github.com/JexSrs/go-ollama"

	"virag/internal/core"
	"virag/pkg/domain"
)

const (
	defaultOllamaHost = "http://localhost:11434"
	defaultModel      = "llava:13b"
	defaultRetries    = 2
)

// Compile-time contract assertion.
var _ Analyzer = (*OllamaAnalyzer)(nil)

// OllamaAnalyzer implements Analyzer against an Ollama server. The photo is
// sent inline as base64; the serving gateway feeds it to the model's image
// channel.
type OllamaAnalyzer struct {
	client  *ollama.Ollama
	model   string
	retries int
	log     core.Logger
}

// OllamaOption customizes an OllamaAnalyzer.
type OllamaOption func(*OllamaAnalyzer)

// WithModel overrides the model name.
func WithModel(model string) OllamaOption {
	return func(a *OllamaAnalyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxRetries sets how many times a failed or unparsable generation is retried.
func WithMaxRetries(n int) OllamaOption {
	return func(a *OllamaAnalyzer) {
		if n >= 0 {
			a.retries = n
		}
	}
}

// WithAnalyzerLogger injects a structured logger.
func WithAnalyzerLogger(log core.Logger) OllamaOption {
	return func(a *OllamaAnalyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// NewOllamaAnalyzer connects to the Ollama server at host (empty falls back
// to VIRAG_OLLAMA_HOST, then a localhost default). The model defaults to
// VIRAG_OLLAMA_MODEL when set.
func NewOllamaAnalyzer(host string, opts ...OllamaOption) (*OllamaAnalyzer, error) {
	if host == "" {
		host = os.Getenv("VIRAG_OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	model := os.Getenv("VIRAG_OLLAMA_MODEL")
	if model == "" {
		model = defaultModel
	}
	a := &OllamaAnalyzer{
		client:  ollama.New(*u),
		model:   model,
		retries: defaultRetries,
		log:     core.NoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze sends the photo to the model and parses its structured output,
// retrying when the model returns prose the parser cannot salvage.
func (a *OllamaAnalyzer) Analyze(ctx context.Context, image []byte, expected []domain.ExpectedElement) (Observation, error) {
	if len(image) == 0 {
		return Observation{}, fmt.Errorf("empty image")
	}
	prompt := buildPrompt(image, expected)

	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Observation{}, err
		}
		res, err := a.client.Generate(
			a.client.Generate.WithModel(a.model),
			a.client.Generate.WithSystem(systemPrompt),
			a.client.Generate.WithPrompt(prompt),
		)
		if err != nil {
			lastErr = fmt.Errorf("ollama generate: %w", err)
			a.log.Warn("vision generation failed", "attempt", attempt+1, "error", err)
			continue
		}
		if !res.Done || res.Response == "" {
			lastErr = fmt.Errorf("incomplete model response")
			a.log.Warn("vision response incomplete", "attempt", attempt+1)
			continue
		}
		obs, err := ParseObservation(res.Response)
		if err != nil {
			lastErr = err
			a.log.Warn("vision output unparsable", "attempt", attempt+1, "error", err)
			continue
		}
		a.log.Debug("vision analysis complete", "model", a.model, "elements", len(obs.Elements), "attempt", attempt+1)
		return obs, nil
	}
	return Observation{}, fmt.Errorf("vision analysis failed after %d attempts: %w", a.retries+1, lastErr)
}

const systemPrompt = `You are a professional construction site analyst performing a technical assessment.
Only describe structural elements that are clearly visible in the image. Do not guess,
infer, or assume anything not directly observable. Indicate a confidence level
(HIGH, MEDIUM or LOW) for every observation based on visibility and clarity:
HIGH means the element is mostly visible and unambiguous, MEDIUM means partially
visible or somewhat unclear, LOW means barely visible or uncertain.`

const jsonInstructions = `OUTPUT AS JSON:
{
    "viewing_conditions": {"viewing_angle": "str", "lighting_quality": "str", "image_clarity": "str"},
    "elements_detected": [{"element_type": "str", "confidence": "HIGH|MEDIUM|LOW", "status": "completed|in_progress|not_started|not_visible", "description": "str", "count": 1}],
    "confidence_score": 0.0
}`

func buildPrompt(image []byte, expected []domain.ExpectedElement) string {
	var b strings.Builder
	if len(expected) > 0 {
		b.WriteString("EXPECTED ELEMENTS FROM PROJECT MODEL (reference only, report only if visually confirmed):\n")
		limit := len(expected)
		if limit > 5 {
			limit = 5
		}
		for _, el := range expected[:limit] {
			fmt.Fprintf(&b, "- %s: %s\n", el.ElementType, el.Name)
		}
		b.WriteString("\n")
	}
	b.WriteString(jsonInstructions)
	b.WriteString("\n\nIMAGE (base64 JPEG):\n")
	b.WriteString(base64.StdEncoding.EncodeToString(image))
	return b.String()
}
