// Package analysis orchestrates the full photo pipeline: archive the photo,
// run the vision model, match detections against the project and reconcile
// the result through element memory.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"virag/internal/blob"
	"virag/internal/core"
	"virag/internal/matcher"
	"virag/internal/vision"
	"virag/pkg/domain"
)

// Result bundles everything produced by one photo analysis.
type Result struct {
	AnalysisID  string              `json:"analysis_id"`
	ProjectID   string              `json:"project_id"`
	PhotoKey    string              `json:"photo_key,omitempty"`
	Observation vision.Observation  `json:"observation"`
	Report      core.AnalysisReport `json:"report"`
	AnalyzedAt  time.Time           `json:"analyzed_at"`
}

// Analyzer wires the photo store, the vision model, the element matcher and
// the reconciliation service into one entry point.
type Analyzer struct {
	photos  blob.Store
	vision  vision.Analyzer
	matcher *matcher.Matcher
	service *core.Service
	log     core.Logger
	now     func() time.Time
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLogger injects a structured logger.
func WithLogger(log core.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithMatcher replaces the default element matcher.
func WithMatcher(m *matcher.Matcher) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.matcher = m
		}
	}
}

// New constructs an Analyzer. photos may be nil when photo archival is not
// wanted; vis and service are required.
func New(photos blob.Store, vis vision.Analyzer, service *core.Service, opts ...Option) (*Analyzer, error) {
	if vis == nil {
		return nil, fmt.Errorf("vision analyzer required")
	}
	if service == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	a := &Analyzer{
		photos:  photos,
		vision:  vis,
		matcher: matcher.New(),
		service: service,
		log:     core.NoopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AnalyzePhoto runs the full pipeline for one construction site photo.
// Vision detections take precedence; keyword matches against the model's
// textual descriptions fill in expected elements the structured output
// missed. Photo archival failures are logged but do not abort the analysis.
func (a *Analyzer) AnalyzePhoto(ctx context.Context, project domain.Project, photo []byte) (Result, error) {
	if project.ProjectID == "" {
		return Result{}, core.InvalidInputError{Field: "project_id", Reason: "must not be empty"}
	}
	if len(photo) == 0 {
		return Result{}, core.InvalidInputError{Field: "photo", Reason: "must not be empty"}
	}
	analysisID := uuid.NewString()
	ts := a.now().UTC()

	res := Result{
		AnalysisID: analysisID,
		ProjectID:  project.ProjectID,
		AnalyzedAt: ts,
	}

	if a.photos != nil {
		key := blob.PhotoKey(project.ProjectID, analysisID)
		_, err := a.photos.Put(ctx, key, bytes.NewReader(photo), blob.PutOptions{
			ContentType: "image/jpeg",
			Metadata:    map[string]string{"project_id": project.ProjectID, "analysis_id": analysisID},
		})
		if err != nil {
			a.log.Warn("photo archival failed", "project_id", project.ProjectID, "analysis_id", analysisID, "error", err)
		} else {
			res.PhotoKey = key
		}
	}

	obs, err := a.vision.Analyze(ctx, photo, project.Elements)
	if err != nil {
		return Result{}, fmt.Errorf("vision analysis: %w", err)
	}
	res.Observation = obs

	detected := obs.DetectedElements()
	keywordHits := a.matcher.Compare(describeObservation(obs), project, nil)
	merged := matcher.Merge(detected, keywordHits)

	report, err := a.service.AnalyzeDetections(ctx, project, merged, ts)
	if err != nil {
		return Result{}, err
	}
	res.Report = report

	a.log.Info("photo analyzed",
		"project_id", project.ProjectID,
		"analysis_id", analysisID,
		"detections", len(merged),
		"progress", report.Progress.OverallProgress)
	return res, nil
}

// ClearProjectMemory drops all element memory for the project.
func (a *Analyzer) ClearProjectMemory(ctx context.Context, projectID string) (int, error) {
	return a.service.ClearProjectMemory(ctx, projectID)
}

// describeObservation flattens the structured observation into the free-text
// form the keyword matcher consumes.
func describeObservation(obs vision.Observation) string {
	var b strings.Builder
	for _, el := range obs.Elements {
		b.WriteString(el.ElementType)
		b.WriteString(" ")
		b.WriteString(el.Description)
		b.WriteString(". ")
	}
	return b.String()
}
