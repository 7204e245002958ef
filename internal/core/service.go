package core

import (
	"context"
	"time"
)

// AnalysisReport is the full outcome of one analysis pass through the core
// pipeline: validation, memory reconciliation, progress computation.
type AnalysisReport struct {
	Validation ValidationResult   `json:"validation"`
	Adjustment AnalysisAdjustment `json:"adjustment"`
	Progress   ProgressReport     `json:"progress"`
	Alerts     []string           `json:"alerts,omitempty"`
}

// Service wires the validator, memory service, and progress calculator into
// the per-analysis pipeline. It owns the one orchestration decision the
// validator delegates: suspicious elements are dropped before reconciliation.
type Service struct {
	validator  *GeometricValidator
	memory     *MemoryService
	calculator *Calculator

	log     Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time

	// StrictValidation upgrades foundation-presence issues to high severity.
	StrictValidation bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(log Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetricsRecorder installs a metrics recorder for operation outcomes.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer installs a tracer around service operations.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStrictValidation enables strict mode on the geometric validator.
func WithStrictValidation() ServiceOption {
	return func(s *Service) { s.StrictValidation = true }
}

// NewService constructs the analysis pipeline over the supplied memory store.
func NewService(store MemoryStore, opts ...ServiceOption) *Service {
	s := &Service{
		log:     NoopLogger(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewGeometricValidator()
	s.memory = NewMemoryService(store, WithMemoryLogger(s.log), WithMemoryClock(s.now))
	s.calculator = NewCalculator(WithCalculatorLogger(s.log))
	return s
}

// Validator returns the underlying geometric validator.
func (s *Service) Validator() *GeometricValidator { return s.validator }

// Memory returns the underlying element memory service.
func (s *Service) Memory() *MemoryService { return s.memory }

// Calculator returns the underlying progress calculator.
func (s *Service) Calculator() *Calculator { return s.calculator }

// instrument wraps an operation with tracing and metrics.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.now()
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, s.now().Sub(start))
	return err
}

// AnalyzeDetections runs one detection batch through the full pipeline:
// geometric validation, suspicious-element drop, memory reconciliation,
// progress computation, and alerting against the project's expected set.
func (s *Service) AnalyzeDetections(ctx context.Context, project Project, detected []DetectedElement, ts time.Time) (AnalysisReport, error) {
	var report AnalysisReport
	err := s.instrument(ctx, "analyze_detections", func(ctx context.Context) error {
		validation, err := s.validator.Validate(ctx, detected, s.StrictValidation)
		if err != nil {
			return ComputationError{Op: "geometric validation", Err: err}
		}
		report.Validation = validation
		if len(validation.SuspiciousElements) > 0 {
			s.log.Warn("suspicious_elements_dropped",
				"project_id", project.ProjectID,
				"count", len(validation.SuspiciousElements),
				"penalty", validation.ConfidencePenalty,
			)
		}

		adjustment, err := s.memory.ProcessAnalysis(ctx, project.ProjectID, validation.ValidatedElements, ts)
		if err != nil {
			return err
		}
		report.Adjustment = adjustment

		report.Progress = s.calculator.ProgressMetrics(validation.ValidatedElements, project.Elements, adjustment.AdjustedElements)
		report.Alerts = s.calculator.IdentifyAlerts(validation.ValidatedElements, project)
		return nil
	})
	if err != nil {
		return AnalysisReport{}, err
	}
	return report, nil
}

// ClearProjectMemory removes all memory records of a project. Explicit
// maintenance operation; see MemoryService.ClearProjectMemory.
func (s *Service) ClearProjectMemory(ctx context.Context, projectID string) (int, error) {
	var deleted int
	err := s.instrument(ctx, "clear_project_memory", func(ctx context.Context) error {
		var err error
		deleted, err = s.memory.ClearProjectMemory(ctx, projectID)
		return err
	})
	return deleted, err
}
