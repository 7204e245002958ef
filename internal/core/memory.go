package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"virag/pkg/domain"
)

// coveringTypes are element types that can plausibly occlude other elements
// in a photo. When a permanent type goes unseen, the coverer types detected
// in the same round are attached as the occlusion hint. The hint is
// round-global and not spatially filtered.
var coveringTypes = toSet("wall", "covering", "slab", "roof", "panel")

// MemoryService reconciles detection batches against per-project element
// memory. All persistence goes through the injected store; records are
// written after every update, never batched across calls.
type MemoryService struct {
	store MemoryStore
	log   Logger
	now   func() time.Time
}

// MemoryServiceOption configures a MemoryService.
type MemoryServiceOption func(*MemoryService)

// WithMemoryLogger installs a logger on the memory service.
func WithMemoryLogger(log Logger) MemoryServiceOption {
	return func(s *MemoryService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMemoryClock overrides the wall clock, for tests.
func WithMemoryClock(now func() time.Time) MemoryServiceOption {
	return func(s *MemoryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryService constructs a memory service backed by the supplied store.
func NewMemoryService(store MemoryStore, opts ...MemoryServiceOption) *MemoryService {
	s := &MemoryService{
		store: store,
		log:   NoopLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookupOrCreate fetches the record for (project, type) or seeds a fresh one.
// A seeded record carries zero counters so Update applies the same transition
// logic to new and existing records alike.
func (s *MemoryService) lookupOrCreate(ctx context.Context, projectID, elementType string, ts time.Time) (ElementMemoryRecord, error) {
	memoryID := domain.MemoryID(projectID, elementType)
	record, ok, err := s.store.Get(ctx, memoryID)
	if err != nil {
		return ElementMemoryRecord{}, MemoryUnavailableError{ProjectID: projectID, Op: "get", Err: err}
	}
	if ok {
		s.log.Debug("memory_found", "memory_id", memoryID)
		return record, nil
	}

	lifecycle := Classify(elementType)
	record = ElementMemoryRecord{
		MemoryID:        memoryID,
		ProjectID:       projectID,
		ElementType:     strings.ToLower(elementType),
		Lifecycle:       lifecycle,
		FirstDetectedAt: ts,
		LastSeenAt:      ts,
		CurrentStatus:   StatusVisible,
		ConfidenceLevel: ConfidenceMedium,
		CreatedAt:       s.now().UTC(),
	}
	s.log.Info("memory_created", "memory_id", memoryID, "lifecycle", string(lifecycle))
	return record, nil
}

// Update applies one observation round to the (project, type) record and
// persists it. visibleCount zero means the type went unseen this round;
// coveringElements is the occlusion hint for that case.
func (s *MemoryService) Update(ctx context.Context, projectID, elementType string, visibleCount int, ts time.Time, coveringElements []string) (MemoryUpdate, error) {
	if strings.TrimSpace(elementType) == "" {
		return MemoryUpdate{}, InvalidInputError{Field: "element_type", Reason: "must not be empty"}
	}
	if visibleCount < 0 {
		return MemoryUpdate{}, InvalidInputError{Field: "count_visible", Reason: "must not be negative"}
	}

	record, err := s.lookupOrCreate(ctx, projectID, elementType, ts)
	if err != nil {
		return MemoryUpdate{}, err
	}

	previousCount := record.CurrentCount
	previousStatus := record.CurrentStatus

	if visibleCount > 0 {
		record.LastSeenAt = ts
		record.TimesDetected++
		if visibleCount > record.MaxCountSeen {
			record.MaxCountSeen = visibleCount
		}
		record.CurrentCount = visibleCount
		record.CurrentStatus = StatusVisible
		record.Notes = "visible in latest analysis"
	} else {
		record.TimesHidden++

		switch record.Lifecycle {
		case LifecyclePermanent:
			// Presumed occluded: the effective count is kept so the element
			// keeps contributing to progress.
			record.CurrentStatus = StatusHidden
			if len(coveringElements) > 0 {
				record.LikelyCoveredBy = append([]string(nil), coveringElements...)
				record.ConfidenceLevel = ConfidenceHigh
				record.Notes = fmt.Sprintf("likely covered by %s", strings.Join(coveringElements, ", "))
			} else {
				record.ConfidenceLevel = ConfidenceMedium
				record.Notes = "not visible but permanent structure maintained"
			}
		case LifecycleTemporary:
			record.CurrentStatus = StatusRemoved
			record.CurrentCount = 0
			record.Notes = "temporary element removed (expected)"
		default:
			record.CurrentStatus = StatusHidden
			record.ConfidenceLevel = ConfidenceLow
			record.Notes = "status uncertain - requires review"
		}
	}

	record.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, record); err != nil {
		return MemoryUpdate{}, MemoryUnavailableError{ProjectID: projectID, Op: "put", Err: err}
	}

	update := MemoryUpdate{
		ElementType:           record.ElementType,
		Lifecycle:             record.Lifecycle,
		PreviousCount:         previousCount,
		CurrentCountVisible:   visibleCount,
		EffectiveCount:        record.CurrentCount,
		PreviousStatus:        previousStatus,
		CurrentStatus:         record.CurrentStatus,
		MaxCountSeen:          record.MaxCountSeen,
		ConfidenceLevel:       record.ConfidenceLevel,
		Notes:                 record.Notes,
		ContributesToProgress: record.CurrentStatus != StatusRemoved,
	}

	s.log.Info("memory_updated",
		"element_type", record.ElementType,
		"prev_count", previousCount,
		"curr_count", visibleCount,
		"status", string(record.CurrentStatus),
		"contributes", update.ContributesToProgress,
	)
	return update, nil
}

// loadProjectMemory returns every record of a project keyed by element type.
// Read failures degrade to an empty map: the analysis continues on raw
// detections, less accurate but still useful.
func (s *MemoryService) loadProjectMemory(ctx context.Context, projectID string) map[string]ElementMemoryRecord {
	records, err := s.store.QueryByProject(ctx, projectID)
	if err != nil {
		s.log.Warn("memory_load_failed", "project_id", projectID, "error", err.Error())
		return map[string]ElementMemoryRecord{}
	}
	byType := make(map[string]ElementMemoryRecord, len(records))
	for _, record := range records {
		byType[record.ElementType] = record
	}
	s.log.Debug("project_memory_loaded", "project_id", projectID, "count", len(byType))
	return byType
}

// ProcessAnalysis reconciles one detection batch against project memory.
// Detected types are updated with their summed visible counts; remembered
// types absent this round are updated with count zero and the round's
// coverer hint, and re-enter the adjusted list while they still contribute
// to progress. A zero ts defaults to the current time.
func (s *MemoryService) ProcessAnalysis(ctx context.Context, projectID string, detected []DetectedElement, ts time.Time) (AnalysisAdjustment, error) {
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	memory := s.loadProjectMemory(ctx, projectID)

	countByType := make(map[string]int, len(detected))
	var typeOrder []string
	var covering []string
	for _, elem := range detected {
		elemType := strings.ToLower(elem.ElementType)
		if strings.TrimSpace(elemType) == "" {
			return AnalysisAdjustment{}, InvalidInputError{Field: "element_type", Reason: "must not be empty"}
		}
		if _, seen := countByType[elemType]; !seen {
			typeOrder = append(typeOrder, elemType)
			if _, coverer := coveringTypes[elemType]; coverer {
				covering = append(covering, elemType)
			}
		}
		countByType[elemType] += elem.CountVisible
	}

	adjustment := AnalysisAdjustment{CoveringElementsDetected: covering}

	record := func(elemType string, count int, update MemoryUpdate) {
		effective := update.EffectiveCount
		adjustment.MemoryUpdates = append(adjustment.MemoryUpdates, update)
		adjustment.AdjustedElements = append(adjustment.AdjustedElements, DetectedElement{
			ElementType:           elemType,
			CountVisible:          count,
			EffectiveCount:        &effective,
			MemoryStatus:          update.CurrentStatus,
			ContributesToProgress: update.ContributesToProgress,
		})
	}

	for _, elemType := range typeOrder {
		count := countByType[elemType]
		var hint []string
		if count == 0 {
			hint = covering
		}
		update, err := s.Update(ctx, projectID, elemType, count, ts, hint)
		if err != nil {
			if _, ok := err.(InvalidInputError); ok {
				return AnalysisAdjustment{}, err
			}
			s.log.Error("memory_update_failed", "element_type", elemType, "error", err.Error())
			adjustment.Failures = append(adjustment.Failures, UpdateFailure{ElementType: elemType, Err: err})
			continue
		}
		record(elemType, count, update)
	}

	// Remembered types not seen this round.
	var absent []string
	for elemType := range memory {
		if _, seen := countByType[elemType]; !seen {
			absent = append(absent, elemType)
		}
	}
	sort.Strings(absent)
	for _, elemType := range absent {
		update, err := s.Update(ctx, projectID, elemType, 0, ts, covering)
		if err != nil {
			s.log.Error("memory_update_failed", "element_type", elemType, "error", err.Error())
			adjustment.Failures = append(adjustment.Failures, UpdateFailure{ElementType: elemType, Err: err})
			continue
		}
		adjustment.MemoryUpdates = append(adjustment.MemoryUpdates, update)
		if update.ContributesToProgress {
			effective := update.EffectiveCount
			adjustment.AdjustedElements = append(adjustment.AdjustedElements, DetectedElement{
				ElementType:           elemType,
				CountVisible:          0,
				EffectiveCount:        &effective,
				MemoryStatus:          update.CurrentStatus,
				ContributesToProgress: true,
			})
		}
	}

	hidden := 0
	for _, elem := range adjustment.AdjustedElements {
		if elem.MemoryStatus == StatusHidden {
			hidden++
		}
	}
	s.log.Info("analysis_reconciled",
		"project_id", projectID,
		"adjusted", len(adjustment.AdjustedElements),
		"hidden", hidden,
		"failures", len(adjustment.Failures),
	)
	return adjustment, nil
}

// ClearProjectMemory deletes every memory record of a project and returns the
// number removed. Irreversible; never invoked implicitly by analysis paths.
func (s *MemoryService) ClearProjectMemory(ctx context.Context, projectID string) (int, error) {
	records, err := s.store.QueryByProject(ctx, projectID)
	if err != nil {
		return 0, MemoryUnavailableError{ProjectID: projectID, Op: "query", Err: err}
	}
	deleted := 0
	for _, record := range records {
		ok, err := s.store.Delete(ctx, record.MemoryID)
		if err != nil {
			return deleted, MemoryUnavailableError{ProjectID: projectID, Op: "delete", Err: err}
		}
		if ok {
			deleted++
		}
	}
	s.log.Info("memory_cleared", "project_id", projectID, "count", deleted)
	return deleted, nil
}
