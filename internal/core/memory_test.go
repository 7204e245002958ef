package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"virag/internal/infra/persistence/memory"
	"virag/pkg/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestMemoryService(t *testing.T) (*MemoryService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewMemoryService(store, WithMemoryClock(fixedClock(testTime))), store
}

func TestUpdateCreatesRecordOnFirstSighting(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	update, err := svc.Update(ctx, "proj-1", "Column", 3, testTime, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if update.ElementType != "column" {
		t.Fatalf("expected lowercased type, got %q", update.ElementType)
	}
	if update.Lifecycle != LifecyclePermanent {
		t.Fatalf("expected permanent lifecycle, got %s", update.Lifecycle)
	}
	if update.CurrentStatus != StatusVisible || update.EffectiveCount != 3 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if !update.ContributesToProgress {
		t.Fatal("visible element must contribute to progress")
	}

	record, ok, err := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if err != nil || !ok {
		t.Fatalf("record not persisted: ok=%v err=%v", ok, err)
	}
	if record.TimesDetected != 1 {
		t.Fatalf("first sighting should count once, got %d", record.TimesDetected)
	}
	if record.MaxCountSeen != 3 || record.CurrentCount != 3 {
		t.Fatalf("unexpected counts: %+v", record)
	}
}

func TestUpdateLifecycleIsImmutable(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "scaffold", 2, testTime, nil); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	later := testTime.Add(24 * time.Hour)
	if _, err := svc.Update(ctx, "proj-1", "scaffold", 0, later, nil); err != nil {
		t.Fatalf("second update: %v", err)
	}

	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "scaffold"))
	if record.Lifecycle != LifecycleTemporary {
		t.Fatalf("lifecycle changed after creation: %s", record.Lifecycle)
	}
	if record.FirstDetectedAt != testTime {
		t.Fatalf("first detection timestamp changed: %v", record.FirstDetectedAt)
	}
}

func TestUpdateCountsAreMonotonic(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	counts := []int{2, 5, 1, 0, 3}
	for i, count := range counts {
		ts := testTime.Add(time.Duration(i) * time.Hour)
		if _, err := svc.Update(ctx, "proj-1", "column", count, ts, nil); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if record.MaxCountSeen != 5 {
		t.Fatalf("max count should be 5, got %d", record.MaxCountSeen)
	}
	if record.TimesDetected != 4 {
		t.Fatalf("expected 4 detections, got %d", record.TimesDetected)
	}
	if record.TimesHidden != 1 {
		t.Fatalf("expected 1 hidden round, got %d", record.TimesHidden)
	}
}

func TestUpdateHiddenPermanentKeepsCount(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "column", 4, testTime, nil); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	update, err := svc.Update(ctx, "proj-1", "column", 0, testTime.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("hidden update: %v", err)
	}
	if update.CurrentStatus != StatusHidden {
		t.Fatalf("expected hidden, got %s", update.CurrentStatus)
	}
	if update.EffectiveCount != 4 {
		t.Fatalf("hidden permanent must keep effective count, got %d", update.EffectiveCount)
	}
	if update.ConfidenceLevel != ConfidenceMedium {
		t.Fatalf("no covering hint should yield medium confidence, got %s", update.ConfidenceLevel)
	}
	if !update.ContributesToProgress {
		t.Fatal("hidden permanent must keep contributing to progress")
	}

	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if record.LastSeenAt != testTime {
		t.Fatalf("last seen must not advance on hidden rounds: %v", record.LastSeenAt)
	}
}

func TestUpdateHiddenPermanentWithCoveringHint(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "column", 4, testTime, nil); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	update, err := svc.Update(ctx, "proj-1", "column", 0, testTime.Add(time.Hour), []string{"wall", "panel"})
	if err != nil {
		t.Fatalf("hidden update: %v", err)
	}
	if update.ConfidenceLevel != ConfidenceHigh {
		t.Fatalf("covering hint should yield high confidence, got %s", update.ConfidenceLevel)
	}

	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if len(record.LikelyCoveredBy) != 2 || record.LikelyCoveredBy[0] != "wall" {
		t.Fatalf("covering hint not recorded: %+v", record.LikelyCoveredBy)
	}
}

func TestUpdateHiddenTemporaryIsRemoved(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "scaffold", 2, testTime, nil); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	update, err := svc.Update(ctx, "proj-1", "scaffold", 0, testTime.Add(time.Hour), []string{"wall"})
	if err != nil {
		t.Fatalf("hidden update: %v", err)
	}
	if update.CurrentStatus != StatusRemoved {
		t.Fatalf("expected removed, got %s", update.CurrentStatus)
	}
	if update.EffectiveCount != 0 {
		t.Fatalf("removed temporary must zero the count, got %d", update.EffectiveCount)
	}
	if update.ContributesToProgress {
		t.Fatal("removed element must not contribute to progress")
	}
}

func TestUpdateHiddenFinishingIsUncertain(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "window", 6, testTime, nil); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	update, err := svc.Update(ctx, "proj-1", "window", 0, testTime.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("hidden update: %v", err)
	}
	if update.CurrentStatus != StatusHidden || update.ConfidenceLevel != ConfidenceLow {
		t.Fatalf("finishing hidden should be low-confidence hidden, got %+v", update)
	}
}

func TestUpdateRejectsBadInput(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "proj-1", "  ", 1, testTime, nil); err == nil {
		t.Fatal("expected error for empty element type")
	} else if _, ok := err.(InvalidInputError); !ok {
		t.Fatalf("expected InvalidInputError, got %T", err)
	}
	if _, err := svc.Update(ctx, "proj-1", "column", -1, testTime, nil); err == nil {
		t.Fatal("expected error for negative count")
	} else if _, ok := err.(InvalidInputError); !ok {
		t.Fatalf("expected InvalidInputError, got %T", err)
	}
}

func TestProcessAnalysisAdjustsAbsentTypes(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	ctx := context.Background()

	// Round 1: columns and scaffold visible.
	round1 := []DetectedElement{
		{ElementType: "column", CountVisible: 4, Status: ConstructionInProgress},
		{ElementType: "scaffold", CountVisible: 2, Status: ConstructionInProgress},
	}
	if _, err := svc.ProcessAnalysis(ctx, "proj-1", round1, testTime); err != nil {
		t.Fatalf("round 1: %v", err)
	}

	// Round 2: only a wall is visible; columns presumably covered, scaffold gone.
	round2 := []DetectedElement{
		{ElementType: "wall", CountVisible: 1, Status: ConstructionInProgress},
	}
	adjustment, err := svc.ProcessAnalysis(ctx, "proj-1", round2, testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("round 2: %v", err)
	}

	if len(adjustment.CoveringElementsDetected) != 1 || adjustment.CoveringElementsDetected[0] != "wall" {
		t.Fatalf("expected wall as coverer, got %+v", adjustment.CoveringElementsDetected)
	}

	byType := make(map[string]DetectedElement)
	for _, elem := range adjustment.AdjustedElements {
		byType[elem.ElementType] = elem
	}

	column, ok := byType["column"]
	if !ok {
		t.Fatalf("hidden column missing from adjusted elements: %+v", adjustment.AdjustedElements)
	}
	if column.MemoryStatus != StatusHidden || column.CountOrOne() != 4 {
		t.Fatalf("column should stay at effective count 4, got %+v", column)
	}
	if !column.ContributesToProgress {
		t.Fatal("hidden column must contribute to progress")
	}

	if _, ok := byType["scaffold"]; ok {
		t.Fatal("removed scaffold must not re-enter adjusted elements")
	}

	// The scaffold removal is still visible in the update trail.
	removed := false
	for _, update := range adjustment.MemoryUpdates {
		if update.ElementType == "scaffold" && update.CurrentStatus == StatusRemoved {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("scaffold removal not recorded: %+v", adjustment.MemoryUpdates)
	}
}

func TestProcessAnalysisSumsCountsPerType(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	detected := []DetectedElement{
		{ElementType: "Column", CountVisible: 2, Status: ConstructionInProgress},
		{ElementType: "column", CountVisible: 3, Status: ConstructionInProgress},
	}
	adjustment, err := svc.ProcessAnalysis(ctx, "proj-1", detected, testTime)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(adjustment.AdjustedElements) != 1 {
		t.Fatalf("case variants of one type must merge, got %+v", adjustment.AdjustedElements)
	}
	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if record.CurrentCount != 5 {
		t.Fatalf("expected summed count 5, got %d", record.CurrentCount)
	}
}

func TestProcessAnalysisZeroTimestampDefaultsToNow(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	detected := []DetectedElement{{ElementType: "column", CountVisible: 1}}
	if _, err := svc.ProcessAnalysis(ctx, "proj-1", detected, time.Time{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	record, _, _ := store.Get(ctx, domain.MemoryID("proj-1", "column"))
	if !record.LastSeenAt.Equal(testTime) {
		t.Fatalf("zero timestamp should default to clock time, got %v", record.LastSeenAt)
	}
}

func TestProcessAnalysisRejectsEmptyType(t *testing.T) {
	svc, _ := newTestMemoryService(t)
	detected := []DetectedElement{{ElementType: "   ", CountVisible: 1}}
	if _, err := svc.ProcessAnalysis(context.Background(), "proj-1", detected, testTime); err == nil {
		t.Fatal("expected error for blank element type")
	}
}

func TestClearProjectMemory(t *testing.T) {
	svc, store := newTestMemoryService(t)
	ctx := context.Background()

	for _, elementType := range []string{"column", "beam", "wall"} {
		if _, err := svc.Update(ctx, "proj-1", elementType, 1, testTime, nil); err != nil {
			t.Fatalf("seed %s: %v", elementType, err)
		}
	}
	if _, err := svc.Update(ctx, "proj-2", "slab", 1, testTime, nil); err != nil {
		t.Fatalf("seed other project: %v", err)
	}

	deleted, err := svc.ClearProjectMemory(ctx, "proj-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	if store.Len() != 1 {
		t.Fatalf("other project must survive, %d records left", store.Len())
	}
	// Idempotent on an empty project.
	deleted, err = svc.ClearProjectMemory(ctx, "proj-1")
	if err != nil || deleted != 0 {
		t.Fatalf("second clear: deleted=%d err=%v", deleted, err)
	}
}

// failingStore fails selected operations to exercise degradation paths.
type failingStore struct {
	MemoryStore
	failGet    bool
	failPut    bool
	failQuery  bool
	failDelete bool
}

var errBackend = errors.New("backend down")

func (f *failingStore) Get(ctx context.Context, memoryID string) (ElementMemoryRecord, bool, error) {
	if f.failGet {
		return ElementMemoryRecord{}, false, errBackend
	}
	return f.MemoryStore.Get(ctx, memoryID)
}

func (f *failingStore) Put(ctx context.Context, record ElementMemoryRecord) error {
	if f.failPut {
		return errBackend
	}
	return f.MemoryStore.Put(ctx, record)
}

func (f *failingStore) QueryByProject(ctx context.Context, projectID string) ([]ElementMemoryRecord, error) {
	if f.failQuery {
		return nil, errBackend
	}
	return f.MemoryStore.QueryByProject(ctx, projectID)
}

func (f *failingStore) Delete(ctx context.Context, memoryID string) (bool, error) {
	if f.failDelete {
		return false, errBackend
	}
	return f.MemoryStore.Delete(ctx, memoryID)
}

func TestProcessAnalysisCollectsFailures(t *testing.T) {
	store := &failingStore{MemoryStore: memory.NewStore(), failPut: true}
	svc := NewMemoryService(store, WithMemoryClock(fixedClock(testTime)))

	detected := []DetectedElement{
		{ElementType: "column", CountVisible: 1},
		{ElementType: "wall", CountVisible: 1},
	}
	adjustment, err := svc.ProcessAnalysis(context.Background(), "proj-1", detected, testTime)
	if err != nil {
		t.Fatalf("persistence failures must not abort the batch: %v", err)
	}
	if len(adjustment.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", adjustment.Failures)
	}
	if len(adjustment.AdjustedElements) != 0 {
		t.Fatalf("failed updates must not produce adjusted elements: %+v", adjustment.AdjustedElements)
	}
}

func TestProcessAnalysisDegradesOnQueryFailure(t *testing.T) {
	store := &failingStore{MemoryStore: memory.NewStore(), failQuery: true}
	svc := NewMemoryService(store, WithMemoryClock(fixedClock(testTime)))

	detected := []DetectedElement{{ElementType: "column", CountVisible: 2}}
	adjustment, err := svc.ProcessAnalysis(context.Background(), "proj-1", detected, testTime)
	if err != nil {
		t.Fatalf("query failure must degrade, not abort: %v", err)
	}
	if len(adjustment.AdjustedElements) != 1 {
		t.Fatalf("detections must still be processed: %+v", adjustment)
	}
}

func TestClearProjectMemoryPropagatesQueryFailure(t *testing.T) {
	store := &failingStore{MemoryStore: memory.NewStore(), failQuery: true}
	svc := NewMemoryService(store)

	_, err := svc.ClearProjectMemory(context.Background(), "proj-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var unavailable MemoryUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected MemoryUnavailableError, got %T", err)
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("cause not preserved: %v", err)
	}
}
