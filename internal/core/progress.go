package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultWeakMatchingThreshold is the mapping-ratio below which per-category
// progress is considered misleading noise. Not derived from a labeled
// validation set; keep it configurable.
const DefaultWeakMatchingThreshold = 0.5

// aggregateCategory is the synthetic breakdown key used in weak-matching
// mode, when detections cannot be attributed to BIM categories.
const aggregateCategory = "elementos_detectados"

// Calculator computes hybrid progress metrics. Stateless per call; safe for
// concurrent use.
type Calculator struct {
	// WeakMatchingThreshold selects between weak_matching and category_based
	// modes. The boundary is inclusive on the category_based side.
	WeakMatchingThreshold float64

	log Logger
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithCalculatorLogger installs a logger on the calculator.
func WithCalculatorLogger(log Logger) CalculatorOption {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithWeakMatchingThreshold overrides the mode-selection threshold.
func WithWeakMatchingThreshold(threshold float64) CalculatorOption {
	return func(c *Calculator) { c.WeakMatchingThreshold = threshold }
}

// NewCalculator constructs a calculator with the default threshold.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		WeakMatchingThreshold: DefaultWeakMatchingThreshold,
		log:                   NoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgressMetrics computes an overall progress percentage and per-category
// breakdown. With an empty expected set, progress is purely "did we detect
// anything" (no_bim mode). Otherwise adjusted elements take precedence over
// raw detections as the input set.
func (c *Calculator) ProgressMetrics(detected []DetectedElement, expected []ExpectedElement, adjusted []DetectedElement) ProgressReport {
	if len(expected) == 0 {
		c.log.Info("progress_no_bim", "detected_count", len(detected))
		overall := 0.0
		if len(detected) > 0 {
			overall = 100.0
		}
		return ProgressReport{
			OverallProgress: overall,
			DetectedCount:   len(detected),
			ProgressMode:    ProgressModeNoBIM,
			Message:         "progress based on detected elements only (no BIM model)",
		}
	}

	elements := detected
	if len(adjusted) > 0 {
		elements = adjusted
	}
	return c.computeReport(elements, expected)
}

func (c *Calculator) computeReport(elements []DetectedElement, expected []ExpectedElement) ProgressReport {
	totalExpected := len(expected)

	expectedByType := make(map[string]int)
	for _, elem := range expected {
		expectedByType[lowerOrUnknown(elem.ElementType)]++
	}

	builtByType := make(map[string]int)
	totalBuilt := 0
	for _, elem := range elements {
		count := elem.CountOrOne()
		builtByType[lowerOrUnknown(elem.ElementType)] += count
		totalBuilt += count
	}

	byCategory := make(map[string]CategoryProgress, len(expectedByType))
	totalBuiltFromCategories := 0
	for elemType, expectedCount := range expectedByType {
		builtCount := builtByType[elemType]
		totalBuiltFromCategories += builtCount
		byCategory[elemType] = CategoryProgress{
			Built:           builtCount,
			Expected:        expectedCount,
			ProgressPercent: ratioPercent(builtCount, expectedCount),
		}
	}

	mappingRatio := 0.0
	if totalBuilt > 0 {
		mappingRatio = float64(totalBuiltFromCategories) / float64(totalBuilt)
	}

	var overall float64
	var mode ProgressMode
	if mappingRatio < c.WeakMatchingThreshold {
		// Most detections map to no known category; per-category numbers
		// would be noise, fall back to coarse volumetric progress.
		c.log.Warn("weak_matching",
			"mapping_ratio", round3(mappingRatio),
			"total_built", totalBuilt,
			"total_mapped", totalBuiltFromCategories,
			"total_expected", totalExpected,
		)
		byCategory = map[string]CategoryProgress{
			aggregateCategory: {
				Built:           totalBuilt,
				Expected:        totalExpected,
				ProgressPercent: ratioPercent(totalBuilt, totalExpected),
			},
		}
		overall = ratioPercent(totalBuilt, totalExpected)
		mode = ProgressModeWeakMatching
	} else {
		c.log.Info("category_matching",
			"mapping_ratio", round3(mappingRatio),
			"total_mapped", totalBuiltFromCategories,
			"total_expected", totalExpected,
		)
		overall = ratioPercent(totalBuiltFromCategories, totalExpected)
		mode = ProgressModeCategoryBased
	}

	return ProgressReport{
		OverallProgress:    overall,
		ProgressByCategory: byCategory,
		TotalBuilt:         totalBuilt,
		TotalExpected:      totalExpected,
		MappingRatio:       round3(mappingRatio),
		ProgressMode:       mode,
		DetectedCount:      len(elements),
	}
}

// OverallProgress is the simplified weighted scheme used for lightweight
// snapshot comparisons: completed weighs 1.0, in_progress 0.5.
func (c *Calculator) OverallProgress(detected []DetectedElement) float64 {
	if len(detected) == 0 {
		return 0.0
	}
	weighted := 0.0
	for _, elem := range detected {
		switch elem.Status {
		case ConstructionCompleted:
			weighted += 1.0
		case ConstructionInProgress:
			weighted += 0.5
		}
	}
	return round2(weighted / float64(len(detected)) * 100)
}

// IdentifyAlerts lists expected elements missing from the detection set, in
// expected order, followed by deviation alerts in detected order.
func (c *Calculator) IdentifyAlerts(detected []DetectedElement, project Project) []string {
	detectedIDs := make(map[string]struct{}, len(detected))
	for _, elem := range detected {
		detectedIDs[elem.ElementID] = struct{}{}
	}

	var alerts []string
	for _, elem := range project.Elements {
		if _, ok := detectedIDs[elem.ElementID]; ok {
			continue
		}
		name := elem.Name
		if name == "" {
			name = "unnamed"
		}
		alerts = append(alerts, fmt.Sprintf("%s (%s) not identified in image", elem.ElementType, name))
	}
	for _, elem := range detected {
		if elem.Deviation != "" {
			alerts = append(alerts, fmt.Sprintf("deviation in %s: %s", elem.ElementType, elem.Deviation))
		}
	}
	return alerts
}

// ProgressEvolution computes progress for each snapshot independently against
// the same expected set, in input order. No memory state carries across
// snapshots. ProgressRate is last minus first overall progress.
func (c *Calculator) ProgressEvolution(analyses []AnalysisSnapshot, expected []ExpectedElement) ProgressEvolution {
	timeline := make([]TimelineEntry, 0, len(analyses))
	for _, analysis := range analyses {
		metrics := c.ProgressMetrics(analysis.DetectedElements, expected, nil)
		timeline = append(timeline, TimelineEntry{
			Date:               analysis.AnalyzedAt,
			AnalysisID:         analysis.AnalysisID,
			OverallProgress:    metrics.OverallProgress,
			ProgressMode:       metrics.ProgressMode,
			DetectedCount:      len(analysis.DetectedElements),
			ProgressByCategory: metrics.ProgressByCategory,
		})
	}

	rate := 0.0
	current := 0.0
	if len(timeline) > 0 {
		current = timeline[len(timeline)-1].OverallProgress
	}
	if len(timeline) >= 2 {
		rate = round2(timeline[len(timeline)-1].OverallProgress - timeline[0].OverallProgress)
	}
	return ProgressEvolution{
		Timeline:        timeline,
		TotalAnalyses:   len(timeline),
		ProgressRate:    rate,
		CurrentProgress: current,
	}
}

// CompareProgress diffs two analyses computed independently against the same
// expected set. Only categories whose progress percent differs appear in
// CategoryChanges.
func (c *Calculator) CompareProgress(current, previous AnalysisSnapshot, expected []ExpectedElement) ProgressComparison {
	currentMetrics := c.ProgressMetrics(current.DetectedElements, expected, nil)
	previousMetrics := c.ProgressMetrics(previous.DetectedElements, expected, nil)

	previousIDs := elementIDSet(previous.DetectedElements)
	currentIDs := elementIDSet(current.DetectedElements)

	added, removed := 0, 0
	for id := range currentIDs {
		if _, ok := previousIDs[id]; !ok {
			added++
		}
	}
	for id := range previousIDs {
		if _, ok := currentIDs[id]; !ok {
			removed++
		}
	}

	changes := make(map[string]CategoryChange)
	for _, category := range unionKeys(currentMetrics.ProgressByCategory, previousMetrics.ProgressByCategory) {
		currentPct := currentMetrics.ProgressByCategory[category].ProgressPercent
		previousPct := previousMetrics.ProgressByCategory[category].ProgressPercent
		if currentPct == previousPct {
			continue
		}
		changes[category] = CategoryChange{
			PreviousProgress: previousPct,
			CurrentProgress:  currentPct,
			Delta:            round2(currentPct - previousPct),
		}
	}

	return ProgressComparison{
		ProgressDelta:    round2(currentMetrics.OverallProgress - previousMetrics.OverallProgress),
		CurrentProgress:  currentMetrics.OverallProgress,
		PreviousProgress: previousMetrics.OverallProgress,
		NewElements:      added,
		RemovedElements:  removed,
		CategoryChanges:  changes,
		ComparisonDate:   current.AnalyzedAt,
		BaselineDate:     previous.AnalyzedAt,
	}
}

func elementIDSet(elements []DetectedElement) map[string]struct{} {
	ids := make(map[string]struct{}, len(elements))
	for _, elem := range elements {
		ids[elem.ElementID] = struct{}{}
	}
	return ids
}

func unionKeys(a, b map[string]CategoryProgress) []string {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lowerOrUnknown(elementType string) string {
	t := strings.ToLower(strings.TrimSpace(elementType))
	if t == "" {
		return "unknown"
	}
	return t
}

// ratioPercent yields built/expected as a percentage, 0 on a zero denominator.
func ratioPercent(built, expected int) float64 {
	if expected <= 0 {
		return 0.0
	}
	return round2(float64(built) / float64(expected) * 100)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
