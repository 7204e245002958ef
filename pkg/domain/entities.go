// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by virag.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Lifecycle classifies how an element type behaves over the life of a build.
type Lifecycle string

// Lifecycle categories assigned once at record creation and immutable after.
const (
	// LifecyclePermanent marks structural elements that stay in the building.
	LifecyclePermanent Lifecycle = "permanent"
	// LifecycleTemporary marks site equipment expected to be removed.
	LifecycleTemporary Lifecycle = "temporary"
	// LifecycleFinishing marks finishing-stage elements.
	LifecycleFinishing Lifecycle = "finishing"
	LifecycleUnknown   Lifecycle = "unknown"
)

// ElementStatus is the reconciled visibility state of an element type.
type ElementStatus string

// Element statuses recorded in memory after each analysis.
const (
	// StatusVisible means the element was seen in the latest photo.
	StatusVisible ElementStatus = "visible"
	// StatusHidden means a permanent or unknown element is occluded but presumed present.
	StatusHidden ElementStatus = "hidden"
	// StatusRemoved means a temporary element left the site as expected.
	StatusRemoved ElementStatus = "removed"
)

// ConfidenceLevel grades certainty, both for raw detections and for the
// presumption that a hidden permanent element is still present.
type ConfidenceLevel string

// Confidence grades ordered low to high.
const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ParseConfidence normalizes a free-form confidence label from an external
// collaborator into the closed enumeration.
func ParseConfidence(s string) (ConfidenceLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ConfidenceLow, nil
	case "medium":
		return ConfidenceMedium, nil
	case "high":
		return ConfidenceHigh, nil
	}
	return "", fmt.Errorf("invalid confidence level %q", s)
}

// ConstructionStatus is the per-detection build state reported by the vision layer.
type ConstructionStatus string

// Construction statuses accepted at the detection boundary.
const (
	ConstructionCompleted  ConstructionStatus = "completed"
	ConstructionInProgress ConstructionStatus = "in_progress"
	ConstructionNotStarted ConstructionStatus = "not_started"
	ConstructionNotVisible ConstructionStatus = "not_visible"
)

// ParseConstructionStatus normalizes a status label from the vision layer.
func ParseConstructionStatus(s string) (ConstructionStatus, error) {
	switch ConstructionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ConstructionCompleted:
		return ConstructionCompleted, nil
	case ConstructionInProgress:
		return ConstructionInProgress, nil
	case ConstructionNotStarted:
		return ConstructionNotStarted, nil
	case ConstructionNotVisible:
		return ConstructionNotVisible, nil
	}
	return "", fmt.Errorf("invalid construction status %q", s)
}

// Severity grades a validation issue.
type Severity string

// Issue severities determine the confidence penalty and plausibility verdict.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// ProgressMode tags which computation mode produced a progress report.
type ProgressMode string

// Progress computation modes selected by the matching-quality heuristic.
const (
	// ProgressModeNoBIM applies when no expected element set was supplied.
	ProgressModeNoBIM ProgressMode = "no_bim"
	// ProgressModeWeakMatching applies when most detections map to no BIM category.
	ProgressModeWeakMatching ProgressMode = "weak_matching"
	// ProgressModeCategoryBased applies when the per-category breakdown is trustworthy.
	ProgressModeCategoryBased ProgressMode = "category_based"
)

// MemoryID builds the persistence key for a (project, element type) record.
func MemoryID(projectID, elementType string) string {
	return fmt.Sprintf("%s#%s", projectID, strings.ToLower(elementType))
}

// ElementMemoryRecord tracks one element type of one project over time. It is
// owned exclusively by the memory store and mutated only through the memory
// service's update path.
type ElementMemoryRecord struct {
	MemoryID        string          `json:"memory_id"`
	ProjectID       string          `json:"project_id"`
	ElementType     string          `json:"element_type"`
	Lifecycle       Lifecycle       `json:"lifecycle"`
	FirstDetectedAt time.Time       `json:"first_detected_at"`
	LastSeenAt      time.Time       `json:"last_seen_at"`
	MaxCountSeen    int             `json:"max_count_seen"`
	CurrentCount    int             `json:"current_count"`
	CurrentStatus   ElementStatus   `json:"current_status"`
	TimesDetected   int             `json:"times_detected"`
	TimesHidden     int             `json:"times_hidden"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	LikelyCoveredBy []string        `json:"likely_covered_by,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DetectedElement is a transient per-analysis detection. EffectiveCount is nil
// until memory reconciliation assigns one; progress computation treats an
// element without an effective count as exactly one instance.
type DetectedElement struct {
	ElementID             string             `json:"element_id,omitempty"`
	ElementType           string             `json:"element_type"`
	ElementName           string             `json:"element_name,omitempty"`
	CountVisible          int                `json:"count_visible"`
	EffectiveCount        *int               `json:"effective_count,omitempty"`
	Status                ConstructionStatus `json:"status"`
	MemoryStatus          ElementStatus      `json:"memory_status,omitempty"`
	Confidence            ConfidenceLevel    `json:"confidence"`
	Description           string             `json:"description,omitempty"`
	Deviation             string             `json:"deviation,omitempty"`
	ContributesToProgress bool               `json:"contributes_to_progress"`
}

// CountOrOne returns the memory-assigned effective count, or 1 when the
// element never went through reconciliation.
func (d DetectedElement) CountOrOne() int {
	if d.EffectiveCount != nil {
		return *d.EffectiveCount
	}
	return 1
}

// ExpectedElement is one element of the BIM reference, produced externally by
// IFC parsing.
type ExpectedElement struct {
	ElementID   string `json:"element_id"`
	ElementType string `json:"element_type"`
	Name        string `json:"name,omitempty"`
}

// Project carries the expected element set and identity of a BIM project.
type Project struct {
	ProjectID string            `json:"project_id"`
	Name      string            `json:"project_name,omitempty"`
	Elements  []ExpectedElement `json:"elements"`
}

// ValidationIssue reports one geometric plausibility violation.
type ValidationIssue struct {
	Rule                string   `json:"rule"`
	Severity            Severity `json:"severity"`
	ElementType         string   `json:"element_type"`
	Message             string   `json:"message"`
	LikelyHallucination bool     `json:"likely_hallucination"`
}

// ValidationResult aggregates the advisory output of the geometric validator.
// The validator never mutates memory; acting on the penalty or the suspicious
// subset is the orchestrator's decision.
type ValidationResult struct {
	IsPlausible        bool              `json:"is_plausible"`
	Issues             []ValidationIssue `json:"issues"`
	ConfidencePenalty  float64           `json:"confidence_penalty"`
	ValidatedElements  []DetectedElement `json:"validated_elements"`
	SuspiciousElements []DetectedElement `json:"suspicious_elements"`
}

// MemoryUpdate describes one element type's transition during reconciliation.
type MemoryUpdate struct {
	ElementType           string          `json:"element_type"`
	Lifecycle             Lifecycle       `json:"lifecycle"`
	PreviousCount         int             `json:"previous_count"`
	CurrentCountVisible   int             `json:"current_count_visible"`
	EffectiveCount        int             `json:"effective_count"`
	PreviousStatus        ElementStatus   `json:"previous_status"`
	CurrentStatus         ElementStatus   `json:"current_status"`
	MaxCountSeen          int             `json:"max_count_seen"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level"`
	Notes                 string          `json:"notes"`
	ContributesToProgress bool            `json:"contributes_to_progress"`
}

// UpdateFailure reports a persistence failure for a single element type.
// Failures do not abort the remaining batch.
type UpdateFailure struct {
	ElementType string `json:"element_type"`
	Err         error  `json:"-"`
}

// AnalysisAdjustment is the outcome of reconciling one detection batch
// against project memory.
type AnalysisAdjustment struct {
	AdjustedElements         []DetectedElement `json:"adjusted_elements"`
	MemoryUpdates            []MemoryUpdate    `json:"memory_updates"`
	CoveringElementsDetected []string          `json:"covering_elements_detected"`
	Failures                 []UpdateFailure   `json:"failures,omitempty"`
}

// CategoryProgress is the per-element-type slice of a progress report.
type CategoryProgress struct {
	Built           int     `json:"built"`
	Expected        int     `json:"expected"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ProgressReport is the transient output of one progress computation.
type ProgressReport struct {
	OverallProgress    float64                     `json:"overall_progress"`
	ProgressByCategory map[string]CategoryProgress `json:"progress_by_category,omitempty"`
	TotalBuilt         int                         `json:"total_built"`
	TotalExpected      int                         `json:"total_expected"`
	MappingRatio       float64                     `json:"mapping_ratio"`
	ProgressMode       ProgressMode                `json:"progress_mode"`
	DetectedCount      int                         `json:"detected_count"`
	Message            string                      `json:"message,omitempty"`
}

// AnalysisSnapshot is a historical analysis summary used for evolution and
// comparison computations. Snapshots are owned by the analysis-history
// collaborator; this core only reads them.
type AnalysisSnapshot struct {
	AnalysisID       string            `json:"analysis_id"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
	DetectedElements []DetectedElement `json:"detected_elements"`
}

// TimelineEntry is one point of a progress evolution timeline.
type TimelineEntry struct {
	Date               time.Time                   `json:"date"`
	AnalysisID         string                      `json:"analysis_id"`
	OverallProgress    float64                     `json:"overall_progress"`
	ProgressMode       ProgressMode                `json:"progress_mode"`
	DetectedCount      int                         `json:"detected_count"`
	ProgressByCategory map[string]CategoryProgress `json:"progress_by_category,omitempty"`
}

// ProgressEvolution summarizes progress over an ordered analysis history.
type ProgressEvolution struct {
	Timeline        []TimelineEntry `json:"timeline"`
	TotalAnalyses   int             `json:"total_analyses"`
	ProgressRate    float64         `json:"progress_rate"`
	CurrentProgress float64         `json:"current_progress"`
}

// CategoryChange is the per-category delta between two analyses.
type CategoryChange struct {
	PreviousProgress float64 `json:"previous_progress"`
	CurrentProgress  float64 `json:"current_progress"`
	Delta            float64 `json:"delta"`
}

// ProgressComparison is the diff between two analyses against the same
// expected element set.
type ProgressComparison struct {
	ProgressDelta    float64                   `json:"progress_delta"`
	CurrentProgress  float64                   `json:"current_progress"`
	PreviousProgress float64                   `json:"previous_progress"`
	NewElements      int                       `json:"new_elements_count"`
	RemovedElements  int                       `json:"removed_elements_count"`
	CategoryChanges  map[string]CategoryChange `json:"category_changes"`
	ComparisonDate   time.Time                 `json:"comparison_date"`
	BaselineDate     time.Time                 `json:"baseline_date"`
}
