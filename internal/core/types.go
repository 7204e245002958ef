package core

import "virag/pkg/domain"

type (
	Lifecycle          = domain.Lifecycle
	ElementStatus      = domain.ElementStatus
	ConfidenceLevel    = domain.ConfidenceLevel
	ConstructionStatus = domain.ConstructionStatus
	Severity           = domain.Severity
	ProgressMode       = domain.ProgressMode

	ElementMemoryRecord = domain.ElementMemoryRecord
	DetectedElement     = domain.DetectedElement
	ExpectedElement     = domain.ExpectedElement
	Project             = domain.Project
	ValidationIssue     = domain.ValidationIssue
	ValidationResult    = domain.ValidationResult
	MemoryUpdate        = domain.MemoryUpdate
	UpdateFailure       = domain.UpdateFailure
	AnalysisAdjustment  = domain.AnalysisAdjustment
	CategoryProgress    = domain.CategoryProgress
	ProgressReport      = domain.ProgressReport
	AnalysisSnapshot    = domain.AnalysisSnapshot
	ProgressEvolution   = domain.ProgressEvolution
	ProgressComparison  = domain.ProgressComparison
	CategoryChange      = domain.CategoryChange
	TimelineEntry       = domain.TimelineEntry

	DetectionBatch = domain.DetectionBatch
	Rule           = domain.Rule
	RulesEngine    = domain.RulesEngine
	MemoryStore    = domain.MemoryStore
)

const (
	LifecyclePermanent = domain.LifecyclePermanent
	LifecycleTemporary = domain.LifecycleTemporary
	LifecycleFinishing = domain.LifecycleFinishing
	LifecycleUnknown   = domain.LifecycleUnknown
)

const (
	StatusVisible = domain.StatusVisible
	StatusHidden  = domain.StatusHidden
	StatusRemoved = domain.StatusRemoved
)

const (
	ConfidenceLow    = domain.ConfidenceLow
	ConfidenceMedium = domain.ConfidenceMedium
	ConfidenceHigh   = domain.ConfidenceHigh
)

const (
	ConstructionCompleted  = domain.ConstructionCompleted
	ConstructionInProgress = domain.ConstructionInProgress
	ConstructionNotStarted = domain.ConstructionNotStarted
	ConstructionNotVisible = domain.ConstructionNotVisible
)

const (
	SeverityHigh   = domain.SeverityHigh
	SeverityMedium = domain.SeverityMedium
)

const (
	ProgressModeNoBIM         = domain.ProgressModeNoBIM
	ProgressModeWeakMatching  = domain.ProgressModeWeakMatching
	ProgressModeCategoryBased = domain.ProgressModeCategoryBased
)
