package models

import (
	"strings"

	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
)

// Category classifies what kind of problem a suggestion addresses.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryTypeSafety    Category = "type-safety"
	CategoryLogicError    Category = "logic-error"
	CategoryStyle         Category = "style"
	CategoryDocumentation Category = "documentation"
	CategoryCleanup       Category = "cleanup"
	CategoryErrorHandling Category = "error-handling"
	CategoryGeneral       Category = "general"
)

var validCategories = map[Category]struct{}{
	CategorySecurity:      {},
	CategoryPerformance:   {},
	CategoryTypeSafety:    {},
	CategoryLogicError:    {},
	CategoryStyle:         {},
	CategoryDocumentation: {},
	CategoryCleanup:       {},
	CategoryErrorHandling: {},
	CategoryGeneral:       {},
}

// IsValid reports whether c is one of the fixed category values.
func (c Category) IsValid() bool {
	_, ok := validCategories[c]
	return ok
}

// Severity is the oracle-reported impact of a suggestion.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Tier governs how a scored suggestion is presented. It is always derived
// from confidence, never set independently.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// ChangeType describes how a file is touched by the change request.
type ChangeType string

const (
	ChangeAddition     ChangeType = "addition"
	ChangeModification ChangeType = "modification"
	ChangeReviewOnly   ChangeType = "review-only"
)

// Suggestion is a single proposed fix emitted by the analysis oracle for one file.
type Suggestion struct {
	Description   string   `json:"description"`
	Category      Category `json:"category"`
	Severity      Severity `json:"severity,omitempty"`
	FilePath      string   `json:"filePath"`
	LineNumber    int      `json:"lineNumber,omitempty"`
	OriginalCode  string   `json:"originalCode,omitempty"`
	SuggestedCode string   `json:"suggestedCode,omitempty"`

	// DiffPosition is computed by the pipeline, never supplied by the oracle.
	// Zero means the suggestion could not be anchored in the diff.
	DiffPosition int `json:"-"`
}

// Validate rejects suggestions that must not enter the pipeline: a missing
// description, a category outside the enumerated set, or a half-supplied
// original/suggested code pair.
func (s Suggestion) Validate() error {
	if strings.TrimSpace(s.Description) == "" {
		return domainErrors.ErrInvalidSuggestionSchema.WithContext("reason", "empty description")
	}
	if !s.Category.IsValid() {
		return domainErrors.ErrInvalidSuggestionSchema.
			WithContext("reason", "unknown category").
			WithContext("category", string(s.Category))
	}
	if (s.OriginalCode == "") != (s.SuggestedCode == "") {
		return domainErrors.ErrInvalidSuggestionSchema.
			WithContext("reason", "originalCode and suggestedCode must both be present or both absent")
	}
	return nil
}

// HasCodePair reports whether the suggestion carries a concrete replacement.
func (s Suggestion) HasCodePair() bool {
	return s.OriginalCode != "" && s.SuggestedCode != ""
}

// ScoredSuggestion is a Suggestion plus its computed confidence and tier.
type ScoredSuggestion struct {
	Suggestion
	Confidence float64 `json:"confidence"`
	Tier       Tier    `json:"tier"`

	// Resolvable marks critical-tier items selected for the inline
	// replacement presentation, subject to the per-run cap.
	Resolvable bool `json:"resolvable"`
}

// ScoringContext carries the signals used to compute confidence. Every field
// is optional; absence degrades to a neutral contribution.
type ScoringContext struct {
	Title      string
	Author     string
	BaseRef    string
	HeadRef    string
	Language   string
	ChangeType ChangeType

	HasLinter          bool
	HasTypeChecker     bool
	HasSecurityScanner bool
}

// Recommendation is the overall verdict for a review batch.
type Recommendation string

const (
	RecommendApprove                Recommendation = "approve"
	RecommendApproveWithSuggestions Recommendation = "approve-with-suggestions"
	RecommendChangesRequested       Recommendation = "changes-requested"
)

// Statistics summarizes a review batch for presentation.
type Statistics struct {
	Total      int
	ByTier     map[Tier]int
	ByCategory map[Category]int
	BySeverity map[Severity]int
}

// ComputeStatistics tallies a scored suggestion list.
func ComputeStatistics(suggestions []ScoredSuggestion) Statistics {
	stats := Statistics{
		Total:      len(suggestions),
		ByTier:     make(map[Tier]int),
		ByCategory: make(map[Category]int),
		BySeverity: make(map[Severity]int),
	}
	for _, s := range suggestions {
		stats.ByTier[s.Tier]++
		stats.ByCategory[s.Category]++
		if s.Severity != "" {
			stats.BySeverity[s.Severity]++
		}
	}
	return stats
}

// ReviewBatch is the immutable result of one orchestrator run.
type ReviewBatch struct {
	PRNumber       int
	HeadSHA        string
	Suggestions    []ScoredSuggestion
	Statistics     Statistics
	Recommendation Recommendation
	Rationale      string
}

// PullRequestData is the change-request metadata returned by the VCS.
type PullRequestData struct {
	Number  int
	Title   string
	Body    string
	Author  string
	BaseRef string
	HeadRef string
	BaseSHA string
	HeadSHA string
	Files   []ChangedFile
}

// ChangedFile is one per-file diff within a change request.
type ChangedFile struct {
	Path      string
	Status    string // added | modified | removed | renamed
	Additions int
	Deletions int
	Patch     string
	Binary    bool
}
