// Package review holds the confidence scoring engine and the tier
// classifier that decide how each suggestion is surfaced.
package review

import (
	"strings"

	"github.com/thomas-vilte/reviewmate/internal/models"
)

// Weights of the four confidence sub-scores. They sum to 1.
const (
	weightSeverity        = 0.4
	weightStaticAnalysis  = 0.3
	weightContextClarity  = 0.2
	weightHistoricalBase  = 0.1
	floorConfidence       = 0.1
	historicalBaselineVal = 0.5
)

// Score converts a raw suggestion plus contextual signals into a confidence
// value in [0,1] and a normalized category. It never fails: nil or
// malformed input yields the floor confidence and the general category so a
// single bad suggestion cannot abort the batch.
func Score(s *models.Suggestion, sctx *models.ScoringContext) (float64, models.Category) {
	if s == nil {
		return floorConfidence, models.CategoryGeneral
	}

	category := Categorize(s.Description, s.Category)

	confidence := weightSeverity*severityScore(effectiveSeverity(s.Severity, category)) +
		weightStaticAnalysis*staticAnalysisScore(sctx) +
		weightContextClarity*contextClarityScore(s, sctx) +
		weightHistoricalBase*historicalBaselineVal

	return clamp(confidence), category
}

func clamp(v float64) float64 {
	if v < floorConfidence {
		return floorConfidence
	}
	if v > 1 {
		return 1
	}
	return v
}

func severityScore(severity models.Severity) float64 {
	switch severity {
	case models.SeverityCritical:
		return 1.0
	case models.SeverityHigh:
		return 0.8
	case models.SeverityMedium:
		return 0.6
	case models.SeverityLow:
		return 0.4
	case models.SeverityInfo:
		return 0.2
	default:
		return 0.3
	}
}

// effectiveSeverity resolves a missing severity from the category.
func effectiveSeverity(severity models.Severity, category models.Category) models.Severity {
	if severity != "" {
		return severity
	}
	switch category {
	case models.CategorySecurity, models.CategoryLogicError:
		return models.SeverityHigh
	case models.CategoryTypeSafety, models.CategoryErrorHandling, models.CategoryPerformance:
		return models.SeverityMedium
	case models.CategoryStyle, models.CategoryCleanup:
		return models.SeverityLow
	case models.CategoryDocumentation:
		return models.SeverityInfo
	default:
		return ""
	}
}

// staticAnalysisScore rises with the number of corroborating tools reported
// present. A missing context contributes a neutral 0.5.
func staticAnalysisScore(sctx *models.ScoringContext) float64 {
	if sctx == nil {
		return 0.5
	}
	present := 0
	if sctx.HasLinter {
		present++
	}
	if sctx.HasTypeChecker {
		present++
	}
	if sctx.HasSecurityScanner {
		present++
	}
	return 0.25 + 0.25*float64(present)
}

// contextClarityScore is higher when the target language is recognized, the
// change is a direct modification, and the suggestion carries a concrete
// replacement pair.
func contextClarityScore(s *models.Suggestion, sctx *models.ScoringContext) float64 {
	score := 0.3

	if s.HasCodePair() {
		score += 0.3
	}
	if sctx == nil {
		return score
	}
	if sctx.Language != "" {
		score += 0.2
	}
	switch sctx.ChangeType {
	case models.ChangeModification:
		score += 0.2
	case models.ChangeAddition:
		score += 0.1
	}
	return score
}

// keyword patterns checked in order; the first match wins. Security comes
// first so overlapping descriptions err on the alarming side.
var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategorySecurity, []string{"security", "injection", "xss", "csrf", "vulnerab", "sanitiz", "credential", "secret", "unsafe"}},
	{models.CategoryTypeSafety, []string{"type error", "type mismatch", "nil pointer", "null pointer", "undefined", "cast"}},
	{models.CategoryErrorHandling, []string{"error handling", "unchecked error", "ignored error", "unhandled", "panic"}},
	{models.CategoryPerformance, []string{"performance", "slow", "inefficien", "allocation", "n+1", "leak"}},
	{models.CategoryLogicError, []string{"logic", "incorrect", "off-by-one", "race condition", "deadlock", "bug"}},
	{models.CategoryDocumentation, []string{"document", "docstring", "comment missing"}},
	{models.CategoryCleanup, []string{"unused", "dead code", "leftover", "remove"}},
	{models.CategoryStyle, []string{"style", "naming", "format", "convention"}},
}

// Categorize maps a free-text description and the oracle-supplied category
// onto the fixed category set, defaulting to general. It is used for
// statistics and presentation grouping, not for scoring weights.
func Categorize(description string, supplied models.Category) models.Category {
	if supplied.IsValid() {
		return supplied
	}

	lower := strings.ToLower(description)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return models.CategoryGeneral
}
