package review

import (
	"sort"

	"github.com/thomas-vilte/reviewmate/internal/config"
	"github.com/thomas-vilte/reviewmate/internal/models"
)

// Classifier assigns tiers by fixed confidence thresholds and rate-limits
// how many critical items get the resolvable presentation.
type Classifier struct {
	criticalThreshold float64
	highThreshold     float64
	mediumThreshold   float64
	maxResolvable     int
}

func NewClassifier(cfg config.ReviewConfig) *Classifier {
	return &Classifier{
		criticalThreshold: cfg.CriticalThreshold,
		highThreshold:     cfg.HighThreshold,
		mediumThreshold:   cfg.MediumThreshold,
		maxResolvable:     cfg.MaxResolvable,
	}
}

// TierFor is the pure threshold function: tier is monotonic in confidence.
func (c *Classifier) TierFor(confidence float64) models.Tier {
	switch {
	case confidence >= c.criticalThreshold:
		return models.TierCritical
	case confidence >= c.highThreshold:
		return models.TierHigh
	case confidence >= c.mediumThreshold:
		return models.TierMedium
	default:
		return models.TierLow
	}
}

// Classify tiers every suggestion and selects which critical items become
// resolvable: at most maxResolvable, by descending confidence, ties broken
// by original order so identical input always produces identical output.
// Items over the cap keep the critical tier for statistics but render
// through the enhanced format; they are never dropped.
func (c *Classifier) Classify(suggestions []models.ScoredSuggestion) []models.ScoredSuggestion {
	out := make([]models.ScoredSuggestion, len(suggestions))
	copy(out, suggestions)

	var criticalIdx []int
	for i := range out {
		out[i].Tier = c.TierFor(out[i].Confidence)
		out[i].Resolvable = false
		if out[i].Tier == models.TierCritical {
			criticalIdx = append(criticalIdx, i)
		}
	}

	sort.SliceStable(criticalIdx, func(a, b int) bool {
		return out[criticalIdx[a]].Confidence > out[criticalIdx[b]].Confidence
	})

	limit := c.maxResolvable
	if limit > len(criticalIdx) {
		limit = len(criticalIdx)
	}
	for _, idx := range criticalIdx[:limit] {
		out[idx].Resolvable = true
	}

	return out
}

// Recommend derives the batch verdict from tier counts: any critical finding
// forces changes-requested, three or more high findings downgrade to
// approve-with-suggestions, everything else approves. Low and medium
// findings never block approval.
func Recommend(stats models.Statistics) (models.Recommendation, string) {
	critical := stats.ByTier[models.TierCritical]
	high := stats.ByTier[models.TierHigh]

	switch {
	case critical > 0:
		return models.RecommendChangesRequested,
			"critical findings must be addressed before merging"
	case high >= 3:
		return models.RecommendApproveWithSuggestions,
			"several high-confidence findings are worth a look before merging"
	default:
		return models.RecommendApprove,
			"no blocking findings"
	}
}
