// Package format renders a scored review batch into composable, tier-tagged
// blocks so publishing is independently testable.
package format

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/thomas-vilte/reviewmate/internal/models"
)

// NoIssuesPhrase is the literal published when a run surfaces nothing.
const NoIssuesPhrase = "No issues found"

const markerPrefix = "<!-- reviewmate:review:"

// BlockKind tags how a block is meant to be published.
type BlockKind string

const (
	BlockResolvable    BlockKind = "resolvable"
	BlockEnhanced      BlockKind = "enhanced"
	BlockInformational BlockKind = "informational"
)

// Block is one renderable unit of review feedback. FilePath, Line and
// Position are carried so the publisher can anchor resolvable blocks inline.
type Block struct {
	Kind     BlockKind
	FilePath string
	Line     int
	Position int
	Body     string
}

// Output is the full rendering of one review batch.
type Output struct {
	Summary          string
	ResolvableBlocks []Block
	DetailBlocks     []Block
}

// Formatter renders batches. maxEnhanced caps how many high-tier findings
// get the expanded treatment; zero means no cap.
type Formatter struct {
	maxEnhanced int
}

func NewFormatter(maxEnhanced int) *Formatter {
	return &Formatter{maxEnhanced: maxEnhanced}
}

// Marker returns the hidden comment that identifies an automation review of
// a specific change-head. Its presence is the only cross-run state.
func Marker(headSHA string) string {
	return markerPrefix + headSHA + " -->"
}

// HasMarker reports whether body carries a review marker for headSHA.
func HasMarker(body, headSHA string) bool {
	return strings.Contains(body, Marker(headSHA))
}

// Format renders the batch. The summary always leads with tier totals and
// the recommendation; every block carries file path, line, confidence and
// category whenever they are known.
func (f *Formatter) Format(batch models.ReviewBatch) Output {
	out := Output{Summary: f.renderSummary(batch)}

	enhanced := 0
	for _, s := range batch.Suggestions {
		switch {
		case s.Resolvable:
			out.ResolvableBlocks = append(out.ResolvableBlocks, Block{
				Kind:     BlockResolvable,
				FilePath: s.FilePath,
				Line:     s.LineNumber,
				Position: s.DiffPosition,
				Body:     renderResolvable(s),
			})
		case s.Tier == models.TierCritical || s.Tier == models.TierHigh:
			if f.maxEnhanced > 0 && enhanced >= f.maxEnhanced {
				out.DetailBlocks = append(out.DetailBlocks, informationalBlock(s))
				continue
			}
			enhanced++
			out.DetailBlocks = append(out.DetailBlocks, Block{
				Kind:     BlockEnhanced,
				FilePath: s.FilePath,
				Line:     s.LineNumber,
				Position: s.DiffPosition,
				Body:     renderEnhanced(s),
			})
		default:
			out.DetailBlocks = append(out.DetailBlocks, informationalBlock(s))
		}
	}

	return out
}

func informationalBlock(s models.ScoredSuggestion) Block {
	return Block{
		Kind:     BlockInformational,
		FilePath: s.FilePath,
		Line:     s.LineNumber,
		Position: s.DiffPosition,
		Body:     renderInformational(s),
	}
}

var tierOrder = []models.Tier{
	models.TierCritical, models.TierHigh, models.TierMedium, models.TierLow,
}

var severityOrder = []models.Severity{
	models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow,
}

var tierLabels = map[models.Tier]string{
	models.TierCritical: "Critical",
	models.TierHigh:     "High",
	models.TierMedium:   "Medium",
	models.TierLow:      "Low",
}

func (f *Formatter) renderSummary(batch models.ReviewBatch) string {
	var sb strings.Builder

	sb.WriteString(Marker(batch.HeadSHA))
	sb.WriteString("\n## 🔍 Automated Review\n\n")

	if batch.Statistics.Total == 0 {
		sb.WriteString("✅ **")
		sb.WriteString(NoIssuesPhrase)
		sb.WriteString("** — nothing to flag in this change.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("**Recommendation:** `%s` — %s\n\n", batch.Recommendation, batch.Rationale))

	sb.WriteString("| Tier | Count |\n|------|-------|\n")
	for _, tier := range tierOrder {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", tierLabels[tier], batch.Statistics.ByTier[tier]))
	}
	sb.WriteString(fmt.Sprintf("\n**Total findings:** %d\n", batch.Statistics.Total))

	if len(batch.Statistics.ByCategory) > 0 {
		sb.WriteString("\n### By category\n\n")
		categories := make([]string, 0, len(batch.Statistics.ByCategory))
		for c := range batch.Statistics.ByCategory {
			categories = append(categories, string(c))
		}
		sort.Strings(categories)
		for _, c := range categories {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", c, batch.Statistics.ByCategory[models.Category(c)]))
		}
	}

	if len(batch.Statistics.BySeverity) > 0 {
		sb.WriteString("\n### By severity\n\n")
		for _, sev := range severityOrder {
			if n := batch.Statistics.BySeverity[sev]; n > 0 {
				sb.WriteString(fmt.Sprintf("- %s: %d\n", sev, n))
			}
		}
	}

	return sb.String()
}

func renderResolvable(s models.ScoredSuggestion) string {
	var sb strings.Builder
	sb.WriteString(header(s))
	sb.WriteString(s.Description)
	sb.WriteString("\n\n```suggestion\n")
	sb.WriteString(strings.TrimRight(s.SuggestedCode, "\n"))
	sb.WriteString("\n```")
	return sb.String()
}

func renderEnhanced(s models.ScoredSuggestion) string {
	var sb strings.Builder
	sb.WriteString(header(s))
	sb.WriteString(s.Description)
	if s.HasCodePair() {
		sb.WriteString("\n\n**Current:**\n```\n")
		sb.WriteString(strings.TrimRight(s.OriginalCode, "\n"))
		sb.WriteString("\n```\n\n**Suggested:**\n```\n")
		sb.WriteString(strings.TrimRight(s.SuggestedCode, "\n"))
		sb.WriteString("\n```")
	}
	return sb.String()
}

func renderInformational(s models.ScoredSuggestion) string {
	return fmt.Sprintf("- %s **[%s]** %s (%.0f%%): %s",
		location(s), s.Tier, s.Category, s.Confidence*100, s.Description)
}

func header(s models.ScoredSuggestion) string {
	return fmt.Sprintf("**[%s] %s** %s — %.0f%% confidence\n\n",
		s.Tier, s.Category, location(s), s.Confidence*100)
}

func location(s models.ScoredSuggestion) string {
	if s.LineNumber > 0 {
		return fmt.Sprintf("`%s:%d`", s.FilePath, s.LineNumber)
	}
	if s.FilePath != "" {
		return fmt.Sprintf("`%s`", s.FilePath)
	}
	return ""
}

// RenderFileFallback prefixes a block body with its location for plain
// publication when inline anchoring is off or failed.
func RenderFileFallback(b Block) string {
	if b.FilePath == "" {
		return b.Body
	}
	if b.Line > 0 {
		return fmt.Sprintf("📍 `%s:%d`\n\n%s", b.FilePath, b.Line, b.Body)
	}
	return fmt.Sprintf("📍 `%s`\n\n%s", b.FilePath, b.Body)
}

var summaryRowRe = regexp.MustCompile(`(?m)^\| (Critical|High|Medium|Low) \| (\d+) \|$`)

// ParseSummaryStats recovers the tier counts from a rendered summary. It
// exists so the published text can be audited against the statistics that
// produced it.
func ParseSummaryStats(summary string) (map[models.Tier]int, bool) {
	matches := summaryRowRe.FindAllStringSubmatch(summary, -1)
	if len(matches) != len(tierOrder) {
		return nil, false
	}

	labelToTier := make(map[string]models.Tier, len(tierLabels))
	for tier, label := range tierLabels {
		labelToTier[label] = tier
	}

	counts := make(map[models.Tier]int, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, false
		}
		counts[labelToTier[m[1]]] = n
	}
	return counts, true
}
