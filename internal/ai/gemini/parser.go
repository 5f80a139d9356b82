package gemini

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/logger"
	"github.com/thomas-vilte/reviewmate/internal/models"
)

type suggestionsEnvelope struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// ParseSuggestions decodes the strict response schema. Individual suggestions
// that fail validation are dropped rather than failing the whole file; a
// response that is not the envelope at all is a schema error.
func ParseSuggestions(ctx context.Context, raw string, filePath string) ([]models.Suggestion, error) {
	log := logger.FromContext(ctx)

	extracted := ExtractJSON(raw)
	var envelope suggestionsEnvelope
	if err := json.Unmarshal([]byte(extracted), &envelope); err != nil {
		preview := extracted
		if len(preview) > 300 {
			preview = preview[:300] + "..."
		}
		return nil, domainErrors.ErrInvalidSuggestionSchema.
			WithContext("file", filePath).
			WithContext("preview", preview).
			WithError(err)
	}

	valid := make([]models.Suggestion, 0, len(envelope.Suggestions))
	for _, s := range envelope.Suggestions {
		s.FilePath = filePath
		if err := s.Validate(); err != nil {
			log.Warn("dropping invalid suggestion",
				"file", filePath,
				"error", err)
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}

// fallbackPatterns drive keyword extraction from non-JSON output. Findings
// recovered this way get a conservative severity since the structured signal
// is gone.
var fallbackPatterns = []struct {
	re       *regexp.Regexp
	category models.Category
	severity models.Severity
}{
	{regexp.MustCompile(`(?i)(sql injection|command injection|xss|cross-site|hardcoded (secret|password|credential)|insecure|vulnerab)`), models.CategorySecurity, models.SeverityHigh},
	{regexp.MustCompile(`(?i)(nil (pointer|dereference)|null pointer|undefined is not)`), models.CategoryLogicError, models.SeverityMedium},
	{regexp.MustCompile(`(?i)(type (error|mismatch)|incompatible type)`), models.CategoryTypeSafety, models.SeverityMedium},
}

// ExtractFallbackSuggestions salvages findings from free-text output when the
// JSON schema could not be recovered. Each matching line becomes one
// suggestion; nothing matching means an empty result, not an error.
func ExtractFallbackSuggestions(raw string, filePath string) []models.Suggestion {
	var found []models.Suggestion
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line == "" {
			continue
		}
		for _, p := range fallbackPatterns {
			if !p.re.MatchString(line) {
				continue
			}
			found = append(found, models.Suggestion{
				Description: line,
				Category:    p.category,
				Severity:    p.severity,
				FilePath:    filePath,
			})
			break
		}
	}
	return found
}
