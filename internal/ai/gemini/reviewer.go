// Package gemini implements the code-analysis oracle on top of the Gemini
// API: per-file prompting, strict JSON decoding with a keyword fallback, and
// mapping of transport failures onto the pipeline error taxonomy.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/thomas-vilte/reviewmate/internal/config"
	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/logger"
	"github.com/thomas-vilte/reviewmate/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// generateFunc produces raw model output for a prompt. Injected in tests.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Reviewer asks Gemini to review one changed file at a time.
type Reviewer struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	config   *config.Config
	generate generateFunc
}

func NewReviewer(ctx context.Context, cfg *config.Config) (*Reviewer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, domainErrors.ErrAPIKeyMissing
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, mapAPIError(err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	r := &Reviewer{
		client: client,
		model:  model,
		config: cfg,
	}
	r.generate = r.defaultGenerate
	return r, nil
}

func (r *Reviewer) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Reviewer) defaultGenerate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", mapAPIError(err)
	}
	return responseText(resp), nil
}

// ReviewFile analyzes one changed file and returns its validated
// suggestions. Output that cannot be decoded as the response schema goes
// through the keyword fallback before the schema error is surfaced.
func (r *Reviewer) ReviewFile(ctx context.Context, pr *models.PullRequestData, file models.ChangedFile) ([]models.Suggestion, error) {
	log := logger.FromContext(ctx)

	prompt := r.buildPrompt(pr, file)
	log.Debug("requesting file analysis",
		"file", file.Path,
		"prompt_length", len(prompt))

	raw, err := r.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, domainErrors.ErrInvalidSuggestionSchema.
			WithContext("file", file.Path).
			WithContext("reason", "empty model output")
	}

	suggestions, err := ParseSuggestions(ctx, raw, file.Path)
	if err != nil {
		if recovered := ExtractFallbackSuggestions(raw, file.Path); len(recovered) > 0 {
			log.Warn("schema decode failed, recovered findings via keyword fallback",
				"file", file.Path,
				"count", len(recovered))
			return recovered, nil
		}
		return nil, err
	}

	log.Info("file analyzed",
		"file", file.Path,
		"suggestions", len(suggestions))
	return suggestions, nil
}

func (r *Reviewer) buildPrompt(pr *models.PullRequestData, file models.ChangedFile) string {
	var sb strings.Builder

	sb.WriteString("You are a senior code reviewer. Review the following change and report concrete issues.\n\n")
	sb.WriteString("Respond ONLY with JSON matching this schema:\n")
	sb.WriteString(`{"suggestions":[{"description":"...","category":"security|performance|type-safety|logic-error|style|documentation|cleanup|error-handling|general","severity":"critical|high|medium|low|info","lineNumber":1,"originalCode":"...","suggestedCode":"..."}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- lineNumber refers to the new version of the file.\n")
	sb.WriteString("- Include originalCode and suggestedCode together or omit both.\n")
	sb.WriteString("- An empty suggestions array is a valid answer.\n\n")

	if pr != nil {
		fmt.Fprintf(&sb, "Change title: %s\n", pr.Title)
		if pr.Body != "" {
			fmt.Fprintf(&sb, "Change description:\n%s\n", pr.Body)
		}
	}
	if standards := r.config.Review.Standards; standards != "" {
		fmt.Fprintf(&sb, "\nProject review standards:\n%s\n", standards)
	}

	fmt.Fprintf(&sb, "\nFile: %s (status: %s)\n", file.Path, file.Status)
	sb.WriteString("Diff:\n```diff\n")
	sb.WriteString(file.Patch)
	sb.WriteString("\n```\n")

	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

// mapAPIError translates transport failures into the pipeline taxonomy so
// the retry client can tell fatal from transient.
func mapAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domainErrors.ErrRequestTimeout.WithError(err)
	}
	if errors.Is(err, context.Canceled) {
		return domainErrors.NewAppError(domainErrors.TypeTimeout, "analysis canceled", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return domainErrors.ErrAuthenticationFailed.WithError(err)
		case gerr.Code == 429:
			return domainErrors.ErrRateLimitExceeded.WithError(err)
		case gerr.Code >= 500:
			return domainErrors.ErrTransientService.WithError(err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource exhausted"):
		return domainErrors.ErrRateLimitExceeded.WithError(err)
	case strings.Contains(msg, "api key") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission"):
		return domainErrors.ErrAuthenticationFailed.WithError(err)
	case strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "internal error"):
		return domainErrors.ErrTransientService.WithError(err)
	}
	return domainErrors.NewAppError(domainErrors.TypeAI, "analysis request failed", err)
}
