// Package services wires the review pipeline end to end: fetch, filter,
// analyze, score, classify, format, publish.
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thomas-vilte/reviewmate/internal/config"
	"github.com/thomas-vilte/reviewmate/internal/diff"
	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/format"
	"github.com/thomas-vilte/reviewmate/internal/logger"
	"github.com/thomas-vilte/reviewmate/internal/models"
	"github.com/thomas-vilte/reviewmate/internal/retry"
	"github.com/thomas-vilte/reviewmate/internal/review"
	"golang.org/x/sync/errgroup"
)

// State is the pipeline stage a run is in. Done, Skipped and Failed are
// terminal.
type State string

const (
	StateFetching    State = "fetching"
	StateFiltering   State = "filtering"
	StateAnalyzing   State = "analyzing"
	StateScoring     State = "scoring"
	StateClassifying State = "classifying"
	StateFormatting  State = "formatting"
	StatePublishing  State = "publishing"
	StateDone        State = "done"
	StateSkipped     State = "skipped"
	StateFailed      State = "failed"
)

// VCSClient is what the pipeline needs from the hosting platform.
type VCSClient interface {
	GetPR(ctx context.Context, prNumber int) (*models.PullRequestData, error)
	HasExistingReview(ctx context.Context, prNumber int, headSHA string) (bool, error)
	CreateComment(ctx context.Context, prNumber int, body string) error
	CreateInlineComment(ctx context.Context, prNumber int, commitSHA, path string, position int, body string) error
}

// FileReviewer analyzes one changed file and returns raw suggestions.
type FileReviewer interface {
	ReviewFile(ctx context.Context, pr *models.PullRequestData, file models.ChangedFile) ([]models.Suggestion, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	State             State
	Batch             *models.ReviewBatch
	Output            *format.Output
	FilesAnalyzed     int
	FilesSkipped      int
	PublishedComments int
	InlineFallbacks   int
}

type ReviewService struct {
	vcs        VCSClient
	reviewer   FileReviewer
	cfg        *config.Config
	classifier *review.Classifier
	formatter  *format.Formatter
	retrier    *retry.Client
	dryRun     bool
}

type Option func(*ReviewService)

// WithDryRun renders everything but publishes nothing.
func WithDryRun(dryRun bool) Option {
	return func(s *ReviewService) { s.dryRun = dryRun }
}

// WithRetrier replaces the default backoff client.
func WithRetrier(r *retry.Client) Option {
	return func(s *ReviewService) { s.retrier = r }
}

func NewReviewService(vcs VCSClient, reviewer FileReviewer, cfg *config.Config, opts ...Option) *ReviewService {
	s := &ReviewService{
		vcs:        vcs,
		reviewer:   reviewer,
		cfg:        cfg,
		classifier: review.NewClassifier(cfg.Review),
		formatter:  format.NewFormatter(cfg.Review.MaxEnhanced),
		retrier:    retry.NewClient(cfg.Review.MaxRetries),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReviewPR runs the whole pipeline for one change request. Per-file analysis
// failures degrade the result; only exhausted oracle failures abort the run,
// and those leave a failure notice on the change request.
func (s *ReviewService) ReviewPR(ctx context.Context, prNumber int) (*Result, error) {
	log := logger.FromContext(ctx)
	result := &Result{State: StateFetching}

	log.Info("starting review", "pr_number", prNumber)

	pr, err := s.vcs.GetPR(ctx, prNumber)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	exists, err := s.vcs.HasExistingReview(ctx, prNumber, pr.HeadSHA)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if exists {
		log.Info("review already published for this head, skipping",
			"pr_number", prNumber,
			"head_sha", pr.HeadSHA)
		result.State = StateSkipped
		return result, nil
	}

	result.State = StateFiltering
	files := s.filterFiles(ctx, pr.Files)
	result.FilesSkipped = len(pr.Files) - len(files)

	result.State = StateAnalyzing
	perFile, err := s.analyzeFiles(ctx, pr, files)
	if err != nil {
		result.State = StateFailed
		s.publishFailureNotice(ctx, prNumber, err)
		return result, err
	}
	result.FilesAnalyzed = len(files)

	result.State = StateScoring
	scored := s.scoreSuggestions(pr, files, perFile)

	result.State = StateClassifying
	classified := s.classifier.Classify(scored)
	stats := models.ComputeStatistics(classified)
	recommendation, rationale := review.Recommend(stats)

	batch := &models.ReviewBatch{
		PRNumber:       prNumber,
		HeadSHA:        pr.HeadSHA,
		Suggestions:    classified,
		Statistics:     stats,
		Recommendation: recommendation,
		Rationale:      rationale,
	}
	result.Batch = batch

	result.State = StateFormatting
	output := s.formatter.Format(*batch)
	result.Output = &output

	result.State = StatePublishing
	if s.dryRun {
		log.Info("dry run, skipping publish", "pr_number", prNumber)
		result.State = StateDone
		return result, nil
	}

	if err := s.publish(ctx, prNumber, pr.HeadSHA, output, result); err != nil {
		result.State = StateFailed
		return result, err
	}

	log.Info("review published",
		"pr_number", prNumber,
		"suggestions", stats.Total,
		"comments", result.PublishedComments)
	result.State = StateDone
	return result, nil
}

// filterFiles removes everything the oracle should never see: binaries,
// removed files, generated or vendored paths, and oversized patches. Kept
// files are ordered by path so batch output is deterministic, and the file
// cap keeps giant change requests bounded.
func (s *ReviewService) filterFiles(ctx context.Context, files []models.ChangedFile) []models.ChangedFile {
	log := logger.FromContext(ctx)

	kept := make([]models.ChangedFile, 0, len(files))
	for _, f := range files {
		switch {
		case f.Binary || f.Patch == "":
			log.Debug("skipping file without reviewable patch", "file", f.Path)
		case f.Status == "removed":
			log.Debug("skipping removed file", "file", f.Path)
		case diff.IsExcludedPath(f.Path):
			log.Debug("skipping excluded path", "file", f.Path)
		case s.cfg.Review.MaxPatchBytes > 0 && len(f.Patch) > s.cfg.Review.MaxPatchBytes:
			log.Warn("skipping oversized patch",
				"file", f.Path,
				"patch_bytes", len(f.Patch))
		default:
			stats, err := diff.AnalyzePatch(f.Path, f.Patch)
			if err != nil {
				log.Warn("patch did not parse, keeping file anyway",
					"file", f.Path,
					"error", err)
			} else {
				if stats.Binary {
					log.Debug("skipping binary patch", "file", f.Path)
					continue
				}
				if f.Additions == 0 && f.Deletions == 0 {
					f.Additions = stats.Additions
					f.Deletions = stats.Deletions
				}
			}
			kept = append(kept, f)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })

	if max := s.cfg.Review.MaxFiles; max > 0 && len(kept) > max {
		log.Warn("file cap reached, reviewing a subset",
			"total", len(kept),
			"cap", max)
		kept = kept[:max]
	}
	return kept
}

// analyzeFiles fans analysis out with bounded concurrency. Results keep the
// input file order regardless of completion order. A file whose analysis
// fails non-fatally is dropped from the batch; a fatal failure aborts
// everything.
func (s *ReviewService) analyzeFiles(ctx context.Context, pr *models.PullRequestData, files []models.ChangedFile) ([][]models.Suggestion, error) {
	log := logger.FromContext(ctx)

	perFile := make([][]models.Suggestion, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	concurrency := s.cfg.Review.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i, file := range files {
		g.Go(func() error {
			var suggestions []models.Suggestion
			err := s.retrier.Do(gctx, fmt.Sprintf("analyze %s", file.Path), func(attemptCtx context.Context) error {
				callCtx := attemptCtx
				if timeout := s.cfg.Review.RequestTimeoutSeconds; timeout > 0 {
					var cancel context.CancelFunc
					callCtx, cancel = context.WithTimeout(attemptCtx, time.Duration(timeout)*time.Second)
					defer cancel()
				}
				var reviewErr error
				suggestions, reviewErr = s.reviewer.ReviewFile(callCtx, pr, file)
				return reviewErr
			})
			if err != nil {
				if domainErrors.IsFatal(err) {
					return err
				}
				log.Warn("file analysis failed, continuing without it",
					"file", file.Path,
					"error", err)
				return nil
			}

			mu.Lock()
			perFile[i] = suggestions
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perFile, nil
}

// scoreSuggestions anchors each suggestion in its diff, scores it, and
// flattens per-file results in file order so output is deterministic.
func (s *ReviewService) scoreSuggestions(pr *models.PullRequestData, files []models.ChangedFile, perFile [][]models.Suggestion) []models.ScoredSuggestion {
	baseCtx := models.ScoringContext{
		Title:              pr.Title,
		Author:             pr.Author,
		BaseRef:            pr.BaseRef,
		HeadRef:            pr.HeadRef,
		HasLinter:          s.cfg.Review.Tools.Linter,
		HasTypeChecker:     s.cfg.Review.Tools.TypeChecker,
		HasSecurityScanner: s.cfg.Review.Tools.SecurityScanner,
	}

	var scored []models.ScoredSuggestion
	for i, suggestions := range perFile {
		file := files[i]

		scoringCtx := baseCtx
		scoringCtx.Language = diff.DetectLanguage(file.Path)
		switch {
		case file.Status == "added":
			scoringCtx.ChangeType = models.ChangeAddition
		case file.Additions == 0 && file.Deletions == 0:
			scoringCtx.ChangeType = models.ChangeReviewOnly
		default:
			scoringCtx.ChangeType = models.ChangeModification
		}

		for _, suggestion := range suggestions {
			if suggestion.LineNumber > 0 {
				if pos, ok := diff.MapPosition(file.Patch, suggestion.LineNumber); ok {
					suggestion.DiffPosition = pos
				}
			}

			confidence, category := review.Score(&suggestion, &scoringCtx)
			suggestion.Category = category
			scored = append(scored, models.ScoredSuggestion{
				Suggestion: suggestion,
				Confidence: confidence,
			})
		}
	}
	return scored
}

// publish writes the summary comment (details appended) and anchors
// resolvable blocks inline. Inline failures of any kind fall back to a
// plain comment; per-block failures never abort the run.
func (s *ReviewService) publish(ctx context.Context, prNumber int, headSHA string, output format.Output, result *Result) error {
	log := logger.FromContext(ctx)

	body := output.Summary
	if len(output.DetailBlocks) > 0 {
		body += "\n### Details\n"
		for _, block := range output.DetailBlocks {
			body += "\n" + block.Body + "\n"
		}
	}

	if err := s.vcs.CreateComment(ctx, prNumber, body); err != nil {
		return domainErrors.ErrPublishFailed.WithContext("pr_number", prNumber).WithError(err)
	}
	result.PublishedComments++

	for _, block := range output.ResolvableBlocks {
		if s.cfg.Review.InlineEnabled() && block.Position > 0 {
			err := s.vcs.CreateInlineComment(ctx, prNumber, headSHA, block.FilePath, block.Position, block.Body)
			if err == nil {
				result.PublishedComments++
				continue
			}
			log.Warn("inline comment failed, falling back to plain comment",
				"file", block.FilePath,
				"position", block.Position,
				"error", err)
		}

		if err := s.vcs.CreateComment(ctx, prNumber, format.RenderFileFallback(block)); err != nil {
			log.Warn("fallback comment failed, dropping block",
				"file", block.FilePath,
				"error", err)
			continue
		}
		result.PublishedComments++
		result.InlineFallbacks++
	}

	return nil
}

// publishFailureNotice leaves a short comment when the run aborts so the
// change request is not silently unreviewed. Best effort only.
func (s *ReviewService) publishFailureNotice(ctx context.Context, prNumber int, cause error) {
	if s.dryRun {
		return
	}
	log := logger.FromContext(ctx)

	body := fmt.Sprintf("⚠️ Automated review could not be completed: %s\n\nIt will run again on the next push.", cause)
	if err := s.vcs.CreateComment(ctx, prNumber, body); err != nil {
		log.Warn("failed to publish failure notice",
			"pr_number", prNumber,
			"error", err)
	}
}
