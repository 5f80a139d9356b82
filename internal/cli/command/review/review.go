// Package review holds the CLI entry point for running the pipeline against
// one pull request.
package review

import (
	"context"
	"fmt"

	"github.com/thomas-vilte/reviewmate/internal/config"
	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/i18n"
	"github.com/thomas-vilte/reviewmate/internal/services"
	"github.com/urfave/cli/v3"
)

// Runner is the slice of the review service this command needs.
type Runner interface {
	ReviewPR(ctx context.Context, prNumber int) (*services.Result, error)
}

// RunnerBuilder defers service construction until the flags are resolved,
// so tests can substitute the whole pipeline.
type RunnerBuilder func(ctx context.Context, cfg *config.Config, dryRun bool) (Runner, error)

type ReviewCommandFactory struct {
	buildRunner RunnerBuilder
}

func NewReviewCommandFactory(buildRunner RunnerBuilder) *ReviewCommandFactory {
	return &ReviewCommandFactory{buildRunner: buildRunner}
}

func (f *ReviewCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "review",
		Aliases: []string{"r"},
		Usage:   t.GetMessage("review_command_usage", 0, nil),
		Flags:   f.createFlags(cfg),
		Action:  f.createAction(cfg, t),
	}
}

func (f *ReviewCommandFactory) createFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "pr",
			Aliases:  []string{"p"},
			Usage:    "pull request number to review",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "owner",
			Usage: "repository owner, overrides the configured value",
			Value: cfg.GitHub.Owner,
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "repository name, overrides the configured value",
			Value: cfg.GitHub.Repo,
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "render the review without publishing anything",
		},
	}
}

func (f *ReviewCommandFactory) createAction(cfg *config.Config, t *i18n.Translations) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		prNumber := int(command.Int("pr"))
		if prNumber <= 0 {
			return fmt.Errorf("invalid PR number: %d", prNumber)
		}

		cfg.GitHub.Owner = command.String("owner")
		cfg.GitHub.Repo = command.String("repo")

		if cfg.GeminiAPIKey == "" {
			return domainErrors.ErrAPIKeyMissing
		}
		if cfg.GitHub.Token == "" {
			return domainErrors.ErrTokenMissing
		}
		if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
			return domainErrors.ErrRepoMissing
		}

		dryRun := command.Bool("dry-run")
		runner, err := f.buildRunner(ctx, cfg, dryRun)
		if err != nil {
			return err
		}

		fmt.Println(t.GetMessage("fetching_pr", 0, map[string]interface{}{
			"PRNumber": prNumber,
		}))

		result, err := runner.ReviewPR(ctx, prNumber)
		if err != nil {
			return fmt.Errorf("%s", t.GetMessage("review_failed", 0, map[string]interface{}{
				"PRNumber": prNumber,
				"Error":    err,
			}))
		}

		return f.printResult(t, prNumber, dryRun, result)
	}
}

func (f *ReviewCommandFactory) printResult(t *i18n.Translations, prNumber int, dryRun bool, result *services.Result) error {
	switch result.State {
	case services.StateSkipped:
		fmt.Println(t.GetMessage("review_skipped", 0, map[string]interface{}{
			"PRNumber": prNumber,
		}))
		return nil
	case services.StateDone:
		if result.Batch != nil {
			total := result.Batch.Statistics.Total
			fmt.Println(t.GetMessage("suggestions_found", total, map[string]interface{}{
				"Count": total,
			}))
		}
		if dryRun && result.Output != nil {
			fmt.Println(t.GetMessage("dry_run_notice", 0, nil))
			fmt.Println()
			fmt.Println(result.Output.Summary)
			for _, block := range result.Output.ResolvableBlocks {
				fmt.Println()
				fmt.Println(block.Body)
			}
			for _, block := range result.Output.DetailBlocks {
				fmt.Println()
				fmt.Println(block.Body)
			}
			return nil
		}
		fmt.Println(t.GetMessage("review_published", 0, map[string]interface{}{
			"PRNumber": prNumber,
		}))
		return nil
	default:
		return fmt.Errorf("review ended in unexpected state %q", result.State)
	}
}
