package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/thomas-vilte/reviewmate/internal/ai/gemini"
	configcmd "github.com/thomas-vilte/reviewmate/internal/cli/command/config"
	reviewcmd "github.com/thomas-vilte/reviewmate/internal/cli/command/review"
	cfg "github.com/thomas-vilte/reviewmate/internal/config"
	"github.com/thomas-vilte/reviewmate/internal/i18n"
	"github.com/thomas-vilte/reviewmate/internal/logger"
	"github.com/thomas-vilte/reviewmate/internal/services"
	"github.com/thomas-vilte/reviewmate/internal/vcs/github"
	"github.com/thomas-vilte/reviewmate/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("error initializing the cli: %v", err)
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func initializeApp() (*cli.Command, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not resolve the user home directory: %w", err)
	}

	cfgApp, err := cfg.LoadConfig(homeDir)
	if err != nil {
		return nil, err
	}

	translations, err := i18n.NewTranslations(cfgApp.Language)
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}

	reviewFactory := reviewcmd.NewReviewCommandFactory(buildReviewRunner)

	app := &cli.Command{
		Name:        "reviewmate",
		Usage:       translations.GetMessage("app_usage", 0, nil),
		Description: translations.GetMessage("app_description", 0, nil),
		Version:     version.FullVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose logging",
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			logger.Initialize(command.Bool("debug"), command.Bool("verbose"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			reviewFactory.CreateCommand(translations, cfgApp),
			configcmd.NewConfigCommandFactory().CreateCommand(translations, cfgApp),
		},
	}

	return app, nil
}

func buildReviewRunner(ctx context.Context, cfgApp *cfg.Config, dryRun bool) (reviewcmd.Runner, error) {
	reviewer, err := gemini.NewReviewer(ctx, cfgApp)
	if err != nil {
		return nil, err
	}

	vcsClient := github.NewGitHubClient(cfgApp.GitHub.Owner, cfgApp.GitHub.Repo, cfgApp.GitHub.Token)

	return services.NewReviewService(vcsClient, reviewer, cfgApp,
		services.WithDryRun(dryRun),
	), nil
}
