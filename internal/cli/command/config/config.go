// Package config holds the CLI commands that read and write the
// configuration file.
package config

import (
	"context"
	"fmt"

	"github.com/thomas-vilte/reviewmate/internal/config"
	"github.com/thomas-vilte/reviewmate/internal/i18n"
	"github.com/urfave/cli/v3"
)

type ConfigCommandFactory struct{}

func NewConfigCommandFactory() *ConfigCommandFactory {
	return &ConfigCommandFactory{}
}

func (c *ConfigCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   t.GetMessage("config_command_usage", 0, nil),
		Commands: []*cli.Command{
			c.newInitCommand(t, cfg),
			c.newShowCommand(t, cfg),
			c.newSetAPIKeyCommand(t, cfg),
			c.newSetTokenCommand(t, cfg),
			c.newSetRepoCommand(t, cfg),
		},
	}
}

func (c *ConfigCommandFactory) newInitCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: t.GetMessage("config_init_usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println(t.GetMessage("config_saved", 0, nil))
			fmt.Printf("→ %s\n", cfg.PathFile)
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newShowCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: t.GetMessage("config_show_usage", 0, nil),
		Action: func(ctx context.Context, command *cli.Command) error {
			fmt.Printf("Config file: %s\n", cfg.PathFile)
			fmt.Printf("Language: %s\n", cfg.Language)
			fmt.Printf("Model: %s\n", cfg.Model)
			fmt.Printf("Gemini API key: %s\n", maskSecret(cfg.GeminiAPIKey))
			fmt.Printf("GitHub token: %s\n", maskSecret(cfg.GitHub.Token))
			fmt.Printf("Repository: %s/%s\n", cfg.GitHub.Owner, cfg.GitHub.Repo)
			fmt.Printf("Thresholds: critical=%.2f high=%.2f medium=%.2f\n",
				cfg.Review.CriticalThreshold, cfg.Review.HighThreshold, cfg.Review.MediumThreshold)
			fmt.Printf("Resolvable cap: %d\n", cfg.Review.MaxResolvable)
			fmt.Printf("Inline comments: %t\n", cfg.Review.InlineEnabled())
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newSetAPIKeyCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "set-api-key",
		Usage:     t.GetMessage("config_set_key_usage", 0, nil),
		ArgsUsage: "<api-key>",
		Action: func(ctx context.Context, command *cli.Command) error {
			key := command.Args().First()
			if key == "" {
				return fmt.Errorf("usage: reviewmate config set-api-key <api-key>")
			}
			cfg.GeminiAPIKey = key
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println(t.GetMessage("config_saved", 0, nil))
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newSetTokenCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "set-token",
		Usage:     t.GetMessage("config_set_token_usage", 0, nil),
		ArgsUsage: "<token>",
		Action: func(ctx context.Context, command *cli.Command) error {
			token := command.Args().First()
			if token == "" {
				return fmt.Errorf("usage: reviewmate config set-token <token>")
			}
			cfg.GitHub.Token = token
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println(t.GetMessage("config_saved", 0, nil))
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newSetRepoCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "set-repo",
		Usage:     "Set the default repository",
		ArgsUsage: "<owner> <repo>",
		Action: func(ctx context.Context, command *cli.Command) error {
			owner := command.Args().Get(0)
			repo := command.Args().Get(1)
			if owner == "" || repo == "" {
				return fmt.Errorf("usage: reviewmate config set-repo <owner> <repo>")
			}
			cfg.GitHub.Owner = owner
			cfg.GitHub.Repo = repo
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Println(t.GetMessage("config_saved", 0, nil))
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
