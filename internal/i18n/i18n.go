package i18n

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

type Translations struct {
	bundle   *i18n.Bundle
	localize *i18n.Localizer
}

func NewTranslations(defaultLang string) (*Translations, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	bundle.MustParseMessageFileBytes([]byte(defaultMessages), "default.en.toml")

	files, err := filepath.Glob("locales/active.*.toml")
	if err != nil {
		return nil, fmt.Errorf("error reading locales: %w", err)
	}

	for _, file := range files {
		if _, err := bundle.LoadMessageFile(file); err != nil {
			return nil, fmt.Errorf("error loading locale file %s: %w", file, err)
		}
	}

	localize := i18n.NewLocalizer(bundle, defaultLang)

	return &Translations{
		bundle:   bundle,
		localize: localize,
	}, nil
}

func (t *Translations) SetLanguage(lang string) error {
	for _, tag := range t.bundle.LanguageTags() {
		if tag.String() == lang {
			t.localize = i18n.NewLocalizer(t.bundle, lang)
			return nil
		}
	}
	return fmt.Errorf("language '%s' not supported", lang)
}

func (t *Translations) GetMessage(messageID string, count int, templateData map[string]interface{}) string {
	localized, err := t.localize.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID: messageID,
		},
		PluralCount:  count,
		TemplateData: templateData,
	})
	if err != nil {
		return "Translation missing: " + messageID
	}
	return localized
}

var defaultMessages = `
	[app_usage]
	other = "AI-assisted pull request reviews with confidence-scored feedback"

	[app_description]
	other = "reviewmate analyzes the diff of a pull request, scores every suggestion the AI produces, and publishes tiered review feedback to GitHub"

	[review_command_usage]
	other = "Review a pull request and publish scored feedback"

	[config_command_usage]
	other = "Manage reviewmate configuration"

	[config_init_usage]
	other = "Create or reset the configuration file"

	[config_show_usage]
	other = "Print the current configuration"

	[config_set_token_usage]
	other = "Store the GitHub token"

	[config_set_key_usage]
	other = "Store the Gemini API key"

	[fetching_pr]
	other = "Fetching pull request #{{.PRNumber}}..."

	[analyzing_files]
	one = "Analyzing {{.Count}} file..."
	other = "Analyzing {{.Count}} files..."

	[review_published]
	other = "Review published to PR #{{.PRNumber}}"

	[review_skipped]
	other = "PR #{{.PRNumber}} already has a review for this revision, skipping"

	[review_failed]
	other = "Review of PR #{{.PRNumber}} failed: {{.Error}}"

	[dry_run_notice]
	other = "Dry run: the review below was not published"

	[config_saved]
	other = "Configuration saved"

	[suggestions_found]
	one = "{{.Count}} suggestion survived scoring"
	other = "{{.Count}} suggestions survived scoring"
	`
