package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type (
	Config struct {
		GeminiAPIKey string `json:"gemini_api_key"`
		Model        string `json:"model"`
		Language     string `json:"language"`
		PathFile     string `json:"path_file"`

		GitHub GitHubConfig `json:"github"`
		Review ReviewConfig `json:"review"`
	}

	GitHubConfig struct {
		Token string `json:"token,omitempty"`
		Owner string `json:"owner,omitempty"`
		Repo  string `json:"repo,omitempty"`
	}

	// ReviewConfig holds the pipeline knobs. None of these are hardcoded in
	// the pipeline packages; they all flow in from here.
	ReviewConfig struct {
		CriticalThreshold float64 `json:"critical_threshold"`
		HighThreshold     float64 `json:"high_threshold"`
		MediumThreshold   float64 `json:"medium_threshold"`

		MaxResolvable int `json:"max_resolvable"`
		// MaxEnhanced caps high-tier detail blocks. Zero means unlimited.
		MaxEnhanced int `json:"max_enhanced,omitempty"`

		// DisableInline turns off inline review comments; everything is
		// published through the summary comment instead.
		DisableInline         bool `json:"disable_inline_comments,omitempty"`
		MaxRetries            int  `json:"max_retries"`
		RequestTimeoutSeconds int  `json:"request_timeout_seconds"`
		Concurrency           int  `json:"concurrency"`
		MaxFiles              int  `json:"max_files"`
		MaxPatchBytes         int  `json:"max_patch_bytes"`

		// Standards is free-form project guidance injected into every
		// analysis prompt.
		Standards string `json:"standards,omitempty"`

		// Tools declares which static analysis tools already run against
		// the repository. Findings they can corroborate score higher.
		Tools ToolsConfig `json:"tools,omitempty"`
	}

	ToolsConfig struct {
		Linter          bool `json:"linter,omitempty"`
		TypeChecker     bool `json:"type_checker,omitempty"`
		SecurityScanner bool `json:"security_scanner,omitempty"`
	}
)

const (
	defaultLang              = "en"
	defaultModel             = "gemini-1.5-flash"
	defaultCriticalThreshold = 0.95
	defaultHighThreshold     = 0.80
	defaultMediumThreshold   = 0.65
	defaultMaxResolvable     = 5
	defaultMaxRetries        = 3
	defaultTimeoutSeconds    = 120
	defaultConcurrency       = 4
	defaultMaxFiles          = 50
	defaultMaxPatchBytes     = 64 * 1024
)

func LoadConfig(path string) (*Config, error) {
	var configPath string

	if filepath.Ext(path) == ".json" {
		configPath = path
	} else {
		configDir := filepath.Join(path, ".reviewmate")
		configPath = filepath.Join(configDir, "config.json")

		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return nil, fmt.Errorf("creating config directory: %w", err)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	config.PathFile = configPath
	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("loaded configuration is invalid: %w", err)
	}

	return &config, nil
}

func createDefaultConfig(path string) (*Config, error) {
	config := &Config{
		Language: defaultLang,
		Model:    defaultModel,
		PathFile: path,
	}
	applyDefaults(config)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("saving default config: %w", err)
	}

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Language == "" {
		config.Language = defaultLang
	}
	if config.Model == "" {
		config.Model = defaultModel
	}

	r := &config.Review
	if r.CriticalThreshold == 0 {
		r.CriticalThreshold = defaultCriticalThreshold
	}
	if r.HighThreshold == 0 {
		r.HighThreshold = defaultHighThreshold
	}
	if r.MediumThreshold == 0 {
		r.MediumThreshold = defaultMediumThreshold
	}
	if r.MaxResolvable == 0 {
		r.MaxResolvable = defaultMaxResolvable
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = defaultMaxRetries
	}
	if r.RequestTimeoutSeconds == 0 {
		r.RequestTimeoutSeconds = defaultTimeoutSeconds
	}
	if r.Concurrency == 0 {
		r.Concurrency = defaultConcurrency
	}
	if r.MaxFiles == 0 {
		r.MaxFiles = defaultMaxFiles
	}
	if r.MaxPatchBytes == 0 {
		r.MaxPatchBytes = defaultMaxPatchBytes
	}
}

// InlineEnabled reports whether inline review comments should be posted.
func (r ReviewConfig) InlineEnabled() bool {
	return !r.DisableInline
}

func SaveConfig(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration to save is invalid: %w", err)
	}

	if config.PathFile == "" {
		return errors.New("config file path is not set")
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(config.PathFile, data, 0644); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Language == "" {
		return errors.New("language cannot be empty")
	}
	if config.Model == "" {
		return errors.New("model cannot be empty")
	}

	r := config.Review
	if r.CriticalThreshold < r.HighThreshold || r.HighThreshold < r.MediumThreshold {
		return errors.New("tier thresholds must be ordered: critical >= high >= medium")
	}
	if r.CriticalThreshold > 1 || r.MediumThreshold < 0 {
		return errors.New("tier thresholds must lie in [0,1]")
	}
	if r.MaxResolvable < 0 {
		return errors.New("max_resolvable cannot be negative")
	}
	if r.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if r.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	return nil
}
