package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// categoryPattern matches Reports API application names.
var categoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists. When path is empty, the default
// config file is used if present; otherwise defaults plus environment
// overrides apply. An explicitly named file that does not exist is an error.
func LoadOrDefault(ctx context.Context, path string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(ctx, path)
		return cfg, path, err
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		cfg, err := Load(ctx, DefaultConfigFile)
		return cfg, DefaultConfigFile, err
	}

	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("validating config: %w", err)
	}
	return cfg, "", nil
}

// Validate checks a configuration for errors and fills in defaults for
// optional webhook fields.
func Validate(cfg *Config) error {
	if cfg.CredentialsFile == "" {
		return errors.New("credentials_file: is required")
	}

	if cfg.AdminEmail == "" && cfg.AdminEmailFile == "" {
		return errors.New("admin_email or admin_email_file is required")
	}

	if cfg.LogDir == "" {
		return errors.New("log_dir: is required")
	}

	if err := validateCategories(cfg.Categories); err != nil {
		return fmt.Errorf("categories: %w", err)
	}

	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return fmt.Errorf("page_size: must be between 1 and %d, got %d", MaxPageSize, cfg.PageSize)
	}

	if cfg.LookbackDays < 1 {
		return fmt.Errorf("lookback_days: must be >= 1, got %d", cfg.LookbackDays)
	}

	if err := validateState(&cfg.State); err != nil {
		return fmt.Errorf("state: %w", err)
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateCategories(categories []string) error {
	if len(categories) == 0 {
		return errors.New("at least one category is required")
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if !categoryPattern.MatchString(c) {
			return fmt.Errorf("invalid category %q (lowercase letters, digits and underscores)", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
	return nil
}

func validateState(st *StateConfig) error {
	if st.Backend == "" {
		st.Backend = StateBackendFile
	}
	switch st.Backend {
	case StateBackendFile:
		if st.TrackingFile == "" {
			return errors.New("tracking_file is required for the file backend")
		}
	case StateBackendSQLite:
		if st.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid backend %q (must be file or sqlite)", st.Backend)
	}
	return nil
}

func validateLogging(lc *LoggingConfig) error {
	switch strings.ToLower(lc.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn or error)", lc.Level)
	}
	switch lc.Format {
	case "":
		lc.Format = DefaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("invalid format %q (must be console or json)", lc.Format)
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnFailure, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_failure, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnFailure
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
