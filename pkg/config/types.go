// Package config provides configuration loading and validation for auditexport.
package config

import "time"

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// CredentialsFile is the service-account JSON key.
	CredentialsFile string `yaml:"credentials_file"`

	// AdminEmail is the super admin impersonated through domain-wide delegation.
	// When empty, AdminEmailFile is read instead.
	AdminEmail     string `yaml:"admin_email,omitempty"`
	AdminEmailFile string `yaml:"admin_email_file"`

	// LogDir holds the monthly archives.
	LogDir string `yaml:"log_dir"`

	// Categories are the application names exported, in order.
	Categories []string `yaml:"categories"`

	// PageSize is the maxResults of each API request (1-1000).
	PageSize int `yaml:"page_size"`

	// LookbackDays bounds how far back unexported days are searched.
	LookbackDays int `yaml:"lookback_days"`

	State   StateConfig   `yaml:"state"`
	Logging LoggingConfig `yaml:"logging"`

	// MetricsTextfile, when set, receives Prometheus metrics for the run.
	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// StateBackend selects where tracked days are stored.
type StateBackend string

const (
	StateBackendFile   StateBackend = "file"
	StateBackendSQLite StateBackend = "sqlite"
)

// StateConfig configures the tracked-day store.
type StateConfig struct {
	Backend      StateBackend `yaml:"backend"`
	TrackingFile string       `yaml:"tracking_file"`
	SQLitePath   string       `yaml:"sqlite_path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is console or json.
	Format string `yaml:"format"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailure fires only when a category is incomplete (default).
	WebhookTriggerOnFailure WebhookTrigger = "on_failure"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for run reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_failure".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
