package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultConfigFile      = "auditexport.yaml"
	DefaultCredentialsFile = "credentials.json"
	DefaultAdminEmailFile  = "admin_email.txt"
	DefaultLogDir          = "workspace_logs"
	DefaultTrackingFile    = "log_days_pulled.txt"
	DefaultSQLitePath      = "auditexport.db"
	DefaultPageSize        = 1000
	MaxPageSize            = 1000
	DefaultLookbackDays    = 365
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultWebhookTimeout  = 10 * time.Second
)

// EnvPrefix prefixes every environment override, e.g. AUDITEXPORT_LOG_DIR.
const EnvPrefix = "AUDITEXPORT"

// DefaultCategories are the Workspace applications with audit activity reports.
var DefaultCategories = []string{
	"access_transparency", "admin", "calendar", "chat", "chrome", "context_aware_access",
	"data_studio", "drive", "gcp", "gplus", "groups", "groups_enterprise", "jamboard",
	"keep", "login", "meet", "mobile", "rules", "saml", "token", "user_accounts", "vault",
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CredentialsFile: DefaultCredentialsFile,
		AdminEmailFile:  DefaultAdminEmailFile,
		LogDir:          DefaultLogDir,
		Categories:      append([]string(nil), DefaultCategories...),
		PageSize:        DefaultPageSize,
		LookbackDays:    DefaultLookbackDays,
		State: StateConfig{
			Backend:      StateBackendFile,
			TrackingFile: DefaultTrackingFile,
			SQLitePath:   DefaultSQLitePath,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnvironmentOverrides applies AUDITEXPORT_* environment variables.
func (c *Config) applyEnvironmentOverrides() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setString := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	setInt := func(key string, dst *int) {
		if n := v.GetInt(key); n != 0 {
			*dst = n
		}
	}

	setString("credentials_file", &c.CredentialsFile)
	setString("admin_email", &c.AdminEmail)
	setString("admin_email_file", &c.AdminEmailFile)
	setString("log_dir", &c.LogDir)
	setString("metrics_textfile", &c.MetricsTextfile)
	setString("logging.level", &c.Logging.Level)
	setString("logging.format", &c.Logging.Format)
	setString("state.tracking_file", &c.State.TrackingFile)
	setString("state.sqlite_path", &c.State.SQLitePath)
	setInt("page_size", &c.PageSize)
	setInt("lookback_days", &c.LookbackDays)

	var backend string
	setString("state.backend", &backend)
	if backend != "" {
		c.State.Backend = StateBackend(backend)
	}

	if cats := v.GetString("categories"); cats != "" {
		c.Categories = splitList(cats)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
