package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
credentials_file: /etc/auditexport/sa.json
admin_email: admin@example.com
log_dir: /var/lib/auditexport/logs
categories: [login, admin, drive]
page_size: 500
lookback_days: 30
state:
  backend: sqlite
  sqlite_path: /var/lib/auditexport/state.db
logging:
  level: debug
  format: json
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CredentialsFile != "/etc/auditexport/sa.json" {
		t.Errorf("CredentialsFile = %q", cfg.CredentialsFile)
	}
	if cfg.AdminEmail != "admin@example.com" {
		t.Errorf("AdminEmail = %q", cfg.AdminEmail)
	}
	if !reflect.DeepEqual(cfg.Categories, []string{"login", "admin", "drive"}) {
		t.Errorf("Categories = %v", cfg.Categories)
	}
	if cfg.PageSize != 500 {
		t.Errorf("PageSize = %d, want 500", cfg.PageSize)
	}
	if cfg.LookbackDays != 30 {
		t.Errorf("LookbackDays = %d, want 30", cfg.LookbackDays)
	}
	if cfg.State.Backend != StateBackendSQLite {
		t.Errorf("State.Backend = %q, want sqlite", cfg.State.Backend)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "log_dir: archive\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogDir != "archive" {
		t.Errorf("LogDir = %q, want archive", cfg.LogDir)
	}
	if cfg.CredentialsFile != DefaultCredentialsFile {
		t.Errorf("CredentialsFile = %q, want default", cfg.CredentialsFile)
	}
	if len(cfg.Categories) != len(DefaultCategories) {
		t.Errorf("Categories = %d, want %d", len(cfg.Categories), len(DefaultCategories))
	}
	if cfg.State.TrackingFile != DefaultTrackingFile {
		t.Errorf("TrackingFile = %q, want default", cfg.State.TrackingFile)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AUDITEXPORT_LOG_DIR", "/srv/logs")
	t.Setenv("AUDITEXPORT_CATEGORIES", "login, token")
	t.Setenv("AUDITEXPORT_PAGE_SIZE", "250")
	t.Setenv("AUDITEXPORT_STATE_BACKEND", "sqlite")
	t.Setenv("AUDITEXPORT_LOGGING_LEVEL", "warn")

	path := writeTempFile(t, "config.yaml", "log_dir: archive\npage_size: 100\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogDir != "/srv/logs" {
		t.Errorf("LogDir = %q, want /srv/logs", cfg.LogDir)
	}
	if !reflect.DeepEqual(cfg.Categories, []string{"login", "token"}) {
		t.Errorf("Categories = %v", cfg.Categories)
	}
	if cfg.PageSize != 250 {
		t.Errorf("PageSize = %d, want 250", cfg.PageSize)
	}
	if cfg.State.Backend != StateBackendSQLite {
		t.Errorf("State.Backend = %q, want sqlite", cfg.State.Backend)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, path, err := LoadOrDefault(context.Background(), "")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.LogDir != DefaultLogDir {
		t.Errorf("LogDir = %q, want default", cfg.LogDir)
	}
}

func TestLoadOrDefault_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(DefaultConfigFile, []byte("lookback_days: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := LoadOrDefault(context.Background(), "")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if path != DefaultConfigFile {
		t.Errorf("path = %q, want %q", path, DefaultConfigFile)
	}
	if cfg.LookbackDays != 7 {
		t.Errorf("LookbackDays = %d, want 7", cfg.LookbackDays)
	}
}

func TestLoadOrDefault_ExplicitMissingFile(t *testing.T) {
	_, _, err := LoadOrDefault(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("LoadOrDefault() expected error for explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no credentials", func(c *Config) { c.CredentialsFile = "" }, "credentials_file"},
		{"no admin email source", func(c *Config) { c.AdminEmail, c.AdminEmailFile = "", "" }, "admin_email"},
		{"inline admin email only", func(c *Config) { c.AdminEmail, c.AdminEmailFile = "a@example.com", "" }, ""},
		{"no log dir", func(c *Config) { c.LogDir = "" }, "log_dir"},
		{"no categories", func(c *Config) { c.Categories = nil }, "at least one category"},
		{"bad category", func(c *Config) { c.Categories = []string{"Login"} }, "invalid category"},
		{"duplicate category", func(c *Config) { c.Categories = []string{"login", "login"} }, "duplicate category"},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"page size too large", func(c *Config) { c.PageSize = 1001 }, "page_size"},
		{"page size max", func(c *Config) { c.PageSize = 1000 }, ""},
		{"lookback zero", func(c *Config) { c.LookbackDays = 0 }, "lookback_days"},
		{"unknown backend", func(c *Config) { c.State.Backend = "redis" }, "invalid backend"},
		{"file backend without path", func(c *Config) { c.State.TrackingFile = "" }, "tracking_file"},
		{"sqlite backend without path", func(c *Config) {
			c.State.Backend = StateBackendSQLite
			c.State.SQLitePath = ""
		}, "sqlite_path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_EmptyBackendDefaultsToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.State.Backend = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.State.Backend != StateBackendFile {
		t.Errorf("Backend = %q, want file", cfg.State.Backend)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, DefaultPageSize)
	}
	if cfg.LookbackDays != DefaultLookbackDays {
		t.Errorf("LookbackDays = %d, want %d", cfg.LookbackDays, DefaultLookbackDays)
	}
	if len(cfg.Categories) != 22 {
		t.Errorf("Categories = %d, want 22", len(cfg.Categories))
	}

	cfg.Categories[0] = "mutated"
	if DefaultCategories[0] == "mutated" {
		t.Error("DefaultConfig() shares the DefaultCategories backing array")
	}
}

func TestValidate_Webhook(t *testing.T) {
	tests := []struct {
		name    string
		webhook WebhookConfig
		wantErr bool
	}{
		{"https", WebhookConfig{Name: "ops", URL: "https://example.com/hook", Trigger: WebhookTriggerOnFailure}, false},
		{"http", WebhookConfig{URL: "http://localhost:8080/hook"}, false},
		{"missing url", WebhookConfig{Name: "no-url"}, true},
		{"ftp scheme", WebhookConfig{URL: "ftp://example.com/hook"}, true},
		{"no host", WebhookConfig{URL: "https:///hook"}, true},
		{"invalid trigger", WebhookConfig{URL: "https://example.com/hook", Trigger: "on_issues"}, true},
		{"always", WebhookConfig{URL: "https://example.com/hook", Trigger: WebhookTriggerAlways}, false},
		{"never", WebhookConfig{URL: "https://example.com/hook", Trigger: WebhookTriggerNever}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Webhooks = []WebhookConfig{tt.webhook}
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Webhook_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/hook"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Webhooks[0].Trigger != WebhookTriggerOnFailure {
		t.Errorf("Trigger = %q, want on_failure", cfg.Webhooks[0].Trigger)
	}
	if cfg.Webhooks[0].Timeout != DefaultWebhookTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Webhooks[0].Timeout, DefaultWebhookTimeout)
	}
}

func TestValidate_Webhook_ErrorNamesWebhook(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhooks = []WebhookConfig{
		{Name: "good", URL: "https://example.com/a"},
		{Name: "bad", URL: "https://example.com/b", Trigger: "sometimes"},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "webhooks[1] (bad)") {
		t.Errorf("error = %v, want webhook index and name", err)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("AUDITEXPORT_TEST_TOKEN", "secret")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"literal", "literal"},
		{"${AUDITEXPORT_TEST_TOKEN}", "secret"},
		{"$AUDITEXPORT_TEST_TOKEN", "secret"},
		{"${AUDITEXPORT_TEST_UNSET}", ""},
	}
	for _, tt := range tests {
		if got := expandEnvVar(tt.in); got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_WithWebhooks(t *testing.T) {
	t.Setenv("AUDITEXPORT_HOOK_TOKEN", "tok")
	content := `
admin_email: admin@example.com
webhooks:
  - name: alerts
    url: https://hooks.example.com/audit
    token: ${AUDITEXPORT_HOOK_TOKEN}
    trigger: always
    timeout: 5s
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Webhooks) != 1 {
		t.Fatalf("Webhooks = %d, want 1", len(cfg.Webhooks))
	}
	wh := cfg.Webhooks[0]
	if wh.Token != "tok" {
		t.Errorf("Token = %q, want tok", wh.Token)
	}
	if wh.Trigger != WebhookTriggerAlways {
		t.Errorf("Trigger = %q, want always", wh.Trigger)
	}
	if wh.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", wh.Timeout)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
