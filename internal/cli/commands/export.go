package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/auditexport/pkg/archive"
	"github.com/ccollicutt/auditexport/pkg/config"
	"github.com/ccollicutt/auditexport/pkg/exporter"
	"github.com/ccollicutt/auditexport/pkg/logging"
	"github.com/ccollicutt/auditexport/pkg/metrics"
	"github.com/ccollicutt/auditexport/pkg/output"
	"github.com/ccollicutt/auditexport/pkg/source"
	"github.com/ccollicutt/auditexport/pkg/tracker"
	"github.com/ccollicutt/auditexport/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// SourceOpener builds the LogSource a run reads from.
type SourceOpener func(ctx context.Context, cfg *config.Config) (source.LogSource, error)

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	EnvFile    string
}

// ExportOptions holds command-line options for an export run.
type ExportOptions struct {
	*GlobalOptions

	Output  string
	Verbose bool
	Quiet   bool
	Strict  bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string

	// OpenSource defaults to provisioning the Reports API client.
	OpenSource SourceOpener

	// Now supplies today's date; defaults to time.Now.
	Now func() time.Time
}

// NewExportOptions returns options with production defaults.
func NewExportOptions(g *GlobalOptions) *ExportOptions {
	return &ExportOptions{
		GlobalOptions: g,
		OpenSource:    ProvisionSource,
		Now:           time.Now,
	}
}

// AddFlags registers the export flags on cmd.
func (o *ExportOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Show archive paths and page counts")
	cmd.Flags().BoolVarP(&o.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&o.Strict, "strict", false, "Exit 1 when any category is incomplete")

	cmd.Flags().StringVar(&o.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&o.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&o.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFailure),
		"When to fire webhook (on_failure|always|never)")
}

// ExportLong describes an export run for help output.
const ExportLong = `Export one day of Google Workspace audit activity.

Each run picks the most recent day in the lookback window that has not been
exported yet, pulls every configured category for that UTC day, merges the
rows into monthly CSV archives and records the day as exported.

Schedule it daily (cron, systemd timer) to keep archives current; repeated
runs backfill older days one at a time.

Exit codes:
  0 - Day exported, or nothing left to export
  1 - Day exported with incomplete categories (--strict only)
  2 - Configuration, setup or runtime error`

// NewExportCommand creates the export command.
func NewExportCommand(opts *ExportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the next unexported day (default command)",
		Long:  ExportLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunExport(cmd, opts)
		},
	}
	opts.AddFlags(cmd)
	return cmd
}

// RunExport performs one export run.
func RunExport(cmd *cobra.Command, opts *ExportOptions) error {
	ExitCode = 0

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, configPath, err := config.LoadOrDefault(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg, opts.GlobalOptions)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Reject a bad format before touching the network
	formatter := output.New(opts.Output, output.FormatOptions{Verbose: opts.Verbose, Quiet: opts.Quiet})
	if formatter == nil {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	src, err := opts.OpenSource(ctx, cfg)
	if err != nil {
		var setupErr *source.SetupError
		if errors.As(err, &setupErr) {
			log.Error("setup failed", zap.String("step", setupErr.Step), zap.Error(setupErr.Err))
		}
		return err
	}

	exp := exporter.New(
		tracker.New(store, tracker.WithLookback(cfg.LookbackDays)),
		src,
		archive.NewMerger(cfg.LogDir),
		cfg.Categories,
		exporter.WithLogger(log),
	)

	run, err := exp.RunOnce(ctx, opts.Now())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, run); err != nil {
			log.Warn("writing metrics failed", zap.String("path", cfg.MetricsTextfile), zap.Error(err))
		}
	}

	report := output.NewReport(run, configPath, cfg.LogDir)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Send webhooks (errors logged but don't fail the run)
	sendWebhooks(ctx, log, collectWebhooks(cfg, opts), report)

	if opts.Strict && report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// ProvisionSource builds a verified Reports API source from cfg.
func ProvisionSource(ctx context.Context, cfg *config.Config) (source.LogSource, error) {
	src, err := source.Provision(ctx, source.Credentials{
		KeyFile:        cfg.CredentialsFile,
		AdminEmail:     cfg.AdminEmail,
		AdminEmailFile: cfg.AdminEmailFile,
		PageSize:       cfg.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenStore opens the tracked-day store selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (tracker.Store, error) {
	switch cfg.State.Backend {
	case config.StateBackendSQLite:
		store, err := tracker.OpenSQLiteStore(ctx, cfg.State.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening state database: %w", err)
		}
		return store, nil
	default:
		return tracker.NewFileStore(cfg.State.TrackingFile), nil
	}
}

func newLogger(cfg *config.Config, g *GlobalOptions) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if g != nil && g.LogLevel != "" {
		level = g.LogLevel
	}
	log, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// sendWebhooks sends the report to all configured webhooks.
func sendWebhooks(ctx context.Context, log *zap.Logger, webhooks []config.WebhookConfig, report *output.Report) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasIssues()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		if resp.Success() {
			log.Info("webhook sent", zap.String("webhook", name),
				zap.Int("status", resp.StatusCode), zap.Duration("duration", resp.Duration))
		} else {
			log.Warn("webhook failed", zap.String("webhook", name), zap.Error(resp.Error))
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ExportOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnFailure
		}
		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

// shouldFireWebhook determines if a webhook should fire based on trigger and
// whether any category was incomplete.
func shouldFireWebhook(trigger config.WebhookTrigger, hasIssues bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}
