package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/auditexport/pkg/config"
	"github.com/ccollicutt/auditexport/pkg/source"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate an auditexport configuration file without contacting the API.

Checks:
  - YAML syntax
  - Required fields and value ranges
  - Category names
  - State backend and webhook settings
  - Credentials and admin email files exist (warning only)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd, path)
		},
	}
}

func runValidate(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, loaded, err := config.LoadOrDefault(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if loaded == "" {
		fmt.Fprintln(out, "No config file found, using defaults and environment.")
	} else {
		fmt.Fprintf(out, "Validating %s...\n", loaded)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Log directory: %s\n", cfg.LogDir)
	fmt.Fprintf(out, "  Categories:    %d (%s)\n", len(cfg.Categories), strings.Join(cfg.Categories, ", "))
	fmt.Fprintf(out, "  Page size:     %d\n", cfg.PageSize)
	fmt.Fprintf(out, "  Lookback:      %d days\n", cfg.LookbackDays)
	switch cfg.State.Backend {
	case config.StateBackendSQLite:
		fmt.Fprintf(out, "  State:         sqlite (%s)\n", cfg.State.SQLitePath)
	default:
		fmt.Fprintf(out, "  State:         file (%s)\n", cfg.State.TrackingFile)
	}
	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "  Webhooks:      %d\n", len(cfg.Webhooks))
	}

	// Missing credential files are warnings; they may be mounted at run time
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		fmt.Fprintf(out, "\nWarning: credentials file %s: %v\n", cfg.CredentialsFile, err)
	}
	if _, err := source.ResolveAdminEmail(source.Credentials{
		AdminEmail:     cfg.AdminEmail,
		AdminEmailFile: cfg.AdminEmailFile,
	}); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}

	return nil
}
