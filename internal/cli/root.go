// Package cli provides the command-line interface for auditexport.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/auditexport/internal/cli/commands"
	"github.com/ccollicutt/auditexport/pkg/config"
)

// DefaultEnvFile is loaded before configuration when present.
const DefaultEnvFile = ".env"

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration, setup or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command. Without a subcommand it
// performs one export run.
func NewRootCommand() *cobra.Command {
	g := &commands.GlobalOptions{}
	opts := commands.NewExportOptions(g)

	rootCmd := &cobra.Command{
		Use:   "auditexport",
		Short: "Archive Google Workspace audit logs to monthly CSV files",
		Long:  commands.ExportLong,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(g.EnvFile, cmd.Flags().Changed("env-file"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunExport(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "",
		fmt.Sprintf("Config file (default %s if present)", config.DefaultConfigFile))
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&g.EnvFile, "env-file", DefaultEnvFile, "Environment file loaded before config")
	opts.AddFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(commands.NewExportCommand(commands.NewExportOptions(g)))
	rootCmd.AddCommand(commands.NewStatusCommand(g))
	rootCmd.AddCommand(commands.NewValidateCommand(g))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// loadEnvFile loads path into the environment without overriding variables
// already set. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}
