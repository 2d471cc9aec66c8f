package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/auditexport/pkg/config"
	"github.com/ccollicutt/auditexport/pkg/tracker"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show export progress without contacting the API",
		Long: `Show how many days have been exported, the most recent one, and which
day the next run would export. Reads local state only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, g, time.Now())
		},
	}
}

func runStatus(cmd *cobra.Command, g *GlobalOptions, now time.Time) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, _, err := config.LoadOrDefault(ctx, g.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	t := tracker.New(store, tracker.WithLookback(cfg.LookbackDays))
	tracked, err := t.Load(ctx)
	if err != nil {
		return err
	}

	days := make([]string, 0, len(tracked))
	for d := range tracked {
		days = append(days, d)
	}
	sort.Strings(days)

	fmt.Fprintf(out, "State backend:  %s\n", cfg.State.Backend)
	fmt.Fprintf(out, "Tracked days:   %d\n", len(days))
	if len(days) > 0 {
		fmt.Fprintf(out, "Oldest tracked: %s\n", days[0])
		fmt.Fprintf(out, "Newest tracked: %s\n", days[len(days)-1])
	}

	next, ok, err := t.FindNextUnpulledDay(ctx, now)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "Next day:       %s\n", tracker.FormatDay(next))
	} else {
		fmt.Fprintf(out, "Next day:       none (all %d days in the lookback window exported)\n", t.Lookback())
	}

	archives, err := filepath.Glob(filepath.Join(cfg.LogDir, "*_logs_*.csv"))
	if err != nil {
		return fmt.Errorf("listing archives: %w", err)
	}
	fmt.Fprintf(out, "Archives:       %d in %s\n", len(archives), cfg.LogDir)

	return nil
}
