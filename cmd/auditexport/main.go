// auditexport archives Google Workspace audit activity to CSV.
//
// Each run exports one UTC day across every configured application into
// per-category monthly CSV files and records the day so it is not exported
// again. Run it daily from cron or a systemd timer.
package main

import (
	"os"

	"github.com/ccollicutt/auditexport/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
