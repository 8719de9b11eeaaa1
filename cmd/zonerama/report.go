package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zonerama/pkg/report"
	"zonerama/pkg/ui"
)

var reportJSON bool

// reportCmd prints the last run report for a download directory
var reportCmd = &cobra.Command{
	Use:   "report [DIR]",
	Short: "Show the last run for a download directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the raw JSON report")
}

func runReport(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fail(err)
		}
		dir = cfg.Download.Directory
	}

	store, err := report.NewStore()
	if err != nil {
		return fail(err)
	}
	r, err := store.Load(dir)
	if err != nil {
		return fail(err)
	}
	if r == nil {
		ui.PrintWarning(fmt.Sprintf("No run recorded for %s", dir))
		return nil
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	ui.PrintInfo("Run", r.RunID)
	ui.PrintInfo("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	ui.PrintReport(os.Stdout, r)
	return nil
}
