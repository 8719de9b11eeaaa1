package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zonerama/pkg/browser"
	"zonerama/pkg/ui"
)

// installCmd downloads the browser driver
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the Playwright driver and Chromium",
	Long: `Download the Playwright driver and the Chromium build it controls. This is
needed once before the first download run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.PrintInfo("Installing", "Playwright driver and Chromium")
		if err := browser.Install(); err != nil {
			return fail(fmt.Errorf("browser installation failed: %w", err))
		}
		ui.PrintSuccess("Browser installed")
		return nil
	},
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "zonerama %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
	},
}

func init() {
	rootCmd.AddCommand(installCmd, versionCmd)
}
