package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"zonerama/pkg/auth"
	"zonerama/pkg/ui"
)

var clearAll bool

// sessionCmd manages remembered browser logins
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage remembered logins",
	Long: `After a successful run the browser login is stored so the next run can
skip signing in. It is kept in the system keychain when available, otherwise
in an encrypted file under ~/.config/zonerama.

ZONERAMA_STORAGE_STATE may point to a Playwright storage-state file instead.`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered logins",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionClearCmd = &cobra.Command{
	Use:     "clear [PROFILE]",
	Aliases: []string{"forget"},
	Short:   "Forget a remembered login",
	Example: `  zonerama session clear
  zonerama session clear work
  zonerama session clear --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionClear,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
	sessionClearCmd.Flags().BoolVar(&clearAll, "all", false, "forget every profile")
}

func runSessionList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fail(fmt.Errorf("failed to open session storage: %w", err))
	}
	sessions, err := manager.List()
	if err != nil {
		return fail(err)
	}
	if len(sessions) == 0 {
		ui.PrintWarning("No remembered logins")
		return nil
	}

	table := tablewriter.NewWriter(ui.Output)
	table.SetHeader([]string{"Profile", "Saved", "Cookies"})
	table.SetBorder(false)
	table.SetRowLine(false)
	for _, s := range sessions {
		table.Append([]string{s.Profile, s.SavedAt.Local().Format(time.DateTime), strconv.Itoa(s.CookieCount())})
	}
	table.Render()
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fail(fmt.Errorf("failed to open session storage: %w", err))
	}

	if clearAll {
		if err := manager.DeleteAll(); err != nil {
			return fail(err)
		}
		ui.PrintSuccess("All remembered logins removed")
		return nil
	}

	name := "default"
	if len(args) == 1 {
		name = args[0]
	} else if cfg, err := loadConfig(cmd); err == nil {
		name = cfg.Session.Profile
	}
	if err := manager.Delete(name); err != nil {
		return fail(err)
	}
	ui.PrintSuccess(fmt.Sprintf("Remembered login %q removed", name))
	return nil
}
