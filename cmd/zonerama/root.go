package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(err error) error {
	return &exitError{code: exitFailure, err: err}
}

func interrupted() error {
	return &exitError{code: exitInterrupted}
}

// rootCmd runs a download when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "zonerama",
	Short: "Batch-download your Zonerama photo albums",
	Long: `Zonerama downloads every album on your Zonerama account as a ZIP archive
of original-quality photos.

Albums already present in the download directory, as an archive or as an
extracted folder, are skipped, so an interrupted run can simply be started
again. With --unzip the archives are extracted afterwards and with --delete
the archives are removed once extracted.

A real browser window is used. On the first run you sign in there by hand;
the login is remembered for later runs unless --no-remember is given.`,
	Example: `  # Download into ./alba
  zonerama -d ./alba

  # Download, extract and delete the archives
  zonerama -d ./alba -ud

  # Only extract archives that are already on disk
  zonerama extract ./alba`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetNoColor(true)
		}
	},
	RunE: runDownload,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./zonerama.yaml or ~/.config/zonerama/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	addDownloadFlags(rootCmd)

	rootCmd.SetVersionTemplate(`Zonerama {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the CLI and returns the process exit code
func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	releaseOnCancel(ctx, stop)

	rootCmd.SetArgs(expandShorthands(args))
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(ctx, err)
}

// releaseOnCancel restores default signal handling once ctx is cancelled, so a
// second interrupt during shutdown kills the process.
func releaseOnCancel(ctx context.Context, stop context.CancelFunc) {
	go func() {
		<-ctx.Done()
		stop()
	}()
}

func exitCode(ctx context.Context, err error) int {
	var exit *exitError
	switch {
	case errors.As(err, &exit):
		if exit.err != nil {
			ui.PrintError("Error", exit.err)
		}
		return exit.code
	case err != nil && (ctx.Err() != nil || errs.Is(err, errs.ErrorTypeCancelled)):
		return exitInterrupted
	case err != nil:
		ui.PrintError("Error", err)
		return exitFailure
	case ctx.Err() != nil:
		return exitInterrupted
	}
	return exitOK
}
