package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"zonerama/pkg/auth"
	"zonerama/pkg/browser"
	"zonerama/pkg/config"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
	"zonerama/pkg/orchestrator"
	"zonerama/pkg/report"
	"zonerama/pkg/ui"
	"zonerama/pkg/ui/tui"
)

var (
	// Download flags
	downloadDir string
	unzip       bool
	deleteZips  bool
	headless    bool
	albumsURL   string
	timeout     time.Duration
	retries     int
	workers     int
	useTUI      bool
	notify      bool
	noRemember  bool
	profile     string
	verbose     bool
)

// downloadCmd is the explicit form of the root command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download all albums (the default command)",
	Long: `Open Zonerama in a browser, list your albums and download every album that
is not already in the download directory.

Albums are downloaded one at a time. An album that fails is recorded and the
run continues with the next one; the summary at the end lists every failure.`,
	Example: `  zonerama download -d ./alba --albums-url https://eu.zonerama.com/jana/1234
  zonerama download -d ./alba -ud --headless`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	addDownloadFlags(downloadCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&downloadDir, "download-dir", "d", "", "directory the albums are saved to (default: ./downloads)")
	f.BoolVarP(&unzip, "unzip", "u", false, "extract the archives after downloading")
	f.BoolVar(&deleteZips, "delete", false, "delete archives once extracted (requires --unzip)")
	f.BoolVar(&headless, "headless", false, "run the browser without a window (needs a remembered login)")
	f.StringVar(&albumsURL, "albums-url", "", "URL of your album list")
	f.DurationVar(&timeout, "timeout", 0, "how long to wait for one album archive (default 5m)")
	f.IntVar(&retries, "retries", 0, "retries per album after a timeout (default 2)")
	f.IntVar(&workers, "workers", 0, "parallel archive extractions (default 2)")
	f.BoolVar(&useTUI, "tui", false, "use the interactive terminal UI")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
	f.BoolVar(&noRemember, "no-remember", false, "do not load or save the browser login")
	f.StringVar(&profile, "profile", "", "name of the remembered login to use")
	f.BoolVarP(&verbose, "verbose", "v", false, "list every finished album")
}

// changedFlags returns the flags the user actually set, keyed as
// config.MergeCommandLineFlags expects
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}
	set("download-dir", downloadDir)
	set("unzip", unzip)
	set("delete", deleteZips)
	set("headless", headless)
	set("albums-url", albumsURL)
	set("timeout", timeout)
	set("retries", retries)
	set("workers", workers)
	set("tui", useTUI)
	set("notify", notify)
	set("no-remember", noRemember)
	set("profile", profile)
	set("no-color", noColor)
	set("log-level", logLevel)
	return flags
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return nil, err
	}
	ui.SetNoColor(cfg.Output.NoColor)
	return cfg, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fail(err)
	}

	if cfg.Output.TUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		ui.PrintWarning("Standard output is not a terminal, falling back to progress bars")
		cfg.Output.TUI = false
	}

	var console io.Writer = os.Stderr
	if cfg.Output.TUI {
		console = io.Discard
	}
	if err := logger.InitializeWithWriter(&cfg.Logging, console); err != nil {
		return fail(err)
	}
	log := logger.WithField("version", version)

	if err := cfg.EnsureDownloadDirectory(); err != nil {
		return fail(err)
	}

	var screen *tui.TUI
	var observer orchestrator.Observer
	var prompter browser.Prompter = browser.NewTerminalPrompter()
	var guide io.Writer = os.Stderr
	if cfg.Output.TUI {
		screen = tui.NewTUI(cancel)
		observer, prompter, guide = screen, screen, io.Discard
	} else {
		ui.PrintLogo()
		observer = ui.NewProgressDisplay(os.Stderr, os.Stdout, verbose)
	}

	opts := []orchestrator.Option{
		orchestrator.WithObserver(observer),
		orchestrator.WithLogger(log),
	}
	if cfg.Output.Report {
		if store, err := report.NewStore(); err != nil {
			log.WithError(err).Warn("run reports disabled")
		} else {
			opts = append(opts, orchestrator.WithReportStore(store))
		}
	}
	if cfg.Notifications.Enabled {
		var out io.Writer = os.Stdout
		if cfg.Output.TUI {
			out = nil
		}
		opts = append(opts, orchestrator.WithNotifier(ui.NewNotifier(out, true)))
	}

	launch := newLauncher(cfg, prompter, guide, log)
	orch := orchestrator.New(cfg, launch, opts...)

	log.InfoWithFields("download run starting", map[string]interface{}{
		"dir":    cfg.Download.Directory,
		"unzip":  cfg.Extraction.Unzip,
		"delete": cfg.Extraction.DeleteArchives,
	})

	var sum *orchestrator.Summary
	if screen != nil {
		sum, err = runWithTUI(ctx, screen, orch)
	} else {
		sum, err = orch.Run(ctx)
	}
	if err != nil {
		if errs.Is(err, errs.ErrorTypeCancelled) || ctx.Err() != nil {
			return interrupted()
		}
		return fail(err)
	}

	if screen != nil {
		ui.PrintReport(os.Stdout, orchestrator.ToReport(sum))
	}
	if sum.Cancelled {
		ui.PrintWarning("Run interrupted; start it again to continue where it stopped")
		return interrupted()
	}
	return nil
}

// runWithTUI runs the orchestrator while the TUI owns the terminal
func runWithTUI(ctx context.Context, screen *tui.TUI, orch *orchestrator.Orchestrator) (*orchestrator.Summary, error) {
	type result struct {
		sum *orchestrator.Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := orch.Run(ctx)
		if err != nil {
			screen.Stop()
		}
		done <- result{sum, err}
	}()

	if err := screen.Start(); err != nil {
		logger.WithError(err).Error("terminal UI failed")
	}
	res := <-done
	return res.sum, res.err
}

// newLauncher builds the browser for a run, restoring and saving the
// remembered login when enabled
func newLauncher(cfg *config.Config, prompter browser.Prompter, guide io.Writer, log logger.Logger) orchestrator.Launcher {
	return func(ctx context.Context) (browser.Browser, error) {
		opts := browser.Options{
			BaseURL:           cfg.Zonerama.BaseURL,
			AlbumsURL:         cfg.Zonerama.AlbumsURL,
			DownloadDir:       cfg.Download.Directory,
			PartialSuffix:     cfg.Download.PartialSuffix,
			Headless:          cfg.Zonerama.Headless,
			SlowMo:            cfg.Zonerama.SlowMo,
			NavigationTimeout: cfg.Zonerama.NavigationTimeout,
			ElementTimeout:    cfg.Zonerama.ElementTimeout,
			ModalCloseTimeout: cfg.Zonerama.ModalCloseTimeout,
			Prompter:          prompter,
			Guide:             guide,
			Logger:            log,
		}

		if cfg.Session.Remember {
			attachSession(&opts, cfg.Session.Profile, log)
		}

		b, err := browser.Launch(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'zonerama install' to download the browser)", err)
		}
		return b, nil
	}
}

func attachSession(opts *browser.Options, profile string, log logger.Logger) {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("login will not be remembered")
		return
	}

	state, err := manager.Load(profile)
	switch {
	case err == nil:
		opts.StorageState = state
		log.WithField("profile", profile).Info("using remembered login")
	case errors.Is(err, auth.ErrSessionNotFound):
		log.WithField("profile", profile).Debug("no remembered login")
	default:
		log.WithError(err).Warn("remembered login could not be read")
	}

	opts.SaveState = func(state []byte) error {
		return manager.Save(profile, state)
	}
}
