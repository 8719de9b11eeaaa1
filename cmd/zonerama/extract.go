package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zonerama/pkg/extract"
	"zonerama/pkg/logger"
	"zonerama/pkg/report"
	"zonerama/pkg/ui"
)

var extractDelete bool

// extractCmd runs the extraction pipeline on its own
var extractCmd = &cobra.Command{
	Use:   "extract [DIR]",
	Short: "Extract the album archives already in a directory",
	Long: `Extract every archive in DIR (default: the configured download directory)
into a folder named after the album. Archives that already have a folder, and
archives smaller than the minimum size, are skipped.`,
	Example: `  zonerama extract ./alba
  zonerama extract ./alba --delete`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractDelete, "delete", false, "delete each archive once extracted")
	extractCmd.Flags().IntVar(&workers, "workers", 0, "parallel archive extractions (default 2)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fail(err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fail(err)
	}

	dir := cfg.Download.Directory
	if len(args) == 1 {
		dir = args[0]
	}

	progress := ui.NewProgressDisplay(os.Stderr, os.Stdout, false)
	pipeline := extract.New(extract.Options{
		ArchiveExt:     cfg.Download.ArchiveExtension,
		MinArchiveSize: cfg.Extraction.MinArchiveSize,
		Workers:        cfg.Extraction.Workers,
		Logger:         logger.GetLogger(),
		OnResult:       progress.ArchiveProcessed,
	})

	results, err := pipeline.Run(cmd.Context(), dir, extractDelete || cfg.Extraction.DeleteArchives)
	if err != nil {
		return fail(err)
	}

	progress.Close()
	fmt.Fprintln(os.Stdout)
	ui.PrintExtraction(os.Stdout, report.ArchivesFrom(results))

	if cmd.Context().Err() != nil {
		return interrupted()
	}
	return nil
}
