package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"zonerama/pkg/extract"
	"zonerama/pkg/report"
)

// PrintReport writes the end-of-run summary. It is used both right after a
// run and by the report command.
func PrintReport(w io.Writer, r *report.Report) {
	if w == nil || r == nil {
		return
	}

	fmt.Fprintln(w)
	title := Bold("Run summary")
	if r.Cancelled {
		title += " " + Yellow("(cancelled)")
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  %-20s %s\n", "Directory", r.Directory)
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  %-20s %s\n", "Duration", formatDuration(r.Duration()))
	}
	fmt.Fprintf(w, "  %-20s %d\n", "Discovered", r.Discovered)
	fmt.Fprintf(w, "  %-20s %d\n", "Skipped (duplicate)", r.SkippedDuplicate)
	fmt.Fprintf(w, "  %-20s %s\n", "Downloaded", Green(fmt.Sprint(r.Downloaded)))
	failed := fmt.Sprint(r.Failed)
	if r.Failed > 0 {
		failed = Red(failed)
	}
	fmt.Fprintf(w, "  %-20s %s\n", "Failed", failed)

	for _, a := range r.Albums {
		if a.Error == "" {
			continue
		}
		fmt.Fprintf(w, "    %s %s %s\n", Red("✗"), a.Name, Dim(a.Error))
	}

	if r.ExtractionRan {
		PrintExtraction(w, r.Extraction)
	}
}

// PrintExtraction writes the extraction totals
func PrintExtraction(w io.Writer, archives []report.Archive) {
	var extracted, skipped, failedArchives, deleted int
	for _, x := range archives {
		switch x.Outcome {
		case extract.Extracted.String():
			extracted++
		case extract.ExtractionFailed.String():
			failedArchives++
		default:
			skipped++
		}
		if x.Deleted {
			deleted++
		}
	}
	fmt.Fprintln(w, Bold("Extraction"))
	fmt.Fprintf(w, "  %-20s %d\n", "Extracted", extracted)
	fmt.Fprintf(w, "  %-20s %d\n", "Skipped", skipped)
	fmt.Fprintf(w, "  %-20s %d\n", "Failed", failedArchives)
	if deleted > 0 {
		fmt.Fprintf(w, "  %-20s %d\n", "Archives deleted", deleted)
	}
	for _, x := range archives {
		if x.Error != "" && x.Outcome == extract.ExtractionFailed.String() {
			fmt.Fprintf(w, "    %s %s %s\n", Red("✗"), filepath.Base(x.Archive), Dim(x.Error))
		}
	}
}
