package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"zonerama/pkg/catalog"
	"zonerama/pkg/extract"
	"zonerama/pkg/orchestrator"
	"zonerama/pkg/session"
)

// ProgressDisplay renders a run as progress bars with one line per failure
type ProgressDisplay struct {
	mu       sync.Mutex
	out      io.Writer
	summary  io.Writer
	verbose  bool
	albums   *progressbar.ProgressBar
	archives *progressbar.ProgressBar
	failures int
	start    time.Time
}

var _ orchestrator.Observer = (*ProgressDisplay)(nil)

// NewProgressDisplay draws bars on out and prints the final summary on
// summary. verbose adds a line for every finished album.
func NewProgressDisplay(out, summary io.Writer, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{out: out, summary: summary, verbose: verbose, start: time.Now()}
}

func (p *ProgressDisplay) newBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(max > 0),
		progressbar.OptionEnableColorCodes(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// RunStarted prints the target directory
func (p *ProgressDisplay) RunStarted(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	fmt.Fprintf(p.out, "%s %s\n", Cyan("Download directory:"), dir)
}

// CatalogBuilt prints what the listing produced and opens the album bar
func (p *ProgressDisplay) CatalogBuilt(res catalog.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s %d albums listed, %d already on disk, %d to download\n",
		Cyan("Catalog:"), res.Unique, len(res.AlreadyLocal), len(res.Pending))
	if len(res.Pending) > 0 {
		p.albums = p.newBar(len(res.Pending), "albums")
	}
}

// AlbumStarted names the album being downloaded
func (p *ProgressDisplay) AlbumStarted(index, total int, album catalog.AlbumRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.albums != nil {
		p.albums.Describe(fmt.Sprintf("[%d/%d] %s", index+1, total, shorten(album.Name, 32)))
	}
}

// AlbumStateChanged surfaces retries
func (p *ProgressDisplay) AlbumStateChanged(t session.Transition) {
	if t.To != session.StateRetryPending {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.albums != nil {
		p.albums.Describe(fmt.Sprintf("retrying %s (attempt %d)", shorten(t.Album.Name, 24), t.Attempt+1))
	}
}

// AlbumFinished advances the bar and reports failures above it
func (p *ProgressDisplay) AlbumFinished(index, total int, res session.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case !res.Succeeded():
		p.failures++
		p.above(fmt.Sprintf("  %s %s: %v", Red("✗"), res.Album.Name, res.Err))
	case p.verbose:
		p.above(fmt.Sprintf("  %s %s %s", Green("✓"), res.Album.Name,
			Dim(formatDuration(res.Elapsed))))
	}
	if p.albums != nil {
		_ = p.albums.Add(1)
	}
}

// ArchiveProcessed advances the extraction spinner
func (p *ProgressDisplay) ArchiveProcessed(res extract.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.archives == nil {
		p.finishBar(p.albums)
		p.archives = p.newBar(-1, "extracting")
	}
	if res.Outcome == extract.ExtractionFailed {
		p.above(fmt.Sprintf("  %s %s: %v", Red("✗"), filepath.Base(res.Archive), res.Reason))
	}
	p.archives.Describe(shorten(filepath.Base(res.Archive), 32))
	_ = p.archives.Add(1)
}

// RunFinished closes the bars and prints the summary
func (p *ProgressDisplay) RunFinished(sum *orchestrator.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finishBar(p.albums)
	p.finishBar(p.archives)
	PrintReport(p.summary, orchestrator.ToReport(sum))
}

// Close finishes any open bar without printing a summary
func (p *ProgressDisplay) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishBar(p.albums)
	p.finishBar(p.archives)
}

func (p *ProgressDisplay) finishBar(bar *progressbar.ProgressBar) {
	if bar == nil || bar.IsFinished() {
		return
	}
	_ = bar.Finish()
	fmt.Fprintln(p.out)
}

// above prints a line without tearing the active bar
func (p *ProgressDisplay) above(line string) {
	if p.albums != nil && !p.albums.IsFinished() {
		_ = p.albums.Clear()
	}
	fmt.Fprintln(p.out, line)
}

// shorten truncates s to max runes
func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
