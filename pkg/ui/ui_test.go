package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonerama/pkg/catalog"
	"zonerama/pkg/extract"
	"zonerama/pkg/orchestrator"
	"zonerama/pkg/report"
	"zonerama/pkg/session"
)

func init() {
	color.NoColor = true
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func TestNotifier_PrintsAndSends(t *testing.T) {
	var out bytes.Buffer
	sender := &recordingSender{err: errors.New("no notification daemon")}
	n := NewNotifierWithSender(&out, sender)

	n.SendSuccess("Zonerama download finished", "3 downloaded, 0 failed, 1 skipped")
	n.SendError("Zonerama download finished with problems", "1 downloaded, 2 failed, 0 skipped")

	assert.Contains(t, out.String(), "Zonerama download finished: 3 downloaded")
	assert.Contains(t, out.String(), "2 failed")
	assert.Equal(t, []string{"Zonerama download finished", "Zonerama download finished with problems"}, sender.titles)
}

func TestNotifier_ConsoleOnly(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(&out, false)
	n.SendNotification("title", "message")
	assert.Equal(t, "\ntitle: message\n", out.String())
}

func TestPrintReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &report.Report{
		Directory:        "/home/jana/alba",
		StartedAt:        start,
		FinishedAt:       start.Add(90 * time.Second),
		Discovered:       4,
		SkippedDuplicate: 1,
		Downloaded:       2,
		Failed:           1,
		Albums: []report.Album{
			{Name: "Jaro", State: "succeeded"},
			{Name: "Leto", State: "failed", Error: "archive did not settle"},
		},
		ExtractionRan: true,
		Extraction: []report.Archive{
			{Archive: "Jaro.zip", Outcome: "extracted", Deleted: true},
			{Archive: "tiny.zip", Outcome: "skipped_too_small"},
			{Archive: "bad.zip", Outcome: "extraction_failed", Error: "zip: not a valid zip file"},
		},
	}

	var out bytes.Buffer
	PrintReport(&out, r)
	text := out.String()

	assert.Contains(t, text, "Run summary")
	assert.Contains(t, text, "1m30s")
	assert.Regexp(t, `Discovered\s+4`, text)
	assert.Regexp(t, `Skipped \(duplicate\)\s+1`, text)
	assert.Regexp(t, `Downloaded\s+2`, text)
	assert.Contains(t, text, "Leto archive did not settle")
	assert.NotContains(t, text, "✗ Jaro")
	assert.Regexp(t, `Extracted\s+1`, text)
	assert.Regexp(t, `Archives deleted\s+1`, text)
}

func TestPrintReport_NoExtraction(t *testing.T) {
	var out bytes.Buffer
	PrintReport(&out, &report.Report{Directory: "/d", Cancelled: true})
	assert.Contains(t, out.String(), "(cancelled)")
	assert.NotContains(t, out.String(), "Extraction")
}

func TestProgressDisplay_ReportsFailures(t *testing.T) {
	var bars, summary bytes.Buffer
	p := NewProgressDisplay(&bars, &summary, false)

	p.RunStarted("/tmp/alba")
	p.CatalogBuilt(catalog.Result{
		Unique:  2,
		Pending: []catalog.AlbumRef{{Name: "Jaro"}, {Name: "Leto"}},
	})
	p.AlbumStarted(0, 2, catalog.AlbumRef{Name: "Jaro"})
	p.AlbumFinished(0, 2, session.Result{Album: catalog.AlbumRef{Name: "Jaro"}, State: session.StateSucceeded})
	p.AlbumStarted(1, 2, catalog.AlbumRef{Name: "Leto"})
	p.AlbumStateChanged(session.Transition{Album: catalog.AlbumRef{Name: "Leto"}, To: session.StateRetryPending, Attempt: 1})
	p.AlbumFinished(1, 2, session.Result{
		Album: catalog.AlbumRef{Name: "Leto"}, State: session.StateFailed, Err: errors.New("ui element not found"),
	})
	p.ArchiveProcessed(extract.Result{Archive: "/tmp/alba/Jaro.zip", Outcome: extract.Extracted})
	p.RunFinished(&orchestrator.Summary{
		Directory: "/tmp/alba",
		Stats:     orchestrator.Stats{Discovered: 2, Downloaded: 1, Failed: 1},
	})

	assert.Contains(t, bars.String(), "Download directory: /tmp/alba")
	assert.Contains(t, bars.String(), "2 albums listed, 0 already on disk, 2 to download")
	assert.Contains(t, bars.String(), "Leto: ui element not found")
	assert.NotContains(t, bars.String(), "✓ Jaro", "successes are only listed in verbose mode")
	assert.Equal(t, 1, p.failures)

	require.NotEmpty(t, summary.String())
	assert.Regexp(t, `Failed\s+1`, summary.String())
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "Zima", shorten("Zima", 10))
	assert.Equal(t, "Prázdn…", shorten("Prázdniny 2021", 7))
}
