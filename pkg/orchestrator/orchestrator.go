package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"zonerama/pkg/browser"
	"zonerama/pkg/catalog"
	"zonerama/pkg/config"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/extract"
	"zonerama/pkg/library"
	"zonerama/pkg/logger"
	"zonerama/pkg/monitor"
	"zonerama/pkg/ratelimit"
	"zonerama/pkg/report"
	"zonerama/pkg/session"
)

// Stats are the run counters. Only the orchestrator goroutine mutates them
// and they only grow.
type Stats struct {
	// Discovered counts distinct albums in the remote listing
	Discovered int
	// SkippedDuplicate counts listing repeats plus albums already on disk
	SkippedDuplicate int
	Downloaded       int
	Failed           int
}

// AlbumReport is the final state of one attempted album
type AlbumReport struct {
	Album    catalog.AlbumRef
	State    session.State
	Attempts int
	Elapsed  time.Duration
	Path     string
	Err      error
}

// Summary is everything a run produced
type Summary struct {
	RunID      string
	Directory  string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      Stats
	Albums     []AlbumReport

	// ExtractionRan is false when unzip was off or the run was cancelled
	ExtractionRan bool
	Extraction    []extract.Result
	ExtractionErr error

	Cancelled bool
}

// ExtractionTotals aggregates the extraction results
func (s *Summary) ExtractionTotals() extract.Totals {
	return extract.Summarize(s.Extraction)
}

// Launcher starts the browser for a run
type Launcher func(ctx context.Context) (browser.Browser, error)

// ReportStore persists run reports
type ReportStore interface {
	Save(r *report.Report) error
}

// Notifier announces the end of a run
type Notifier interface {
	SendSuccess(title, message string)
	SendError(title, message string)
}

// Option customises an Orchestrator
type Option func(*Orchestrator)

func WithObserver(obs Observer) Option       { return func(o *Orchestrator) { o.observer = obs } }
func WithReportStore(s ReportStore) Option   { return func(o *Orchestrator) { o.reports = s } }
func WithNotifier(n Notifier) Option         { return func(o *Orchestrator) { o.notifier = n } }
func WithLimiter(l ratelimit.Limiter) Option { return func(o *Orchestrator) { o.limiter = l } }
func WithMonitor(m session.Awaiter) Option   { return func(o *Orchestrator) { o.monitor = m } }
func WithLogger(l logger.Logger) Option      { return func(o *Orchestrator) { o.log = l } }

// Orchestrator drives one run
type Orchestrator struct {
	cfg      *config.Config
	launch   Launcher
	observer Observer
	reports  ReportStore
	notifier Notifier
	limiter  ratelimit.Limiter
	monitor  session.Awaiter
	log      logger.Logger
}

// New creates an Orchestrator. cfg must already be validated.
func New(cfg *config.Config, launch Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, launch: launch}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.GetLogger()
	}
	o.log = o.log.WithField("component", "orchestrator")
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.limiter == nil {
		o.limiter = ratelimit.PerMinute(cfg.Download.AlbumsPerMinute)
	}
	if o.monitor == nil {
		o.monitor = monitor.New(monitor.Options{
			PollInterval:  cfg.Download.PollInterval,
			PartialSuffix: cfg.Download.PartialSuffix,
			Logger:        o.log,
		})
	}
	return o
}

// Run performs the whole pass. It returns an error only when nothing could
// be attempted; album and archive failures are in the Summary. A cancelled
// run returns its partial Summary with Cancelled set.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	dir := o.cfg.Download.Directory
	sum := &Summary{RunID: newRunID(), Directory: dir, StartedAt: time.Now()}
	log := o.log.WithField("run_id", sum.RunID)

	b, err := o.launch(ctx)
	if err != nil {
		return nil, launchError(ctx, err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.WithError(cerr).Warn("browser did not close cleanly")
		}
	}()

	idx, err := library.Scan(dir, library.Options{ArchiveExt: o.cfg.Download.ArchiveExtension})
	if err != nil {
		return nil, err
	}
	log.InfoWithFields("download directory scanned", map[string]interface{}{
		"dir":        dir,
		"archives":   idx.Len(library.KindArchive),
		"folders":    idx.Len(library.KindExtractedFolder),
		"collisions": idx.Collisions(),
	})
	o.observer.RunStarted(dir)

	raw, err := o.listAlbums(ctx, b)
	if err != nil {
		if !errs.Is(err, errs.ErrorTypeCancelled) {
			return nil, err
		}
		sum.Cancelled = true
		return o.finish(sum, log), nil
	}

	cat := catalog.Build(raw, idx)
	sum.Stats.Discovered = cat.Unique
	sum.Stats.SkippedDuplicate = cat.Skipped()
	o.observer.CatalogBuilt(cat)
	log.InfoWithFields("catalog built", map[string]interface{}{
		"listed":   len(raw),
		"unique":   cat.Unique,
		"repeated": cat.RepeatedInListing,
		"on_disk":  len(cat.AlreadyLocal),
		"pending":  len(cat.Pending),
	})

	sess := session.New(b, o.monitor, session.Options{
		Dir:          dir,
		ArchiveExt:   o.cfg.Download.ArchiveExtension,
		Deadline:     o.cfg.Download.Timeout,
		MaxRetries:   o.cfg.Download.MaxRetries,
		RetryDelay:   o.cfg.Download.RetryDelay,
		OnTransition: o.observer.AlbumStateChanged,
		Logger:       log,
	})

	total := len(cat.Pending)
	for i, album := range cat.Pending {
		if err := o.limiter.Wait(ctx); err != nil {
			sum.Cancelled = true
			break
		}

		o.observer.AlbumStarted(i, total, album)
		res := sess.Run(ctx, album)
		if res.Succeeded() {
			sum.Stats.Downloaded++
		} else {
			sum.Stats.Failed++
		}
		sum.Albums = append(sum.Albums, AlbumReport{
			Album:    album,
			State:    res.State,
			Attempts: res.Attempts,
			Elapsed:  res.Elapsed,
			Path:     res.Outcome.Path,
			Err:      res.Err,
		})
		o.observer.AlbumFinished(i, total, res)

		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
	}

	if sum.Cancelled {
		log.WarnWithFields("run cancelled", map[string]interface{}{
			"attempted": len(sum.Albums),
			"pending":   total,
		})
	} else if o.cfg.Extraction.Unzip {
		o.extract(ctx, sum)
	}

	return o.finish(sum, log), nil
}

func (o *Orchestrator) listAlbums(ctx context.Context, b browser.Browser) ([]catalog.AlbumRef, error) {
	if err := b.DismissConsentIfPresent(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrorTypeCancelled, "orchestrator.listAlbums", ctx.Err())
		}
		o.log.WithError(err).Warn("cookie banner could not be dismissed")
	}

	raw, err := b.ListAlbums(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrorTypeCancelled, "orchestrator.listAlbums", ctx.Err())
		}
		return nil, err
	}
	return raw, nil
}

func (o *Orchestrator) extract(ctx context.Context, sum *Summary) {
	pipeline := extract.New(extract.Options{
		ArchiveExt:     o.cfg.Download.ArchiveExtension,
		MinArchiveSize: o.cfg.Extraction.MinArchiveSize,
		Workers:        o.cfg.Extraction.Workers,
		Logger:         o.log,
		OnResult:       o.observer.ArchiveProcessed,
	})

	results, err := pipeline.Run(ctx, sum.Directory, o.cfg.Extraction.DeleteArchives)
	sum.ExtractionRan = true
	sum.Extraction = results
	if err != nil {
		sum.ExtractionErr = err
		o.log.WithError(err).Error("extraction could not run")
	}
}

func (o *Orchestrator) finish(sum *Summary, log logger.Logger) *Summary {
	sum.FinishedAt = time.Now()

	if o.reports != nil {
		if err := o.reports.Save(ToReport(sum)); err != nil {
			log.WithError(err).Warn("run report not saved")
		}
	}

	if o.notifier != nil {
		msg := fmt.Sprintf("%d downloaded, %d failed, %d skipped",
			sum.Stats.Downloaded, sum.Stats.Failed, sum.Stats.SkippedDuplicate)
		if sum.Stats.Failed > 0 || sum.Cancelled {
			o.notifier.SendError("Zonerama download finished with problems", msg)
		} else {
			o.notifier.SendSuccess("Zonerama download finished", msg)
		}
	}

	log.InfoWithFields("run finished", map[string]interface{}{
		"discovered": sum.Stats.Discovered,
		"skipped":    sum.Stats.SkippedDuplicate,
		"downloaded": sum.Stats.Downloaded,
		"failed":     sum.Stats.Failed,
		"cancelled":  sum.Cancelled,
		"elapsed":    sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond),
	})
	o.observer.RunFinished(sum)
	return sum
}

// ToReport converts a Summary into its persisted form
func ToReport(sum *Summary) *report.Report {
	r := &report.Report{
		RunID:            sum.RunID,
		Directory:        sum.Directory,
		StartedAt:        sum.StartedAt,
		FinishedAt:       sum.FinishedAt,
		Cancelled:        sum.Cancelled,
		Discovered:       sum.Stats.Discovered,
		SkippedDuplicate: sum.Stats.SkippedDuplicate,
		Downloaded:       sum.Stats.Downloaded,
		Failed:           sum.Stats.Failed,
		ExtractionRan:    sum.ExtractionRan,
	}
	for _, a := range sum.Albums {
		entry := report.Album{
			Name:     a.Album.Name,
			State:    a.State.String(),
			Attempts: a.Attempts,
			Elapsed:  a.Elapsed,
			Path:     a.Path,
		}
		if a.Err != nil {
			entry.Error = a.Err.Error()
		}
		r.Albums = append(r.Albums, entry)
	}
	r.Extraction = report.ArchivesFrom(sum.Extraction)
	return r
}

func launchError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "orchestrator.launch", err)
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	return errs.Wrap(errs.ErrorTypeConfiguration, "orchestrator.launch", err)
}

func newRunID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
