// Package extract turns downloaded album archives into extracted folders.
//
// An archive is deleted only after its contents have been fully written and
// moved into place, and only when the caller asked for deletion.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zonerama/internal/workpool"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/library"
	"zonerama/pkg/logger"
)

// Outcome is what happened to one archive
type Outcome int

const (
	Extracted Outcome = iota + 1
	SkippedTooSmall
	SkippedAlreadyExtracted
	ExtractionFailed
)

func (o Outcome) String() string {
	switch o {
	case Extracted:
		return "extracted"
	case SkippedTooSmall:
		return "skipped_too_small"
	case SkippedAlreadyExtracted:
		return "skipped_already_extracted"
	case ExtractionFailed:
		return "extraction_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes one archive after a run. Reason is set only for
// ExtractionFailed.
type Result struct {
	Archive string
	Folder  string
	Outcome Outcome
	Reason  error
	Deleted bool
}

// Totals aggregates a run
type Totals struct {
	Extracted int
	Skipped   int
	Failed    int
	Deleted   int
}

// Summarize counts results by outcome
func Summarize(results []Result) Totals {
	var t Totals
	for _, r := range results {
		switch r.Outcome {
		case Extracted:
			t.Extracted++
		case SkippedTooSmall, SkippedAlreadyExtracted:
			t.Skipped++
		case ExtractionFailed:
			t.Failed++
		}
		if r.Deleted {
			t.Deleted++
		}
	}
	return t
}

// Extractor unpacks archive into an existing, empty directory
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

// Options configures a Pipeline
type Options struct {
	ArchiveExt     string
	MinArchiveSize int64
	Workers        int
	Extractor      Extractor
	Logger         logger.Logger
	// OnResult is called once per archive as it finishes, from a single goroutine
	OnResult func(Result)
}

// DefaultMinArchiveSize is the smallest file treated as a real archive
const DefaultMinArchiveSize = 1024

// Pipeline extracts every archive in a directory
type Pipeline struct {
	opts Options
	log  logger.Logger
}

// New creates a Pipeline, filling unset options with defaults
func New(opts Options) *Pipeline {
	if opts.ArchiveExt == "" {
		opts.ArchiveExt = library.DefaultOptions().ArchiveExt
	}
	if opts.MinArchiveSize <= 0 {
		opts.MinArchiveSize = DefaultMinArchiveSize
	}
	if opts.Workers < 1 {
		opts.Workers = 2
	}
	if opts.Extractor == nil {
		opts.Extractor = ZipExtractor{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{opts: opts, log: log.WithField("component", "extract")}
}

// Run scans dir afresh and processes each archive in lexical order. Only a
// failure to read dir is returned as an error; per-archive problems are
// reported in the results.
func (p *Pipeline) Run(ctx context.Context, dir string, deleteOnSuccess bool) ([]Result, error) {
	idx, err := library.Scan(dir, library.Options{ArchiveExt: p.opts.ArchiveExt})
	if err != nil {
		return nil, err
	}

	// archives whose name collides with an earlier one are reported too
	archives := append(idx.Entries(library.KindArchive), idx.Shadowed(library.KindArchive)...)
	sort.Slice(archives, func(i, j int) bool { return archives[i].Path < archives[j].Path })
	p.log.InfoWithFields("extracting archives", map[string]interface{}{
		"dir":      dir,
		"archives": len(archives),
		"delete":   deleteOnSuccess,
		"workers":  p.opts.Workers,
	})

	pool := workpool.New(p.opts.Workers, func(ctx context.Context, e library.Entry) Result {
		return p.process(ctx, idx, e, deleteOnSuccess)
	}, p.log)
	if p.opts.OnResult != nil {
		pool.OnResult(func(_ int, r Result) { p.opts.OnResult(r) })
	}

	results := pool.Run(ctx, archives)

	t := Summarize(results)
	p.log.InfoWithFields("extraction finished", map[string]interface{}{
		"extracted": t.Extracted,
		"skipped":   t.Skipped,
		"failed":    t.Failed,
		"deleted":   t.Deleted,
	})
	return results, nil
}

func (p *Pipeline) process(ctx context.Context, idx *library.Index, e library.Entry, deleteOnSuccess bool) Result {
	res := Result{Archive: e.Path}
	name := filepath.Base(e.Path)
	log := p.log.WithField("archive", name)

	if ctx.Err() != nil {
		return p.fail(log, res, errs.Wrap(errs.ErrorTypeCancelled, "extract", ctx.Err()))
	}

	if winner, ok := idx.Lookup(e.Key, library.KindArchive); ok && winner.Path != e.Path {
		res.Outcome = SkippedAlreadyExtracted
		if folder, ok := idx.Lookup(e.Key, library.KindExtractedFolder); ok {
			res.Folder = folder.Path
		} else {
			res.Folder = strings.TrimSuffix(winner.Path, filepath.Ext(winner.Path))
		}
		log.WarnWithFields("archive has the same album name as another archive", map[string]interface{}{
			"other": filepath.Base(winner.Path),
		})
		logger.LogExtraction(log, name, res.Outcome.String(), false, nil)
		return res
	}

	if folder, ok := idx.Lookup(e.Key, library.KindExtractedFolder); ok {
		res.Outcome = SkippedAlreadyExtracted
		res.Folder = folder.Path
		logger.LogExtraction(log, name, res.Outcome.String(), false, nil)
		return res
	}

	if e.Size < p.opts.MinArchiveSize {
		res.Outcome = SkippedTooSmall
		log.WarnWithFields("archive below minimum size", map[string]interface{}{
			"size": e.Size,
			"min":  p.opts.MinArchiveSize,
		})
		logger.LogExtraction(log, name, res.Outcome.String(), false, nil)
		return res
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	target := filepath.Join(filepath.Dir(e.Path), stem)
	if _, err := os.Lstat(target); err == nil {
		return p.fail(log, res, errs.New(errs.ErrorTypeData, "extract",
			fmt.Sprintf("%s exists and is not an album folder", target)))
	}

	work, err := os.MkdirTemp(filepath.Dir(e.Path), library.WorkDirPrefix+stem+"-")
	if err != nil {
		return p.fail(log, res, errs.Wrap(errs.ErrorTypeData, "extract", err))
	}

	if err := p.opts.Extractor.Extract(ctx, e.Path, work); err != nil {
		os.RemoveAll(work)
		if ctx.Err() != nil {
			return p.fail(log, res, errs.Wrap(errs.ErrorTypeCancelled, "extract", err))
		}
		return p.fail(log, res, errs.Wrap(errs.ErrorTypeData, "extract", err))
	}
	// MkdirTemp creates 0700
	_ = os.Chmod(work, 0755)

	if err := os.Rename(work, target); err != nil {
		os.RemoveAll(work)
		return p.fail(log, res, errs.Wrap(errs.ErrorTypeData, "extract", err))
	}
	res.Outcome = Extracted
	res.Folder = target

	var deleteErr error
	if deleteOnSuccess {
		if deleteErr = os.Remove(e.Path); deleteErr == nil {
			res.Deleted = true
		}
	}
	logger.LogExtraction(log, name, res.Outcome.String(), res.Deleted, deleteErr)
	return res
}

func (p *Pipeline) fail(log logger.Logger, res Result, reason error) Result {
	res.Outcome = ExtractionFailed
	res.Reason = reason
	logger.LogExtraction(log, filepath.Base(res.Archive), res.Outcome.String(), false, reason)
	return res
}
