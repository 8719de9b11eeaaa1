// Package monitor waits for a browser download to settle in a directory.
//
// Completion is detected by polling file metadata. A file counts as complete
// once it has the expected name, no partial-download suffix, and the same
// size and modification time on two consecutive polls.
package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
	"zonerama/pkg/normalize"
)

// OutcomeKind tags an Outcome
type OutcomeKind int

const (
	KindCompleted OutcomeKind = iota + 1
	KindTimedOut
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindTimedOut:
		return "timed_out"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one wait. Path is set for Completed and Reason
// for Failed.
type Outcome struct {
	Kind   OutcomeKind
	Path   string
	Reason error
}

// Completed reports a stable archive at path
func Completed(path string) Outcome { return Outcome{Kind: KindCompleted, Path: path} }

// TimedOut reports that the deadline passed first
func TimedOut() Outcome { return Outcome{Kind: KindTimedOut} }

// Failed reports an explicit failure
func Failed(reason error) Outcome { return Outcome{Kind: KindFailed, Reason: reason} }

func (o Outcome) String() string {
	switch o.Kind {
	case KindCompleted:
		return "completed(" + o.Path + ")"
	case KindFailed:
		return fmt.Sprintf("failed(%v)", o.Reason)
	default:
		return o.Kind.String()
	}
}

// FileInfo is the metadata a poll observes for one directory entry
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Lister returns a snapshot of a directory
type Lister func(dir string) ([]FileInfo, error)

// ReadDir is the default Lister
func ReadDir(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// removed between listing and stat
			continue
		}
		out = append(out, FileInfo{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return out, nil
}

// Pattern identifies the archive expected for one album
type Pattern struct {
	// Name is the album name as listed remotely
	Name string
	// Ext is the archive extension including the dot
	Ext string
}

// browsers add " (1)" when a file name is taken
var duplicateCounter = regexp.MustCompile(`\s*\(\d+\)$`)

// Match reports whether fileName is the complete archive for the album
func (p Pattern) Match(fileName string) bool {
	ext := filepath.Ext(fileName)
	if !strings.EqualFold(ext, p.Ext) {
		return false
	}
	stem := strings.TrimSuffix(fileName, ext)
	stem = duplicateCounter.ReplaceAllString(stem, "")

	key := normalize.Normalize(stem)
	return key == normalize.Normalize(p.Name) ||
		key == normalize.Normalize(normalize.SanitizeFileName(p.Name))
}

// Options configures a Monitor
type Options struct {
	PollInterval  time.Duration
	PartialSuffix string
	Lister        Lister
	Logger        logger.Logger
}

// DefaultOptions polls once per second and recognises Chromium partial files
func DefaultOptions() Options {
	return Options{
		PollInterval:  time.Second,
		PartialSuffix: ".crdownload",
	}
}

// Monitor polls a download directory
type Monitor struct {
	opts Options
	log  logger.Logger
}

// New creates a Monitor
func New(opts Options) *Monitor {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.PartialSuffix == "" {
		opts.PartialSuffix = def.PartialSuffix
	}
	if opts.Lister == nil {
		opts.Lister = ReadDir
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Monitor{opts: opts, log: log.WithField("component", "monitor")}
}

// PollInterval returns the configured interval
func (m *Monitor) PollInterval() time.Duration {
	return m.opts.PollInterval
}

type observation struct {
	path    string
	size    int64
	modTime time.Time
}

func (o *observation) same(other *observation) bool {
	return o.path == other.path && o.size == other.size && o.modTime.Equal(other.modTime)
}

// Await blocks until the archive described by p is stable in dir, the
// deadline passes, a value arrives on failures, or ctx is cancelled. A nil
// failures channel is never ready.
func (m *Monitor) Await(ctx context.Context, dir string, p Pattern, deadline time.Duration, failures <-chan error) Outcome {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	var last *observation
	polls := 0

	poll := func() (Outcome, bool) {
		polls++
		cur := m.observe(dir, p)
		if cur == nil {
			last = nil
			return Outcome{}, false
		}
		if last != nil && last.same(cur) {
			m.log.DebugWithFields("download stable", map[string]interface{}{
				"path":  cur.path,
				"size":  cur.size,
				"polls": polls,
			})
			return Completed(cur.path), true
		}
		last = cur
		return Outcome{}, false
	}

	if out, done := poll(); done {
		return out
	}

	for {
		select {
		case <-ctx.Done():
			return Failed(errs.Wrap(errs.ErrorTypeCancelled, "monitor.Await", ctx.Err()))
		case err, ok := <-failures:
			if !ok {
				// closed without a failure; keep waiting on the filesystem
				failures = nil
				continue
			}
			if err == nil {
				err = errs.New(errs.ErrorTypeDownload, "monitor.Await", "browser reported a failed download")
			}
			return Failed(err)
		case <-timer.C:
			m.log.DebugWithFields("download deadline reached", map[string]interface{}{
				"album":    p.Name,
				"deadline": deadline,
				"polls":    polls,
			})
			return TimedOut()
		case <-ticker.C:
			if out, done := poll(); done {
				return out
			}
		}
	}
}

// observe picks the matching complete file, preferring the largest one when
// several match. Partial files are ignored.
func (m *Monitor) observe(dir string, p Pattern) *observation {
	files, err := m.opts.Lister(dir)
	if err != nil {
		m.log.WithError(err).Debug("download directory listing failed")
		return nil
	}

	var best *observation
	for _, f := range files {
		if f.IsDir || strings.HasSuffix(f.Name, m.opts.PartialSuffix) {
			continue
		}
		if f.Size <= 0 || !p.Match(f.Name) {
			continue
		}
		if best == nil || f.Size > best.size {
			best = &observation{path: filepath.Join(dir, f.Name), size: f.Size, modTime: f.ModTime}
		}
	}
	return best
}
