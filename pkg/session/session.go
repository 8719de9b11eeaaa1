// Package session drives one album from "open" to a settled archive on disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zonerama/pkg/catalog"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/logger"
	"zonerama/pkg/monitor"
	"zonerama/pkg/retry"
)

// State of a download session
type State int

const (
	StatePending State = iota
	StateOpening
	StateTriggered
	StateMonitoring
	StateSucceeded
	StateRetryPending
	StateFailed
)

var stateNames = [...]string{"pending", "opening", "triggered", "monitoring", "succeeded", "retry_pending", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions follow
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Collaborator is the part of the browser a session drives
type Collaborator interface {
	OpenAlbum(ctx context.Context, h catalog.Handle) error
	// TriggerDownload starts the archive download. The returned channel
	// delivers an error if the browser later reports the download failed.
	TriggerDownload(ctx context.Context, h catalog.Handle) (<-chan error, error)
}

// Awaiter waits for a download to settle
type Awaiter interface {
	Await(ctx context.Context, dir string, p monitor.Pattern, deadline time.Duration, failures <-chan error) monitor.Outcome
}

// Transition is reported for every state change
type Transition struct {
	Album   catalog.AlbumRef
	From    State
	To      State
	Attempt int
}

// Options configures a Session
type Options struct {
	Dir        string
	ArchiveExt string
	Deadline   time.Duration
	MaxRetries int
	RetryDelay time.Duration

	OnTransition func(Transition)
	Logger       logger.Logger
}

// Result is the terminal report for one album
type Result struct {
	Album    catalog.AlbumRef
	State    State
	Outcome  monitor.Outcome
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Succeeded reports whether the archive arrived
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Session runs albums one at a time against a shared collaborator
type Session struct {
	browser Collaborator
	monitor Awaiter
	opts    Options
	log     logger.Logger
}

// New creates a Session
func New(b Collaborator, m Awaiter, opts Options) *Session {
	if opts.ArchiveExt == "" {
		opts.ArchiveExt = ".zip"
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 300 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Session{
		browser: b,
		monitor: m,
		opts:    opts,
		log:     log.WithField("component", "session"),
	}
}

// Run drives album to Succeeded or Failed. Timeouts and transport errors are
// retried from a fresh open; structural and download failures are not.
func (s *Session) Run(ctx context.Context, album catalog.AlbumRef) Result {
	start := time.Now()
	res := Result{Album: album, State: StatePending}
	log := s.log.WithField("album", album.Name)

	moveTo := func(to State, attempt int) {
		from := res.State
		res.State = to
		logger.LogStateChange(log, album.Name, from, to, attempt)
		if s.opts.OnTransition != nil {
			s.opts.OnTransition(Transition{Album: album, From: from, To: to, Attempt: attempt})
		}
	}

	pattern := monitor.Pattern{Name: album.Name, Ext: s.opts.ArchiveExt}

	err := retry.Do(func(attempt int) error {
		res.Attempts = attempt
		moveTo(StateOpening, attempt)

		if err := s.browser.OpenAlbum(ctx, album.Handle); err != nil {
			return classify(ctx, "open album", err)
		}

		failures, err := s.browser.TriggerDownload(ctx, album.Handle)
		if err != nil {
			return classify(ctx, "trigger download", err)
		}
		moveTo(StateTriggered, attempt)

		moveTo(StateMonitoring, attempt)
		out := s.monitor.Await(ctx, s.opts.Dir, pattern, s.opts.Deadline, failures)
		res.Outcome = out

		switch out.Kind {
		case monitor.KindCompleted:
			return nil
		case monitor.KindTimedOut:
			moveTo(StateRetryPending, attempt)
			return errs.New(errs.ErrorTypeTransient, "session.Run",
				fmt.Sprintf("archive did not settle within %s", s.opts.Deadline))
		default:
			return classifyFailure(ctx, out.Reason)
		}
	}, &retry.Config{
		MaxAttempts: s.opts.MaxRetries + 1,
		Backoff:     &retry.ConstantBackoff{Delay: s.opts.RetryDelay},
		RetryIf: func(err error) bool {
			return ctx.Err() == nil && retry.DefaultRetryIf(err)
		},
		OnRetry: func(attempt int, _ error, _ time.Duration) {
			if res.State != StateRetryPending {
				moveTo(StateRetryPending, attempt)
			}
		},
		Context: ctx,
		Logger:  log,
	})

	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		if res.Outcome.Kind != monitor.KindFailed {
			res.Outcome = monitor.Failed(err)
		}
		moveTo(StateFailed, res.Attempts)
	} else {
		moveTo(StateSucceeded, res.Attempts)
	}

	logger.LogAlbumOutcome(log, album.Name, res.Attempts, res.Elapsed, res.Err)
	return res
}

// classify types a collaborator error. Untyped errors count as transport
// hiccups and are retried.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, op, ctx.Err())
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	return errs.Wrap(errs.ErrorTypeTransient, op, err)
}

func classifyFailure(ctx context.Context, reason error) error {
	switch {
	case errs.Is(reason, errs.ErrorTypeCancelled):
		return reason
	case ctx.Err() != nil:
		return errs.Wrap(errs.ErrorTypeCancelled, "session.Run", ctx.Err())
	}
	if errs.TypeOf(reason) == errs.ErrorTypeDownload {
		return reason
	}
	// A failure reported while monitoring is final whatever its inner type.
	return errs.Wrap(errs.ErrorTypeDownload, "session.Run", reason)
}
