package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component string, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("component stopped")
}

// LogStateChange logs a download session state transition
func LogStateChange(log Logger, album string, from, to fmt.Stringer, attempt int) {
	log.DebugWithFields("album state changed", map[string]interface{}{
		"album":   album,
		"from":    from.String(),
		"to":      to.String(),
		"attempt": attempt,
	})
}

// LogAlbumOutcome logs the terminal result of one album
func LogAlbumOutcome(log Logger, album string, attempts int, elapsed time.Duration, err error) {
	fields := map[string]interface{}{
		"album":    album,
		"attempts": attempts,
		"elapsed":  elapsed.Round(time.Millisecond),
	}
	if err != nil {
		log.WithError(err).WarnWithFields("album download failed", fields)
		return
	}
	log.InfoWithFields("album downloaded", fields)
}

// LogExtraction logs the result of processing one archive
func LogExtraction(log Logger, archive, outcome string, deleted bool, err error) {
	fields := map[string]interface{}{
		"archive": archive,
		"outcome": outcome,
		"deleted": deleted,
	}
	switch {
	case err != nil:
		log.WithError(err).WarnWithFields("archive extraction failed", fields)
	case outcome == "extracted":
		log.InfoWithFields("archive extracted", fields)
	default:
		log.DebugWithFields("archive skipped", fields)
	}
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(string)                                   {}
func (n *nopLogger) Info(string)                                    {}
func (n *nopLogger) Warn(string)                                    {}
func (n *nopLogger) Error(string)                                   {}
func (n *nopLogger) Fatal(string)                                   {}
func (n *nopLogger) WithField(string, interface{}) Logger           { return n }
func (n *nopLogger) WithFields(map[string]interface{}) Logger       { return n }
func (n *nopLogger) WithError(error) Logger                         { return n }
func (n *nopLogger) WithContext(context.Context) Logger             { return n }
func (n *nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(string, map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                    { return nil }
