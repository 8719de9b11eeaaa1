// Package logger provides the structured logging interface used across zonerama.
//
// It wraps zerolog with a small interface so components can take a Logger and
// tests can pass NewNopLogger or NewTestLogger instead.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "session")
//	log.InfoWithFields("album downloaded", map[string]interface{}{
//	    "album":    "Léto 2020",
//	    "attempts": 1,
//	})
//
// Console output goes to stderr with coloured level labels. When a log file is
// configured every line is also written there as JSON.
package logger
