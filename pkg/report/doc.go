// Package report keeps a JSON record of the last run against each download
// directory.
//
// Reports live in the platform data directory:
//   - Linux: $XDG_DATA_HOME/zonerama/reports/ (default ~/.local/share)
//   - macOS: ~/Library/Application Support/zonerama/reports/
//   - Windows: %APPDATA%/zonerama/reports/
//
// The file name is a slug of the absolute download directory, so running
// against the same directory overwrites the previous report. Writes are
// atomic.
package report
