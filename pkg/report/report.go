package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gosimple/slug"

	"zonerama/pkg/extract"
	"zonerama/pkg/logger"
)

// Version is bumped when the file layout changes incompatibly
const Version = 1

// Album is the outcome of one album download
type Album struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Path     string        `json:"path,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Archive is the outcome of one archive extraction
type Archive struct {
	Archive string `json:"archive"`
	Folder  string `json:"folder,omitempty"`
	Outcome string `json:"outcome"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// ArchivesFrom converts extraction results into report entries
func ArchivesFrom(results []extract.Result) []Archive {
	var out []Archive
	for _, res := range results {
		entry := Archive{
			Archive: res.Archive,
			Folder:  res.Folder,
			Outcome: res.Outcome.String(),
			Deleted: res.Deleted,
		}
		if res.Reason != nil {
			entry.Error = res.Reason.Error()
		}
		out = append(out, entry)
	}
	return out
}

// Report is one run
type Report struct {
	RunID            string    `json:"run_id"`
	Directory        string    `json:"directory"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Cancelled        bool      `json:"cancelled"`
	Discovered       int       `json:"discovered"`
	SkippedDuplicate int       `json:"skipped_duplicate"`
	Downloaded       int       `json:"downloaded"`
	Failed           int       `json:"failed"`
	Albums           []Album   `json:"albums"`
	ExtractionRan    bool      `json:"extraction_ran"`
	Extraction       []Archive `json:"extraction,omitempty"`
	Version          int       `json:"version"`
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store reads and writes reports in one directory
type Store struct {
	dir    string
	logger logger.Logger
}

// NewStore opens the store in the platform data directory
func NewStore() (*Store, error) {
	dataDir, err := DataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewStoreAt(filepath.Join(dataDir, "reports"))
}

// NewStoreAt opens a store rooted at dir, creating it if needed
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Store{dir: dir, logger: logger.GetLogger()}, nil
}

// PathFor returns the report file used for a download directory
func (s *Store) PathFor(downloadDir string) string {
	if abs, err := filepath.Abs(downloadDir); err == nil {
		downloadDir = abs
	}
	name := slug.Make(downloadDir)
	if name == "" {
		name = "root"
	}
	return filepath.Join(s.dir, name+".report.json")
}

// Save writes r atomically, replacing any previous report for its directory
func (s *Store) Save(r *Report) error {
	if abs, err := filepath.Abs(r.Directory); err == nil {
		r.Directory = abs
	}
	r.Version = Version
	path := s.PathFor(r.Directory)

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary report file: %w", err)
	}
	tempPath := tmp.Name()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace report file: %w", err)
	}

	s.logger.DebugWithFields("run report saved", map[string]interface{}{
		"run_id": r.RunID,
		"path":   path,
	})
	return nil
}

// Load returns the last report for downloadDir, or nil when there is none
func (s *Store) Load(downloadDir string) (*Report, error) {
	data, err := os.ReadFile(s.PathFor(downloadDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	// two directories can slug to the same name
	if abs, err := filepath.Abs(downloadDir); err == nil && r.Directory != abs {
		return nil, nil
	}
	return &r, nil
}

// Delete removes the report for downloadDir if there is one
func (s *Store) Delete(downloadDir string) error {
	if err := os.Remove(s.PathFor(downloadDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// DataDirectory returns the per-user data directory for zonerama, creating it
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "zonerama")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "zonerama")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "zonerama")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "zonerama")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
