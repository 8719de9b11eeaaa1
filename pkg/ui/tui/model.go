package tui

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"zonerama/pkg/catalog"
	"zonerama/pkg/extract"
	"zonerama/pkg/session"
)

// AlbumItem is one album of the work list
type AlbumItem struct {
	Name      string
	State     session.State
	Attempt   int
	StartTime time.Time
	Elapsed   time.Duration
	Error     error
}

// Done reports whether the album reached a terminal state
func (a *AlbumItem) Done() bool {
	return a.State.Terminal()
}

// ArchiveCounts tallies extraction outcomes
type ArchiveCounts struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// Run state
	directory string
	albums    []*AlbumItem
	current   int
	listed    bool
	finished  bool
	cancelled bool
	stopping  bool

	// Stats
	discovered       int
	skipped          int
	downloaded       int
	failed           int
	archives         ArchiveCounts
	extracting       bool
	sessionStartTime time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// interrupt asks the orchestrator to stop after the current album
	interrupt func()

	// an open login prompt, answered with Enter
	prompt     string
	promptDone chan struct{}

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model. interrupt is called once when the user
// quits before the run is over; it may be nil.
func NewModel(interrupt func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentTeal)

	return &Model{
		spinner:          s,
		bar:              progress.New(progress.WithDefaultGradient()),
		current:          -1,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		interrupt:        interrupt,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetDirectory records the download directory
func (m *Model) SetDirectory(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directory = dir
	m.sessionStartTime = time.Now()
}

// SetCatalog fills the work list
func (m *Model) SetCatalog(res catalog.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listed = true
	m.discovered = res.Unique
	m.skipped = res.Skipped()
	m.albums = make([]*AlbumItem, len(res.Pending))
	for i, a := range res.Pending {
		m.albums[i] = &AlbumItem{Name: a.Name, State: session.StatePending}
	}
}

// StartAlbum marks the album at index as in progress
func (m *Model) StartAlbum(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.item(index); item != nil {
		item.StartTime = time.Now()
		m.current = index
	}
}

// UpdateAlbumState follows the session state machine for the current album
func (m *Model) UpdateAlbumState(t session.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.item(m.current); item != nil && item.Name == t.Album.Name {
		item.State = t.To
		item.Attempt = t.Attempt
	}
}

// FinishAlbum records the album's result
func (m *Model) FinishAlbum(index int, res session.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.item(index)
	if item == nil {
		return
	}
	item.State = res.State
	item.Attempt = res.Attempts
	item.Elapsed = res.Elapsed
	item.Error = res.Err
	if res.Succeeded() {
		m.downloaded++
	} else {
		m.failed++
	}
}

// AddArchive counts one extraction result
func (m *Model) AddArchive(res extract.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.extracting = true
	switch res.Outcome {
	case extract.Extracted:
		m.archives.Extracted++
	case extract.ExtractionFailed:
		m.archives.Failed++
	default:
		m.archives.Skipped++
	}
}

// Finish marks the run as over
func (m *Model) Finish(cancelled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
	m.cancelled = cancelled
	m.current = -1
}

// RequestStop asks the run to stop once. It reports whether this call
// triggered the interrupt.
func (m *Model) RequestStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopping || m.finished {
		return false
	}
	m.stopping = true
	if m.interrupt != nil {
		m.interrupt()
	}
	return true
}

// OpenPrompt shows message until the user presses Enter, then closes done
func (m *Model) OpenPrompt(message string, done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promptDone != nil {
		close(m.promptDone)
	}
	m.prompt = message
	m.promptDone = done
}

// AnswerPrompt closes the open prompt. It reports whether one was open.
func (m *Model) AnswerPrompt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promptDone == nil {
		return false
	}
	close(m.promptDone)
	m.prompt = ""
	m.promptDone = nil
	return true
}

func (m *Model) item(index int) *AlbumItem {
	if index < 0 || index >= len(m.albums) {
		return nil
	}
	return m.albums[index]
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = accentOrange
	case "SUCCESS":
		color = accentGreen
	case "INFO":
		color = accentTeal
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Progress returns the finished fraction of the work list
func (m *Model) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.albums) == 0 {
		if m.finished {
			return 1
		}
		return 0
	}
	return float64(m.downloaded+m.failed) / float64(len(m.albums))
}

// Current returns the album in progress, or nil
func (m *Model) Current() *AlbumItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.item(m.current)
}

// Pending returns the albums not yet started, in order
func (m *Model) Pending() []*AlbumItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*AlbumItem
	for i, a := range m.albums {
		if i != m.current && a.State == session.StatePending {
			pending = append(pending, a)
		}
	}
	return pending
}

// Finished returns the albums in a terminal state, in order
func (m *Model) Finished() []*AlbumItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var done []*AlbumItem
	for _, a := range m.albums {
		if a.Done() {
			done = append(done, a)
		}
	}
	return done
}

// ETA estimates the time left from the average album duration so far
func (m *Model) ETA() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var spent time.Duration
	done := 0
	for _, a := range m.albums {
		if a.Done() {
			spent += a.Elapsed
			done++
		}
	}
	if done == 0 {
		return 0
	}
	return spent / time.Duration(done) * time.Duration(len(m.albums)-done)
}

func archiveName(path string) string {
	return filepath.Base(path)
}
