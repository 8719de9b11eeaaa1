package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"zonerama/pkg/catalog"
	"zonerama/pkg/extract"
	"zonerama/pkg/orchestrator"
	"zonerama/pkg/session"
)

// Message types for the TUI

// RunStartedMsg is sent once the download directory is scanned
type RunStartedMsg struct {
	Directory string
}

// CatalogMsg carries the work list
type CatalogMsg struct {
	Result catalog.Result
}

// AlbumStartMsg is sent when an album is picked up
type AlbumStartMsg struct {
	Index int
	Total int
	Album catalog.AlbumRef
}

// AlbumStateMsg is sent for every session transition
type AlbumStateMsg struct {
	Transition session.Transition
}

// AlbumDoneMsg is sent when an album reaches a terminal state
type AlbumDoneMsg struct {
	Index  int
	Result session.Result
}

// ArchiveMsg is sent for every processed archive
type ArchiveMsg struct {
	Result extract.Result
}

// RunFinishedMsg ends the program
type RunFinishedMsg struct {
	Summary *orchestrator.Summary
}

// PromptMsg asks the user to confirm by pressing Enter
type PromptMsg struct {
	Message string
	Done    chan struct{}
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case RunStartedMsg:
		m.SetDirectory(msg.Directory)
		m.AddLogMessage("INFO", "Scanned "+msg.Directory)
		return m, nil

	case CatalogMsg:
		m.SetCatalog(msg.Result)
		m.AddLogMessage("INFO", fmt.Sprintf("%d albums listed, %d to download",
			msg.Result.Unique, len(msg.Result.Pending)))
		return m, nil

	case AlbumStartMsg:
		m.StartAlbum(msg.Index)
		m.AddLogMessage("INFO", fmt.Sprintf("[%d/%d] %s", msg.Index+1, msg.Total, msg.Album.Name))
		return m, nil

	case AlbumStateMsg:
		m.UpdateAlbumState(msg.Transition)
		if msg.Transition.To == session.StateRetryPending {
			m.AddLogMessage("WARN", fmt.Sprintf("Retrying %s", msg.Transition.Album.Name))
		}
		return m, nil

	case AlbumDoneMsg:
		m.FinishAlbum(msg.Index, msg.Result)
		if msg.Result.Succeeded() {
			m.AddLogMessage("SUCCESS", "Downloaded "+msg.Result.Album.Name)
		} else {
			m.AddLogMessage("ERROR", fmt.Sprintf("Failed %s: %v", msg.Result.Album.Name, msg.Result.Err))
		}
		return m, nil

	case ArchiveMsg:
		m.AddArchive(msg.Result)
		switch msg.Result.Outcome {
		case extract.Extracted:
			m.AddLogMessage("SUCCESS", "Extracted "+archiveName(msg.Result.Archive))
		case extract.ExtractionFailed:
			m.AddLogMessage("ERROR", fmt.Sprintf("Extraction failed %s: %v", archiveName(msg.Result.Archive), msg.Result.Reason))
		}
		return m, nil

	case RunFinishedMsg:
		cancelled := msg.Summary != nil && msg.Summary.Cancelled
		m.Finish(cancelled)
		return m, tea.Quit

	case PromptMsg:
		m.OpenPrompt(msg.Message, msg.Done)
		m.AddLogMessage("WARN", "Waiting for login in the browser window")
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.mu.RLock()
		finished := m.finished
		m.mu.RUnlock()
		if finished {
			return m, tea.Quit
		}
		if m.RequestStop() {
			m.AddLogMessage("WARN", "Stopping after the current album")
		}
		return m, nil

	case "enter":
		if m.AnswerPrompt() {
			m.AddLogMessage("INFO", "Login confirmed")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd refreshes elapsed time and ETA
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
