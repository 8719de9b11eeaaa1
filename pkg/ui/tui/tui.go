package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"zonerama/pkg/browser"
	"zonerama/pkg/catalog"
	errs "zonerama/pkg/errors"
	"zonerama/pkg/extract"
	"zonerama/pkg/orchestrator"
	"zonerama/pkg/session"
)

// TUI represents the terminal user interface. It implements
// orchestrator.Observer by forwarding every event to the program.
type TUI struct {
	program *tea.Program
	model   *Model
}

var (
	_ orchestrator.Observer = (*TUI)(nil)
	_ browser.Prompter      = (*TUI)(nil)
)

// NewTUI creates a TUI. interrupt is called when the user asks to stop.
func NewTUI(interrupt func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(interrupt)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until the run finishes or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) RunStarted(dir string) { t.Send(RunStartedMsg{Directory: dir}) }

func (t *TUI) CatalogBuilt(res catalog.Result) { t.Send(CatalogMsg{Result: res}) }

func (t *TUI) AlbumStarted(index, total int, album catalog.AlbumRef) {
	t.Send(AlbumStartMsg{Index: index, Total: total, Album: album})
}

func (t *TUI) AlbumStateChanged(tr session.Transition) { t.Send(AlbumStateMsg{Transition: tr}) }

func (t *TUI) AlbumFinished(index, total int, res session.Result) {
	t.Send(AlbumDoneMsg{Index: index, Result: res})
}

func (t *TUI) ArchiveProcessed(res extract.Result) { t.Send(ArchiveMsg{Result: res}) }

func (t *TUI) RunFinished(sum *orchestrator.Summary) { t.Send(RunFinishedMsg{Summary: sum}) }

// Confirm shows message inside the TUI and waits for Enter
func (t *TUI) Confirm(ctx context.Context, message string) error {
	done := make(chan struct{})
	t.Send(PromptMsg{Message: message, Done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.Wrap(errs.ErrorTypeCancelled, "tui.Confirm", ctx.Err())
	}
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
