package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	errs "zonerama/pkg/errors"
)

// Prompter blocks until the user confirms they are ready
type Prompter interface {
	Confirm(ctx context.Context, message string) error
}

// TerminalPrompter waits for Enter on an interactive terminal
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter uses stdin and stderr
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Confirm prints message and waits for a line of input. It fails immediately
// when stdin is not a terminal, since nobody could answer.
func (t *TerminalPrompter) Confirm(ctx context.Context, message string) error {
	if !term.IsTerminal(int(t.In.Fd())) {
		return errs.New(errs.ErrorTypeConfiguration, "browser.Confirm",
			"login needs an interactive terminal; save a session first or set ZONERAMA_STORAGE_STATE")
	}

	fmt.Fprint(t.Out, message)

	// the reader goroutine outlives a cancelled prompt until the next newline
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(t.In).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return errs.Wrap(errs.ErrorTypeCancelled, "browser.Confirm", ctx.Err())
	case err := <-done:
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	}
}
