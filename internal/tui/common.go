// Package tui draws the task in the terminal using Bubble Tea.
package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ddtlab/ddt/internal/experiment"
)

// Common key binding constants.
const (
	KeyCtrlC = "ctrl+c"
	KeyEnter = "enter"
	KeySpace = " "
)

// keyBuffer is how many presses may queue between two waits. Extra
// presses are dropped.
const keyBuffer = 16

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Terminal is a full-screen experiment.Display. Frames are sent to the
// Bubble Tea program, and key presses come back through Input.
type Terminal struct {
	program *tea.Program
	input   *experiment.ChannelInput
}

// NewTerminal creates a Terminal. With no options it uses the alternate
// screen on stdin and stdout.
func NewTerminal(opts ...tea.ProgramOption) *Terminal {
	keys := make(chan experiment.KeyEvent, keyBuffer)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &Terminal{
		program: tea.NewProgram(NewModel(keys), opts...),
		input:   experiment.NewChannelInput(keys),
	}
}

// Render shows f. It blocks until the program has taken the frame and
// returns at once after the program has exited.
func (t *Terminal) Render(f experiment.Frame) {
	t.program.Send(FrameMsg{Frame: f})
}

// Input returns the key source fed by the program.
func (t *Terminal) Input() experiment.Input {
	return t.input
}

// Run starts the program and calls fn in its own goroutine. Quitting the
// program (ctrl+c) cancels the context given to fn. Run returns fn's
// error, or the program's if fn succeeded.
func (t *Terminal) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := fn(ctx)
		t.program.Send(RunFinishedMsg{Err: err})
		done <- err
	}()

	_, progErr := t.program.Run()
	cancel()

	if err := <-done; err != nil {
		return err
	}
	return progErr
}
