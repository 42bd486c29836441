package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ddtlab/ddt/internal/experiment"
)

// Model shows the current frame and forwards key presses to the run.
type Model struct {
	Frame  experiment.Frame
	Width  int
	Height int

	// Finished is set once the run returned with an error. The notice
	// stays up until the next key press.
	Finished bool
	Err      error

	keys   chan<- experiment.KeyEvent
	keymap KeyMap
	now    func() time.Time
}

// NewModel creates a Model that forwards presses to keys. Sends never
// block; presses are dropped when the buffer is full.
func NewModel(keys chan<- experiment.KeyEvent) *Model {
	return &Model{
		Frame:  experiment.TextFrame(""),
		Width:  80,
		Height: 24,
		keys:   keys,
		keymap: DefaultKeyMap,
		now:    time.Now,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case FrameMsg:
		m.Frame = msg.Frame
		return m, nil

	case RunFinishedMsg:
		if msg.Err == nil || m.Frame.Kind != experiment.FrameNotice {
			m.Err = msg.Err
			return m, tea.Quit
		}
		m.Finished = true
		m.Err = msg.Err
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.Quit) || m.Finished {
			return m, tea.Quit
		}
		m.forward(msg.String())
		return m, nil
	}
	return m, nil
}

func (m *Model) forward(k string) {
	select {
	case m.keys <- experiment.KeyEvent{Key: k, At: m.now()}:
	default:
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	return RenderFrame(m.Frame, m.Width, m.Height)
}
