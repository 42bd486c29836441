package tui

import "github.com/ddtlab/ddt/internal/experiment"

// FrameMsg replaces the frame on screen.
type FrameMsg struct {
	Frame experiment.Frame
}

// RunFinishedMsg signals that the run goroutine returned.
type RunFinishedMsg struct {
	Err error
}
