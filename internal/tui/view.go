package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ddtlab/ddt/internal/experiment"
)

// choiceGap is the space between the two options.
const choiceGap = 8

// RenderFrame draws f centered in a width by height screen.
func RenderFrame(f experiment.Frame, width, height int) string {
	var body string
	switch f.Kind {
	case experiment.FrameFixation:
		body = FixationStyle.Render(f.Text)
	case experiment.FrameChoice:
		body = lipgloss.JoinHorizontal(lipgloss.Center,
			renderOption(f.Left),
			strings.Repeat(" ", choiceGap),
			renderOption(f.Right),
		)
	case experiment.FrameNotice:
		body = NoticeStyle.Render(f.Text)
	default:
		body = TextStyle.Render(f.Text)
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func renderOption(o experiment.Option) string {
	return OptionStyle.Render(AmountStyle.Render(o.AmountText()) + "\n\n" + DelayStyle.Render(o.Label))
}

// PlainFrame renders f as unstyled text for line terminals.
func PlainFrame(f experiment.Frame) string {
	switch f.Kind {
	case experiment.FrameChoice:
		return "LEFT:  " + plainOption(f.Left) + "\nRIGHT: " + plainOption(f.Right)
	case experiment.FrameNotice:
		return "!! " + strings.ReplaceAll(f.Text, "\n", "\n!! ")
	default:
		return f.Text
	}
}

func plainOption(o experiment.Option) string {
	return o.AmountText() + " " + o.Label
}
