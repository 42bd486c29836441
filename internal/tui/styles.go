package tui

import "github.com/charmbracelet/lipgloss"

// Both options share one color so neither side draws more attention.
const (
	primaryColor = "#E5E7EB" // Light gray
	accentColor  = "#FFFFFF"
	errorColor   = "#EF4444" // Red
	dimColor     = "#6B7280" // Gray
)

// optionWidth keeps both choice boxes the same size.
const optionWidth = 24

// Style variables for consistent TUI rendering.
var (
	// TextStyle renders instruction screens.
	TextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Width(64).
			Padding(1, 2)

	// OptionStyle frames one side of a choice.
	OptionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Width(optionWidth).
			Align(lipgloss.Center).
			Padding(1, 2)

	// AmountStyle renders the dollar amount of an option.
	AmountStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(accentColor)).
			Bold(true)

	// DelayStyle renders the delay label of an option.
	DelayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor))

	// FixationStyle renders the "+" marker.
	FixationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(accentColor)).
			Bold(true)

	// NoticeStyle renders the session notice.
	NoticeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(errorColor)).
			Foreground(lipgloss.Color(errorColor)).
			Padding(1, 2)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))
)
