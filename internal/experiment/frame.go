package experiment

import (
	"strconv"

	"github.com/ddtlab/ddt/internal/design"
)

// FrameKind identifies what a Frame shows.
type FrameKind int

const (
	FrameText     FrameKind = iota // instructions, waits for acknowledgment
	FrameFixation                  // neutral "+" marker
	FrameChoice                    // two options side by side
	FrameNotice                    // fatal session notice
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameFixation:
		return "fixation"
	case FrameChoice:
		return "choice"
	case FrameNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// Option is one side of a choice screen.
type Option struct {
	Amount float64
	Delay  float64
	Label  string // LabelDelay(Delay)
}

// AmountText renders the amount the way participants see it, e.g. "$800".
func (o Option) AmountText() string {
	return "$" + strconv.FormatFloat(o.Amount, 'f', -1, 64)
}

// Frame is everything a Display needs to draw one screen.
type Frame struct {
	Kind  FrameKind
	Text  string
	Left  Option
	Right Option
}

// SessionNotice is shown once when the design service rejects the run.
const SessionNotice = "Your session has expired or is invalid.\nPlease refresh and restart."

// TextFrame returns a blocking instructions screen.
func TextFrame(text string) Frame {
	return Frame{Kind: FrameText, Text: text}
}

// FixationFrame returns the neutral fixation marker.
func FixationFrame() Frame {
	return Frame{Kind: FrameFixation, Text: "+"}
}

// NoticeFrame returns the fatal session notice.
func NoticeFrame() Frame {
	return Frame{Kind: FrameNotice, Text: SessionNotice}
}

// ChoiceFrame places the two options of d according to dir: with SSLeft
// the smaller-sooner option is on the left, otherwise on the right.
func ChoiceFrame(d design.Design, dir design.Direction) Frame {
	ss := Option{Amount: d.RSS, Delay: d.TSS, Label: LabelDelay(d.TSS)}
	ll := Option{Amount: d.RLL, Delay: d.TLL, Label: LabelDelay(d.TLL)}

	if dir == design.SSLeft {
		return Frame{Kind: FrameChoice, Left: ss, Right: ll}
	}
	return Frame{Kind: FrameChoice, Left: ll, Right: ss}
}

// Display draws frames. Render must not block on participant input.
type Display interface {
	Render(f Frame)
}
