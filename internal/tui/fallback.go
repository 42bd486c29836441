package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ddtlab/ddt/internal/experiment"
)

// LineTerminal runs the task on a plain line-based terminal or pipe.
// Each input line is one key press: an empty line is enter, "space" is
// the space bar, anything else is taken as typed.
//
// Unlike Terminal it does not drop keys typed ahead, so a scripted run
// can be piped in.
type LineTerminal struct {
	mu    sync.Mutex
	out   io.Writer
	lines chan experiment.KeyEvent
}

// NewLineTerminal reads key lines from in and writes frames to out.
func NewLineTerminal(in io.Reader, out io.Writer) *LineTerminal {
	t := &LineTerminal{
		out:   out,
		lines: make(chan experiment.KeyEvent),
	}
	go t.scan(in)
	return t
}

func (t *LineTerminal) scan(in io.Reader) {
	defer close(t.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		t.lines <- experiment.KeyEvent{Key: lineKey(sc.Text()), At: time.Now()}
	}
}

// lineKey maps one input line to a key name.
func lineKey(line string) string {
	switch k := strings.TrimSpace(line); k {
	case "":
		return KeyEnter
	case "space":
		return KeySpace
	default:
		return k
	}
}

// Render prints f followed by a separator line.
func (t *LineTerminal) Render(f experiment.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Fixation is a transient marker; one line is enough.
	if f.Kind == experiment.FrameFixation {
		fmt.Fprintln(t.out, f.Text)
		return
	}
	fmt.Fprintf(t.out, "\n%s\n%s\n", PlainFrame(f), strings.Repeat("-", 40))
}

// WaitKey implements experiment.Input.
func (t *LineTerminal) WaitKey(ctx context.Context, accept func(key string) bool) (experiment.KeyEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return experiment.KeyEvent{}, ctx.Err()
		case ev, ok := <-t.lines:
			if !ok {
				return experiment.KeyEvent{}, experiment.ErrInputClosed
			}
			if accept(ev.Key) {
				return ev, nil
			}
		}
	}
}
