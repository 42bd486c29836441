package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/ddtlab/ddt/internal/design"
)

// Choice is the captured answer to one choice screen.
type Choice struct {
	RespLeft int     // 1 if a left key was pressed, else 0
	RT       float64 // ms from render to key press, never negative
}

// CaptureResponse shows the choice screen for d and waits for exactly one
// qualifying key. Other keys are ignored and do not restart the timer.
// As soon as the key is accepted the display switches to the fixation
// marker, so the participant gets feedback before the next network call.
func CaptureResponse(
	ctx context.Context,
	display Display,
	input Input,
	clock Clock,
	keys ChoiceKeys,
	d design.Design,
	dir design.Direction,
) (Choice, error) {
	display.Render(ChoiceFrame(d, dir))
	start := clock.Now()

	ev, err := input.WaitKey(ctx, keys.Qualifies)
	if err != nil {
		return Choice{}, fmt.Errorf("waiting for choice: %w", err)
	}

	at := ev.At
	if at.IsZero() {
		at = clock.Now()
	}
	rt := at.Sub(start)
	if rt < 0 {
		rt = 0
	}

	display.Render(FixationFrame())

	choice := Choice{RT: float64(rt) / float64(time.Millisecond)}
	if keys.Left.Has(ev.Key) {
		choice.RespLeft = 1
	}
	return choice, nil
}
