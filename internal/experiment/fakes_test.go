package experiment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ddtlab/ddt/internal/config"
	"github.com/ddtlab/ddt/internal/design"
	"github.com/ddtlab/ddt/internal/log"
	"github.com/ddtlab/ddt/internal/record"
)

var errNoMoreKeys = errors.New("script has no more keys")

// recordingDisplay keeps every rendered frame.
type recordingDisplay struct {
	frames []Frame
}

func (d *recordingDisplay) Render(f Frame) {
	d.frames = append(d.frames, f)
}

// trace returns a compact trace such as "text:Session 1|fixation|choice".
func (d *recordingDisplay) trace() []string {
	out := make([]string, 0, len(d.frames))
	for _, f := range d.frames {
		switch f.Kind {
		case FrameText:
			out = append(out, "text:"+firstLine(f.Text))
		default:
			out = append(out, f.Kind.String())
		}
	}
	return out
}

func (d *recordingDisplay) count(kind FrameKind) int {
	n := 0
	for _, f := range d.frames {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// scriptedInput hands out keys from a script, dropping rejected ones the
// way a real participant's stray presses would be dropped.
type scriptedInput struct {
	keys        []string
	rejected    []string
	onWait      func()
	waitCalls   int
	lastAtDelay time.Duration
	clock       *fakeClock
}

func (in *scriptedInput) WaitKey(ctx context.Context, accept func(string) bool) (KeyEvent, error) {
	in.waitCalls++
	if in.onWait != nil {
		in.onWait()
	}
	for len(in.keys) > 0 {
		k := in.keys[0]
		in.keys = in.keys[1:]
		if accept(k) {
			ev := KeyEvent{Key: k}
			if in.clock != nil && in.lastAtDelay > 0 {
				ev.At = in.clock.now.Add(in.lastAtDelay)
			}
			return ev, nil
		}
		in.rejected = append(in.rejected, k)
	}
	if err := ctx.Err(); err != nil {
		return KeyEvent{}, err
	}
	return KeyEvent{}, errNoMoreKeys
}

// fakeClock advances by step on every Now call and by d on Sleep.
type fakeClock struct {
	now    time.Time
	step   time.Duration
	sleeps []time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// fakeService scripts the design service and records the call order.
type fakeService struct {
	calls     []string
	submitted []design.Response
	sessions  []string

	// nextErr fails the Nth NextDesign call (1-based) when set.
	nextErrAt int
	nextErr   error
	// submitResults are returned in order; missing entries mean "continue".
	submitResults []design.SubmitResult
	submitErrAt   int
	submitErr     error

	fetches int
}

func (s *fakeService) NextDesign(ctx context.Context, mode design.Mode, sessionID string) (*design.Trial, error) {
	s.fetches++
	s.calls = append(s.calls, "fetch:"+string(mode))
	s.sessions = append(s.sessions, sessionID)
	if s.nextErrAt == s.fetches {
		return nil, s.nextErr
	}
	return &design.Trial{
		Design:    design.Design{TSS: 0, TLL: 52, RSS: float64(10 * s.fetches), RLL: 800},
		Direction: design.Direction(s.fetches % 2),
	}, nil
}

func (s *fakeService) SubmitResponse(ctx context.Context, resp design.Response, sessionID string) (*design.SubmitResult, error) {
	s.calls = append(s.calls, "submit:"+string(resp.Mode))
	s.submitted = append(s.submitted, resp)
	s.sessions = append(s.sessions, sessionID)
	n := len(s.submitted)
	if s.submitErrAt == n {
		return nil, s.submitErr
	}
	if n-1 < len(s.submitResults) {
		res := s.submitResults[n-1]
		return &res, nil
	}
	return &design.SubmitResult{}, nil
}

func (s *fakeService) count(prefix string) int {
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// memoryEvents collects log events.
type memoryEvents struct {
	events []log.LogEvent
}

func (m *memoryEvents) Append(e log.LogEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memoryEvents) states() []string {
	var out []string
	for _, e := range m.events {
		if e.Event == log.EventStateChanged {
			out = append(out, e.State)
		}
	}
	return out
}

func (m *memoryEvents) count(event string) int {
	n := 0
	for _, e := range m.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// memoryRecorder collects recorded trials.
type memoryRecorder struct {
	trials []record.Trial
	err    error
}

func (m *memoryRecorder) RecordTrial(t record.Trial) error {
	if m.err != nil {
		return m.err
	}
	m.trials = append(m.trials, t)
	return nil
}

func testInstructions() *config.Instructions {
	return &config.Instructions{
		Intro:              "Intro",
		TrainBefore:        []string{"Page A", "Page B"},
		TrainAfter:         "Practice over",
		SessionStartSingle: "Start single {0}/{1}",
		SessionStartMulti:  "Start multi {0}/{1}",
		MainBefore:         "Session {0} with {1} trials",
		SessionComplete:    "Complete {0} next {1} of {2}",
		Outro:              "Outro",
	}
}

func testConfig(tutorial bool, train, main, sessions int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Trials.ShowTutorial = tutorial
	cfg.Trials.NumTrain = train
	cfg.Trials.NumMain = main
	cfg.Session.Count = sessions
	return cfg
}

// harness bundles a runner with its fakes.
type harness struct {
	runner  *Runner
	state   *SessionState
	display *recordingDisplay
	input   *scriptedInput
	service *fakeService
	clock   *fakeClock
	events  *memoryEvents
	rec     *memoryRecorder
}

func newHarness(cfg *config.Config, keys []string, svc *fakeService) *harness {
	h := &harness{
		state:   &SessionState{CurrentSession: cfg.Session.Current, SessionCount: cfg.Session.Count, SessionID: "sess-xyz"},
		display: &recordingDisplay{},
		service: svc,
		clock:   newFakeClock(100 * time.Millisecond),
		events:  &memoryEvents{},
		rec:     &memoryRecorder{},
	}
	h.input = &scriptedInput{keys: keys, clock: h.clock}
	h.runner = NewRunner(cfg, testInstructions(), h.state, Deps{
		Service:  svc,
		Display:  h.display,
		Input:    h.input,
		Clock:    h.clock,
		Events:   h.events,
		Recorder: h.rec,
		RunID:    "run-1",
	})
	return h
}

func keys(ks ...string) []string {
	return ks
}

func repeat(k string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = k
	}
	return out
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
