package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ddtlab/ddt/internal/design"
	"github.com/ddtlab/ddt/internal/log"
)

func expectTrace(t *testing.T, d *recordingDisplay, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, d.trace()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func expectCalls(t *testing.T, s *fakeService, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, s.calls); diff != "" {
		t.Errorf("service calls mismatch (-want +got):\n%s", diff)
	}
}

// Tutorial off, one session, two trials.
func TestRunSingleSessionWithoutTutorial(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{{}, {Finished: true}}}
	h := newHarness(testConfig(false, 0, 2, 1), keys(" ", "z", "m", "enter"), svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectTrace(t, h.display, []string{
		"text:Session 1 with 2 trials",
		"fixation",
		"choice",
		"fixation",
		"choice",
		"fixation",
		"text:Outro",
	})
	expectCalls(t, svc, []string{"fetch:optimal", "submit:optimal", "fetch:optimal", "submit:optimal"})

	if len(h.clock.sleeps) != 1 || h.clock.sleeps[0] != time.Second {
		t.Errorf("fixation pauses = %v, want one 1s pause", h.clock.sleeps)
	}
	if h.runner.State() != StateDone {
		t.Errorf("final state = %v, want done", h.runner.State())
	}

	wantStates := []string{"main_before_screen", "main_trials", "outro", "done"}
	if diff := cmp.Diff(wantStates, h.events.states()); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	if svc.submitted[0].RespLeft != 1 || svc.submitted[1].RespLeft != 0 {
		t.Errorf("resp_left = %d,%d; want 1,0", svc.submitted[0].RespLeft, svc.submitted[1].RespLeft)
	}
	for i, resp := range svc.submitted {
		if resp.Mode != design.ModeOptimal {
			t.Errorf("response %d mode = %q", i, resp.Mode)
		}
		if resp.RT != 100 {
			t.Errorf("response %d rt = %v, want 100", i, resp.RT)
		}
		if want := design.Direction((i + 1) % 2); resp.Direction != want {
			t.Errorf("response %d direction = %d, want %d", i, resp.Direction, want)
		}
	}
	for _, id := range svc.sessions {
		if id != "sess-xyz" {
			t.Errorf("request carried session id %q", id)
		}
	}
}

func TestRunEndsWhenTrialsExhausted(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(testConfig(false, 0, 3, 1), keys(" ", "z", "z", "z", " "), svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := svc.count("fetch"); got != 3 {
		t.Errorf("fetches = %d, want 3", got)
	}
	frames := h.display.trace()
	if frames[len(frames)-1] != "text:Outro" {
		t.Errorf("last frame = %q, want outro", frames[len(frames)-1])
	}
}

// Two sessions; the service rolls over after the second trial.
func TestRunSessionRollover(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{
		{},
		{NewSession: true, CurrentSession: 2},
		{},
		{Finished: true},
	}}
	h := newHarness(testConfig(false, 0, 2, 2), keys(" ", "z", "m", " ", " ", "z", "z", " "), svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectTrace(t, h.display, []string{
		"text:Session 1 with 2 trials",
		"fixation",
		"choice",
		"fixation",
		"choice",
		"fixation",
		"text:Complete 1 next 2 of 2",
		"text:Session 2 with 2 trials",
		"fixation",
		"choice",
		"fixation",
		"choice",
		"fixation",
		"text:Outro",
	})

	if h.state.CurrentSession != 2 {
		t.Errorf("CurrentSession = %d, want 2", h.state.CurrentSession)
	}
	if h.events.count(log.EventSessionRollover) != 1 {
		t.Errorf("rollover events = %d, want 1", h.events.count(log.EventSessionRollover))
	}

	wantSessions := []int{1, 1, 2, 2}
	for i, tr := range h.rec.trials {
		if tr.Session != wantSessions[i] {
			t.Errorf("recorded trial %d session = %d, want %d", i, tr.Session, wantSessions[i])
		}
	}
	if len(h.rec.trials) != 4 {
		t.Errorf("recorded %d trials, want 4", len(h.rec.trials))
	}
	if h.rec.trials[2].Index != 1 {
		t.Errorf("first trial of session 2 has index %d, want 1", h.rec.trials[2].Index)
	}
}

func TestRunTutorialFlow(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{
		{NewSession: true, CurrentSession: 5}, // ignored in practice
		{Finished: true},                      // ignored in practice
		{Finished: true},
	}}
	script := keys(" ", " ", " ", "z", "m", " ", " ", " ", "z", " ")
	h := newHarness(testConfig(true, 2, 1, 1), script, svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectTrace(t, h.display, []string{
		"text:Intro",
		"text:Page A",
		"text:Page B",
		"fixation",
		"choice",
		"fixation",
		"fixation",
		"choice",
		"fixation",
		"text:Practice over",
		"text:Start single 1/1",
		"text:Session 1 with 1 trials",
		"fixation",
		"choice",
		"fixation",
		"text:Outro",
	})
	expectCalls(t, svc, []string{
		"fetch:train", "submit:train",
		"fetch:train", "submit:train",
		"fetch:optimal", "submit:optimal",
	})

	if h.state.CurrentSession != 1 {
		t.Errorf("practice changed CurrentSession to %d", h.state.CurrentSession)
	}
	if len(h.clock.sleeps) != 3 {
		t.Errorf("fixation pauses = %d, want 3", len(h.clock.sleeps))
	}

	wantStates := []string{
		"intro", "tutorial_screens", "tutorial_trials", "tutorial_after",
		"session_start_screen", "main_before_screen", "main_trials", "outro", "done",
	}
	if diff := cmp.Diff(wantStates, h.events.states()); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSessionStartShownOnceAcrossSessions(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{
		{NewSession: true, CurrentSession: 2},
		{Finished: true},
	}}
	script := concat(repeat(" ", 3), keys(" ", " ", " ", "z", " ", " ", "m", " "))
	h := newHarness(testConfig(true, 0, 1, 2), script, svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	starts := 0
	for _, f := range h.display.trace() {
		if f == "text:Start multi 1/2" {
			starts++
		}
		if f == "text:Start single 1/1" {
			t.Error("single-session variant shown for a two-session run")
		}
	}
	if starts != 1 {
		t.Errorf("session start screen shown %d times, want 1", starts)
	}
}

func TestRunTutorialSkipsSessionStartAfterFirstSession(t *testing.T) {
	cfg := testConfig(true, 0, 1, 3)
	cfg.Session.Current = 2
	svc := &fakeService{submitResults: []design.SubmitResult{{Finished: true}}}
	h := newHarness(cfg, keys(" ", " ", " ", " ", " ", "z", " "), svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, f := range h.display.trace() {
		if f == "text:Start multi 2/3" || f == "text:Start multi 1/3" {
			t.Errorf("unexpected session start screen %q", f)
		}
	}
	if got := h.display.trace()[4]; got != "text:Session 2 with 1 trials" {
		t.Errorf("frame after tutorial = %q", got)
	}
}

// An expired session on the very first fetch aborts before any submit.
func TestRunFetchSessionErrorAborts(t *testing.T) {
	svc := &fakeService{
		nextErrAt: 1,
		nextErr:   &design.SessionError{Op: design.OpNextDesign, StatusCode: 440, Message: "expired"},
	}
	h := newHarness(testConfig(false, 0, 5, 1), keys(" ", "z", " "), svc)

	err := h.runner.Run(context.Background())
	var se *design.SessionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SessionError", err)
	}
	if se.StatusCode != 440 {
		t.Errorf("StatusCode = %d, want 440", se.StatusCode)
	}

	expectTrace(t, h.display, []string{"text:Session 1 with 5 trials", "fixation", "notice"})
	expectCalls(t, svc, []string{"fetch:optimal"})

	if n := h.display.count(FrameNotice); n != 1 {
		t.Errorf("notice shown %d times, want 1", n)
	}
	if h.input.waitCalls != 1 {
		t.Errorf("input waits = %d, want 1", h.input.waitCalls)
	}
	if h.runner.State() != StateFailed {
		t.Errorf("final state = %v, want failed", h.runner.State())
	}
	if h.events.count(log.EventSessionError) != 1 {
		t.Errorf("session_error events = %d, want 1", h.events.count(log.EventSessionError))
	}
}

func TestRunSubmitSessionErrorStopsFurtherCalls(t *testing.T) {
	svc := &fakeService{
		submitErrAt: 2,
		submitErr:   &design.SessionError{Op: design.OpSubmit, StatusCode: 500, Message: "boom"},
	}
	h := newHarness(testConfig(false, 0, 5, 1), keys(" ", "z", "m", "z", " "), svc)

	err := h.runner.Run(context.Background())
	if !design.IsSessionError(err) {
		t.Fatalf("error = %v, want *SessionError", err)
	}

	expectCalls(t, svc, []string{"fetch:optimal", "submit:optimal", "fetch:optimal", "submit:optimal"})
	if n := h.display.count(FrameNotice); n != 1 {
		t.Errorf("notice shown %d times, want 1", n)
	}
	frames := h.display.frames
	if frames[len(frames)-1].Kind != FrameNotice {
		t.Errorf("last frame = %v, want notice", frames[len(frames)-1].Kind)
	}
	// Only the accepted first trial is journaled.
	if len(h.rec.trials) != 1 {
		t.Errorf("recorded %d trials, want 1", len(h.rec.trials))
	}
}

func TestRunTutorialSessionErrorIsFatal(t *testing.T) {
	svc := &fakeService{
		nextErrAt: 1,
		nextErr:   &design.SessionError{Op: design.OpNextDesign, StatusCode: 401, Message: "invalid"},
	}
	h := newHarness(testConfig(true, 3, 5, 1), keys(" ", " ", " ", "z"), svc)

	if err := h.runner.Run(context.Background()); !design.IsSessionError(err) {
		t.Fatalf("error = %v, want *SessionError", err)
	}
	if svc.count("submit") != 0 {
		t.Errorf("submits = %d, want 0", svc.count("submit"))
	}
	if svc.count("fetch") != 1 {
		t.Errorf("fetches = %d, want 1", svc.count("fetch"))
	}
}

func TestRunRejectsSessionGoingBackwards(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{
		{NewSession: true, CurrentSession: 1},
	}}
	h := newHarness(testConfig(false, 0, 3, 2), keys(" ", "z", " "), svc)

	err := h.runner.Run(context.Background())
	if !design.IsSessionError(err) {
		t.Fatalf("error = %v, want *SessionError", err)
	}
	if h.state.CurrentSession != 1 {
		t.Errorf("CurrentSession = %d, want 1", h.state.CurrentSession)
	}
	if svc.count("fetch") != 1 {
		t.Errorf("fetches = %d, want 1", svc.count("fetch"))
	}
}

func TestRunCanceledShowsNoNotice(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(testConfig(false, 0, 2, 1), nil, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if h.display.count(FrameNotice) != 0 {
		t.Error("notice shown for a canceled run")
	}
	if h.runner.State() != StateFailed {
		t.Errorf("final state = %v, want failed", h.runner.State())
	}
	if h.events.count(log.EventRunAborted) != 1 {
		t.Errorf("run_aborted events = %d, want 1", h.events.count(log.EventRunAborted))
	}
}

func TestRunRecordFailureIsNotFatal(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{{Finished: true}}}
	h := newHarness(testConfig(false, 0, 1, 1), keys(" ", "z", " "), svc)
	h.rec.err = errors.New("disk full")

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.events.count(log.EventRecordFailed) != 1 {
		t.Errorf("record_failed events = %d, want 1", h.events.count(log.EventRecordFailed))
	}
}

func TestRunRecordsDerivedRespSS(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{{}, {Finished: true}}}
	// fetch 1 has direction 1 (ss left), fetch 2 direction 0 (ss right).
	h := newHarness(testConfig(false, 0, 2, 1), keys(" ", "z", "z", " "), svc)

	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.rec.trials) != 2 {
		t.Fatalf("recorded %d trials, want 2", len(h.rec.trials))
	}
	if h.rec.trials[0].RespSS != 1 || h.rec.trials[1].RespSS != 0 {
		t.Errorf("resp_ss = %d,%d; want 1,0", h.rec.trials[0].RespSS, h.rec.trials[1].RespSS)
	}
	if h.rec.trials[0].RunID != "run-1" {
		t.Errorf("RunID = %q", h.rec.trials[0].RunID)
	}
}

func TestRunWithoutOptionalDeps(t *testing.T) {
	svc := &fakeService{submitResults: []design.SubmitResult{{Finished: true}}}
	cfg := testConfig(false, 0, 1, 1)
	cfg.Trials.FixationMs = 0
	state := &SessionState{CurrentSession: 1, SessionCount: 1, SessionID: "s"}
	display := &recordingDisplay{}
	r := NewRunner(cfg, testInstructions(), state, Deps{
		Service: svc,
		Display: display,
		Input:   &scriptedInput{keys: keys(" ", "m", " ")},
	})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.submitted[0].RT < 0 {
		t.Errorf("rt = %v, want >= 0", svc.submitted[0].RT)
	}
}

func TestSessionStateAdopt(t *testing.T) {
	s := &SessionState{CurrentSession: 2, SessionCount: 4}
	if err := s.adopt(2); err == nil {
		t.Error("adopting the same session should fail")
	}
	if err := s.adopt(1); err == nil {
		t.Error("adopting an earlier session should fail")
	}
	if err := s.adopt(3); err != nil {
		t.Fatalf("adopt(3) failed: %v", err)
	}
	if s.CurrentSession != 3 {
		t.Errorf("CurrentSession = %d, want 3", s.CurrentSession)
	}
}

func TestStateString(t *testing.T) {
	if StateSessionCompleteScreen.String() != "session_complete_screen" {
		t.Errorf("got %q", StateSessionCompleteScreen.String())
	}
	if State(99).String() != "state(99)" {
		t.Errorf("got %q", State(99).String())
	}
}
