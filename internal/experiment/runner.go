package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ddtlab/ddt/internal/config"
	"github.com/ddtlab/ddt/internal/design"
	"github.com/ddtlab/ddt/internal/log"
	"github.com/ddtlab/ddt/internal/record"
)

// DesignService is the remote adaptive design service.
type DesignService interface {
	NextDesign(ctx context.Context, mode design.Mode, sessionID string) (*design.Trial, error)
	SubmitResponse(ctx context.Context, resp design.Response, sessionID string) (*design.SubmitResult, error)
}

// EventLog receives structured run events. *log.Logger satisfies it.
type EventLog interface {
	Append(event log.LogEvent) error
}

// Recorder keeps a local copy of accepted trials. *record.Store satisfies it.
type Recorder interface {
	RecordTrial(t record.Trial) error
}

// Deps are the collaborators of a Runner. Events and Recorder are
// optional; Clock defaults to the system clock.
type Deps struct {
	Service  DesignService
	Display  Display
	Input    Input
	Clock    Clock
	Events   EventLog
	Recorder Recorder
	RunID    string
}

// Runner drives one participant run from the intro to the outro. It is
// strictly sequential: every step waits for the previous one, so a
// response is always submitted before the next design is fetched.
type Runner struct {
	cfg   *config.Config
	text  *config.Instructions
	state *SessionState
	deps  Deps

	ackKeys    KeySet
	choiceKeys ChoiceKeys
	current    State
}

// NewRunner creates a Runner. state is owned by the Runner for the
// duration of Run.
func NewRunner(cfg *config.Config, text *config.Instructions, state *SessionState, deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Runner{
		cfg:        cfg,
		text:       text,
		state:      state,
		deps:       deps,
		ackKeys:    NewKeySet(cfg.Keys.Ack...),
		choiceKeys: choiceKeysFor(cfg.Keys),
	}
}

func choiceKeysFor(k config.KeyConfig) ChoiceKeys {
	return ChoiceKeys{Left: NewKeySet(k.Left...), Right: NewKeySet(k.Right...)}
}

// State returns the step the run is in.
func (r *Runner) State() State {
	return r.current
}

// Run executes the whole run. A *design.SessionError from either service
// call shows the session notice once and ends the run in StateFailed;
// nothing else is shown or requested afterwards.
func (r *Runner) Run(ctx context.Context) error {
	r.logEvent(log.LogEvent{
		Event: log.EventRunStarted,
		Data: map[string]interface{}{
			"session_count":    r.state.SessionCount,
			"show_tutorial":    r.cfg.Trials.ShowTutorial,
			"num_train_trials": r.cfg.Trials.NumTrain,
			"num_main_trials":  r.cfg.Trials.NumMain,
		},
	})

	err := r.run(ctx)
	if err == nil {
		r.enter(StateDone)
		r.logEvent(log.LogEvent{Event: log.EventRunComplete})
		return nil
	}

	var se *design.SessionError
	if errors.As(err, &se) {
		r.deps.Display.Render(NoticeFrame())
		r.logEvent(log.LogEvent{Event: log.EventSessionError, StatusCode: se.StatusCode, Error: se.Error()})
	} else {
		r.logEvent(log.LogEvent{Event: log.EventRunAborted, Error: err.Error()})
	}
	r.enter(StateFailed)
	return err
}

func (r *Runner) run(ctx context.Context) error {
	if r.cfg.Trials.ShowTutorial {
		if err := r.runTutorial(ctx); err != nil {
			return err
		}
	}

	if err := r.runSessions(ctx); err != nil {
		return err
	}

	return r.screen(ctx, StateOutro, r.text.Outro)
}

// runTutorial shows the intro and practice block. Practice trials show
// fixation before every trial and ignore session signals.
func (r *Runner) runTutorial(ctx context.Context) error {
	if err := r.screen(ctx, StateIntro, r.text.Intro); err != nil {
		return err
	}

	r.enter(StateTutorialScreens)
	for _, page := range r.text.TrainBefore {
		if err := r.show(ctx, page); err != nil {
			return err
		}
	}

	r.enter(StateTutorialTrials)
	for i := 0; i < r.cfg.Trials.NumTrain; i++ {
		r.fixation()
		if _, err := r.runTrial(ctx, design.ModeTrain, i+1); err != nil {
			return err
		}
	}

	if err := r.screen(ctx, StateTutorialAfter, r.text.TrainAfter); err != nil {
		return err
	}

	if r.state.CurrentSession == 1 {
		msg := r.text.SessionStart(r.state.CurrentSession, r.state.SessionCount)
		if err := r.screen(ctx, StateSessionStartScreen, msg); err != nil {
			return err
		}
	}

	return nil
}

// sessionOutcome is how a block of main trials ended.
type sessionOutcome int

const (
	outcomeExhausted       sessionOutcome = iota // trial count reached without a signal
	outcomeAllComplete                           // service said finished
	outcomeSessionComplete                       // service started a new session
)

// runSessions is the main loop over sessions.
func (r *Runner) runSessions(ctx context.Context) error {
	for r.state.CurrentSession <= r.state.SessionCount {
		session := r.state.CurrentSession

		msg := r.text.MainBeforeText(session, r.cfg.Trials.NumMain)
		if err := r.screen(ctx, StateMainBeforeScreen, msg); err != nil {
			return err
		}

		r.enter(StateMainTrials)
		outcome, err := r.runMainTrials(ctx)
		if err != nil {
			return err
		}
		if outcome != outcomeSessionComplete {
			return nil
		}

		msg = r.text.SessionCompleteText(session, r.state.CurrentSession, r.state.SessionCount)
		if err := r.screen(ctx, StateSessionCompleteScreen, msg); err != nil {
			return err
		}
	}
	return nil
}

// runMainTrials runs up to NumMain optimal trials. Only the first trial
// gets a fixation pause; later ones follow the fixation that
// CaptureResponse leaves on screen.
func (r *Runner) runMainTrials(ctx context.Context) (sessionOutcome, error) {
	for i := 0; i < r.cfg.Trials.NumMain; i++ {
		if i == 0 {
			r.fixation()
		}

		res, err := r.runTrial(ctx, design.ModeOptimal, i+1)
		if err != nil {
			return outcomeExhausted, err
		}

		switch {
		case res.Finished:
			return outcomeAllComplete, nil
		case res.NewSession:
			prev := r.state.CurrentSession
			if err := r.state.adopt(res.CurrentSession); err != nil {
				return outcomeExhausted, &design.SessionError{Op: design.OpSubmit, Message: err.Error()}
			}
			r.logEvent(log.LogEvent{
				Event: log.EventSessionRollover,
				Data:  map[string]interface{}{"previous": prev, "next": r.state.CurrentSession},
			})
			return outcomeSessionComplete, nil
		}
	}
	return outcomeExhausted, nil
}

// runTrial is one fetch, capture, submit cycle. index is 1-based.
func (r *Runner) runTrial(ctx context.Context, mode design.Mode, index int) (*design.SubmitResult, error) {
	trial, err := r.deps.Service.NextDesign(ctx, mode, r.state.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%s trial %d: %w", mode, index, err)
	}

	choice, err := CaptureResponse(ctx, r.deps.Display, r.deps.Input, r.deps.Clock, r.choiceKeys, trial.Design, trial.Direction)
	if err != nil {
		return nil, fmt.Errorf("%s trial %d: %w", mode, index, err)
	}

	resp := design.Response{
		Mode:      mode,
		RespLeft:  choice.RespLeft,
		Direction: trial.Direction,
		RT:        choice.RT,
	}
	res, err := r.deps.Service.SubmitResponse(ctx, resp, r.state.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%s trial %d: %w", mode, index, err)
	}

	r.record(index, trial, resp)
	return res, nil
}

// record journals an accepted trial. Failures are logged, never fatal.
func (r *Runner) record(index int, trial *design.Trial, resp design.Response) {
	respLeft := resp.RespLeft
	r.logEvent(log.LogEvent{
		Event:    log.EventTrialCompleted,
		Trial:    index,
		Mode:     string(resp.Mode),
		RespLeft: &respLeft,
		RT:       resp.RT,
	})

	if r.deps.Recorder == nil {
		return
	}
	err := r.deps.Recorder.RecordTrial(record.Trial{
		RunID:     r.deps.RunID,
		Session:   r.state.CurrentSession,
		Index:     index,
		Mode:      string(resp.Mode),
		TSS:       trial.Design.TSS,
		TLL:       trial.Design.TLL,
		RSS:       trial.Design.RSS,
		RLL:       trial.Design.RLL,
		Direction: int(resp.Direction),
		RespLeft:  resp.RespLeft,
		RespSS:    resp.RespSS(),
		RT:        resp.RT,
	})
	if err != nil {
		r.logEvent(log.LogEvent{Event: log.EventRecordFailed, Trial: index, Mode: string(resp.Mode), Error: err.Error()})
	}
}

// screen enters state and shows a blocking text screen.
func (r *Runner) screen(ctx context.Context, state State, text string) error {
	r.enter(state)
	return r.show(ctx, text)
}

// show renders text and waits for an acknowledgment key. No timeout.
func (r *Runner) show(ctx context.Context, text string) error {
	r.deps.Display.Render(TextFrame(text))
	if _, err := r.deps.Input.WaitKey(ctx, r.ackKeys.Has); err != nil {
		return fmt.Errorf("waiting for acknowledgment: %w", err)
	}
	return nil
}

// fixation holds the fixation marker for the configured duration.
func (r *Runner) fixation() {
	r.deps.Display.Render(FixationFrame())
	r.deps.Clock.Sleep(r.cfg.FixationDuration())
}

func (r *Runner) enter(s State) {
	r.current = s
	r.logEvent(log.LogEvent{Event: log.EventStateChanged, State: s.String()})
}

// logEvent stamps run and session fields. Logging is best-effort.
func (r *Runner) logEvent(e log.LogEvent) {
	if r.deps.Events == nil {
		return
	}
	e.RunID = r.deps.RunID
	e.SessionID = r.state.SessionID
	if e.Session == 0 {
		e.Session = r.state.CurrentSession
	}
	_ = r.deps.Events.Append(e)
}
