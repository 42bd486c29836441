// Package devserver is an in-memory stand-in for the adaptive design
// service. It speaks the same wire protocol as the real service but
// proposes random designs, which is enough for pilots and tests.
package devserver

import (
	"sync"

	"github.com/ddtlab/ddt/internal/design"
)

// Options configure the rehearsal service.
type Options struct {
	NumMainTrials int   // optimal trials per session before rollover
	SessionCount  int   // sessions per participant
	FirstSession  int   // session new participants start in; 0 means 1
	Seed          int64 // 0 seeds from the clock

	// Logf, when set, receives one line per request.
	Logf func(format string, args ...any)
}

// participant is the server-side progress of one session id.
type participant struct {
	CurrentSession int
	TrialsDone     int // optimal trials answered in CurrentSession
	TrainDone      int
	Finished       bool
}

// State holds every participant known to the server.
type State struct {
	mu           sync.Mutex
	first        int
	Participants map[string]*participant
}

// NewState creates an empty State whose participants start in session
// first.
func NewState(first int) *State {
	return &State{first: first, Participants: make(map[string]*participant)}
}

// lookup returns the participant for id, creating it in the first
// session. Callers hold mu.
func (s *State) lookup(id string) *participant {
	p, ok := s.Participants[id]
	if !ok {
		p = &participant{CurrentSession: s.first}
		s.Participants[id] = p
	}
	return p
}

// trialBody is the GET next_design answer.
type trialBody struct {
	Design    design.Design    `json:"design"`
	Direction design.Direction `json:"direction"`
}

// responseBody is the POST response payload.
type responseBody struct {
	Mode      design.Mode      `json:"mode"`
	RespLeft  *int             `json:"resp_left"`
	Direction design.Direction `json:"direction"`
	RT        float64          `json:"rt"`
	SessionID string           `json:"session_id"`
}

// submitBody is the POST response answer. current_session is only sent
// together with new_session.
type submitBody struct {
	Finished       bool `json:"finished"`
	NewSession     bool `json:"new_session,omitempty"`
	CurrentSession int  `json:"current_session,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// statusBody is the /status answer for one participant.
type statusBody struct {
	SessionID      string `json:"session_id"`
	CurrentSession int    `json:"current_session"`
	TrialsDone     int    `json:"trials_done"`
	TrainDone      int    `json:"train_done"`
	Finished       bool   `json:"finished"`
}
