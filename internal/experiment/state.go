package experiment

import "fmt"

// State is a step of the run.
type State int

const (
	StateIntro State = iota
	StateTutorialScreens
	StateTutorialTrials
	StateTutorialAfter
	StateSessionStartScreen
	StateMainBeforeScreen
	StateMainTrials
	StateSessionCompleteScreen
	StateOutro
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIntro:                 "intro",
	StateTutorialScreens:       "tutorial_screens",
	StateTutorialTrials:        "tutorial_trials",
	StateTutorialAfter:         "tutorial_after",
	StateSessionStartScreen:    "session_start_screen",
	StateMainBeforeScreen:      "main_before_screen",
	StateMainTrials:            "main_trials",
	StateSessionCompleteScreen: "session_complete_screen",
	StateOutro:                 "outro",
	StateDone:                  "done",
	StateFailed:                "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SessionState is the run-wide session bookkeeping. CurrentSession only
// moves forward, and only to a value the design service handed back.
type SessionState struct {
	CurrentSession int // 1-based
	SessionCount   int
	SessionID      string
}

// adopt moves to the session index returned by the service.
func (s *SessionState) adopt(next int) error {
	if next <= s.CurrentSession {
		return fmt.Errorf("service moved session from %d to %d", s.CurrentSession, next)
	}
	s.CurrentSession = next
	return nil
}
