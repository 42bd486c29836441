// Package record provides the SQLite-backed local journal of trials a
// participant has completed.
package record

import "time"

// Run status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Run is one launch of the task on this machine.
type Run struct {
	ID           string
	Participant  string
	SessionID    string
	SessionCount int
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Trial is one accepted response. Rows are written only after the design
// service acknowledged the submit.
type Trial struct {
	ID         int64
	RunID      string
	Session    int // 1-based session index at the time of the trial
	Index      int // 1-based position inside its block
	Mode       string
	TSS        float64
	TLL        float64
	RSS        float64
	RLL        float64
	Direction  int
	RespLeft   int
	RespSS     int
	RT         float64 // ms
	RecordedAt time.Time
}

// Summary provides a high-level view of a run for listing.
type Summary struct {
	Run
	MainTrials  int
	TrainTrials int
}
