// Package design is the client side of the adaptive design service.
// It fetches the next trial design and submits participant responses.
package design

// Mode selects which kind of trial the service should propose.
type Mode string

const (
	ModeTrain   Mode = "train"   // tutorial trials
	ModeOptimal Mode = "optimal" // main trials chosen by the adaptive engine
)

// Wire paths of the design service, shared with the rehearsal server.
const (
	PathNextDesign = "/next_design"
	PathResponse   = "/response"
)

// Direction tells which side of the screen the smaller-sooner option is on.
type Direction int

const (
	SSRight Direction = 0
	SSLeft  Direction = 1
)

// Valid reports whether d is one of the two defined sides.
func (d Direction) Valid() bool {
	return d == SSLeft || d == SSRight
}

// Design is one proposed choice between a smaller-sooner (ss) and a
// larger-later (ll) reward. TSS < TLL is trusted from the service.
type Design struct {
	TSS float64 `json:"t_ss"`
	TLL float64 `json:"t_ll"`
	RSS float64 `json:"r_ss"`
	RLL float64 `json:"r_ll"`
}

// Trial is a design together with the side assignment chosen for it.
type Trial struct {
	Design    Design    `json:"design"`
	Direction Direction `json:"direction"`
}

// Response is the outcome of a single trial. It is built once per trial
// and sent once.
type Response struct {
	Mode      Mode      `json:"mode"`
	RespLeft  int       `json:"resp_left"` // 1 if the left option was chosen
	Direction Direction `json:"direction"`
	RT        float64   `json:"rt"` // milliseconds
}

// RespSS converts the left/right answer to "chose smaller-sooner".
func (r Response) RespSS() int {
	if r.Direction == SSLeft {
		return r.RespLeft
	}
	return 1 - r.RespLeft
}

// SubmitResult tells the caller whether to continue after a response.
//
//   - Finished: every session of the run is complete.
//   - NewSession: the current session ended and CurrentSession is next.
//   - neither: keep going in the same trial loop.
type SubmitResult struct {
	Finished       bool
	NewSession     bool
	CurrentSession int
}
