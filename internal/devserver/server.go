package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"

	"github.com/ddtlab/ddt/internal/design"
	"github.com/ddtlab/ddt/internal/experiment"
)

// StatusSessionExpired is the non-standard "login time-out" status the
// design service uses for unknown or expired sessions.
const StatusSessionExpired = 440

// Design grid, taken from the label table so every proposed delay has an
// exact label.
const (
	minRSS  = 10
	maxRSS  = 780
	stepRSS = 10
	fixedLL = 800
)

// Server is the rehearsal design service.
type Server struct {
	opts     Options
	state    *State
	rng      *rand.Rand
	delays   []float64
	listener net.Listener
	server   *http.Server
}

// NewServer creates a server. Zero option values fall back to one
// session of 20 trials. FirstSession is clamped to SessionCount.
func NewServer(opts Options) *Server {
	if opts.NumMainTrials <= 0 {
		opts.NumMainTrials = 20
	}
	if opts.SessionCount <= 0 {
		opts.SessionCount = 1
	}
	if opts.FirstSession <= 0 {
		opts.FirstSession = 1
	}
	if opts.FirstSession > opts.SessionCount {
		opts.FirstSession = opts.SessionCount
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var delays []float64
	for _, dl := range experiment.DelayLabels {
		if dl.Delay > 0 {
			delays = append(delays, dl.Delay)
		}
	}

	return &Server{
		opts:   opts,
		state:  NewState(opts.FirstSession),
		rng:    rand.New(rand.NewSource(seed)),
		delays: delays,
	}
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(design.PathNextDesign, s.handleNextDesign)
	mux.HandleFunc(design.PathResponse, s.handleResponse)
	mux.HandleFunc("/status", s.handleStatus)

	if s.opts.Logf == nil {
		return mux
	}
	return logRequests(mux, s.opts.Logf)
}

type sessionKey struct{}

// logRequests reports method, path, status and latency of every request,
// plus the session id the handler saw in the query or the body.
func logRequests(h http.Handler, logf func(string, ...any)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session string
		r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, &session))
		m := httpsnoop.CaptureMetrics(h, w, r)
		logf("%s %s %d %s session=%s", r.Method, r.URL.Path, m.Code,
			m.Duration.Round(time.Microsecond), session)
	})
}

// noteSession hands id to logRequests, if it wraps this request.
func noteSession(r *http.Request, id string) {
	if p, ok := r.Context().Value(sessionKey{}).(*string); ok {
		*p = id
	}
}

// Listen binds addr (e.g. "127.0.0.1:5050"; port 0 picks a free one).
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devserver: binding listener: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests until Stop. Call Listen first.
func (s *Server) Start() error {
	err := s.server.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes the listener and all connections.
func (s *Server) Stop() error {
	return s.server.Close()
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNextDesign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	mode := design.Mode(q.Get("mode"))
	sessionID := q.Get("session_id")
	noteSession(r, sessionID)

	if sessionID == "" {
		writeError(w, StatusSessionExpired, "session expired")
		return
	}
	if mode != design.ModeTrain && mode != design.ModeOptimal {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	p := s.state.lookup(sessionID)
	if p.Finished && mode == design.ModeOptimal {
		writeError(w, StatusSessionExpired, "session finished")
		return
	}

	writeJSON(w, http.StatusOK, trialBody{
		Design:    s.randomDesign(),
		Direction: design.Direction(s.rng.Intn(2)),
	})
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req responseBody
	if !readJSON(w, r, &req) {
		return
	}
	noteSession(r, req.SessionID)
	if req.SessionID == "" {
		writeError(w, StatusSessionExpired, "session expired")
		return
	}
	if req.RespLeft == nil || (*req.RespLeft != 0 && *req.RespLeft != 1) {
		writeError(w, http.StatusBadRequest, "resp_left must be 0 or 1")
		return
	}
	if !req.Direction.Valid() {
		writeError(w, http.StatusBadRequest, "direction must be 0 or 1")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	p := s.state.lookup(req.SessionID)

	switch req.Mode {
	case design.ModeTrain:
		p.TrainDone++
		writeJSON(w, http.StatusOK, submitBody{})
	case design.ModeOptimal:
		if p.Finished {
			writeError(w, StatusSessionExpired, "session finished")
			return
		}
		writeJSON(w, http.StatusOK, s.advance(p))
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
	}
}

// advance counts one optimal trial and decides what comes next.
func (s *Server) advance(p *participant) submitBody {
	p.TrialsDone++
	if p.TrialsDone < s.opts.NumMainTrials {
		return submitBody{}
	}

	if p.CurrentSession >= s.opts.SessionCount {
		p.Finished = true
		return submitBody{Finished: true}
	}

	p.CurrentSession++
	p.TrialsDone = 0
	return submitBody{NewSession: true, CurrentSession: p.CurrentSession}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	noteSession(r, id)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	p, ok := s.state.Participants[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, statusBody{
		SessionID:      id,
		CurrentSession: p.CurrentSession,
		TrialsDone:     p.TrialsDone,
		TrainDone:      p.TrainDone,
		Finished:       p.Finished,
	})
}

// randomDesign draws from the grid. Callers hold state.mu, which also
// guards rng.
func (s *Server) randomDesign() design.Design {
	steps := (maxRSS-minRSS)/stepRSS + 1
	return design.Design{
		TSS: 0,
		TLL: s.delays[s.rng.Intn(len(s.delays))],
		RSS: float64(minRSS + stepRSS*s.rng.Intn(steps)),
		RLL: fixedLL,
	}
}

// --- Helpers ---

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "missing body")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
