package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client talks to the design service over HTTP. It never retries: every
// failure is reported as a *SessionError and the caller ends the run.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the service rooted at baseURL.
// A non-positive timeout leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the payload of a non-200 answer.
type errorBody struct {
	Error string `json:"error"`
}

// trialBody mirrors Trial with a nullable design so a missing one is caught.
type trialBody struct {
	Design    *Design   `json:"design"`
	Direction Direction `json:"direction"`
}

// responseBody is the POST payload for a submitted response.
type responseBody struct {
	Response
	SessionID string `json:"session_id"`
}

// submitBody mirrors SubmitResult; current_session is optional on the wire.
type submitBody struct {
	Finished       bool `json:"finished"`
	NewSession     bool `json:"new_session"`
	CurrentSession *int `json:"current_session"`
}

// NextDesign asks the service for the next trial in the given mode.
func (c *Client) NextDesign(ctx context.Context, mode Mode, sessionID string) (*Trial, error) {
	q := url.Values{}
	q.Set("mode", string(mode))
	q.Set("session_id", sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathNextDesign+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &SessionError{Op: OpNextDesign, Err: err}
	}

	var body trialBody
	if err := c.do(req, OpNextDesign, &body); err != nil {
		return nil, err
	}
	if body.Design == nil {
		return nil, &SessionError{Op: OpNextDesign, Message: "response has no design"}
	}
	if !body.Direction.Valid() {
		return nil, &SessionError{Op: OpNextDesign, Message: fmt.Sprintf("invalid direction %d", body.Direction)}
	}

	return &Trial{Design: *body.Design, Direction: body.Direction}, nil
}

// SubmitResponse sends one trial's response and reports how the run
// should continue.
func (c *Client) SubmitResponse(ctx context.Context, resp Response, sessionID string) (*SubmitResult, error) {
	payload, err := json.Marshal(responseBody{Response: resp, SessionID: sessionID})
	if err != nil {
		return nil, &SessionError{Op: OpSubmit, Err: fmt.Errorf("marshal response: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathResponse, bytes.NewReader(payload))
	if err != nil {
		return nil, &SessionError{Op: OpSubmit, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var body submitBody
	if err := c.do(req, OpSubmit, &body); err != nil {
		return nil, err
	}

	result := &SubmitResult{Finished: body.Finished, NewSession: body.NewSession}
	if body.NewSession && !body.Finished {
		if body.CurrentSession == nil {
			return nil, &SessionError{Op: OpSubmit, Message: "new_session without current_session"}
		}
		result.CurrentSession = *body.CurrentSession
	} else if body.CurrentSession != nil {
		result.CurrentSession = *body.CurrentSession
	}

	return result, nil
}

// do executes req and decodes a 200 JSON body into v. Everything else
// becomes a *SessionError.
func (c *Client) do(req *http.Request, op string, v any) error {
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Let callers tell a quit apart from a broken service.
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return &SessionError{Op: op, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return &SessionError{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if res.StatusCode != http.StatusOK {
		var eb errorBody
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &SessionError{Op: op, StatusCode: res.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &SessionError{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}
