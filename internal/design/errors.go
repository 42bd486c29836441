package design

import (
	"errors"
	"fmt"
)

// Operation names used in SessionError.
const (
	OpNextDesign = "next design"
	OpSubmit     = "submit response"
)

// SessionError is returned for any failed exchange with the design
// service: a non-200 status, a transport failure or a payload that could
// not be understood. It is always fatal to the run.
type SessionError struct {
	Op         string
	StatusCode int    // 0 when no HTTP status was received
	Message    string // server supplied error text, if any
	Err        error
}

func (e *SessionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsSessionError reports whether err is or wraps a *SessionError.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}
