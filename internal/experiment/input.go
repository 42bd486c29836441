package experiment

import (
	"context"
	"errors"
	"time"
)

// ErrInputClosed is returned when the key source goes away mid-wait.
var ErrInputClosed = errors.New("input closed")

// KeyEvent is one key press. Key uses terminal key names ("z", "enter",
// " " for the space bar). At is when the press was received; it may be
// zero when the source cannot timestamp.
type KeyEvent struct {
	Key string
	At  time.Time
}

// Input suspends the caller until a key accepted by accept arrives.
// Keys that accept rejects are dropped.
type Input interface {
	WaitKey(ctx context.Context, accept func(key string) bool) (KeyEvent, error)
}

// KeySet is a set of key names.
type KeySet []string

// NewKeySet builds a KeySet of normalized key names.
func NewKeySet(names ...string) KeySet {
	ks := make(KeySet, 0, len(names))
	for _, n := range names {
		ks = append(ks, NormalizeKey(n))
	}
	return ks
}

// NormalizeKey maps configuration key names to terminal key names:
// "space" is " " and "slash" is "/".
func NormalizeKey(name string) string {
	switch name {
	case "space":
		return " "
	case "slash":
		return "/"
	}
	return name
}

// Has reports whether key is in the set.
func (ks KeySet) Has(key string) bool {
	for _, k := range ks {
		if k == key {
			return true
		}
	}
	return false
}

// ChoiceKeys maps keys to the two sides of a choice screen.
type ChoiceKeys struct {
	Left  KeySet
	Right KeySet
}

// Qualifies reports whether key answers a choice screen.
func (c ChoiceKeys) Qualifies(key string) bool {
	return c.Left.Has(key) || c.Right.Has(key)
}

// ChannelInput is an Input fed by a channel of key events, as produced by
// the terminal front ends.
type ChannelInput struct {
	keys <-chan KeyEvent
}

// NewChannelInput creates a ChannelInput reading from keys.
func NewChannelInput(keys <-chan KeyEvent) *ChannelInput {
	return &ChannelInput{keys: keys}
}

// WaitKey discards keys pressed before the call, then blocks until an
// accepted key, ctx cancellation or channel close.
func (in *ChannelInput) WaitKey(ctx context.Context, accept func(key string) bool) (KeyEvent, error) {
	if !in.drain() {
		return KeyEvent{}, ErrInputClosed
	}

	for {
		select {
		case <-ctx.Done():
			return KeyEvent{}, ctx.Err()
		case ev, ok := <-in.keys:
			if !ok {
				return KeyEvent{}, ErrInputClosed
			}
			if accept(ev.Key) {
				return ev, nil
			}
		}
	}
}

// drain empties the buffered keys. It returns false if the channel closed.
func (in *ChannelInput) drain() bool {
	for {
		select {
		case _, ok := <-in.keys:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
