package experiment

import "time"

// Clock abstracts time for reaction-time measurement and fixation pauses.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d. It is not cancelable.
	Sleep(d time.Duration)
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
