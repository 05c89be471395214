// Package runs drives a remote assistant run from message submission to a
// resolved reply: send, start, poll to a terminal state, extract and clean
// the answer. The orchestrator never surfaces a raw remote error to its
// caller; every path resolves to either usable text or a safe fallback.
//
// This file holds the polling policy. It is a pure function of the attempt
// number so the schedule can be tested without a clock or an I/O loop.
package runs

import (
	"math"
	"time"
)

// PollSchedule describes geometric backoff: the wait before poll attempt n is
// Initial multiplied by Growth^n, capped at Max.
type PollSchedule struct {
	Initial time.Duration
	Growth  float64
	Max     time.Duration
}

// DefaultPollSchedule starts fast while the run is likely queued and settles
// at a gentle steady-state interval for long generations.
var DefaultPollSchedule = PollSchedule{
	Initial: 500 * time.Millisecond,
	Growth:  1.5,
	Max:     5 * time.Second,
}

// Interval returns the wait before poll attempt n (0-based).
func (s PollSchedule) Interval(attempt int) time.Duration {
	if attempt <= 0 {
		return s.Initial
	}
	d := float64(s.Initial) * math.Pow(s.Growth, float64(attempt))
	if d < 0 || d > float64(s.Max) {
		return s.Max
	}
	return time.Duration(d)
}
