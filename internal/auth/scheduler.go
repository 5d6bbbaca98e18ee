package auth

import (
	"context"
	"time"
)

// TickResult tells the flow client whether another poll attempt may proceed
type TickResult int

const (
	// TickProceed means the scheduler slept for the interval and the next
	// poll attempt may go ahead
	TickProceed TickResult = iota
	// TickDeadline means the challenge's expires_in window has elapsed
	TickDeadline
)

// pollSchedule paces token polling according to the interval and expires_in
// values issued with a device code challenge. The provider dictates pacing:
// the client never polls faster than interval and never past the deadline.
type pollSchedule struct {
	interval time.Duration
	deadline time.Time
	now      func() time.Time
}

// newPollSchedule creates a schedule from a device code challenge. A missing
// interval falls back to 5 seconds, the RFC 8628 default.
func newPollSchedule(challenge *DeviceAuthResponse) *pollSchedule {
	interval := time.Duration(challenge.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &pollSchedule{
		interval: interval,
		deadline: time.Now().Add(time.Duration(challenge.ExpiresIn) * time.Second),
		now:      time.Now,
	}
}

// NextTick sleeps for the current interval and reports whether the next poll
// attempt may proceed. The context is observed during the sleep so that
// cancellation latency is bounded by one tick, not the remaining interval.
func (s *pollSchedule) NextTick(ctx context.Context) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickDeadline, err
	}
	if !s.now().Add(s.interval).Before(s.deadline) {
		return TickDeadline, nil
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return TickDeadline, ctx.Err()
	case <-timer.C:
		return TickProceed, nil
	}
}

// SlowDown widens the interval in response to the provider's slow_down
// error. RFC 8628 mandates adding 5 seconds.
func (s *pollSchedule) SlowDown() {
	s.interval += 5 * time.Second
}

// Interval returns the current inter-poll sleep duration
func (s *pollSchedule) Interval() time.Duration {
	return s.interval
}
