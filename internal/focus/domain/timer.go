package domain

import (
	"fmt"
	"math"
	"time"
)

// TimerState is the persisted focus timer. When IsActive is true EndTime is
// set; expiry is evaluated lazily through CheckExpiry.
type TimerState struct {
	IsActive bool
	EndTime  *time.Time
	Duration *time.Duration
}

// StartTimer returns an active timer ending hours after now.
func StartTimer(now time.Time, hours float64) (TimerState, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return TimerState{}, fmt.Errorf("%w: %v", ErrInvalidDuration, hours)
	}
	d := time.Duration(hours * float64(time.Hour)).Truncate(time.Millisecond)
	if d <= 0 {
		return TimerState{}, fmt.Errorf("%w: %v", ErrInvalidDuration, hours)
	}
	end := now.Add(d)
	return TimerState{IsActive: true, EndTime: &end, Duration: &d}, nil
}

// StoppedTimer returns the inactive state with end time and duration cleared.
func StoppedTimer() TimerState {
	return TimerState{}
}

// CheckExpiry transitions an active timer whose end time has been reached to
// the stopped state. The second return reports whether a transition happened.
// Inactive timers, and active ones without an end time, are returned unchanged.
func (t TimerState) CheckExpiry(now time.Time) (TimerState, bool) {
	if !t.IsActive || t.EndTime == nil {
		return t, false
	}
	if now.Before(*t.EndTime) {
		return t, false
	}
	return StoppedTimer(), true
}

// Remaining is the time left until EndTime, zero when inactive or past due.
func (t TimerState) Remaining(now time.Time) time.Duration {
	if !t.IsActive || t.EndTime == nil {
		return 0
	}
	r := t.EndTime.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// FormatRemaining renders the remaining time as HH:MM:SS for the block page.
func (t TimerState) FormatRemaining(now time.Time) string {
	if !t.IsActive || t.EndTime == nil {
		return "No active timer"
	}
	r := t.EndTime.Sub(now)
	if r <= 0 {
		return "Expired"
	}
	h := int64(r / time.Hour)
	m := int64((r % time.Hour) / time.Minute)
	s := int64((r % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
