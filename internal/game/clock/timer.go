package clock

import (
	"math"
	"time"
)

// Timer is the started/complete pair carried by every scheduled record.
//
// Invariant: a nil Complete never elapses.
type Timer struct {
	Started  time.Time
	Complete *time.Time
}

// At returns a pointer to now+d, the form used for Complete fields.
func At(now time.Time, d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

// Seconds converts a whole number of seconds into a Duration.
func Seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// Due reports whether the timer has a completion time strictly before now.
//
// Postcondition: returns false whenever Complete is nil.
func (t Timer) Due(now time.Time) bool {
	return t.Complete != nil && t.Complete.Before(now)
}

// Total returns the full scheduled duration, or zero for an open-ended timer.
func (t Timer) Total() time.Duration {
	if t.Complete == nil {
		return 0
	}
	return t.Complete.Sub(t.Started)
}

// Done returns the elapsed fraction of the timer at now, clamped to [0, 1].
// Open-ended and zero-length timers report 0.
func (t Timer) Done(now time.Time) float64 {
	total := t.Total()
	if total <= 0 {
		return 0
	}
	f := float64(now.Sub(t.Started)) / float64(total)
	return math.Max(0, math.Min(1, f))
}

// Rescale returns the new completion time when the timer's full length changes
// to total while keeping the progress already made: the remaining share
// (1 - Done) of total is added to now, rounded to whole seconds.
//
// Precondition: total >= 0.
func (t Timer) Rescale(now time.Time, total time.Duration) time.Time {
	left := math.Round(total.Seconds() * (1 - t.Done(now)))
	return now.Add(time.Duration(left) * time.Second)
}

// Ratio returns total / t.Total(). It returns 1 for open-ended or zero-length
// timers so callers treat them as unchanged.
func (t Timer) Ratio(total time.Duration) float64 {
	old := t.Total()
	if old <= 0 {
		return 1
	}
	return float64(total) / float64(old)
}
