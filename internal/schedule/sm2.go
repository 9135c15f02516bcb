// Package schedule implements the SM-2 spaced-repetition update rule used to
// decide when the user should next be quizzed on a person.
package schedule

import (
	"math"
	"time"
)

// Ease factor bounds. A fresh state starts at the ceiling; incorrect answers
// walk it down toward the floor.
const (
	DefaultEase = 2.5
	MinEase     = 1.3
	MaxEase     = 2.5

	easeReward  = 0.1
	easePenalty = 0.2
)

// State is the per-identity spaced-repetition bookkeeping. The zero value
// means "never practiced", which consumers treat as distinct from "not due".
type State struct {
	EaseFactor      float64
	IntervalDays    int
	Repetitions     int
	NextReview      time.Time
	LastReview      time.Time // zero until the first recorded outcome
	TotalAttempts   int
	CorrectAttempts int
}

// NewState returns a fresh state for an identity's first quiz exposure.
func NewState() State {
	return State{EaseFactor: DefaultEase}
}

// Reviewed reports whether at least one outcome has been recorded.
func (s State) Reviewed() bool {
	return !s.LastReview.IsZero()
}

// Accuracy is the fraction of correct attempts, 0 when nothing was attempted.
func (s State) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts)
}

// NeedsReview reports whether the next scheduled review has passed.
func (s State) NeedsReview(now time.Time) bool {
	return !s.NextReview.After(now)
}

// DaysUntilReview returns whole days until the next review; negative values
// mean the review is overdue by that many days.
func (s State) DaysUntilReview(now time.Time) int {
	return int(s.NextReview.Sub(now).Hours() / 24)
}

// Record applies one quiz outcome and returns the updated state. It is a
// pure, total function; the caller persists the result.
//
// A `now` earlier than the last review would move the schedule backwards, so
// it is clamped to LastReview instead of rejected. Callers are still expected
// to supply monotonic timestamps.
func Record(s State, correct bool, now time.Time) State {
	if s.EaseFactor == 0 {
		s.EaseFactor = DefaultEase
	}
	if s.Reviewed() && now.Before(s.LastReview) {
		now = s.LastReview
	}

	s.TotalAttempts++
	s.LastReview = now

	if correct {
		s.CorrectAttempts++
		s.Repetitions++
		switch s.Repetitions {
		case 1:
			s.IntervalDays = 1
		case 2:
			s.IntervalDays = 6
		default:
			s.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
		}
		s.EaseFactor = math.Min(MaxEase, s.EaseFactor+easeReward)
	} else {
		s.Repetitions = 0
		s.IntervalDays = 1
		s.EaseFactor = math.Max(MinEase, s.EaseFactor-easePenalty)
	}

	s.NextReview = now.AddDate(0, 0, s.IntervalDays)
	return s
}
