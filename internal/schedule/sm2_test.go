package schedule

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRecordFirstCorrect(t *testing.T) {
	s := Record(NewState(), true, t0)

	if s.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", s.Repetitions)
	}
	if s.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1", s.IntervalDays)
	}
	if s.EaseFactor != MaxEase {
		t.Errorf("EaseFactor = %v, want capped at %v", s.EaseFactor, MaxEase)
	}
	if !s.NextReview.Equal(t0.AddDate(0, 0, 1)) {
		t.Errorf("NextReview = %v, want %v", s.NextReview, t0.AddDate(0, 0, 1))
	}
	if s.TotalAttempts != 1 || s.CorrectAttempts != 1 {
		t.Errorf("attempts = %d/%d, want 1/1", s.CorrectAttempts, s.TotalAttempts)
	}
	if !s.LastReview.Equal(t0) {
		t.Errorf("LastReview = %v, want %v", s.LastReview, t0)
	}
}

func TestRecordCorrectStreakIntervals(t *testing.T) {
	// With ease pinned at the 2.5 cap the interval sequence is
	// 1, 6, round(6*2.5)=15, round(15*2.5)=38, round(38*2.5)=95.
	want := []int{1, 6, 15, 38, 95}

	s := NewState()
	now := t0
	for i, expected := range want {
		s = Record(s, true, now)
		if s.IntervalDays != expected {
			t.Errorf("step %d: IntervalDays = %d, want %d", i+1, s.IntervalDays, expected)
		}
		if s.Repetitions != i+1 {
			t.Errorf("step %d: Repetitions = %d, want %d", i+1, s.Repetitions, i+1)
		}
		now = s.NextReview
	}
}

func TestRecordIncorrectResetsStreak(t *testing.T) {
	s := NewState()
	now := t0
	for i := 0; i < 4; i++ {
		s = Record(s, true, now)
		now = s.NextReview
	}

	s = Record(s, false, now)

	if s.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0 after incorrect", s.Repetitions)
	}
	if s.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1 after incorrect", s.IntervalDays)
	}
	if s.TotalAttempts != 5 || s.CorrectAttempts != 4 {
		t.Errorf("attempts = %d/%d, want 4/5", s.CorrectAttempts, s.TotalAttempts)
	}
}

func TestRecordCorrectCorrectIncorrect(t *testing.T) {
	// From a fresh state: correct, correct, incorrect gives intervals
	// 1, 6, 1 and the ease caps at 2.5 then drops to 2.3.
	s := NewState()

	s = Record(s, true, t0)
	if s.IntervalDays != 1 || s.EaseFactor != 2.5 {
		t.Errorf("after 1st correct: interval=%d ease=%v, want 1/2.5", s.IntervalDays, s.EaseFactor)
	}

	s = Record(s, true, s.NextReview)
	if s.IntervalDays != 6 || s.EaseFactor != 2.5 {
		t.Errorf("after 2nd correct: interval=%d ease=%v, want 6/2.5", s.IntervalDays, s.EaseFactor)
	}

	s = Record(s, false, s.NextReview)
	if s.IntervalDays != 1 {
		t.Errorf("after incorrect: interval=%d, want 1", s.IntervalDays)
	}
	if math.Abs(s.EaseFactor-2.3) > 1e-9 {
		t.Errorf("after incorrect: ease=%v, want 2.3", s.EaseFactor)
	}
}

func TestEaseFactorFloor(t *testing.T) {
	s := NewState()
	now := t0
	for i := 0; i < 10; i++ {
		s = Record(s, false, now)
		now = now.Add(time.Hour)
		if s.EaseFactor < MinEase-1e-9 {
			t.Fatalf("EaseFactor = %v dropped below floor %v", s.EaseFactor, MinEase)
		}
	}
	if math.Abs(s.EaseFactor-MinEase) > 1e-9 {
		t.Errorf("EaseFactor = %v, want floored at %v", s.EaseFactor, MinEase)
	}
}

func TestAccuracy(t *testing.T) {
	s := NewState()
	if s.Accuracy() != 0 {
		t.Errorf("fresh state Accuracy = %v, want 0", s.Accuracy())
	}

	s = Record(s, true, t0)
	s = Record(s, false, t0.Add(time.Hour))
	s = Record(s, true, t0.Add(2*time.Hour))
	s = Record(s, true, t0.Add(3*time.Hour))

	if math.Abs(s.Accuracy()-0.75) > 1e-9 {
		t.Errorf("Accuracy = %v, want 0.75", s.Accuracy())
	}
	if s.Accuracy() < 0 || s.Accuracy() > 1 {
		t.Errorf("Accuracy = %v out of [0,1]", s.Accuracy())
	}
}

func TestNeedsReview(t *testing.T) {
	s := Record(NewState(), true, t0) // next review = t0 + 1 day

	if s.NeedsReview(t0) {
		t.Error("state should not be due immediately after review")
	}
	if !s.NeedsReview(t0.AddDate(0, 0, 1)) {
		t.Error("state should be due exactly at NextReview")
	}
	if !s.NeedsReview(t0.AddDate(0, 0, 3)) {
		t.Error("state should be due after NextReview passed")
	}
}

func TestDaysUntilReview(t *testing.T) {
	s := Record(NewState(), true, t0)
	s = Record(s, true, s.NextReview) // interval 6 days

	if d := s.DaysUntilReview(s.LastReview); d != 6 {
		t.Errorf("DaysUntilReview at review time = %d, want 6", d)
	}
	if d := s.DaysUntilReview(s.NextReview.AddDate(0, 0, 2)); d != -2 {
		t.Errorf("DaysUntilReview 2 days overdue = %d, want -2", d)
	}
}

func TestRecordClampsBackwardsTime(t *testing.T) {
	s := Record(NewState(), true, t0)

	// A now earlier than the last review is clamped, not applied.
	s = Record(s, true, t0.Add(-48*time.Hour))

	if !s.LastReview.Equal(t0) {
		t.Errorf("LastReview = %v, want clamped to %v", s.LastReview, t0)
	}
	if s.NextReview.Before(s.LastReview) {
		t.Error("NextReview moved before LastReview")
	}
}

func TestRecordZeroValueState(t *testing.T) {
	// The zero value (identity quizzed before any state was created) must
	// behave like a fresh state.
	var s State
	s = Record(s, true, t0)

	if s.EaseFactor != DefaultEase {
		t.Errorf("EaseFactor = %v, want default %v", s.EaseFactor, DefaultEase)
	}
	if s.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1", s.IntervalDays)
	}
}
