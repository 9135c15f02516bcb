package quiz

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/schedule"
)

var quizT0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testPool(names ...string) []Person {
	pool := make([]Person, 0, len(names))
	for _, n := range names {
		pool = append(pool, Person{ID: uuid.New(), Name: n})
	}
	return pool
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestNewSessionEmptyPool(t *testing.T) {
	if _, err := NewSession(nil, ModeAll, nil, newRand(), nil); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
}

func TestNewSessionExcludesSelf(t *testing.T) {
	pool := testPool("Amy", "Bob")
	pool = append(pool, Person{ID: uuid.New(), Name: "Me", IsSelf: true})

	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 (self excluded)", s.Len())
	}
	for _, trial := range s.Trials() {
		if trial.Person.IsSelf {
			t.Error("self-flagged person made it into the session")
		}
	}
}

func TestSessionCoversWholePool(t *testing.T) {
	pool := testPool("Amy", "Bob", "Carol", "Dana")
	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	seen := map[string]bool{}
	for _, trial := range s.Trials() {
		seen[trial.Person.Name] = true
	}
	if len(seen) != 4 {
		t.Errorf("session covers %d distinct people, want 4", len(seen))
	}
}

func TestTrialOptions(t *testing.T) {
	pool := testPool("Amy", "Bob", "Carol", "Dana", "Eve")
	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for _, trial := range s.Trials() {
		if len(trial.Options) != maxDistractors+1 {
			t.Fatalf("trial for %s has %d options, want %d",
				trial.Person.Name, len(trial.Options), maxDistractors+1)
		}
		found := false
		dups := map[string]bool{}
		for _, opt := range trial.Options {
			if dups[opt] {
				t.Errorf("duplicate option %q for %s", opt, trial.Person.Name)
			}
			dups[opt] = true
			if opt == trial.Person.Name {
				found = true
			}
		}
		if !found {
			t.Errorf("correct name %s missing from options %v", trial.Person.Name, trial.Options)
		}
	}
}

func TestTrialOptionsSmallPool(t *testing.T) {
	// Two people: only one distractor exists, so trials have two options.
	pool := testPool("Amy", "Bob")
	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for _, trial := range s.Trials() {
		if len(trial.Options) != 2 {
			t.Errorf("got %d options, want 2 for a 2-person pool", len(trial.Options))
		}
	}
}

func TestReviewModeSelectsDuePeople(t *testing.T) {
	duePerson := Person{
		ID: uuid.New(), Name: "Due", Practiced: true,
		State: schedule.State{NextReview: quizT0.AddDate(0, 0, -1)},
	}
	notDue := Person{
		ID: uuid.New(), Name: "Fresh", Practiced: true,
		State: schedule.State{NextReview: quizT0.AddDate(0, 0, 5)},
	}

	s, err := NewSession([]Person{duePerson, notDue}, ModeReview, nil, newRand(), fixedClock(quizT0))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 due person", s.Len())
	}
	if s.Trials()[0].Person.Name != "Due" {
		t.Errorf("selected %s, want Due", s.Trials()[0].Person.Name)
	}
}

func TestReviewModeFallsBackToFullPool(t *testing.T) {
	// Four people, none due: review mode quizzes the whole pool anyway.
	pool := make([]Person, 0, 4)
	for _, n := range []string{"A", "B", "C", "D"} {
		pool = append(pool, Person{
			ID: uuid.New(), Name: n, Practiced: true,
			State: schedule.State{NextReview: quizT0.AddDate(0, 0, 3)},
		})
	}

	s, err := NewSession(pool, ModeReview, nil, newRand(), fixedClock(quizT0))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Len() != 4 {
		t.Errorf("Len = %d, want fallback to the full 4-person pool", s.Len())
	}
}

func TestAnswerScoringAndStats(t *testing.T) {
	pool := testPool("Amy", "Bob", "Carol")
	var recorded []bool
	recorder := func(id uuid.UUID, correct bool, latency time.Duration, now time.Time) error {
		recorded = append(recorded, correct)
		return nil
	}

	s, err := NewSession(pool, ModeAll, recorder, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// First trial: answer correctly.
	trial, _ := s.Current()
	correct, err := s.Answer(trial.Person.Name)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !correct {
		t.Error("correct name scored as incorrect")
	}

	// Second trial: answer with a wrong name.
	trial, _ = s.Current()
	wrong := "definitely not " + trial.Person.Name
	if correct, _ := s.Answer(wrong); correct {
		t.Error("wrong name scored as correct")
	}

	// Third trial: explicit don't know.
	if err := s.DontKnow(); err != nil {
		t.Fatalf("DontKnow: %v", err)
	}

	if !s.Done() {
		t.Error("session should be done after all trials")
	}
	stats := s.Stats()
	if stats.TotalAttempts != 3 || stats.CorrectAttempts != 1 {
		t.Errorf("stats = %d/%d, want 1/3", stats.CorrectAttempts, stats.TotalAttempts)
	}
	if stats.Accuracy() < 0.33 || stats.Accuracy() > 0.34 {
		t.Errorf("Accuracy = %v, want 1/3", stats.Accuracy())
	}
	if len(recorded) != 3 {
		t.Fatalf("recorder called %d times, want 3", len(recorded))
	}
	if !recorded[0] || recorded[1] || recorded[2] {
		t.Errorf("recorded outcomes = %v, want [true false false]", recorded)
	}
}

func TestAnswerNormalizesNames(t *testing.T) {
	pool := []Person{
		{ID: uuid.New(), Name: "Jiří Novák"},
		{ID: uuid.New(), Name: "Bob"},
	}

	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for !s.Done() {
		trial, _ := s.Current()
		answer := trial.Person.Name
		if answer == "Jiří Novák" {
			answer = "jiri  novak" // no diacritics, extra whitespace
		}
		correct, err := s.Answer(answer)
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if !correct {
			t.Errorf("normalized answer for %q scored as incorrect", trial.Person.Name)
		}
	}
}

func TestSkipDoesNotRecordOrReorder(t *testing.T) {
	pool := testPool("Amy", "Bob", "Carol")
	recorderCalls := 0
	recorder := func(id uuid.UUID, correct bool, latency time.Duration, now time.Time) error {
		recorderCalls++
		return nil
	}

	s, err := NewSession(pool, ModeAll, recorder, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// Note the full planned order, then skip the first trial.
	planned := make([]uuid.UUID, 0, s.Len())
	for _, trial := range s.Trials() {
		planned = append(planned, trial.Person.ID)
	}

	s.Skip()

	if s.Trials()[0].Skipped != true {
		t.Error("skipped trial not marked as passed over")
	}
	if recorderCalls != 0 {
		t.Errorf("skip recorded %d outcomes, want 0", recorderCalls)
	}
	if s.Stats().TotalAttempts != 0 {
		t.Error("skip counted as an attempt")
	}

	// The remaining trials keep their original order.
	trial, _ := s.Current()
	if trial.Person.ID != planned[1] {
		t.Error("skip reordered the remaining trials")
	}
}

func TestAnswerLatencyMeasured(t *testing.T) {
	pool := testPool("Amy", "Bob")

	now := quizT0
	clock := func() time.Time { return now }

	s, err := NewSession(pool, ModeAll, nil, newRand(), clock)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	trial, _ := s.Current() // timer starts here
	now = now.Add(3 * time.Second)
	if _, err := s.Answer(trial.Person.Name); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if trial.Latency != 3*time.Second {
		t.Errorf("Latency = %v, want 3s", trial.Latency)
	}
}

func TestAnswerAfterDone(t *testing.T) {
	pool := testPool("Amy", "Bob")
	s, err := NewSession(pool, ModeAll, nil, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	for !s.Done() {
		s.Skip()
	}

	if _, err := s.Answer("Amy"); !errors.Is(err, ErrSessionDone) {
		t.Errorf("Answer after done = %v, want ErrSessionDone", err)
	}
}

func TestRecorderErrorPropagates(t *testing.T) {
	pool := testPool("Amy", "Bob")
	recorder := func(id uuid.UUID, correct bool, latency time.Duration, now time.Time) error {
		return errors.New("store down")
	}

	s, err := NewSession(pool, ModeAll, recorder, newRand(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	trial, _ := s.Current()
	if _, err := s.Answer(trial.Person.Name); err == nil {
		t.Error("recorder error did not propagate")
	}
	// The attempt still counts toward session statistics.
	if s.Stats().TotalAttempts != 1 {
		t.Errorf("TotalAttempts = %d, want 1", s.Stats().TotalAttempts)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Amy", "amy"},
		{"Jiří Novák", "jiri novak"},
		{"  Bob   Smith ", "bob smith"},
		{"ÉLODIE", "elodie"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
