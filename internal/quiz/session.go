// Package quiz builds and scores multiple-choice recall sessions over the
// known-people pool, feeding each outcome into the spaced-repetition
// scheduler.
package quiz

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/schedule"
)

// maxDistractors is the number of wrong name choices presented alongside the
// correct one. Smaller pools use as many distractors as exist.
const maxDistractors = 3

// ErrEmptyPool is returned when no quizzable identity is available.
var ErrEmptyPool = errors.New("no quizzable people in the pool")

// ErrSessionDone is returned when answering past the last trial.
var ErrSessionDone = errors.New("quiz session is finished")

// Mode selects which people a session draws from.
type Mode int

const (
	// ModeAll quizzes the whole pool.
	ModeAll Mode = iota
	// ModeReview restricts the pool to people whose next review is due,
	// falling back to the whole pool when nobody is due.
	ModeReview
)

// Person is one quizzable identity together with its scheduling state.
// Practiced distinguishes "never quizzed before" from an existing state.
type Person struct {
	ID        uuid.UUID
	Name      string
	IsSelf    bool
	CropKey   string
	Practiced bool
	State     schedule.State
}

// Trial is one multiple-choice question: which of the presented names
// belongs to the shown face. Trials are transient and scoped to a session.
type Trial struct {
	Person  Person
	Options []string

	Answered bool
	Skipped  bool
	Choice   string
	Correct  bool
	Latency  time.Duration

	startedAt time.Time
}

// Stats aggregates outcomes across one session and is discarded with it.
type Stats struct {
	TotalAttempts   int
	CorrectAttempts int
}

// Accuracy is the session's fraction of correct answers, 0 before any attempt.
func (s Stats) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts)
}

// Recorder receives each trial outcome, typically applying schedule.Record
// and persisting the result. latency is the time from showing the trial to
// the answer. Errors propagate to the caller of Answer; session statistics
// still count the attempt.
type Recorder func(personID uuid.UUID, correct bool, latency time.Duration, now time.Time) error

// Session is a fixed, pre-shuffled sequence of trials. Trial order is
// decided once at session start and never re-shuffled; skipping only marks
// the current trial as passed over.
type Session struct {
	trials   []Trial
	current  int
	stats    Stats
	recorder Recorder
	clock    func() time.Time
}

// NewSession builds a session over the given pool. The pool must contain
// only identities with at least one face sample; people flagged as "self"
// are excluded here by convention. rng drives both the trial order and the
// per-trial option shuffle, so tests can inject a fixed seed.
func NewSession(pool []Person, mode Mode, recorder Recorder, rng *rand.Rand, clock func() time.Time) (*Session, error) {
	if clock == nil {
		clock = time.Now
	}

	candidates := make([]Person, 0, len(pool))
	for _, p := range pool {
		if p.IsSelf {
			continue
		}
		candidates = append(candidates, p)
	}

	selected := candidates
	if mode == ModeReview {
		now := clock()
		due := make([]Person, 0, len(candidates))
		for _, p := range candidates {
			if p.Practiced && p.State.NeedsReview(now) {
				due = append(due, p)
			}
		}
		// Nobody due: fall back to the full pool rather than an empty session.
		if len(due) > 0 {
			selected = due
		}
	}

	if len(selected) == 0 {
		return nil, ErrEmptyPool
	}

	order := rng.Perm(len(selected))
	trials := make([]Trial, 0, len(selected))
	for _, i := range order {
		trials = append(trials, Trial{
			Person:  selected[i],
			Options: buildOptions(selected[i], candidates, rng),
		})
	}

	return &Session{trials: trials, recorder: recorder, clock: clock}, nil
}

// buildOptions picks up to maxDistractors distinct wrong names from the rest
// of the pool and shuffles them together with the correct one, so the right
// answer's position is not predictable.
func buildOptions(correct Person, pool []Person, rng *rand.Rand) []string {
	others := make([]string, 0, len(pool))
	for _, p := range pool {
		if p.ID != correct.ID {
			others = append(others, p.Name)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	n := maxDistractors
	if len(others) < n {
		n = len(others)
	}
	options := append([]string{correct.Name}, others[:n]...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// Len returns the total number of trials in the session.
func (s *Session) Len() int {
	return len(s.trials)
}

// Done reports whether every trial has been answered or skipped.
func (s *Session) Done() bool {
	return s.current >= len(s.trials)
}

// Current returns the active trial. The trial's response timer starts on
// first access.
func (s *Session) Current() (*Trial, bool) {
	if s.Done() {
		return nil, false
	}
	trial := &s.trials[s.current]
	if trial.startedAt.IsZero() {
		trial.startedAt = s.clock()
	}
	return trial, true
}

// Answer scores the given choice against the current trial, forwards the
// outcome to the recorder, and advances. An empty choice is an explicit
// "don't know" and always counts as incorrect.
func (s *Session) Answer(choice string) (bool, error) {
	trial, ok := s.Current()
	if !ok {
		return false, ErrSessionDone
	}

	now := s.clock()
	trial.Answered = true
	trial.Choice = choice
	trial.Latency = now.Sub(trial.startedAt)
	trial.Correct = choice != "" && NormalizeName(choice) == NormalizeName(trial.Person.Name)

	s.stats.TotalAttempts++
	if trial.Correct {
		s.stats.CorrectAttempts++
	}
	s.current++

	if s.recorder != nil {
		if err := s.recorder(trial.Person.ID, trial.Correct, trial.Latency, now); err != nil {
			return trial.Correct, err
		}
	}
	return trial.Correct, nil
}

// DontKnow records an explicit "don't know" for the current trial.
func (s *Session) DontKnow() error {
	_, err := s.Answer("")
	return err
}

// Skip marks the current trial as passed over and advances without
// recording an outcome. The remaining trial order is unchanged.
func (s *Session) Skip() {
	trial, ok := s.Current()
	if !ok {
		return
	}
	trial.Skipped = true
	s.current++
}

// Stats returns the session's accumulated statistics.
func (s *Session) Stats() Stats {
	return s.stats
}

// Trials exposes the trial list for the end-of-session summary; reading it
// has no side effects.
func (s *Session) Trials() []Trial {
	return s.trials
}
