// Package store defines the persistence interfaces for people, face samples
// and review progress. The postgres subpackage provides the production
// implementation, the mock subpackage an in-memory one for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/schedule"
)

// ErrNotFound is returned when a requested person does not exist.
var ErrNotFound = errors.New("person not found")

// Review is one recorded quiz answer for a person.
type Review struct {
	ID        int64
	PersonID  uuid.UUID
	Correct   bool
	LatencyMS int64
	CreatedAt time.Time
}

// SampleMatch is a nearest-neighbor hit from the stored face samples,
// computed server-side with pgvector cosine distance.
type SampleMatch struct {
	SampleID   int64
	PersonID   uuid.UUID
	PersonName string
	Distance   float64
}

// PeopleReader provides read-only access to people and their face samples.
type PeopleReader interface {
	// GetPerson retrieves a person with all face samples. Returns ErrNotFound
	// if no such person exists.
	GetPerson(ctx context.Context, id uuid.UUID) (*gallery.Identity, error)
	// GetPersonByName retrieves a person by normalized name. Returns
	// ErrNotFound if no such person exists.
	GetPersonByName(ctx context.Context, name string) (*gallery.Identity, error)
	// ListPeople retrieves all people with their face samples.
	ListPeople(ctx context.Context) ([]gallery.Identity, error)
	// CountPeople returns the total number of people stored.
	CountPeople(ctx context.Context) (int, error)
	// CountSamples returns the total number of face samples stored.
	CountSamples(ctx context.Context) (int, error)
	// Snapshot loads the whole gallery as an immutable matching snapshot.
	Snapshot(ctx context.Context) (*gallery.Snapshot, error)
	// FindSimilarSamples finds the face samples closest to the given
	// embedding using cosine distance.
	FindSimilarSamples(ctx context.Context, embedding []float32, limit int) ([]SampleMatch, error)
}

// PeopleWriter provides write access to people and their face samples.
type PeopleWriter interface {
	PeopleReader

	// CreatePerson stores a new person and returns the generated ID.
	CreatePerson(ctx context.Context, name, note string, isSelf bool) (uuid.UUID, error)
	// UpdatePerson updates a person's name and note.
	UpdatePerson(ctx context.Context, id uuid.UUID, name, note string) error
	// DeletePerson removes a person and all dependent rows.
	DeletePerson(ctx context.Context, id uuid.UUID) error
	// AddFaceSample stores a face embedding for a person and returns the
	// sample ID.
	AddFaceSample(ctx context.Context, personID uuid.UUID, embedding []float32, cropKey string) (int64, error)
	// DeleteFaceSamples removes the given samples.
	DeleteFaceSamples(ctx context.Context, sampleIDs []int64) error
	// TouchLastSeen updates a person's last-seen timestamp.
	TouchLastSeen(ctx context.Context, id uuid.UUID, when time.Time) error
}

// ProgressStore provides access to spaced-repetition state and review history.
type ProgressStore interface {
	// GetState loads the scheduler state for a person. The bool reports
	// whether the person has been reviewed before.
	GetState(ctx context.Context, personID uuid.UUID) (schedule.State, bool, error)
	// SaveState upserts the scheduler state for a person.
	SaveState(ctx context.Context, personID uuid.UUID, st schedule.State) error
	// ListStates loads the scheduler state for every reviewed person.
	ListStates(ctx context.Context) (map[uuid.UUID]schedule.State, error)
	// RecordReview appends one quiz answer to the review history.
	RecordReview(ctx context.Context, review Review) error
	// ListReviews returns the most recent reviews for a person, newest first.
	ListReviews(ctx context.Context, personID uuid.UUID, limit int) ([]Review, error)
	// CountReviews returns the total number of recorded reviews.
	CountReviews(ctx context.Context) (int, error)
}
