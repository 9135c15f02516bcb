// Package gallery provides the in-memory view over known identities and
// their reference face embeddings that matching runs against.
package gallery

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDimensionMismatch is returned when an embedding's length disagrees with
// the gallery-wide dimensionality. Mismatched vectors are rejected, never
// silently truncated.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// FaceSample is one reference face for an identity. The crop key is an opaque
// reference to the stored crop image, kept for display purposes only.
type FaceSample struct {
	ID        int64
	Embedding []float32
	CropKey   string
	CreatedAt time.Time
}

// Identity is a known person. An identity exclusively owns its samples:
// deleting the identity deletes all of them.
type Identity struct {
	ID       uuid.UUID
	Name     string
	Note     string
	IsSelf   bool
	LastSeen time.Time
	Samples  []FaceSample
}

// HasSamples reports whether the identity owns at least one reference face
// and is therefore eligible for matching and quizzing.
func (id *Identity) HasSamples() bool {
	return len(id.Samples) > 0
}

// Snapshot is an immutable view over the gallery taken at the start of a
// query. A concurrent sample addition is not visible through an existing
// snapshot, so a single query's results stay internally consistent.
//
// Identity order is the insertion order supplied by the gallery provider and
// is the deterministic tie-break order for equal match scores.
type Snapshot struct {
	dim        int
	identities []Identity
}

// NewSnapshot builds a snapshot with the given fixed embedding
// dimensionality. The identities slice is not copied; callers hand over
// ownership and must not mutate it afterwards.
func NewSnapshot(dim int, identities []Identity) *Snapshot {
	return &Snapshot{dim: dim, identities: identities}
}

// Dim returns the gallery-wide embedding dimensionality.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Identities returns the identities in insertion order.
func (s *Snapshot) Identities() []Identity {
	return s.identities
}

// Len returns the number of identities in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.identities)
}

// Empty reports whether the snapshot holds no identities at all. An empty
// gallery is a valid "no known people yet" state, not an error.
func (s *Snapshot) Empty() bool {
	return len(s.identities) == 0
}

// CheckSample validates a candidate embedding against the gallery
// dimensionality before it is committed as a reference sample.
func (s *Snapshot) CheckSample(embedding []float32) error {
	if len(embedding) != s.dim {
		return ErrDimensionMismatch
	}
	return nil
}
