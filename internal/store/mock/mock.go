// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/schedule"
	"github.com/jkubale/namerecall/internal/store"
)

// MockPeopleStore is an in-memory implementation of store.PeopleWriter.
type MockPeopleStore struct {
	mu     sync.RWMutex
	dim    int
	people map[uuid.UUID]*gallery.Identity
	nextID int64

	// Error injection
	GetError      error
	ListError     error
	CountError    error
	SnapshotError error
	SimilarError  error
	CreateError   error
	UpdateError   error
	DeleteError   error
	SampleError   error
	TouchError    error
}

// NewMockPeopleStore creates a new mock people store accepting embeddings of
// the given dimensionality.
func NewMockPeopleStore(dim int) *MockPeopleStore {
	return &MockPeopleStore{
		dim:    dim,
		people: make(map[uuid.UUID]*gallery.Identity),
	}
}

// AddPerson seeds the store with a fully-formed person.
func (m *MockPeopleStore) AddPerson(p gallery.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people[p.ID] = &p
	for _, s := range p.Samples {
		if s.ID >= m.nextID {
			m.nextID = s.ID + 1
		}
	}
}

func (m *MockPeopleStore) GetPerson(ctx context.Context, id uuid.UUID) (*gallery.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.people[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPeopleStore) GetPersonByName(ctx context.Context, name string) (*gallery.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := match.NormalizeName(name)
	for _, p := range m.people {
		if match.NormalizeName(p.Name) == want {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockPeopleStore) ListPeople(ctx context.Context) ([]gallery.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	people := make([]gallery.Identity, 0, len(m.people))
	for _, p := range m.people {
		people = append(people, *p)
	}
	sort.Slice(people, func(i, j int) bool {
		return match.NormalizeName(people[i].Name) < match.NormalizeName(people[j].Name)
	})
	return people, nil
}

func (m *MockPeopleStore) CountPeople(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.people), nil
}

func (m *MockPeopleStore) CountSamples(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.people {
		count += len(p.Samples)
	}
	return count, nil
}

func (m *MockPeopleStore) Snapshot(ctx context.Context) (*gallery.Snapshot, error) {
	if m.SnapshotError != nil {
		return nil, m.SnapshotError
	}
	people, err := m.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	return gallery.NewSnapshot(m.dim, people), nil
}

func (m *MockPeopleStore) FindSimilarSamples(ctx context.Context, embedding []float32, limit int) ([]store.SampleMatch, error) {
	if m.SimilarError != nil {
		return nil, m.SimilarError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []store.SampleMatch
	for _, p := range m.people {
		for _, s := range p.Samples {
			// Cosine distance = 1 - cosine similarity, matching pgvector's <=> operator.
			sim := match.CosineSimilarity(embedding, s.Embedding)
			matches = append(matches, store.SampleMatch{
				SampleID:   s.ID,
				PersonID:   p.ID,
				PersonName: p.Name,
				Distance:   1 - (2*sim - 1),
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MockPeopleStore) CreatePerson(ctx context.Context, name, note string, isSelf bool) (uuid.UUID, error) {
	if m.CreateError != nil {
		return uuid.Nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.people[id] = &gallery.Identity{ID: id, Name: name, Note: note, IsSelf: isSelf}
	return id, nil
}

func (m *MockPeopleStore) UpdatePerson(ctx context.Context, id uuid.UUID, name, note string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Name = name
	p.Note = note
	return nil
}

func (m *MockPeopleStore) DeletePerson(ctx context.Context, id uuid.UUID) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.people, id)
	return nil
}

func (m *MockPeopleStore) AddFaceSample(ctx context.Context, personID uuid.UUID, embedding []float32, cropKey string) (int64, error) {
	if m.SampleError != nil {
		return 0, m.SampleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[personID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if len(embedding) != m.dim {
		return 0, gallery.ErrDimensionMismatch
	}
	m.nextID++
	p.Samples = append(p.Samples, gallery.FaceSample{
		ID:        m.nextID,
		Embedding: embedding,
		CropKey:   cropKey,
		CreatedAt: time.Now(),
	})
	return m.nextID, nil
}

func (m *MockPeopleStore) DeleteFaceSamples(ctx context.Context, sampleIDs []int64) error {
	if m.SampleError != nil {
		return m.SampleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doomed := make(map[int64]bool, len(sampleIDs))
	for _, id := range sampleIDs {
		doomed[id] = true
	}
	for _, p := range m.people {
		kept := p.Samples[:0]
		for _, s := range p.Samples {
			if !doomed[s.ID] {
				kept = append(kept, s)
			}
		}
		p.Samples = kept
	}
	return nil
}

func (m *MockPeopleStore) TouchLastSeen(ctx context.Context, id uuid.UUID, when time.Time) error {
	if m.TouchError != nil {
		return m.TouchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return store.ErrNotFound
	}
	p.LastSeen = when
	return nil
}

// MockProgressStore is an in-memory implementation of store.ProgressStore.
type MockProgressStore struct {
	mu      sync.RWMutex
	states  map[uuid.UUID]schedule.State
	reviews []store.Review
	nextID  int64

	// Error injection
	GetStateError   error
	SaveStateError  error
	ListStatesError error
	RecordError     error
	ListError       error
	CountError      error
}

// NewMockProgressStore creates a new mock progress store.
func NewMockProgressStore() *MockProgressStore {
	return &MockProgressStore{
		states: make(map[uuid.UUID]schedule.State),
	}
}

func (m *MockProgressStore) GetState(ctx context.Context, personID uuid.UUID) (schedule.State, bool, error) {
	if m.GetStateError != nil {
		return schedule.State{}, false, m.GetStateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[personID]
	if !ok {
		return schedule.NewState(), false, nil
	}
	return st, true, nil
}

func (m *MockProgressStore) SaveState(ctx context.Context, personID uuid.UUID, st schedule.State) error {
	if m.SaveStateError != nil {
		return m.SaveStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[personID] = st
	return nil
}

func (m *MockProgressStore) ListStates(ctx context.Context) (map[uuid.UUID]schedule.State, error) {
	if m.ListStatesError != nil {
		return nil, m.ListStatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make(map[uuid.UUID]schedule.State, len(m.states))
	for id, st := range m.states {
		states[id] = st
	}
	return states, nil
}

func (m *MockProgressStore) RecordReview(ctx context.Context, review store.Review) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	review.ID = m.nextID
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *MockProgressStore) ListReviews(ctx context.Context, personID uuid.UUID, limit int) ([]store.Review, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var reviews []store.Review
	for i := len(m.reviews) - 1; i >= 0 && len(reviews) < limit; i-- {
		if m.reviews[i].PersonID == personID {
			reviews = append(reviews, m.reviews[i])
		}
	}
	return reviews, nil
}

func (m *MockProgressStore) CountReviews(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews), nil
}
