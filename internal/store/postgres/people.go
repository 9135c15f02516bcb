package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/store"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PeopleRepository provides PostgreSQL-backed storage for people and their
// face samples. Embeddings are stored as pgvector columns so similarity
// search runs server-side.
type PeopleRepository struct {
	pool *Pool
	dim  int
}

// NewPeopleRepository creates a repository that accepts embeddings of the
// given dimensionality.
func NewPeopleRepository(pool *Pool, dim int) *PeopleRepository {
	return &PeopleRepository{pool: pool, dim: dim}
}

// VerifyEmbeddingDim checks the configured dimensionality against the
// vector column the migrations created. pgvector keeps the declared
// dimension in the column's type modifier, so a mismatch surfaces here at
// startup instead of as a raw insert error on the first sample.
func (r *PeopleRepository) VerifyEmbeddingDim(ctx context.Context) error {
	var schemaDim int
	err := r.pool.QueryRow(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'face_samples'::regclass AND attname = 'embedding'
	`).Scan(&schemaDim)
	if err != nil {
		return fmt.Errorf("read face_samples embedding dimension: %w", err)
	}
	if schemaDim != r.dim {
		return fmt.Errorf("VISION_EMBEDDING_DIM is %d but face_samples.embedding is vector(%d); re-create the schema or fix the env var", r.dim, schemaDim)
	}
	return nil
}

// GetPerson retrieves a person with all face samples.
func (r *PeopleRepository) GetPerson(ctx context.Context, id uuid.UUID) (*gallery.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, note, is_self, last_seen
		FROM people
		WHERE id = $1
	`, id)

	person, err := scanPerson(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadSamples(ctx, person); err != nil {
		return nil, err
	}
	return person, nil
}

// GetPersonByName retrieves a person by normalized name.
func (r *PeopleRepository) GetPersonByName(ctx context.Context, name string) (*gallery.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, note, is_self, last_seen
		FROM people
		WHERE name_normalized = $1
	`, match.NormalizeName(name))

	person, err := scanPerson(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadSamples(ctx, person); err != nil {
		return nil, err
	}
	return person, nil
}

// ListPeople retrieves all people with their face samples, ordered by name.
func (r *PeopleRepository) ListPeople(ctx context.Context) ([]gallery.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, note, is_self, last_seen
		FROM people
		ORDER BY name_normalized
	`)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var people []gallery.Identity
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var p gallery.Identity
		var lastSeen sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.Note, &p.IsSelf, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		if lastSeen.Valid {
			p.LastSeen = lastSeen.Time
		}
		index[p.ID] = len(people)
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}

	if len(people) == 0 {
		return people, nil
	}

	// One query for all samples instead of one per person.
	sampleRows, err := r.pool.Query(ctx, `
		SELECT id, person_id, embedding, crop_key, created_at
		FROM face_samples
		ORDER BY person_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query face samples: %w", err)
	}
	defer sampleRows.Close()

	for sampleRows.Next() {
		var personID uuid.UUID
		sample, err := scanSample(sampleRows, &personID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[personID]; ok {
			people[i].Samples = append(people[i].Samples, sample)
		}
	}
	if err := sampleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face samples: %w", err)
	}

	return people, nil
}

// CountPeople returns the total number of people stored.
func (r *PeopleRepository) CountPeople(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM people").Scan(&count); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return count, nil
}

// CountSamples returns the total number of face samples stored.
func (r *PeopleRepository) CountSamples(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_samples").Scan(&count); err != nil {
		return 0, fmt.Errorf("count face samples: %w", err)
	}
	return count, nil
}

// Snapshot loads the whole gallery as an immutable matching snapshot.
func (r *PeopleRepository) Snapshot(ctx context.Context) (*gallery.Snapshot, error) {
	people, err := r.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	return gallery.NewSnapshot(r.dim, people), nil
}

// FindSimilarSamples finds the face samples closest to the given embedding
// using pgvector cosine distance.
func (r *PeopleRepository) FindSimilarSamples(ctx context.Context, embedding []float32, limit int) ([]store.SampleMatch, error) {
	if len(embedding) != r.dim {
		return nil, gallery.ErrDimensionMismatch
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.person_id, p.name, s.embedding <=> $1::vector AS distance
		FROM face_samples s
		JOIN people p ON p.id = s.person_id
		ORDER BY distance
		LIMIT $2
	`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar samples: %w", err)
	}
	defer rows.Close()

	var matches []store.SampleMatch
	for rows.Next() {
		var m store.SampleMatch
		if err := rows.Scan(&m.SampleID, &m.PersonID, &m.PersonName, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan sample match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample matches: %w", err)
	}

	return matches, nil
}

// CreatePerson stores a new person and returns the generated ID.
func (r *PeopleRepository) CreatePerson(ctx context.Context, name, note string, isSelf bool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO people (id, name, name_normalized, note, is_self)
		VALUES ($1, $2, $3, $4, $5)
	`, id, name, match.NormalizeName(name), note, isSelf)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert person: %w", err)
	}
	return id, nil
}

// UpdatePerson updates a person's name and note.
func (r *PeopleRepository) UpdatePerson(ctx context.Context, id uuid.UUID, name, note string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE people SET name = $1, name_normalized = $2, note = $3
		WHERE id = $4
	`, name, match.NormalizeName(name), note, id)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return requireRowAffected(result)
}

// DeletePerson removes a person. Face samples, progress and reviews cascade.
func (r *PeopleRepository) DeletePerson(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM people WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return requireRowAffected(result)
}

// AddFaceSample stores a face embedding for a person.
func (r *PeopleRepository) AddFaceSample(ctx context.Context, personID uuid.UUID, embedding []float32, cropKey string) (int64, error) {
	if len(embedding) != r.dim {
		return 0, gallery.ErrDimensionMismatch
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO face_samples (person_id, embedding, crop_key)
		VALUES ($1, $2::vector, $3)
		RETURNING id
	`, personID, pgvector.NewVector(embedding), cropKey).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert face sample: %w", err)
	}
	return id, nil
}

// DeleteFaceSamples removes the given samples.
func (r *PeopleRepository) DeleteFaceSamples(ctx context.Context, sampleIDs []int64) error {
	if len(sampleIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, "DELETE FROM face_samples WHERE id = ANY($1)", pq.Array(sampleIDs))
	if err != nil {
		return fmt.Errorf("delete face samples: %w", err)
	}
	return nil
}

// TouchLastSeen updates a person's last-seen timestamp.
func (r *PeopleRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, when time.Time) error {
	result, err := r.pool.Exec(ctx, "UPDATE people SET last_seen = $1 WHERE id = $2", when, id)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return requireRowAffected(result)
}

func (r *PeopleRepository) loadSamples(ctx context.Context, person *gallery.Identity) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, embedding, crop_key, created_at
		FROM face_samples
		WHERE person_id = $1
		ORDER BY id
	`, person.ID)
	if err != nil {
		return fmt.Errorf("query face samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var personID uuid.UUID
		sample, err := scanSample(rows, &personID)
		if err != nil {
			return err
		}
		person.Samples = append(person.Samples, sample)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate face samples: %w", err)
	}
	return nil
}

func scanPerson(row *sql.Row) (*gallery.Identity, error) {
	var p gallery.Identity
	var lastSeen sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Note, &p.IsSelf, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	if lastSeen.Valid {
		p.LastSeen = lastSeen.Time
	}
	return &p, nil
}

func scanSample(rows *sql.Rows, personID *uuid.UUID) (gallery.FaceSample, error) {
	var s gallery.FaceSample
	var vec pgvector.Vector
	if err := rows.Scan(&s.ID, personID, &vec, &s.CropKey, &s.CreatedAt); err != nil {
		return gallery.FaceSample{}, fmt.Errorf("scan face sample: %w", err)
	}
	s.Embedding = vec.Slice()
	return s, nil
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
