package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/schedule"
	"github.com/jkubale/namerecall/internal/store"
)

// ProgressRepository provides PostgreSQL-backed storage for spaced-repetition
// state and review history.
type ProgressRepository struct {
	pool *Pool
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(pool *Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// GetState loads the scheduler state for a person. The bool reports whether
// the person has been reviewed before.
func (r *ProgressRepository) GetState(ctx context.Context, personID uuid.UUID) (schedule.State, bool, error) {
	var st schedule.State
	err := r.pool.QueryRow(ctx, `
		SELECT ease_factor, interval_days, repetitions, next_review, last_review,
		       total_attempts, correct_attempts
		FROM progress
		WHERE person_id = $1
	`, personID).Scan(
		&st.EaseFactor, &st.IntervalDays, &st.Repetitions, &st.NextReview,
		&st.LastReview, &st.TotalAttempts, &st.CorrectAttempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.NewState(), false, nil
	}
	if err != nil {
		return schedule.State{}, false, fmt.Errorf("query progress: %w", err)
	}
	return st, true, nil
}

// SaveState upserts the scheduler state for a person.
func (r *ProgressRepository) SaveState(ctx context.Context, personID uuid.UUID, st schedule.State) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO progress (person_id, ease_factor, interval_days, repetitions,
		                      next_review, last_review, total_attempts, correct_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id) DO UPDATE SET
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			repetitions = EXCLUDED.repetitions,
			next_review = EXCLUDED.next_review,
			last_review = EXCLUDED.last_review,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts
	`, personID, st.EaseFactor, st.IntervalDays, st.Repetitions,
		st.NextReview, st.LastReview, st.TotalAttempts, st.CorrectAttempts)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// ListStates loads the scheduler state for every reviewed person.
func (r *ProgressRepository) ListStates(ctx context.Context) (map[uuid.UUID]schedule.State, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT person_id, ease_factor, interval_days, repetitions, next_review,
		       last_review, total_attempts, correct_attempts
		FROM progress
	`)
	if err != nil {
		return nil, fmt.Errorf("query progress states: %w", err)
	}
	defer rows.Close()

	states := make(map[uuid.UUID]schedule.State)
	for rows.Next() {
		var id uuid.UUID
		var st schedule.State
		if err := rows.Scan(
			&id, &st.EaseFactor, &st.IntervalDays, &st.Repetitions,
			&st.NextReview, &st.LastReview, &st.TotalAttempts, &st.CorrectAttempts,
		); err != nil {
			return nil, fmt.Errorf("scan progress state: %w", err)
		}
		states[id] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress states: %w", err)
	}
	return states, nil
}

// RecordReview appends one quiz answer to the review history.
func (r *ProgressRepository) RecordReview(ctx context.Context, review store.Review) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reviews (person_id, correct, latency_ms)
		VALUES ($1, $2, $3)
	`, review.PersonID, review.Correct, review.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListReviews returns the most recent reviews for a person, newest first.
func (r *ProgressRepository) ListReviews(ctx context.Context, personID uuid.UUID, limit int) ([]store.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, correct, latency_ms, created_at
		FROM reviews
		WHERE person_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []store.Review
	for rows.Next() {
		var rev store.Review
		if err := rows.Scan(&rev.ID, &rev.PersonID, &rev.Correct, &rev.LatencyMS, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// CountReviews returns the total number of recorded reviews.
func (r *ProgressRepository) CountReviews(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}
