package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/quiz"
	"github.com/jkubale/namerecall/internal/schedule"
	"github.com/jkubale/namerecall/internal/store"
)

// sessionTTL is how long an inactive quiz session is kept in memory.
const sessionTTL = time.Hour

// quizSession pairs a driver with its last-touched time for expiry. The
// session driver itself is not safe for concurrent use, so mu serializes
// every driver call; this also keeps recorder persists ordered per session
// when answers arrive concurrently.
type quizSession struct {
	mu      sync.Mutex
	session *quiz.Session
	touched time.Time
}

// QuizHandler manages in-memory quiz sessions over HTTP.
type QuizHandler struct {
	people   store.PeopleReader
	progress store.ProgressStore

	mu       sync.Mutex
	sessions map[uuid.UUID]*quizSession
}

// NewQuizHandler creates a new quiz handler.
func NewQuizHandler(people store.PeopleReader, progress store.ProgressStore) *QuizHandler {
	return &QuizHandler{
		people:   people,
		progress: progress,
		sessions: make(map[uuid.UUID]*quizSession),
	}
}

// buildPool loads all people and their progress into quiz persons.
func (h *QuizHandler) buildPool(r *http.Request) ([]quiz.Person, error) {
	people, err := h.people.ListPeople(r.Context())
	if err != nil {
		return nil, err
	}
	states, err := h.progress.ListStates(r.Context())
	if err != nil {
		return nil, err
	}

	pool := make([]quiz.Person, 0, len(people))
	for _, p := range people {
		if !p.HasSamples() {
			continue
		}
		qp := quiz.Person{ID: p.ID, Name: p.Name, IsSelf: p.IsSelf, CropKey: p.Samples[0].CropKey}
		if st, ok := states[p.ID]; ok {
			qp.Practiced = true
			qp.State = st
		}
		pool = append(pool, qp)
	}
	return pool, nil
}

// recorder persists a quiz answer: SM-2 state update plus a review log row.
// The context deliberately outlives the HTTP request that answered the trial.
func (h *QuizHandler) recorder(personID uuid.UUID, correct bool, latency time.Duration, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, _, err := h.progress.GetState(ctx, personID)
	if err != nil {
		return err
	}
	if err := h.progress.SaveState(ctx, personID, schedule.Record(st, correct, now)); err != nil {
		return err
	}
	return h.progress.RecordReview(ctx, store.Review{
		PersonID:  personID,
		Correct:   correct,
		LatencyMS: latency.Milliseconds(),
	})
}

// TrialResponse represents the active trial shown to the user. CropKey
// references the face crop the front end should display for the question.
type TrialResponse struct {
	PersonID uuid.UUID `json:"person_id"`
	CropKey  string    `json:"crop_key,omitempty"`
	Options  []string  `json:"options"`
	Position int       `json:"position"`
	Total    int       `json:"total"`
}

// StatsResponse summarizes a finished or in-progress session.
type StatsResponse struct {
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	Accuracy        float64 `json:"accuracy"`
}

// StartRequest represents a start-session request.
type StartRequest struct {
	Mode string `json:"mode"` // "all" or "review"
}

// Start handles POST /quiz/sessions.
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	mode := quiz.ModeAll
	switch req.Mode {
	case "", "all":
	case "review":
		mode = quiz.ModeReview
	default:
		respondError(w, http.StatusBadRequest, "mode must be 'all' or 'review'")
		return
	}

	pool, err := h.buildPool(r)
	if err != nil {
		log.Printf("Failed to build quiz pool: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build quiz pool")
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	session, err := quiz.NewSession(pool, mode, h.recorder, rng, nil)
	if errors.Is(err, quiz.ErrEmptyPool) {
		respondError(w, http.StatusUnprocessableEntity, "no quizzable people; add people with face samples first")
		return
	}
	if err != nil {
		log.Printf("Failed to start quiz session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to start quiz session")
		return
	}

	// Read the first trial before the session becomes reachable by other
	// requests.
	firstTrial := h.currentTrial(session)

	id := uuid.New()
	h.mu.Lock()
	h.evictExpired()
	h.sessions[id] = &quizSession{session: session, touched: time.Now()}
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"total":      session.Len(),
		"trial":      firstTrial,
	})
}

// Current handles GET /quiz/sessions/{id}.
func (h *QuizHandler) Current(w http.ResponseWriter, r *http.Request) {
	qs, ok := h.lookup(w, r)
	if !ok {
		return
	}
	qs.mu.Lock()
	defer qs.mu.Unlock()
	session := qs.session

	if session.Done() {
		respondJSON(w, http.StatusOK, map[string]any{
			"done":  true,
			"stats": statsResponse(session),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"done":  false,
		"trial": h.currentTrial(session),
	})
}

// AnswerRequest represents a quiz answer. An empty choice means "don't know".
type AnswerRequest struct {
	Choice string `json:"choice"`
}

// Answer handles POST /quiz/sessions/{id}/answer.
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	qs, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()
	session := qs.session

	correct, err := session.Answer(req.Choice)
	if errors.Is(err, quiz.ErrSessionDone) {
		respondError(w, http.StatusConflict, "session is finished")
		return
	}
	if err != nil {
		// The answer was scored; persisting progress failed.
		log.Printf("Failed to record quiz answer: %v", err)
	}

	resp := map[string]any{
		"correct": correct,
		"done":    session.Done(),
	}
	if session.Done() {
		resp["stats"] = statsResponse(session)
	} else {
		resp["trial"] = h.currentTrial(session)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Skip handles POST /quiz/sessions/{id}/skip.
func (h *QuizHandler) Skip(w http.ResponseWriter, r *http.Request) {
	qs, ok := h.lookup(w, r)
	if !ok {
		return
	}
	qs.mu.Lock()
	defer qs.mu.Unlock()
	session := qs.session

	session.Skip()

	resp := map[string]any{"done": session.Done()}
	if session.Done() {
		resp["stats"] = statsResponse(session)
	} else {
		resp["trial"] = h.currentTrial(session)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Summary handles GET /quiz/sessions/{id}/summary.
func (h *QuizHandler) Summary(w http.ResponseWriter, r *http.Request) {
	qs, ok := h.lookup(w, r)
	if !ok {
		return
	}
	qs.mu.Lock()
	defer qs.mu.Unlock()
	session := qs.session

	type trialSummary struct {
		PersonID  uuid.UUID `json:"person_id"`
		Name      string    `json:"name"`
		Answered  bool      `json:"answered"`
		Skipped   bool      `json:"skipped"`
		Correct   bool      `json:"correct"`
		LatencyMS int64     `json:"latency_ms"`
	}

	trials := session.Trials()
	summaries := make([]trialSummary, 0, len(trials))
	for _, t := range trials {
		summaries = append(summaries, trialSummary{
			PersonID:  t.Person.ID,
			Name:      t.Person.Name,
			Answered:  t.Answered,
			Skipped:   t.Skipped,
			Correct:   t.Correct,
			LatencyMS: t.Latency.Milliseconds(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"done":   session.Done(),
		"stats":  statsResponse(session),
		"trials": summaries,
	})
}

func (h *QuizHandler) currentTrial(session *quiz.Session) *TrialResponse {
	trial, ok := session.Current()
	if !ok {
		return nil
	}
	position := 0
	for _, t := range session.Trials() {
		if t.Answered || t.Skipped {
			position++
		}
	}
	return &TrialResponse{
		PersonID: trial.Person.ID,
		CropKey:  trial.Person.CropKey,
		Options:  trial.Options,
		Position: position + 1,
		Total:    session.Len(),
	}
}

func statsResponse(session *quiz.Session) StatsResponse {
	stats := session.Stats()
	return StatsResponse{
		TotalAttempts:   stats.TotalAttempts,
		CorrectAttempts: stats.CorrectAttempts,
		Accuracy:        stats.Accuracy(),
	}
}

// lookup resolves the {id} URL parameter to a live session. Callers must
// hold the returned session's mu before touching its driver.
func (h *QuizHandler) lookup(w http.ResponseWriter, r *http.Request) (*quizSession, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session ID")
		return nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	qs, ok := h.sessions[id]
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	qs.touched = time.Now()
	return qs, true
}

// evictExpired drops sessions idle past the TTL. Caller holds h.mu.
func (h *QuizHandler) evictExpired() {
	cutoff := time.Now().Add(-sessionTTL)
	for id, qs := range h.sessions {
		if qs.touched.Before(cutoff) {
			delete(h.sessions, id)
		}
	}
}
