package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/schedule"
	"github.com/jkubale/namerecall/internal/store"
	"github.com/jkubale/namerecall/internal/vision"
)

// PeopleHandler handles CRUD for people and their face samples.
type PeopleHandler struct {
	people   store.PeopleWriter
	progress store.ProgressStore
	detector vision.Detector
	encoder  vision.Encoder
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(people store.PeopleWriter, progress store.ProgressStore, detector vision.Detector, encoder vision.Encoder) *PeopleHandler {
	return &PeopleHandler{
		people:   people,
		progress: progress,
		detector: detector,
		encoder:  encoder,
	}
}

// PersonResponse represents a person in API responses.
type PersonResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Note        string            `json:"note"`
	IsSelf      bool              `json:"is_self"`
	LastSeen    *time.Time        `json:"last_seen,omitempty"`
	SampleCount int               `json:"sample_count"`
	Progress    *ProgressResponse `json:"progress,omitempty"`
}

// ProgressResponse summarizes a person's spaced-repetition state.
type ProgressResponse struct {
	Repetitions  int       `json:"repetitions"`
	IntervalDays int       `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
	NextReview   time.Time `json:"next_review"`
	Accuracy     float64   `json:"accuracy"`
}

func personResponse(p *gallery.Identity, st *schedule.State) PersonResponse {
	resp := PersonResponse{
		ID:          p.ID,
		Name:        p.Name,
		Note:        p.Note,
		IsSelf:      p.IsSelf,
		SampleCount: len(p.Samples),
	}
	if !p.LastSeen.IsZero() {
		t := p.LastSeen
		resp.LastSeen = &t
	}
	if st != nil {
		resp.Progress = &ProgressResponse{
			Repetitions:  st.Repetitions,
			IntervalDays: st.IntervalDays,
			EaseFactor:   st.EaseFactor,
			NextReview:   st.NextReview,
			Accuracy:     st.Accuracy(),
		}
	}
	return resp
}

// List handles GET /people.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.people.ListPeople(r.Context())
	if err != nil {
		log.Printf("Failed to list people: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}

	states, err := h.progress.ListStates(r.Context())
	if err != nil {
		log.Printf("Failed to list progress states: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	responses := make([]PersonResponse, 0, len(people))
	for i := range people {
		var st *schedule.State
		if s, ok := states[people[i].ID]; ok {
			st = &s
		}
		responses = append(responses, personResponse(&people[i], st))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"people": responses,
		"count":  len(responses),
	})
}

// CreateRequest represents a create-person request.
type CreateRequest struct {
	Name   string `json:"name"`
	Note   string `json:"note"`
	IsSelf bool   `json:"is_self"`
}

// Create handles POST /people.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.people.CreatePerson(r.Context(), req.Name, req.Note, req.IsSelf)
	if err != nil {
		log.Printf("Failed to create person %s: %v", sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "failed to create person")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// Get handles GET /people/{id}.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(w, r)
	if !ok {
		return
	}

	person, err := h.people.GetPerson(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		log.Printf("Failed to get person %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get person")
		return
	}

	st, reviewed, err := h.progress.GetState(r.Context(), id)
	if err != nil {
		log.Printf("Failed to get progress for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	var stPtr *schedule.State
	if reviewed {
		stPtr = &st
	}
	respondJSON(w, http.StatusOK, personResponse(person, stPtr))
}

// UpdateRequest represents an update-person request.
type UpdateRequest struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

// Update handles PUT /people/{id}.
func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := h.people.UpdatePerson(r.Context(), id, req.Name, req.Note)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		log.Printf("Failed to update person %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to update person")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete handles DELETE /people/{id}.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(w, r)
	if !ok {
		return
	}

	err := h.people.DeletePerson(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		log.Printf("Failed to delete person %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete person")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddSample handles POST /people/{id}/samples. It accepts a multipart photo,
// detects the most prominent face and stores its embedding for the person.
func (h *PeopleHandler) AddSample(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(w, r)
	if !ok {
		return
	}

	data, err := readUploadedPhoto(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid photo upload")
		return
	}

	faces, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		log.Printf("Face detection failed: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}
	if len(faces) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no face detected in photo")
		return
	}

	// Multiple faces in an enrollment photo: take the highest-scoring one.
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}

	embedding, err := h.encoder.GenerateEmbedding(r.Context(), best.Crop)
	if err != nil {
		log.Printf("Embedding generation failed: %v", err)
		respondError(w, http.StatusBadGateway, "embedding generation failed")
		return
	}

	sampleID, err := h.people.AddFaceSample(r.Context(), id, embedding, fmt.Sprintf("%s-%d", id, time.Now().UnixNano()))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		log.Printf("Failed to store face sample for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to store face sample")
		return
	}

	if err := h.people.TouchLastSeen(r.Context(), id, time.Now()); err != nil {
		log.Printf("Failed to touch last seen for %s: %v", id, err)
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"sample_id":   sampleID,
		"faces_found": len(faces),
	})
}

// DeleteSamplesRequest represents a bulk sample deletion request.
type DeleteSamplesRequest struct {
	SampleIDs []int64 `json:"sample_ids"`
}

// DeleteSamples handles DELETE /people/{id}/samples.
func (h *PeopleHandler) DeleteSamples(w http.ResponseWriter, r *http.Request) {
	if _, ok := parsePersonID(w, r); !ok {
		return
	}

	var req DeleteSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.SampleIDs) == 0 {
		respondError(w, http.StatusBadRequest, "sample_ids is required")
		return
	}

	if err := h.people.DeleteFaceSamples(r.Context(), req.SampleIDs); err != nil {
		log.Printf("Failed to delete face samples: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete face samples")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ReviewResponse represents one recorded quiz answer.
type ReviewResponse struct {
	Correct   bool      `json:"correct"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Reviews handles GET /people/{id}/reviews.
func (h *PeopleHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	reviews, err := h.progress.ListReviews(r.Context(), id, limit)
	if err != nil {
		log.Printf("Failed to list reviews for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	responses := make([]ReviewResponse, 0, len(reviews))
	for _, rev := range reviews {
		responses = append(responses, ReviewResponse{
			Correct:   rev.Correct,
			LatencyMS: rev.LatencyMS,
			CreatedAt: rev.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"reviews": responses})
}

// parsePersonID extracts and validates the {id} URL parameter.
func parsePersonID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid person ID")
		return uuid.Nil, false
	}
	return id, true
}
