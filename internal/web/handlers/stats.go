package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jkubale/namerecall/internal/store"
)

const statsCacheTTL = time.Minute

// statsCache holds cached stats with expiry.
type statsCache struct {
	mu        sync.RWMutex
	data      *GalleryStatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*GalleryStatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *GalleryStatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler serves gallery and review statistics.
type StatsHandler struct {
	people   store.PeopleReader
	progress store.ProgressStore
	cache    statsCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(people store.PeopleReader, progress store.ProgressStore) *StatsHandler {
	return &StatsHandler{people: people, progress: progress}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data.
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// GalleryStatsResponse represents the statistics response.
type GalleryStatsResponse struct {
	TotalPeople  int `json:"total_people"`
	TotalSamples int `json:"total_samples"`
	TotalReviews int `json:"total_reviews"`
	DueForReview int `json:"due_for_review"`
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()

	people, err := h.people.CountPeople(ctx)
	if err != nil {
		log.Printf("Failed to count people: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	samples, err := h.people.CountSamples(ctx)
	if err != nil {
		log.Printf("Failed to count samples: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	reviews, err := h.progress.CountReviews(ctx)
	if err != nil {
		log.Printf("Failed to count reviews: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	states, err := h.progress.ListStates(ctx)
	if err != nil {
		log.Printf("Failed to list progress states: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	now := time.Now()
	due := 0
	for _, st := range states {
		if st.NeedsReview(now) {
			due++
		}
	}

	stats := &GalleryStatsResponse{
		TotalPeople:  people,
		TotalSamples: samples,
		TotalReviews: reviews,
		DueForReview: due,
	}
	h.cache.set(stats)

	respondJSON(w, http.StatusOK, stats)
}
