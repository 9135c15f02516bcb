package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/scan"
	"github.com/jkubale/namerecall/internal/store"
	"github.com/jkubale/namerecall/internal/vision"
)

// ScanHandler exposes the ephemeral scan flow over HTTP. Nothing from a scan
// is persisted; the orchestrator holds the latest result in memory until the
// next reset or scan. Committing a confirmed identification is the one
// explicit persistence path, and the client must request it.
type ScanHandler struct {
	orch    *scan.Orchestrator
	people  store.PeopleWriter
	encoder vision.Encoder
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(orch *scan.Orchestrator, people store.PeopleWriter, encoder vision.Encoder) *ScanHandler {
	return &ScanHandler{orch: orch, people: people, encoder: encoder}
}

// ScanMatchResponse is one match candidate for a scanned face.
type ScanMatchResponse struct {
	PersonID uuid.UUID `json:"person_id"`
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
	Tier     string    `json:"tier"`
}

// ScanFaceResponse is one detected face with its match candidates.
type ScanFaceResponse struct {
	Box     map[string]float64  `json:"box"`
	Crop    []byte              `json:"crop,omitempty"`
	Matches []ScanMatchResponse `json:"matches"`
}

// ScanStateResponse represents the current scan state.
type ScanStateResponse struct {
	Phase string             `json:"phase"`
	Error string             `json:"error,omitempty"`
	Faces []ScanFaceResponse `json:"faces,omitempty"`
}

func scanStateResponse(s scan.State) ScanStateResponse {
	resp := ScanStateResponse{
		Phase: s.Phase.String(),
		Error: s.Err,
	}
	for _, face := range s.Results {
		fr := ScanFaceResponse{
			Box: map[string]float64{
				"x": face.Box.X,
				"y": face.Box.Y,
				"w": face.Box.W,
				"h": face.Box.H,
			},
			Crop:    face.Crop,
			Matches: make([]ScanMatchResponse, 0, len(face.Matches)),
		}
		for _, m := range face.Matches {
			fr.Matches = append(fr.Matches, ScanMatchResponse{
				PersonID: m.IdentityID,
				Name:     m.Name,
				Score:    m.Score,
				Tier:     string(m.Tier),
			})
		}
		resp.Faces = append(resp.Faces, fr)
	}
	return resp
}

// State handles GET /scan.
func (h *ScanHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, scanStateResponse(h.orch.State()))
}

// ScanPhoto handles POST /scan/photo. The uploaded photo is matched against
// the gallery and discarded; only the in-memory result survives the request.
func (h *ScanHandler) ScanPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := readUploadedPhoto(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid photo upload")
		return
	}

	err = h.orch.ScanPhoto(r.Context(), scan.NewBytesHandle(data))
	if errors.Is(err, scan.ErrBusy) {
		respondError(w, http.StatusConflict, "scan already in progress")
		return
	}
	if err != nil {
		log.Printf("Scan failed: %v", err)
		respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	respondJSON(w, http.StatusOK, scanStateResponse(h.orch.State()))
}

// CommitRequest confirms one scanned face as a known or new person. Exactly
// one of PersonID and Name must be set; Name creates a new person.
type CommitRequest struct {
	FaceIndex int       `json:"face_index"`
	PersonID  uuid.UUID `json:"person_id,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// Commit handles POST /scan/commit. It persists a confirmed identification
// from the current scan results as a new face sample, creating the person
// first when a name is given, and bumps their last-seen timestamp. The scan
// state is left untouched; the client resets it when done.
func (h *ScanHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	state := h.orch.State()
	if state.Phase != scan.PhaseResults {
		respondError(w, http.StatusConflict, "no scan results to commit")
		return
	}
	if req.FaceIndex < 0 || req.FaceIndex >= len(state.Results) {
		respondError(w, http.StatusBadRequest, "face_index out of range")
		return
	}

	if (req.PersonID == uuid.Nil) == (req.Name == "") {
		respondError(w, http.StatusBadRequest, "exactly one of person_id and name is required")
		return
	}

	ctx := r.Context()
	personID := req.PersonID
	if req.Name != "" {
		id, err := h.people.CreatePerson(ctx, req.Name, "", false)
		if err != nil {
			log.Printf("Failed to create person during commit: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to create person")
			return
		}
		personID = id
	} else if _, err := h.people.GetPerson(ctx, personID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "person not found")
			return
		}
		log.Printf("Failed to load person during commit: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load person")
		return
	}

	face := state.Results[req.FaceIndex]
	embedding, err := h.encoder.GenerateEmbedding(ctx, face.Crop)
	if err != nil {
		log.Printf("Failed to embed committed face: %v", err)
		respondError(w, http.StatusBadGateway, "failed to embed face")
		return
	}

	cropKey := fmt.Sprintf("%s-%d", personID, time.Now().UnixNano())
	sampleID, err := h.people.AddFaceSample(ctx, personID, embedding, cropKey)
	if err != nil {
		log.Printf("Failed to store committed sample: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store sample")
		return
	}

	if err := h.people.TouchLastSeen(ctx, personID, time.Now()); err != nil {
		log.Printf("Failed to update last seen for %s: %v", personID, err)
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"person_id": personID,
		"sample_id": sampleID,
	})
}

// Cancel handles POST /scan/cancel.
func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.orch.Cancel()
	respondJSON(w, http.StatusOK, scanStateResponse(h.orch.State()))
}

// Reset handles POST /scan/reset. It drops any held result and returns the
// orchestrator to idle.
func (h *ScanHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.orch.Reset()
	respondJSON(w, http.StatusOK, scanStateResponse(h.orch.State()))
}
