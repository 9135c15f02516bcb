package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	// errInvalidRequestBody is the shared message for malformed JSON bodies.
	errInvalidRequestBody = "invalid request body"

	// maxUploadBytes caps photo uploads at 20 MB.
	maxUploadBytes = 20 << 20
)

// sanitizeForLog strips newlines from user-supplied strings before logging
// so a crafted value cannot forge log lines.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readUploadedPhoto extracts the "file" part from a multipart upload,
// applying the upload size cap both to the form parse and the read.
func readUploadedPhoto(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}

// HealthCheck reports liveness for load balancers and probes.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
