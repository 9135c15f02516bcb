package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/store/mock"
	"github.com/jkubale/namerecall/internal/vision"
)

// Test galleries use tiny 2-d embeddings; [1,0] is the probe direction and
// vecForScore builds a unit vector whose normalized similarity to it is the
// given score.
const testDim = 2

var probeVec = []float32{1, 0}

func vecForScore(score float64) []float32 {
	cos := 2*score - 1
	sin := 1 - cos*cos
	if sin < 0 {
		sin = 0
	}
	return []float32{float32(cos), float32(sqrt64(sin))}
}

func sqrt64(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for range 32 {
		x = (x + v/x) / 2
	}
	return x
}

// seedPerson adds a person with one face sample to the mock store.
func seedPerson(s *mock.MockPeopleStore, name string, score float64) uuid.UUID {
	id := uuid.New()
	s.AddPerson(gallery.Identity{
		ID:   id,
		Name: name,
		Samples: []gallery.FaceSample{
			{ID: 1, Embedding: vecForScore(score)},
		},
	})
	return id
}

// fakeDetector returns canned faces or an error.
type fakeDetector struct {
	faces []vision.DetectedFace
	err   error
}

func (d *fakeDetector) DetectFaces(ctx context.Context, image []byte) ([]vision.DetectedFace, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.faces, nil
}

// fakeEncoder returns a canned embedding or an error.
type fakeEncoder struct {
	embedding []float32
	err       error
}

func (e *fakeEncoder) GenerateEmbedding(ctx context.Context, faceCrop []byte) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.embedding, nil
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartPhotoRequest creates a multipart upload request with a "file" part.
func multipartPhotoRequest(t *testing.T, path string, photo []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(photo)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
