package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/store/mock"
	"github.com/jkubale/namerecall/internal/vision"
)

func newPeopleHandler(people *mock.MockPeopleStore, detector *fakeDetector, encoder *fakeEncoder) (*PeopleHandler, *mock.MockProgressStore) {
	progress := mock.NewMockProgressStore()
	if detector == nil {
		detector = &fakeDetector{}
	}
	if encoder == nil {
		encoder = &fakeEncoder{}
	}
	return NewPeopleHandler(people, progress, detector, encoder), progress
}

func TestPeopleList(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	seedPerson(people, "Amy", 0.9)
	seedPerson(people, "Bob", 0.8)
	handler, _ := newPeopleHandler(people, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		People []PersonResponse `json:"people"`
		Count  int              `json:"count"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("expected count 2, got %d", resp.Count)
	}
	if resp.People[0].Name != "Amy" {
		t.Errorf("expected people sorted by name, got %s first", resp.People[0].Name)
	}
	if resp.People[0].SampleCount != 1 {
		t.Errorf("expected 1 sample, got %d", resp.People[0].SampleCount)
	}
}

func TestPeopleListStoreError(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	people.ListError = errors.New("db down")
	handler, _ := newPeopleHandler(people, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/people", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusInternalServerError)
}

func TestPeopleCreate(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	handler, _ := newPeopleHandler(people, nil, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/people", CreateRequest{Name: "Carol", Note: "from the gym"})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
}

func TestPeopleCreateMissingName(t *testing.T) {
	handler, _ := newPeopleHandler(mock.NewMockPeopleStore(testDim), nil, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/people", CreateRequest{Note: "nameless"})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "name is required")
}

func TestPeopleGetNotFound(t *testing.T) {
	handler, _ := newPeopleHandler(mock.NewMockPeopleStore(testDim), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/people/x", nil)
	req = requestWithChiParams(req, map[string]string{"id": uuid.NewString()})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestPeopleGetInvalidID(t *testing.T) {
	handler, _ := newPeopleHandler(mock.NewMockPeopleStore(testDim), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/people/x", nil)
	req = requestWithChiParams(req, map[string]string{"id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestPeopleUpdateAndDelete(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	id := seedPerson(people, "Dana", 0.7)
	handler, _ := newPeopleHandler(people, nil, nil)

	req := jsonRequest(t, http.MethodPut, "/api/v1/people/x", UpdateRequest{Name: "Dana Lee", Note: "updated"})
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	got, err := people.GetPerson(req.Context(), id)
	if err != nil {
		t.Fatalf("failed to get updated person: %v", err)
	}
	if got.Name != "Dana Lee" {
		t.Errorf("expected updated name, got %s", got.Name)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/people/x", nil)
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec = httptest.NewRecorder()
	handler.Delete(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	count, _ := people.CountPeople(req.Context())
	if count != 0 {
		t.Errorf("expected 0 people after delete, got %d", count)
	}
}

func TestAddSample(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	id := seedPerson(people, "Eve", 0.9)

	detector := &fakeDetector{faces: []vision.DetectedFace{
		{Score: 0.7, Crop: []byte("low")},
		{Score: 0.95, Crop: []byte("high")},
	}}
	encoder := &fakeEncoder{embedding: vecForScore(0.88)}
	handler, _ := newPeopleHandler(people, detector, encoder)

	req := multipartPhotoRequest(t, "/api/v1/people/x/samples", []byte("jpeg-bytes"))
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	handler.AddSample(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)

	got, _ := people.GetPerson(req.Context(), id)
	if len(got.Samples) != 2 {
		t.Fatalf("expected 2 samples after upload, got %d", len(got.Samples))
	}
	if got.LastSeen.IsZero() {
		t.Error("expected last seen to be touched")
	}
}

func TestAddSampleNoFace(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	id := seedPerson(people, "Frank", 0.9)
	handler, _ := newPeopleHandler(people, &fakeDetector{}, nil)

	req := multipartPhotoRequest(t, "/api/v1/people/x/samples", []byte("jpeg-bytes"))
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	handler.AddSample(rec, req)

	assertStatusCode(t, rec, http.StatusUnprocessableEntity)
	assertJSONError(t, rec, "no face detected in photo")
}

func TestAddSampleMissingUpload(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	id := seedPerson(people, "Gina", 0.9)
	handler, _ := newPeopleHandler(people, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/people/x/samples", nil)
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	handler.AddSample(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestDeleteSamples(t *testing.T) {
	people := mock.NewMockPeopleStore(testDim)
	id := seedPerson(people, "Hana", 0.9)
	handler, _ := newPeopleHandler(people, nil, nil)

	req := jsonRequest(t, http.MethodDelete, "/api/v1/people/x/samples", DeleteSamplesRequest{SampleIDs: []int64{1}})
	req = requestWithChiParams(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()
	handler.DeleteSamples(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	got, _ := people.GetPerson(req.Context(), id)
	if len(got.Samples) != 0 {
		t.Errorf("expected 0 samples after delete, got %d", len(got.Samples))
	}
}
