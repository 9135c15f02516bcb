package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultServiceURL = "http://localhost:8000"

// ServiceClient talks to the external face service over HTTP. It implements
// both Detector and Encoder.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient creates a client for the face service.
func NewServiceClient(baseURL string) *ServiceClient {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	return &ServiceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// detectionResponse is the response from the face detection endpoint. Boxes
// arrive in normalized bottom-left origin coordinates.
type detectionResponse struct {
	FacesCount int `json:"faces_count"`
	Faces      []struct {
		Box   Box     `json:"box"`
		Score float64 `json:"score"`
	} `json:"faces"`
}

// embeddingResponse is the response from the embedding endpoint.
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *ServiceClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces uploads the image, then extracts a local crop for each
// reported box. A face whose crop cannot be extracted is dropped; a
// detection-level failure is returned as an error for the whole frame.
func (c *ServiceClient) DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error) {
	body, err := c.postMultipartImage(ctx, "/detect/faces", imageData)
	if err != nil {
		return nil, err
	}

	var detResp detectionResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(detResp.Faces) == 0 {
		return nil, nil
	}

	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}

	// A face whose crop fails is dropped, but when every crop fails the
	// frame did contain faces and must not look like an empty detection.
	faces := make([]DetectedFace, 0, len(detResp.Faces))
	var cropErr error
	for _, f := range detResp.Faces {
		crop, err := CropFace(img, f.Box)
		if err != nil {
			cropErr = err
			continue
		}
		faces = append(faces, DetectedFace{Box: f.Box, Score: f.Score, Crop: crop})
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("detected %d faces but cropped none: %w", len(detResp.Faces), cropErr)
	}
	return faces, nil
}

// GenerateEmbedding computes the embedding for a single face crop.
func (c *ServiceClient) GenerateEmbedding(ctx context.Context, faceCrop []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", faceCrop)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return embResp.Embedding, nil
}
