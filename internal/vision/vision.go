// Package vision defines the boundary to the external face detection and
// embedding service. The model internals are a black box; this package only
// deals in bounding boxes, crops, and fixed-length vectors.
package vision

import "context"

// Box is a face bounding box in normalized unit-square coordinates with a
// bottom-left origin: (0,0) is the bottom-left corner of the image and
// (1,1) the top-right.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DetectedFace is one face found in an image: its normalized bounding box,
// the detector's confidence, and a JPEG crop of the face region.
type DetectedFace struct {
	Box   Box
	Score float64
	Crop  []byte
}

// Detector finds faces in an image. A failure here concerns the whole frame;
// callers surface it as a scan error.
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// Encoder turns a face crop into a fixed-length embedding vector. Per-face
// failures during multi-face scans are absorbed by the caller (that face
// simply gets no matches) rather than aborting the batch.
type Encoder interface {
	GenerateEmbedding(ctx context.Context, faceCrop []byte) ([]float32, error)
}
