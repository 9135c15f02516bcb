// Package scan coordinates one ephemeral face identification attempt:
// detection, embedding, and matching for every face in a frame or photo.
// Nothing the orchestrator touches is persisted; committing a confirmed
// match is a separate, explicit operation outside this package.
package scan

import (
	"context"
	"errors"
	"sync"

	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/vision"
)

// ErrBusy is returned when a scan is started while another one is active.
var ErrBusy = errors.New("scan already in progress")

// GalleryProvider supplies the snapshot a scan matches against. The
// orchestrator never fetches or caches identities itself.
type GalleryProvider interface {
	Snapshot(ctx context.Context) (*gallery.Snapshot, error)
}

// FrameSource acquires the best frame from a live capture session. The call
// blocks until a frame is ready and must honor context cancellation.
type FrameSource interface {
	AcquireFrame(ctx context.Context) ([]byte, error)
}

// PhotoHandle hands over an externally selected photo's bytes exactly once.
// The handle is cleared the instant its bytes are loaded, so a crash or
// error later in the scan cannot leave it referencing unconsumed data.
type PhotoHandle interface {
	Consume() ([]byte, error)
}

// BytesHandle is a one-shot PhotoHandle over an in-memory byte slice.
type BytesHandle struct {
	mu   sync.Mutex
	data []byte
}

func NewBytesHandle(data []byte) *BytesHandle {
	return &BytesHandle{data: data}
}

// Consume returns the photo bytes and clears the handle. A second call
// fails: the data is gone.
func (h *BytesHandle) Consume() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		return nil, errors.New("photo handle already consumed")
	}
	data := h.data
	h.data = nil
	return data, nil
}

// Orchestrator drives the scan state machine for one session. All state
// mutations go through a single mutex (single-writer discipline) and carry a
// generation token, so a result arriving after Reset is discarded instead of
// applied.
type Orchestrator struct {
	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc // cancels in-flight frame acquisition

	detector  vision.Detector
	encoder   vision.Encoder
	engine    *match.Engine
	galleries GalleryProvider
	topK      int
	threshold float64
}

// NewOrchestrator builds an orchestrator in the idle state. threshold is the
// inclusive query threshold for this session's matches (quick scans pass the
// exploratory threshold so low-confidence hints still surface).
func NewOrchestrator(detector vision.Detector, encoder vision.Encoder, engine *match.Engine, galleries GalleryProvider, topK int, threshold float64) *Orchestrator {
	return &Orchestrator{
		state:     idleState(),
		detector:  detector,
		encoder:   encoder,
		engine:    engine,
		galleries: galleries,
		topK:      topK,
		threshold: threshold,
	}
}

// State returns the current scan state. The returned value is read-only to
// the caller.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// StartScan begins a live scan: idle -> scanning, then acquires the best
// frame in the background and processes it. Returns ErrBusy unless idle.
func (o *Orchestrator) StartScan(ctx context.Context, source FrameSource) error {
	o.mu.Lock()
	if o.state.Phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	gen := o.gen
	scanCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state = State{Phase: PhaseScanning}
	o.mu.Unlock()

	go func() {
		defer cancel()
		frame, err := source.AcquireFrame(scanCtx)
		if scanCtx.Err() != nil {
			return // cancelled: partial state is discarded, never surfaced
		}
		if err != nil {
			o.apply(gen, errorState(err.Error()))
			return
		}
		o.apply(gen, State{Phase: PhaseProcessing})
		o.process(scanCtx, gen, frame)
	}()
	return nil
}

// ScanPhoto identifies faces in an imported photo: idle -> processing,
// synchronously through to a terminal state. The photo handle is consumed
// before detection runs. Returns ErrBusy unless idle.
func (o *Orchestrator) ScanPhoto(ctx context.Context, photo PhotoHandle) error {
	o.mu.Lock()
	if o.state.Phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	gen := o.gen
	o.state = State{Phase: PhaseProcessing}
	o.mu.Unlock()

	data, err := photo.Consume()
	if err != nil {
		o.apply(gen, errorState(err.Error()))
		return nil
	}
	o.process(ctx, gen, data)
	return nil
}

// Cancel stops an in-flight live scan: scanning -> idle. Frame acquisition
// is interrupted immediately and partial state discarded. A no-op in any
// other phase (processing is not cancellable; it completes and Reset
// discards the outcome instead).
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Phase != PhaseScanning {
		return
	}
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = idleState()
}

// Reset forces the machine back to idle from any phase and clears all
// transient per-scan data: no match list or crop is retrievable afterwards.
// A processing run still in flight sees its generation superseded and its
// eventual result dropped.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = idleState()
}

// apply installs the new state only if the scan that produced it has not
// been superseded by Cancel or Reset.
func (o *Orchestrator) apply(gen uint64, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.state = s
}

// process runs detection, per-face embedding, and matching, then applies a
// terminal state. Per-face embedding failures leave that face's match list
// empty and the scan continues; detection failures end the whole scan in
// the error state.
func (o *Orchestrator) process(ctx context.Context, gen uint64, imageData []byte) {
	faces, err := o.detector.DetectFaces(ctx, imageData)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		o.apply(gen, errorState(err.Error()))
		return
	}
	if len(faces) == 0 {
		o.apply(gen, State{Phase: PhaseNoFaceDetected})
		return
	}

	snapshot, err := o.galleries.Snapshot(ctx)
	if err != nil {
		o.apply(gen, errorState(err.Error()))
		return
	}

	// One FaceResult per detected face, preserving detector output order.
	// An empty gallery still yields per-face results with empty match
	// lists; "no gallery" and "no face" are distinct outcomes.
	results := make([]FaceResult, 0, len(faces))
	for _, face := range faces {
		result := FaceResult{
			Box:     face.Box,
			Crop:    face.Crop,
			Matches: []match.Candidate{},
		}
		embedding, err := o.encoder.GenerateEmbedding(ctx, face.Crop)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			result.Matches = o.engine.FindMatches(embedding, snapshot, o.topK, o.threshold)
		}
		results = append(results, result)
	}

	o.apply(gen, State{Phase: PhaseResults, Results: results})
}
