package scan

import (
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/vision"
)

// Phase is the discriminant of the scan state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseProcessing
	PhaseResults
	PhaseNoFaceDetected
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseProcessing:
		return "processing"
	case PhaseResults:
		return "results"
	case PhaseNoFaceDetected:
		return "no_face_detected"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// FaceResult pairs one detected face with its ranked match candidates.
// An empty Matches list means "no match", which callers must not confuse
// with "no face detected": a face in an empty gallery still produces a
// FaceResult with zero candidates.
type FaceResult struct {
	Box     vision.Box
	Crop    []byte
	Matches []match.Candidate
}

// State is a tagged variant: Results is populated only in PhaseResults and
// Err only in PhaseError. Every other phase carries no payload, so
// transitioning back to idle drops all transient scan data.
type State struct {
	Phase   Phase
	Results []FaceResult
	Err     string
}

func idleState() State {
	return State{Phase: PhaseIdle}
}

func errorState(msg string) State {
	return State{Phase: PhaseError, Err: msg}
}
