package ai

import (
	"context"
	"fmt"
)

// FaceNote is a short, human-readable memory aid generated from a face crop.
// It never identifies the person; it only describes what makes the face easy
// to remember next time.
type FaceNote struct {
	// Description is one or two sentences summarizing the face.
	Description string `json:"description"`
	// Cues are short distinctive features ("round glasses", "gray beard").
	Cues []string `json:"cues"`
}

// maxNoteRetries bounds how many times a backend re-asks the model after a
// malformed JSON reply.
const maxNoteRetries = 3

// Describer defines the interface for note-generation backends.
type Describer interface {
	Name() string
	DescribeFace(ctx context.Context, crop []byte, personName string) (*FaceNote, error)
}

// NewDescriber builds the backend selected by provider ("openai" or "gemini").
func NewDescriber(ctx context.Context, provider, openaiToken, geminiKey string) (Describer, error) {
	switch provider {
	case "openai":
		if openaiToken == "" {
			return nil, fmt.Errorf("openai provider selected but no API token configured")
		}
		return NewOpenAIDescriber(openaiToken), nil
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return NewGeminiDescriber(ctx, geminiKey)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", provider)
	}
}
