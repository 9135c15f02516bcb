package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiDescriber generates face notes through the Gemini API.
type GeminiDescriber struct {
	client *genai.Client
}

func NewGeminiDescriber(ctx context.Context, apiKey string) (*GeminiDescriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiDescriber{client: client}, nil
}

func (p *GeminiDescriber) Name() string {
	return geminiModel
}

// DescribeFace mirrors the OpenAI retry behavior: malformed JSON replies are
// echoed back to the model together with the parse error.
func (p *GeminiDescriber) DescribeFace(ctx context.Context, crop []byte, personName string) (*FaceNote, error) {
	contents := []*genai.Content{
		geminiUserContent(
			&genai.Part{Text: buildFaceNotePrompt(personName)},
			&genai.Part{InlineData: &genai.Blob{Data: crop, MIMEType: "image/jpeg"}},
		),
	}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	var lastErr error
	for attempt := 0; attempt < maxNoteRetries; attempt++ {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}
		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}

		note, err := parseFaceNote(content)
		if err == nil {
			return note, nil
		}
		lastErr = err
		contents = append(contents,
			&genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}},
			geminiUserContent(&genai.Part{
				Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err),
			}),
		)
	}
	return nil, fmt.Errorf("face note still malformed after %d attempts: %w", maxNoteRetries, lastErr)
}

func geminiUserContent(parts ...*genai.Part) *genai.Content {
	return &genai.Content{Role: "user", Parts: parts}
}
