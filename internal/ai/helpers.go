package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/face_note.txt
var faceNotePrompt string

// buildFaceNotePrompt fills the person's name into the embedded prompt.
// The name is only used for context; providers are instructed not to echo it.
func buildFaceNotePrompt(personName string) string {
	if personName == "" {
		personName = "an unnamed person"
	}
	return fmt.Sprintf(faceNotePrompt, personName)
}

// parseFaceNote decodes a provider response into a FaceNote and trims the
// junk models sometimes wrap around JSON (markdown fences, whitespace).
func parseFaceNote(content string) (*FaceNote, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var note FaceNote
	if err := json.Unmarshal([]byte(content), &note); err != nil {
		return nil, fmt.Errorf("failed to parse face note JSON: %w", err)
	}
	if note.Description == "" && len(note.Cues) == 0 {
		return nil, fmt.Errorf("empty face note in response")
	}
	return &note, nil
}
