package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIDescriber generates face notes through the OpenAI chat API.
type OpenAIDescriber struct {
	client *openai.Client
}

func NewOpenAIDescriber(apiKey string, opts ...option.RequestOption) *OpenAIDescriber {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIDescriber{client: &client}
}

func (p *OpenAIDescriber) Name() string {
	return chatModel
}

// DescribeFace sends the crop with the face-note prompt and parses the JSON
// reply. On a malformed reply it feeds the parse error back to the model and
// retries, up to maxNoteRetries attempts total.
func (p *OpenAIDescriber) DescribeFace(ctx context.Context, crop []byte, personName string) (*FaceNote, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openAISystemMessage(buildFaceNotePrompt(personName)),
		openAICropMessage(crop),
	}

	var lastErr error
	for attempt := 0; attempt < maxNoteRetries; attempt++ {
		content, err := p.complete(ctx, messages)
		if err != nil {
			return nil, err
		}

		note, err := parseFaceNote(content)
		if err == nil {
			return note, nil
		}
		lastErr = err
		messages = append(messages,
			openAIAssistantMessage(content),
			openAIRetryMessage(err),
		)
	}
	return nil, fmt.Errorf("face note still malformed after %d attempts: %w", maxNoteRetries, lastErr)
}

func (p *OpenAIDescriber) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    chatModel,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		MaxTokens: openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func openAISystemMessage(prompt string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(prompt),
			},
		},
	}
}

func openAICropMessage(crop []byte) openai.ChatCompletionMessageParamUnion {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(crop)
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart("Describe this face."),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL:    imageURL,
						Detail: "low",
					}),
				},
			},
		},
	}
}

func openAIAssistantMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}

func openAIRetryMessage(parseErr error) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", parseErr)),
			},
		},
	}
}
