package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator talks to the OpenAI chat completions API.
// Search grounding is not available on this backend; WebSearch is ignored.
type OpenAIGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator creates a generator for the OpenAI API.
func NewOpenAIGenerator(params GeneratorParams) *OpenAIGenerator {
	config := openai.DefaultConfig(params.APIKey)
	if params.BaseURL != "" {
		config.BaseURL = params.BaseURL
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
	}
}

// Generate runs one chat completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, r Request) (*Response, error) {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxToken
	}

	var messages []openai.ChatCompletionMessage
	if r.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: r.Prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: float32(r.Temperature),
		MaxTokens:   maxTokens,
	}
	if r.JSON || r.Schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[len(resp.Choices)-1].Message.Content == "" {
		return nil, ErrInvalidResponse
	}

	return &Response{Text: resp.Choices[len(resp.Choices)-1].Message.Content}, nil
}
