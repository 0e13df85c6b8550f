package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoAPIKey        = errors.New("no API key configured for the generation provider")
	ErrNotConfigured   = errors.New("AI features are not configured: set an API key")
	ErrAPIRequest      = errors.New("API request failed")
	ErrInvalidResponse = errors.New("invalid API response")
	ErrExtractFailed   = errors.New("metadata extraction failed")
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	haikuModel      = "claude-haiku-4-5-20251001"
	gpt4oMiniModel  = "gpt-4o-mini"
	defaultTimeout  = 30 * time.Second
	defaultMaxToken = 512
)

// Request is one call to the generation endpoint.
type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Temperature       float64
	MaxTokens         int
	WebSearch         bool    // enable search grounding when the backend supports it
	JSON              bool    // ask for a bare JSON response
	Schema            *Schema // optional structured output schema, implies JSON
}

// Response is the text produced by the generation endpoint.
type Response struct {
	Text string
}

// Generator calls a hosted text generation API.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Schema is the JSON schema subset used for structured output.
type Schema struct {
	Type                 string                `json:"type"`
	Properties           map[string]SchemaProp `json:"properties"`
	Required             []string              `json:"required"`
	AdditionalProperties bool                  `json:"additionalProperties"`
}

// SchemaProp describes one property of a Schema.
type SchemaProp struct {
	Type  string      `json:"type"`
	Items *SchemaProp `json:"items,omitempty"`
}

// GeneratorParams holds parameters for NewGenerator.
type GeneratorParams struct {
	Provider string
	APIKey   string
	BaseURL  string        // optional, for proxies and tests
	Timeout  time.Duration // optional, defaults to 30s
}

// NewGenerator creates the backend for the given provider.
// Returns ErrNoAPIKey if the key is empty.
func NewGenerator(params GeneratorParams) (Generator, error) {
	if params.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultTimeout
	}

	switch params.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicGenerator(params), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(params), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", params.Provider)
	}
}

// DefaultModel returns the model identifier used when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return gpt4oMiniModel
	}
	return haikuModel
}
