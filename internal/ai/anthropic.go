package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicURL = "https://api.anthropic.com"
	apiVersion   = "2023-06-01"
	betaHeader   = "structured-outputs-2025-11-13"
)

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicGenerator creates a generator for the Anthropic API.
func NewAnthropicGenerator(params GeneratorParams) *AnthropicGenerator {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = anthropicURL
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &AnthropicGenerator{
		apiKey:  params.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends one message and returns the concatenated text blocks.
func (g *AnthropicGenerator) Generate(ctx context.Context, r Request) (*Response, error) {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxToken
	}
	temperature := r.Temperature

	reqBody := apiRequest{
		Model:       r.Model,
		MaxTokens:   maxTokens,
		System:      r.SystemInstruction,
		Temperature: &temperature,
		Messages: []apiMessage{
			{Role: "user", Content: r.Prompt},
		},
	}
	if r.Schema != nil {
		reqBody.OutputFormat = &outputFormat{
			Type:   "json_schema",
			Schema: *r.Schema,
		}
	}
	if r.WebSearch {
		reqBody.Tools = []apiTool{
			{Type: "web_search_20250305", Name: "web_search", MaxUses: 3},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("anthropic-beta", betaHeader)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIRequest, resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// Web search interleaves tool blocks with text blocks
	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrInvalidResponse
	}

	return &Response{Text: text.String()}, nil
}

// apiRequest represents the Anthropic API request body.
type apiRequest struct {
	Model        string        `json:"model"`
	MaxTokens    int           `json:"max_tokens"`
	System       string        `json:"system,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty"`
	Messages     []apiMessage  `json:"messages"`
	Tools        []apiTool     `json:"tools,omitempty"`
	OutputFormat *outputFormat `json:"output_format,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type outputFormat struct {
	Type   string `json:"type"`
	Schema Schema `json:"schema"`
}

// apiResponse represents the Anthropic API response body.
type apiResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
