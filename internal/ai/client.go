package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/youtube"
)

// VideoLookup fetches host metadata for a video link.
type VideoLookup interface {
	Lookup(ctx context.Context, url string) (*youtube.Snippet, error)
}

// Suggestion is the AI-proposed tags and category for a video.
// Category is passed through unvalidated.
type Suggestion struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// Metadata is what ExtractMetadata reads from a link.
type Metadata struct {
	Title    string
	Category model.Category
	Tags     []string
	Notes    string
}

// Client runs the AI-assisted features. A Client without a Generator is
// valid and reports itself as not configured.
type Client struct {
	generator Generator
	model     string
	messages  messages
	lookup    VideoLookup
	logger    *slog.Logger
}

// ClientParams holds parameters for creating a new Client.
type ClientParams struct {
	Generator Generator   // nil = AI features disabled
	Model     string      // required when Generator is set
	Locale    string      // optional, defaults to "en"
	Lookup    VideoLookup // optional host metadata source for ExtractMetadata
	Logger    *slog.Logger
}

// NewClient creates a new AI client.
func NewClient(params ClientParams) *Client {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		generator: params.Generator,
		model:     params.Model,
		messages:  messagesFor(params.Locale),
		lookup:    params.Lookup,
		logger:    logger,
	}
}

// Configured reports whether a generation backend is available.
func (c *Client) Configured() bool {
	return c != nil && c.generator != nil
}

// Summarize returns a markdown summary of the video. Call failures yield a
// fixed apology text instead of an error; only a missing configuration is
// reported as ErrNotConfigured.
func (c *Client) Summarize(ctx context.Context, v model.Video) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	resp, err := c.generator.Generate(ctx, Request{
		Model:             c.model,
		Prompt:            buildSummaryPrompt(v),
		SystemInstruction: systemInstruction,
		Temperature:       0.7,
		MaxTokens:         1024,
		WebSearch:         true,
	})
	if err != nil {
		c.logger.Warn("summary generation failed", slog.String("id", v.ID), slog.Any("error", err))
		return c.messages.SummaryFailed, nil
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		c.logger.Warn("summary generation returned no text", slog.String("id", v.ID))
		return c.messages.SummaryFailed, nil
	}
	return summary, nil
}

// SummaryFailed reports whether summary is the apology text Summarize
// returns in place of a real summary.
func (c *Client) SummaryFailed(summary string) bool {
	return summary == c.messages.SummaryFailed
}

// SuggestTags proposes tags and a category. It never fails: any problem
// yields an empty suggestion.
func (c *Client) SuggestTags(ctx context.Context, v model.Video, existingTags []string) Suggestion {
	empty := Suggestion{Tags: []string{}, Category: ""}
	if !c.Configured() {
		return empty
	}

	resp, err := c.generator.Generate(ctx, Request{
		Model:             c.model,
		Prompt:            buildSuggestPrompt(v, existingTags),
		SystemInstruction: systemInstruction,
		Temperature:       0.3,
		JSON:              true,
		Schema: &Schema{
			Type: "object",
			Properties: map[string]SchemaProp{
				"tags":     {Type: "array", Items: &SchemaProp{Type: "string"}},
				"category": {Type: "string"},
			},
			Required:             []string{"tags", "category"},
			AdditionalProperties: false,
		},
	})
	if err != nil {
		c.logger.Warn("tag suggestion failed", slog.String("id", v.ID), slog.Any("error", err))
		return empty
	}

	var result Suggestion
	if err := decodeJSON(resp.Text, &result); err != nil {
		c.logger.Warn("tag suggestion unparsable", slog.String("id", v.ID), slog.Any("error", err))
		return empty
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return result
}

// ExtractMetadata reads title, category, tags and notes for a link.
// Failures are returned as *UserError wrapping ErrExtractFailed.
func (c *Client) ExtractMetadata(ctx context.Context, url string) (*Metadata, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var hint *youtube.Snippet
	if c.lookup != nil {
		snippet, err := c.lookup.Lookup(ctx, url)
		switch {
		case err == nil:
			hint = snippet
		case errors.Is(err, youtube.ErrNotYouTube):
			// other hosts have no lookup
		default:
			c.logger.Warn("video lookup failed", slog.String("url", url), slog.Any("error", err))
		}
	}

	resp, err := c.generator.Generate(ctx, Request{
		Model:             c.model,
		Prompt:            buildExtractPrompt(url, hint),
		SystemInstruction: systemInstruction,
		Temperature:       0.2,
		WebSearch:         true,
	})
	if err != nil {
		return nil, c.extractError(err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, c.extractError(ErrInvalidResponse)
	}

	var raw struct {
		Title    string   `json:"title"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Notes    string   `json:"notes"`
	}
	if err := decodeJSON(resp.Text, &raw); err != nil {
		return nil, c.extractError(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if strings.TrimSpace(raw.Title) == "" && len(raw.Tags) == 0 && strings.TrimSpace(raw.Notes) == "" {
		return nil, c.extractError(fmt.Errorf("%w: empty result", ErrInvalidResponse))
	}

	category, err := model.ParseCategory(raw.Category)
	if err != nil {
		category = model.CategoryOther
	}

	return &Metadata{
		Title:    strings.TrimSpace(raw.Title),
		Category: category,
		Tags:     model.NormalizeTags(raw.Tags),
		Notes:    strings.TrimSpace(raw.Notes),
	}, nil
}

func (c *Client) extractError(cause error) error {
	c.logger.Warn("metadata extraction failed", slog.Any("error", cause))
	return &UserError{
		Message: c.messages.ExtractFailed,
		Err:     fmt.Errorf("%w: %w", ErrExtractFailed, cause),
	}
}

// SemanticSearch returns the IDs of videos matching query, most relevant
// first. It never fails: any problem yields an empty list.
func (c *Client) SemanticSearch(ctx context.Context, videos []model.Video, query string) []string {
	if !c.Configured() || len(videos) == 0 || strings.TrimSpace(query) == "" {
		return []string{}
	}

	index, err := BuildIndex(videos)
	if err != nil {
		c.logger.Warn("could not build search index", slog.Any("error", err))
		return []string{}
	}

	resp, err := c.generator.Generate(ctx, Request{
		Model:             c.model,
		Prompt:            buildSearchPrompt(index, query),
		SystemInstruction: systemInstruction,
		Temperature:       0.1,
		MaxTokens:         1024,
		JSON:              true,
		Schema: &Schema{
			Type: "object",
			Properties: map[string]SchemaProp{
				"ids": {Type: "array", Items: &SchemaProp{Type: "string"}},
			},
			Required:             []string{"ids"},
			AdditionalProperties: false,
		},
	})
	if err != nil {
		c.logger.Warn("semantic search failed", slog.Any("error", err))
		return []string{}
	}

	var result struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(resp.Text, &result); err != nil {
		c.logger.Warn("semantic search unparsable", slog.Any("error", err))
		return []string{}
	}
	if result.IDs == nil {
		return []string{}
	}
	return result.IDs
}
