// Package youtube looks up public video metadata through the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	ErrNotYouTube = errors.New("not a YouTube video link")
	ErrNoVideo    = errors.New("video not found on YouTube")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Snippet is the public metadata of one video.
type Snippet struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	Tags         []string
	PublishedAt  string
}

// Client wraps the YouTube Data API service.
type Client struct {
	service *youtube.Service
}

// NewClient creates a Client authenticated with an API key.
// Extra options are passed to the underlying service.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{service: service}, nil
}

// Lookup fetches the snippet for the video behind rawURL.
func (c *Client) Lookup(ctx context.Context, rawURL string) (*Snippet, error) {
	id, ok := VideoID(rawURL)
	if !ok {
		return nil, ErrNotYouTube
	}

	response, err := c.service.Videos.
		List([]string{"snippet"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	for _, item := range response.Items {
		if item.Snippet == nil {
			continue
		}
		return &Snippet{
			ID:           item.Id,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			Tags:         item.Snippet.Tags,
			PublishedAt:  item.Snippet.PublishedAt,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoVideo, id)
}

// VideoID extracts the 11 character video ID from watch, short, embed,
// shorts and live links.
func VideoID(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "embed", "shorts", "live", "v":
				id = parts[1]
			}
		}
	default:
		return "", false
	}

	if !idPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
