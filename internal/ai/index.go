package ai

import (
	"encoding/json"
	"strings"

	"github.com/nikbrunner/vb/internal/model"
)

// indexEntry is the compact form of a video sent along with a semantic
// search. URL, timestamps and summaries are left out to bound prompt size.
type indexEntry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Notes    string   `json:"notes"`
	Status   string   `json:"status"`
}

// BuildIndex serializes the compact search index for videos.
func BuildIndex(videos []model.Video) (string, error) {
	entries := make([]indexEntry, len(videos))
	for i, v := range videos {
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		entries[i] = indexEntry{
			ID:       v.ID,
			Title:    v.Title,
			Tags:     tags,
			Category: string(v.Category),
			Notes:    v.Notes,
			Status:   string(v.Status),
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// stripFences removes markdown code fences from model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeJSON parses a JSON object out of model output. It tolerates code
// fences and prose around the object.
func decodeJSON(text string, v any) error {
	cleaned := stripFences(text)
	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return err
	}
	return json.Unmarshal([]byte(cleaned[start:end+1]), v)
}
