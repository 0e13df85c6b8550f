package search

import (
	"strings"

	"github.com/nikbrunner/vb/internal/model"
)

// Filter holds everything that decides which videos are visible.
// Empty Status or Category means "all".
type Filter struct {
	Query    string
	Status   model.Status
	Category model.Category

	// AI mode: visibility comes from a ranked ID list instead of the
	// predicates above.
	AIMode      bool
	AIResultIDs []string
	AISearched  bool
}

// SetAIMode switches between standard and AI mode. Leaving AI mode clears
// the stored AI result and the query text.
func (f *Filter) SetAIMode(on bool) {
	if f.AIMode && !on {
		f.AIResultIDs = nil
		f.AISearched = false
		f.Query = ""
	}
	f.AIMode = on
}

// SetAIResults records the ranked IDs returned by a semantic search.
func (f *Filter) SetAIResults(ids []string) {
	f.AIResultIDs = append([]string(nil), ids...)
	f.AISearched = true
}

// Apply returns the visible subset of videos.
func Apply(videos []model.Video, f Filter) []model.Video {
	if f.AIMode {
		return applyAI(videos, f)
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	result := []model.Video{}
	for _, v := range videos {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.Category != "" && v.Category != f.Category {
			continue
		}
		if query != "" && !matchesQuery(v, query) {
			continue
		}
		result = append(result, v)
	}
	return result
}

// applyAI returns the videos named in the AI result, in ranked order.
// Before the first search completes, everything is visible.
func applyAI(videos []model.Video, f Filter) []model.Video {
	if !f.AISearched {
		return append([]model.Video{}, videos...)
	}

	byID := make(map[string]model.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	result := []model.Video{}
	seen := make(map[string]bool, len(f.AIResultIDs))
	for _, id := range f.AIResultIDs {
		v, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, v)
	}
	return result
}

// matchesQuery checks title and tags; query must already be lower case.
func matchesQuery(v model.Video, query string) bool {
	if strings.Contains(strings.ToLower(v.Title), query) {
		return true
	}
	for _, tag := range v.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
