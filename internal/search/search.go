package search

import (
	"strings"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/sahilm/fuzzy"
)

// SearchResult is one quick-open candidate.
type SearchResult struct {
	Video *model.Video
	// MatchedIndexes index into Video.Title only; tag hits are reported in Tag.
	MatchedIndexes []int
	// Tag is the first tag the query matched into, if any.
	Tag   string
	Score int
}

// candidate is the text a video is matched on: its title, then its tags.
type candidate struct {
	video *model.Video
	text  string
	tags  []int // start offset of each tag in text
}

type candidates []candidate

func (c candidates) String(i int) string { return c[i].text }
func (c candidates) Len() int            { return len(c) }

func newCandidate(v *model.Video) candidate {
	var b strings.Builder
	b.WriteString(v.Title)
	starts := make([]int, len(v.Tags))
	for i, tag := range v.Tags {
		b.WriteByte(' ')
		starts[i] = b.Len()
		b.WriteString(tag)
	}
	return candidate{video: v, text: b.String(), tags: starts}
}

// split separates matched offsets into title positions and the first tag hit.
func (c candidate) split(indexes []int) ([]int, string) {
	title := len(c.video.Title)
	var inTitle []int
	tag := ""
	for _, idx := range indexes {
		if idx < title {
			inTitle = append(inTitle, idx)
			continue
		}
		if tag != "" {
			continue
		}
		for i := len(c.tags) - 1; i >= 0; i-- {
			if idx >= c.tags[i] {
				tag = c.video.Tags[i]
				break
			}
		}
	}
	return inTitle, tag
}

// FuzzySearchVideos ranks videos against query by title and tags, best
// first. Videos in Trash are never offered.
func FuzzySearchVideos(store *model.Store, query string) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	source := make(candidates, 0, len(store.Videos))
	for i := range store.Videos {
		if store.Videos[i].Status == model.StatusTrash {
			continue
		}
		source = append(source, newCandidate(&store.Videos[i]))
	}

	matches := fuzzy.FindFrom(query, source)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		c := source[m.Index]
		indexes, tag := c.split(m.MatchedIndexes)
		results[i] = SearchResult{
			Video:          c.video,
			MatchedIndexes: indexes,
			Tag:            tag,
			Score:          m.Score,
		}
	}
	return results
}
