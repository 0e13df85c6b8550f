package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/vb/internal/importer"
	"github.com/nikbrunner/vb/internal/model"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"
)

func video(id, title, url string, category model.Category, tags ...string) model.Video {
	return model.Video{
		ID:       id,
		Title:    title,
		URL:      url,
		Tags:     model.NormalizeTags(tags),
		Category: category,
		Status:   model.StatusUnwatched,
		AddedAt:  time.Unix(1700000000, 0),
	}
}

func TestExportHTML_EmptyStore(t *testing.T) {
	out := ExportHTML(model.NewStore())

	assert.Assert(t, strings.HasPrefix(out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>\n"))
	assert.Assert(t, strings.Contains(out, "<TITLE>Videos</TITLE>"))
	assert.Assert(t, !strings.Contains(out, "<H3>"))
}

func TestExportHTML_GroupedByCategory(t *testing.T) {
	store := &model.Store{Videos: []model.Video{
		video("v1", "Morning Yoga", "https://example.com/yoga", model.CategoryFitness, "yoga"),
		video("v2", "Go Concurrency Patterns", "https://example.com/go", model.CategoryProgramming, "go", "talks"),
		video("v3", "Tips & Tricks", "https://example.com/?a=1&b=2", model.CategoryOther),
		video("v4", "Rust in 100 Seconds", "https://example.com/rust", model.CategoryProgramming),
	}}

	golden.Assert(t, ExportHTML(store), "export_grouped.golden")
}

func TestExportHTML_SkipsEmptyCategories(t *testing.T) {
	store := &model.Store{Videos: []model.Video{
		video("v1", "Sourdough", "https://example.com/bread", model.CategoryOther),
	}}

	out := ExportHTML(store)

	assert.Equal(t, strings.Count(out, "<H3>"), 1)
	assert.Assert(t, strings.Contains(out, "<H3>Other</H3>"))
}

func TestExportHTML_ImportRoundTrip(t *testing.T) {
	store := &model.Store{Videos: []model.Video{
		video("v1", "Go Concurrency Patterns", "https://example.com/go", model.CategoryProgramming, "go", "talks"),
		video("v2", "Morning Yoga", "https://example.com/yoga", model.CategoryFitness),
	}}

	videos, err := importer.ParseHTML(strings.NewReader(ExportHTML(store)))
	assert.NilError(t, err)

	assert.Equal(t, len(videos), 2)
	for i, v := range videos {
		want := store.Videos[i]
		assert.Equal(t, v.Title, want.Title)
		assert.Equal(t, v.URL, want.URL)
		assert.Equal(t, v.Category, want.Category)
		assert.DeepEqual(t, v.Tags, want.Tags)
		assert.Assert(t, v.AddedAt.Equal(want.AddedAt))
	}
}
