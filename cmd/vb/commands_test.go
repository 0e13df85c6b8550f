package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikbrunner/vb/internal/ai"
	"github.com/nikbrunner/vb/internal/library"
	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/search"
	"github.com/nikbrunner/vb/internal/storage"
	"gopkg.in/yaml.v3"
	"gotest.tools/v3/assert"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(context.Context, ai.Request) (*ai.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Response{Text: f.text}, nil
}

type testApp struct {
	*app
	out    *bytes.Buffer
	path   string
	opened []string
}

func newTestApp(t *testing.T, gen ai.Generator) *testApp {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videos.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := storage.DefaultConfig()

	ta := &testApp{out: &bytes.Buffer{}, path: path}
	ta.app = &app{
		lib:    library.Open(storage.NewJSONStorage(path), logger),
		ai:     ai.NewClient(ai.ClientParams{Generator: gen, Model: "test-model", Logger: logger}),
		cfg:    &cfg,
		logger: logger,
		in:     strings.NewReader(""),
		out:    ta.out,
		open: func(url string) error {
			ta.opened = append(ta.opened, url)
			return nil
		},
	}
	return ta
}

func (ta *testApp) run(t *testing.T, args ...string) string {
	t.Helper()
	ta.out.Reset()
	assert.NilError(t, ta.dispatch(context.Background(), args))
	return ta.out.String()
}

// persisted reads the list back from disk.
func (ta *testApp) persisted(t *testing.T) []model.Video {
	t.Helper()
	store, err := storage.NewJSONStorage(ta.path).Load()
	assert.NilError(t, err)
	return store.Videos
}

func (ta *testApp) add(t *testing.T, args ...string) model.Video {
	t.Helper()
	ta.run(t, append([]string{"add"}, args...)...)
	return ta.lib.Videos()[0]
}

func TestAdd(t *testing.T) {
	ta := newTestApp(t, nil)

	out := ta.run(t, "add", "https://example.com/go", "--title", "Go Talk", "--tags", "go, talks,go", "--category", "programming")

	assert.Assert(t, strings.Contains(out, `Added "Go Talk" [Programming]`))
	videos := ta.persisted(t)
	assert.Equal(t, len(videos), 1)
	assert.Equal(t, videos[0].Title, "Go Talk")
	assert.Equal(t, videos[0].Status, model.StatusUnwatched)
	assert.DeepEqual(t, videos[0].Tags, []string{"go", "talks"})
}

func TestAdd_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing title", args: []string{"add", "https://example.com"}, want: "Title"},
		{name: "blank title", args: []string{"add", "--title", "   ", "https://example.com/x"}, want: "Title"},
		{name: "bad url", args: []string{"add", "--title", "X", "ftp://example.com"}, want: "URL"},
		{name: "unknown category", args: []string{"add", "--title", "X", "--category", "Cooking", "https://example.com"}, want: "unknown category"},
		{name: "no url", args: []string{"add", "--title", "X"}, want: "usage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, nil)
			err := ta.dispatch(context.Background(), tt.args)
			assert.ErrorContains(t, err, tt.want)
			assert.Equal(t, len(ta.lib.Videos()), 0)
		})
	}
}

func TestAdd_WithAI(t *testing.T) {
	ta := newTestApp(t, &fakeGenerator{
		text: "```json\n" + `{"title": "Morning Yoga", "category": "Fitness", "tags": ["yoga"], "notes": "Ten minutes."}` + "\n```",
	})

	ta.run(t, "add", "--ai", "https://example.com/yoga", "--tags", "morning")

	v := ta.lib.Videos()[0]
	assert.Equal(t, v.Title, "Morning Yoga")
	assert.Equal(t, v.Category, model.CategoryFitness)
	assert.Equal(t, v.Notes, "Ten minutes.")
	// explicit flags win over extracted values
	assert.DeepEqual(t, v.Tags, []string{"morning"})
}

func TestAdd_WithAIFailureShowsMessage(t *testing.T) {
	ta := newTestApp(t, &fakeGenerator{err: errors.New("timeout")})

	out := ta.run(t, "add", "--ai", "--title", "Manual", "https://example.com/x")

	assert.Assert(t, strings.Contains(out, "Could not read details"))
	assert.Equal(t, ta.lib.Videos()[0].Title, "Manual")
}

func TestAdd_WithAINotConfigured(t *testing.T) {
	ta := newTestApp(t, nil)

	err := ta.dispatch(context.Background(), []string{"add", "--ai", "https://example.com/x"})

	assert.Assert(t, errors.Is(err, ai.ErrNotConfigured))
}

func TestEdit(t *testing.T) {
	ta := newTestApp(t, nil)
	v := ta.add(t, "--title", "Old", "--notes", "keep me", "https://example.com/a")

	ta.run(t, "edit", v.ID[:6], "--title", "New", "--status", "completed", "--url", "https://example.com/b")

	got := ta.persisted(t)[0]
	assert.Equal(t, got.ID, v.ID)
	assert.Equal(t, got.Title, "New")
	assert.Equal(t, got.URL, "https://example.com/b")
	assert.Equal(t, got.Status, model.StatusCompleted)
	assert.Equal(t, got.Notes, "keep me")
	assert.Assert(t, got.AddedAt.Equal(v.AddedAt))
}

func TestRemove(t *testing.T) {
	ta := newTestApp(t, nil)
	keep := ta.add(t, "--title", "Keep", "https://example.com/keep")
	drop := ta.add(t, "--title", "Drop", "https://example.com/drop")

	ta.in = strings.NewReader("n\n")
	out := ta.run(t, "rm", drop.ID)
	assert.Assert(t, strings.Contains(out, "Cancelled"))
	assert.Equal(t, len(ta.persisted(t)), 2)

	ta.in = strings.NewReader("y\n")
	ta.run(t, "rm", drop.ID)
	videos := ta.persisted(t)
	assert.Equal(t, len(videos), 1)
	assert.Equal(t, videos[0].ID, keep.ID)
}

func TestRemove_Yes(t *testing.T) {
	ta := newTestApp(t, nil)
	v := ta.add(t, "--title", "Drop", "https://example.com/drop")

	ta.run(t, "rm", "--yes", v.ID)

	assert.Equal(t, len(ta.persisted(t)), 0)
}

func TestRemove_NotFound(t *testing.T) {
	ta := newTestApp(t, nil)

	err := ta.dispatch(context.Background(), []string{"rm", "--yes", "nope"})

	assert.Assert(t, errors.Is(err, model.ErrNotFound))
}

func TestResolve_AmbiguousPrefix(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.add(t, "--title", "A", "https://example.com/a")
	ta.add(t, "--title", "B", "https://example.com/b")

	_, err := ta.resolve("")

	assert.ErrorContains(t, err, "ambiguous")
}

func TestShow(t *testing.T) {
	ta := newTestApp(t, nil)
	v := ta.add(t, "--title", "Go Talk", "--notes", "watch twice", "https://example.com/go")

	out := ta.run(t, "show", v.ID)

	assert.Assert(t, strings.Contains(out, "Title:    Go Talk"))
	assert.Assert(t, strings.Contains(out, "watch twice"))
	assert.Assert(t, !strings.Contains(out, "Summary:"))
}

func TestList_Formats(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.add(t, "--title", "Go Talk", "--category", "Programming", "--tags", "go", "https://example.com/go")
	ta.add(t, "--title", "Yoga", "--category", "Fitness", "--status", "Completed", "https://example.com/yoga")

	text := ta.run(t, "list")
	assert.Assert(t, strings.Contains(text, "Go Talk"))
	assert.Assert(t, strings.Contains(text, "Yoga"))

	var listed []listedVideo
	assert.NilError(t, json.Unmarshal([]byte(ta.run(t, "list", "--format", "json", "--category", "fitness")), &listed))
	assert.Equal(t, len(listed), 1)
	assert.Equal(t, listed[0].Title, "Yoga")
	assert.Equal(t, listed[0].Status, "Completed")

	listed = nil
	assert.NilError(t, yaml.Unmarshal([]byte(ta.run(t, "list", "--format", "yaml", "--query", "GO")), &listed))
	assert.Equal(t, len(listed), 1)
	assert.Equal(t, listed[0].Title, "Go Talk")
	assert.DeepEqual(t, listed[0].Tags, []string{"go"})
}

func TestList_Invalid(t *testing.T) {
	ta := newTestApp(t, nil)

	assert.ErrorContains(t, ta.dispatch(context.Background(), []string{"list", "--format", "xml"}), "unknown format")
	assert.ErrorContains(t, ta.dispatch(context.Background(), []string{"list", "--status", "lost"}), "unknown status")
}

func TestAsk(t *testing.T) {
	gen := &fakeGenerator{}
	ta := newTestApp(t, gen)
	goTalk := ta.add(t, "--title", "Go Talk", "https://example.com/go")
	yoga := ta.add(t, "--title", "Yoga", "https://example.com/yoga")

	gen.text = `{"ids": ["` + yoga.ID + `", "unknown", "` + goTalk.ID + `"]}`
	var listed []listedVideo
	assert.NilError(t, json.Unmarshal([]byte(ta.run(t, "ask", "--format", "json", "something", "calm")), &listed))

	assert.Equal(t, len(listed), 2)
	assert.Equal(t, listed[0].ID, yoga.ID)
	assert.Equal(t, listed[1].ID, goTalk.ID)
}

func TestAsk_NoMatches(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	ta := newTestApp(t, gen)
	ta.add(t, "--title", "Go Talk", "https://example.com/go")

	out := ta.run(t, "ask", "anything")

	assert.Assert(t, strings.Contains(out, `No videos match "anything"`))
}

func TestAsk_NotConfigured(t *testing.T) {
	ta := newTestApp(t, nil)

	err := ta.dispatch(context.Background(), []string{"ask", "go"})

	assert.Assert(t, errors.Is(err, ai.ErrNotConfigured))
}

func TestSummarize(t *testing.T) {
	gen := &fakeGenerator{text: "A talk about **channels**."}
	ta := newTestApp(t, gen)
	v := ta.add(t, "--title", "Go Talk", "https://example.com/go")

	ta.run(t, "summarize", v.ID)

	assert.Equal(t, ta.persisted(t)[0].AISummary, "A talk about **channels**.")
}

func TestSummarize_FailureIsNotStored(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	ta := newTestApp(t, gen)
	v := ta.add(t, "--title", "Go Talk", "https://example.com/go")

	out := ta.run(t, "summarize", v.ID)

	assert.Assert(t, strings.Contains(out, "Sorry"))
	assert.Equal(t, ta.persisted(t)[0].AISummary, "")
}

func TestSuggest(t *testing.T) {
	gen := &fakeGenerator{text: `{"tags": ["Go", "concurrency"], "category": "Programming"}`}
	ta := newTestApp(t, gen)
	v := ta.add(t, "--title", "Go Talk", "--tags", "go", "https://example.com/go")

	ta.run(t, "suggest", v.ID)

	got := ta.persisted(t)[0]
	assert.DeepEqual(t, got.Tags, []string{"go", "concurrency"})
	assert.Equal(t, got.Category, model.CategoryProgramming)
}

func TestSuggest_UnknownCategoryIgnored(t *testing.T) {
	gen := &fakeGenerator{text: `{"tags": ["bread"], "category": "Cooking"}`}
	ta := newTestApp(t, gen)
	v := ta.add(t, "--title", "Sourdough", "--category", "Science", "https://example.com/bread")

	ta.run(t, "suggest", v.ID)

	got := ta.persisted(t)[0]
	assert.DeepEqual(t, got.Tags, []string{"bread"})
	assert.Equal(t, got.Category, model.CategoryScience)
}

func TestSuggest_DryRun(t *testing.T) {
	gen := &fakeGenerator{text: `{"tags": ["go"], "category": "Programming"}`}
	ta := newTestApp(t, gen)
	v := ta.add(t, "--title", "Go Talk", "https://example.com/go")

	out := ta.run(t, "suggest", "--dry-run", v.ID)

	assert.Assert(t, strings.Contains(out, "Category: Programming"))
	assert.DeepEqual(t, ta.persisted(t)[0].Tags, []string{})
}

func TestImportExport(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.add(t, "--title", "Go Talk", "--category", "Programming", "--tags", "go", "https://example.com/go")

	exportPath := filepath.Join(t.TempDir(), "export.html")
	out := ta.run(t, "export", exportPath)
	assert.Assert(t, strings.Contains(out, "Exported 1 videos"))

	other := newTestApp(t, nil)
	other.run(t, "import", exportPath)
	videos := other.persisted(t)
	assert.Equal(t, len(videos), 1)
	assert.Equal(t, videos[0].Title, "Go Talk")
	assert.Equal(t, videos[0].Category, model.CategoryProgramming)

	out = other.run(t, "import", exportPath)
	assert.Assert(t, strings.Contains(out, "Imported 0 videos (1 skipped)"))
}

func TestImport_SkipsNonWebLinksThenEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.html")
	assert.NilError(t, os.WriteFile(path, []byte(`<DL><p>
    <DT><A HREF="place:sort=8&maxResults=10">Recently Bookmarked</A>
    <DT><A HREF="https://example.com/recent">Recent Talk</A>
</DL><p>`), 0o644))
	ta := newTestApp(t, nil)

	out := ta.run(t, "import", path)
	assert.Assert(t, strings.Contains(out, "Imported 1 videos"))

	v := ta.lib.Videos()[0]
	ta.run(t, "edit", v.ID, "--status", "completed")
	assert.Equal(t, ta.persisted(t)[0].Status, model.StatusCompleted)

	ta.run(t, "recent")
	assert.DeepEqual(t, ta.opened, []string{"https://example.com/recent"})
}

func TestImport_MissingFile(t *testing.T) {
	ta := newTestApp(t, nil)

	err := ta.dispatch(context.Background(), []string{"import", filepath.Join(t.TempDir(), "nope.html")})

	assert.Assert(t, errors.Is(err, os.ErrNotExist))
}

func TestCull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/alive" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ta := newTestApp(t, nil)
	alive := ta.add(t, "--title", "Alive", srv.URL+"/alive")
	dead := ta.add(t, "--title", "Dead", srv.URL+"/removed")

	ta.in = strings.NewReader("n\n")
	out := ta.run(t, "cull")
	assert.Assert(t, strings.Contains(out, "1 dead links"))
	assert.Assert(t, strings.Contains(out, "Cancelled"))
	got, _ := ta.lib.Get(dead.ID)
	assert.Equal(t, got.Status, model.StatusUnwatched)

	ta.run(t, "cull", "--yes")
	for _, v := range ta.persisted(t) {
		switch v.ID {
		case dead.ID:
			assert.Equal(t, v.Status, model.StatusTrash)
		case alive.ID:
			assert.Equal(t, v.Status, model.StatusUnwatched)
		}
	}

	out = ta.run(t, "cull", "--yes")
	assert.Assert(t, strings.Contains(out, "No dead links"))
}

func TestQuickSearch(t *testing.T) {
	ta := newTestApp(t, nil)
	v := ta.add(t, "--title", "Go Concurrency Patterns", "https://example.com/go")
	ta.add(t, "--title", "Morning Yoga", "https://example.com/yoga")

	ta.run(t, "concurrency")

	assert.DeepEqual(t, ta.opened, []string{v.URL})
	got, _ := ta.lib.Get(v.ID)
	assert.Equal(t, got.Status, model.StatusWatching)
}

func TestQuickSearch_PicksAmongSeveral(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.add(t, "--title", "Go Concurrency Patterns", "https://example.com/go")
	proverbs := ta.add(t, "--title", "Go Proverbs", "--status", "Completed", "https://example.com/proverbs")

	var offered int
	ta.pick = func(results []search.SearchResult, query string) (*model.Video, error) {
		offered = len(results)
		for _, r := range results {
			if r.Video.ID == proverbs.ID {
				return r.Video, nil
			}
		}
		return nil, nil
	}

	ta.run(t, "go")

	assert.Equal(t, offered, 2)
	assert.DeepEqual(t, ta.opened, []string{proverbs.URL})
	got, _ := ta.lib.Get(proverbs.ID)
	assert.Equal(t, got.Status, model.StatusCompleted)
}

func TestQuickSearch_NoResults(t *testing.T) {
	ta := newTestApp(t, nil)

	out := ta.run(t, "nothing")

	assert.Assert(t, strings.Contains(out, "No videos found"))
	assert.Equal(t, len(ta.opened), 0)
}

func TestNewAIClient_NoKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := storage.DefaultConfig()

	client := newAIClient(&cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Assert(t, !client.Configured())
}

func TestNewAIClient_OpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := storage.DefaultConfig()
	cfg.Provider = storage.ProviderOpenAI

	client := newAIClient(&cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Assert(t, client.Configured())
}

func TestParseInterspersed(t *testing.T) {
	fs := newFlagSet("test")
	yes := fs.Bool("yes", false, "")
	name := fs.String("name", "", "")

	positional, err := parseInterspersed(fs, []string{"a", "--yes", "b", "--name", "x", "c"})

	assert.NilError(t, err)
	assert.DeepEqual(t, positional, []string{"a", "b", "c"})
	assert.Assert(t, *yes)
	assert.Equal(t, *name, "x")
}
