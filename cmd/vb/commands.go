package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nikbrunner/vb/internal/ai"
	"github.com/nikbrunner/vb/internal/culler"
	"github.com/nikbrunner/vb/internal/exporter"
	"github.com/nikbrunner/vb/internal/importer"
	"github.com/nikbrunner/vb/internal/library"
	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/picker"
	"github.com/nikbrunner/vb/internal/search"
	"github.com/nikbrunner/vb/internal/storage"
	"github.com/nikbrunner/vb/internal/youtube"
	"gopkg.in/yaml.v3"
)

// videoLookup is satisfied by *youtube.Client.
type videoLookup interface {
	Lookup(ctx context.Context, url string) (*youtube.Snippet, error)
}

type app struct {
	lib    *library.Library
	ai     *ai.Client
	lookup videoLookup
	cfg    *storage.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	open   func(url string) error

	// pick chooses one of several quick search results.
	pick func(results []search.SearchResult, query string) (*model.Video, error)
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.cmdList(nil)
	}

	rest := args[1:]
	switch args[0] {
	case "add":
		return a.cmdAdd(ctx, rest)
	case "edit":
		return a.cmdEdit(rest)
	case "rm", "delete":
		return a.cmdRemove(rest)
	case "show":
		return a.cmdShow(rest)
	case "list", "ls":
		return a.cmdList(rest)
	case "ask":
		return a.cmdAsk(ctx, rest)
	case "summarize":
		return a.cmdSummarize(ctx, rest)
	case "suggest":
		return a.cmdSuggest(ctx, rest)
	case "import":
		return a.cmdImport(rest)
	case "export":
		return a.cmdExport(rest)
	case "cull":
		return a.cmdCull(ctx, rest)
	default:
		return a.quickSearch(strings.Join(args, " "))
	}
}

// formFlags are the editable fields shared by add and edit.
type formFlags struct {
	title    *string
	tags     *string
	category *string
	status   *string
	notes    *string
}

func registerFormFlags(fs *flag.FlagSet) formFlags {
	return formFlags{
		title:    fs.String("title", "", "video title"),
		tags:     fs.String("tags", "", "comma separated tags"),
		category: fs.String("category", "", "category"),
		status:   fs.String("status", "", "watch status"),
		notes:    fs.String("notes", "", "notes"),
	}
}

// apply copies the flags the user set onto form.
func (ff formFlags) apply(fs *flag.FlagSet, form *model.VideoForm) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "title":
			form.Title = *ff.title
		case "tags":
			form.Tags = splitTags(*ff.tags)
		case "category":
			form.Category, err = model.ParseCategory(*ff.category)
		case "status":
			form.Status, err = model.ParseStatus(*ff.status)
		case "notes":
			form.Notes = *ff.notes
		}
	})
	return err
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	useAI := fs.Bool("ai", false, "fill in title, category, tags and notes from the link")
	ff := registerFormFlags(fs)
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: vb add [--ai] [flags] <url>")
	}

	form := model.VideoForm{
		URL:      positional[0],
		Tags:     []string{},
		Category: model.CategoryOther,
		Status:   model.StatusUnwatched,
	}

	if *useAI {
		meta, err := a.ai.ExtractMetadata(ctx, form.URL)
		var userErr *ai.UserError
		switch {
		case errors.As(err, &userErr):
			fmt.Fprintln(a.out, userErr.Message)
		case err != nil:
			return err
		default:
			form.Title = meta.Title
			form.Category = meta.Category
			form.Tags = meta.Tags
			form.Notes = meta.Notes
		}
	}

	if err := ff.apply(fs, &form); err != nil {
		return err
	}

	if a.lib.Store().HasVideoURL(form.URL) {
		fmt.Fprintf(a.out, "Note: %s is already in your list\n", form.URL)
	}

	v, err := a.lib.Create(form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %q [%s] (%s)\n", v.Title, v.Category, v.ID)
	return nil
}

func (a *app) cmdEdit(args []string) error {
	fs := newFlagSet("edit")
	url := fs.String("url", "", "link")
	ff := registerFormFlags(fs)
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: vb edit [flags] <id>")
	}

	v, err := a.resolve(positional[0])
	if err != nil {
		return err
	}

	form := model.FormFromVideo(v)
	if err := ff.apply(fs, &form); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "url" {
			form.URL = *url
		}
	})

	if err := a.lib.Update(v.ID, form); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %q\n", form.Title)
	return nil
}

func (a *app) cmdRemove(args []string) error {
	fs := newFlagSet("rm")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: vb rm [--yes] <id>")
	}

	v, err := a.resolve(positional[0])
	if err != nil {
		return err
	}

	if !*yes && !a.confirm(fmt.Sprintf("Delete %q?", v.Title)) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.lib.Delete(v.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %q\n", v.Title)
	return nil
}

func (a *app) cmdShow(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vb show <id>")
	}
	v, err := a.resolve(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", v.ID)
	fmt.Fprintf(a.out, "Title:    %s\n", v.Title)
	fmt.Fprintf(a.out, "URL:      %s\n", v.URL)
	fmt.Fprintf(a.out, "Category: %s\n", v.Category)
	fmt.Fprintf(a.out, "Status:   %s\n", v.Status)
	fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(v.Tags, ", "))
	fmt.Fprintf(a.out, "Added:    %s\n", v.AddedAt.Local().Format("2006-01-02 15:04"))
	if v.Notes != "" {
		fmt.Fprintf(a.out, "\nNotes:\n%s\n", v.Notes)
	}
	if v.AISummary != "" {
		fmt.Fprintf(a.out, "\nSummary:\n%s\n", v.AISummary)
	}
	return nil
}

func (a *app) cmdList(args []string) error {
	fs := newFlagSet("list")
	status := fs.String("status", "", "only videos with this status")
	category := fs.String("category", "", "only videos in this category")
	query := fs.String("query", "", "title or tag contains")
	format := fs.String("format", "text", "output format: text, json or yaml")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	f := search.Filter{Query: *query}
	if *status != "" {
		s, err := model.ParseStatus(*status)
		if err != nil {
			return err
		}
		f.Status = s
	}
	if *category != "" {
		c, err := model.ParseCategory(*category)
		if err != nil {
			return err
		}
		f.Category = c
	}

	return a.render(search.Apply(a.lib.Videos(), f), *format)
}

func (a *app) cmdAsk(ctx context.Context, args []string) error {
	fs := newFlagSet("ask")
	format := fs.String("format", "text", "output format: text, json or yaml")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(positional, " "))
	if query == "" {
		return errors.New("usage: vb ask <query>")
	}
	if !a.ai.Configured() {
		return ai.ErrNotConfigured
	}

	videos := a.lib.Videos()
	f := search.Filter{Query: query}
	f.SetAIMode(true)
	f.SetAIResults(a.ai.SemanticSearch(ctx, videos, query))

	matches := search.Apply(videos, f)
	if len(matches) == 0 && *format == "text" {
		fmt.Fprintf(a.out, "No videos match %q\n", query)
		return nil
	}
	return a.render(matches, *format)
}

func (a *app) cmdSummarize(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vb summarize <id>")
	}
	v, err := a.resolve(args[0])
	if err != nil {
		return err
	}

	token, err := a.lib.Begin(v.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Summarizing %q...\n", v.Title)
	summary, err := a.ai.Summarize(ctx, v)
	if err != nil {
		return err
	}
	if a.ai.SummaryFailed(summary) {
		fmt.Fprintln(a.out, summary)
		return nil
	}

	_, err = a.lib.Merge(token, func(v *model.Video) {
		v.AISummary = summary
	})
	if errors.Is(err, library.ErrStale) {
		fmt.Fprintln(a.out, "The video changed while the summary was generated; summary discarded.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n%s\n", summary)
	return nil
}

func (a *app) cmdSuggest(ctx context.Context, args []string) error {
	fs := newFlagSet("suggest")
	dryRun := fs.Bool("dry-run", false, "show the suggestion without applying it")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: vb suggest [--dry-run] <id>")
	}
	if !a.ai.Configured() {
		return ai.ErrNotConfigured
	}

	v, err := a.resolve(positional[0])
	if err != nil {
		return err
	}

	token, err := a.lib.Begin(v.ID)
	if err != nil {
		return err
	}

	suggestion := a.ai.SuggestTags(ctx, v, a.lib.Store().AllTags())
	category, categoryErr := model.ParseCategory(suggestion.Category)
	if len(suggestion.Tags) == 0 && categoryErr != nil {
		fmt.Fprintln(a.out, "No suggestions")
		return nil
	}

	fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(suggestion.Tags, ", "))
	if categoryErr == nil {
		fmt.Fprintf(a.out, "Category: %s\n", category)
	}
	if *dryRun {
		return nil
	}

	updated, err := a.lib.Merge(token, func(v *model.Video) {
		v.Tags = model.MergeTags(v.Tags, suggestion.Tags)
		if categoryErr == nil {
			v.Category = category
		}
	})
	if errors.Is(err, library.ErrStale) {
		fmt.Fprintln(a.out, "The video changed in the meantime; suggestion discarded.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Applied to %q: [%s] %s\n", updated.Title, updated.Category, strings.Join(updated.Tags, ", "))
	return nil
}

func (a *app) cmdImport(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vb import <file.html>")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	videos, err := importer.ParseHTML(file)
	if err != nil {
		return fmt.Errorf("parse HTML: %w", err)
	}

	added, skipped, err := a.lib.Import(videos)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Imported %d videos", added)
	if skipped > 0 {
		fmt.Fprintf(a.out, " (%d skipped)", skipped)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) cmdExport(args []string) error {
	var outputPath string
	switch len(args) {
	case 0:
		var err error
		if outputPath, err = exporter.DefaultExportPath(); err != nil {
			return fmt.Errorf("default export path: %w", err)
		}
	case 1:
		outputPath = args[0]
	default:
		return errors.New("usage: vb export [path]")
	}

	store := a.lib.Store()
	if err := os.WriteFile(outputPath, []byte(exporter.ExportHTML(store)), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	fmt.Fprintf(a.out, "Exported %d videos to %s\n", len(store.Videos), outputPath)
	return nil
}

func (a *app) cmdCull(ctx context.Context, args []string) error {
	fs := newFlagSet("cull")
	yes := fs.Bool("yes", false, "move dead videos to Trash without asking")
	concurrency := fs.Int("concurrency", 10, "parallel checks")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	var candidates []model.Video
	for _, v := range a.lib.Videos() {
		if v.Status != model.StatusTrash {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		fmt.Fprintln(a.out, "Nothing to check")
		return nil
	}

	opts := culler.Options{
		Concurrency:    *concurrency,
		ExcludeDomains: a.cfg.CullExcludeDomains,
		OnProgress: func(completed, total int) {
			fmt.Fprintf(a.out, "\rChecking %d/%d", completed, total)
		},
	}
	if a.lookup != nil {
		opts.Lookup = a.lookup
	}
	results := culler.CheckURLs(ctx, candidates, opts)
	fmt.Fprintln(a.out)

	var unreachable int
	for _, r := range results {
		if r.Status == culler.Unreachable {
			unreachable++
			a.logger.Info("unreachable", slog.String("url", r.Video.URL), slog.String("reason", r.Error))
		}
	}

	dead := culler.DeadResults(results)
	if len(dead) == 0 {
		fmt.Fprintf(a.out, "No dead links (%d unreachable)\n", unreachable)
		return nil
	}

	fmt.Fprintf(a.out, "%d dead links (%d unreachable):\n", len(dead), unreachable)
	for _, r := range dead {
		reason := r.Error
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", r.StatusCode)
		}
		fmt.Fprintf(a.out, "  %s  %s (%s)\n", r.Video.Title, r.Video.URL, reason)
	}

	if !*yes && !a.confirm("Move them to Trash?") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	for _, r := range dead {
		form := model.FormFromVideo(*r.Video)
		form.Status = model.StatusTrash
		if err := a.lib.Update(r.Video.ID, form); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Moved %d videos to Trash\n", len(dead))
	return nil
}

// quickSearch fuzzy-matches titles and opens the chosen video.
func (a *app) quickSearch(query string) error {
	results := search.FuzzySearchVideos(a.lib.Store(), query)
	if len(results) == 0 {
		fmt.Fprintf(a.out, "No videos found for '%s'\n", query)
		return nil
	}

	selected := results[0].Video
	if len(results) > 1 {
		pick := a.pick
		if pick == nil {
			pick = runPicker
		}
		var err error
		if selected, err = pick(results, query); err != nil {
			return err
		}
		if selected == nil {
			return nil
		}
	}

	fmt.Fprintf(a.out, "Opening: %s\n", selected.Title)

	if selected.Status == model.StatusUnwatched {
		form := model.FormFromVideo(*selected)
		form.Status = model.StatusWatching
		if err := a.lib.Update(selected.ID, form); err != nil {
			return err
		}
	}

	return a.open(selected.URL)
}

func runPicker(results []search.SearchResult, query string) (*model.Video, error) {
	finalModel, err := tea.NewProgram(picker.New(results, query)).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	return finalModel.(picker.Picker).SelectedVideo(), nil
}

// resolve finds a video by full ID or unique ID prefix.
func (a *app) resolve(ref string) (model.Video, error) {
	if v, ok := a.lib.Get(ref); ok {
		return v, nil
	}

	var matches []model.Video
	for _, v := range a.lib.Videos() {
		if strings.HasPrefix(v.ID, ref) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return model.Video{}, fmt.Errorf("%w: %s", model.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return model.Video{}, fmt.Errorf("id prefix %q is ambiguous (%d videos)", ref, len(matches))
	}
}

func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(a.in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// listedVideo is the serialized form used by list --format json|yaml.
type listedVideo struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	URL       string   `json:"url" yaml:"url"`
	Tags      []string `json:"tags" yaml:"tags"`
	Category  string   `json:"category" yaml:"category"`
	Status    string   `json:"status" yaml:"status"`
	AddedAt   string   `json:"addedAt" yaml:"addedAt"`
	Notes     string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	AISummary string   `json:"aiSummary,omitempty" yaml:"aiSummary,omitempty"`
}

func (a *app) render(videos []model.Video, format string) error {
	switch format {
	case "json", "yaml":
		listed := make([]listedVideo, len(videos))
		for i, v := range videos {
			listed[i] = listedVideo{
				ID:        v.ID,
				Title:     v.Title,
				URL:       v.URL,
				Tags:      v.Tags,
				Category:  string(v.Category),
				Status:    string(v.Status),
				AddedAt:   v.AddedAt.UTC().Format(time.RFC3339),
				Notes:     v.Notes,
				AISummary: v.AISummary,
			}
		}
		if format == "yaml" {
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(listed); err != nil {
				return err
			}
			return enc.Close()
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(listed)

	case "text", "":
		if len(videos) == 0 {
			fmt.Fprintln(a.out, "No videos")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "TITLE", "CATEGORY", "STATUS", "TAGS")
		for _, v := range videos {
			t.Row(shortID(v.ID), truncate(v.Title, 50), string(v.Category), string(v.Status), strings.Join(v.Tags, ", "))
		}
		fmt.Fprintln(a.out, t.Render())
		return nil

	default:
		return fmt.Errorf("unknown format %q (text, json or yaml)", format)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// parseInterspersed parses flags that appear before or after positional
// arguments and returns the positional ones.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func splitTags(s string) []string {
	return model.NormalizeTags(strings.Split(s, ","))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
