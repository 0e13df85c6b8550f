package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/nikbrunner/vb/internal/ai"
	"github.com/nikbrunner/vb/internal/library"
	"github.com/nikbrunner/vb/internal/storage"
	"github.com/nikbrunner/vb/internal/youtube"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		}
	}

	// A .env file is optional
	_ = godotenv.Load()

	configPath, err := storage.DefaultConfigFilePath()
	if err != nil {
		return fmt.Errorf("config path: %w", err)
	}
	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Debug)

	backend, err := storage.OpenStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}

	a := &app{
		lib:    library.Open(backend, logger),
		cfg:    cfg,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
		open:   openURL,
	}
	a.lookup = newLookup(ctx, logger)
	a.ai = newAIClient(cfg, a.lookup, logger)

	return a.dispatch(ctx, args)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newAIClient builds the generation client for the configured provider.
// Without an API key the client is returned unconfigured.
func newAIClient(cfg *storage.Config, lookup videoLookup, logger *slog.Logger) *ai.Client {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if cfg.Provider == storage.ProviderOpenAI {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	gen, err := ai.NewGenerator(ai.GeneratorParams{
		Provider: cfg.Provider,
		APIKey:   apiKey,
		Timeout:  time.Duration(cfg.RequestTimeout),
	})
	switch {
	case errors.Is(err, ai.ErrNoAPIKey):
		logger.Debug("no API key, AI features disabled", slog.String("provider", cfg.Provider))
	case err != nil:
		logger.Warn("could not create generator", slog.Any("error", err))
		gen = nil
	}

	model := cfg.Model
	if model == "" {
		model = ai.DefaultModel(cfg.Provider)
	}

	return ai.NewClient(ai.ClientParams{
		Generator: gen,
		Model:     model,
		Locale:    cfg.Locale,
		Lookup:    lookup,
		Logger:    logger,
	})
}

// newLookup returns a YouTube Data API client when YOUTUBE_API_KEY is set.
func newLookup(ctx context.Context, logger *slog.Logger) videoLookup {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		return nil
	}
	client, err := youtube.NewClient(ctx, apiKey)
	if err != nil {
		logger.Warn("could not create YouTube client", slog.Any("error", err))
		return nil
	}
	return client
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("cannot open a browser on %s", runtime.GOOS)
	}
	return cmd.Start()
}

func printHelp(w io.Writer) {
	help := `vb - video bookmark manager

Usage:
  vb                          List all videos
  vb <query>                  Quick search → select → open
  vb add [flags] <url>        Add a video (--ai fills in details from the link)
  vb edit [flags] <id>        Edit a video
  vb rm [--yes] <id>          Delete a video
  vb show <id>                Show all fields of a video
  vb list [flags]             List videos (--status, --category, --query, --format text|json|yaml)
  vb ask <query>              Semantic search over your videos
  vb summarize <id>           Generate and store an AI summary
  vb suggest <id>             Add AI-suggested tags and category
  vb import <file.html>       Import links from bookmark HTML
  vb export [path]            Export videos to bookmark HTML
  vb cull [--yes]             Find dead links and move them to Trash
  vb help                     Show this help

Flags for add and edit:
  --title, --tags a,b,c, --category, --status, --notes

IDs can be abbreviated to any unique prefix.

Picker keys:
  j/k         Move down/up
  g/G         Jump to top/bottom
  Enter       Open in browser
  y           Copy URL to clipboard
  q/Esc       Cancel

Categories: Programming, Fitness, Language, Design, Business, Science, Entertainment, Other
Statuses:   Unwatched, Watching, Completed, Archived, Trash

Environment:
  ANTHROPIC_API_KEY / OPENAI_API_KEY   enable AI features (provider set in config)
  YOUTUBE_API_KEY                      better metadata and dead-link checks for YouTube

Data Storage:
  ~/.config/vb/config.json
  ~/.config/vb/videos.json (or videos.db with "storage": "sqlite")
`
	fmt.Fprint(w, help)
}
