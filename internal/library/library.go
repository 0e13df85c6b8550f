// Package library binds the in-memory video store to a persistence backend.
// Every mutation rewrites the full list.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/storage"
)

// ErrStale is returned by Merge when the video changed after the token was taken.
var ErrStale = errors.New("video changed since the request started")

// Token identifies the revision of a video at the time a background
// operation started.
type Token struct {
	ID       string
	Revision uint64
}

// Library is the persisted video store.
type Library struct {
	mu        sync.Mutex
	store     *model.Store
	storage   storage.Storage
	revisions map[string]uint64
	logger    *slog.Logger
}

// Open loads the store from s. A missing or unreadable list starts empty.
func Open(s storage.Storage, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := s.Load()
	if err != nil {
		logger.Warn("could not load videos, starting empty", slog.Any("error", err))
		store = model.NewStore()
	}

	return &Library{
		store:     store,
		storage:   s,
		revisions: make(map[string]uint64),
		logger:    logger,
	}
}

// Videos returns a copy of the current list.
func (l *Library) Videos() []model.Video {
	l.mu.Lock()
	defer l.mu.Unlock()

	videos := make([]model.Video, len(l.store.Videos))
	copy(videos, l.store.Videos)
	return videos
}

// Store returns a snapshot of the current store.
func (l *Library) Store() *model.Store {
	return &model.Store{Videos: l.Videos()}
}

// Get returns the video with the given ID.
func (l *Library) Get(id string) (model.Video, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	video := l.store.GetVideoByID(id)
	if video == nil {
		return model.Video{}, false
	}
	return *video, true
}

// Create validates the form, adds a new video at the top and saves.
func (l *Library) Create(form model.VideoForm) (model.Video, error) {
	if err := form.Validate(); err != nil {
		return model.Video{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	video := l.store.Create(form)
	l.bump(video.ID)
	if err := l.save(); err != nil {
		return video, err
	}
	l.logger.Debug("video created", slog.String("id", video.ID), slog.String("url", video.URL))
	return video, nil
}

// Update validates the form, applies it to the video and saves.
func (l *Library) Update(id string, form model.VideoForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Update(id, form); err != nil {
		return err
	}
	l.bump(id)
	return l.save()
}

// Replace overwrites the video with the same ID and saves.
func (l *Library) Replace(video model.Video) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Replace(video); err != nil {
		return err
	}
	l.bump(video.ID)
	return l.save()
}

// Delete removes the video and saves. Callers confirm with the user first.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(id); err != nil {
		return err
	}
	delete(l.revisions, id)
	if err := l.save(); err != nil {
		return err
	}
	l.logger.Debug("video deleted", slog.String("id", id))
	return nil
}

// Import merges videos into the list, skipping known URLs and records the
// edit form would reject, and saves.
func (l *Library) Import(videos []model.Video) (added, skipped int, err error) {
	valid := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		form := model.FormFromVideo(v)
		if err := form.Validate(); err != nil {
			l.logger.Debug("skipping invalid import", slog.String("url", v.URL), slog.Any("error", err))
			skipped++
			continue
		}
		valid = append(valid, v)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged, known := l.store.ImportMerge(valid)
	added, skipped = merged, skipped+known
	if added == 0 {
		return added, skipped, nil
	}
	return added, skipped, l.save()
}

// Begin returns a token for the current revision of the video. Pass it to
// Merge when the background operation completes.
func (l *Library) Begin(id string) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store.GetVideoByID(id) == nil {
		return Token{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return Token{ID: id, Revision: l.revisions[id]}, nil
}

// Merge applies fn to the video only if it has not been mutated since the
// token was taken; otherwise it returns ErrStale and leaves the newer state.
func (l *Library) Merge(token Token, fn func(*model.Video)) (model.Video, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.store.GetVideoByID(token.ID)
	if current == nil {
		return model.Video{}, fmt.Errorf("%w: %s", model.ErrNotFound, token.ID)
	}
	if l.revisions[token.ID] != token.Revision {
		l.logger.Info("discarding stale result",
			slog.String("id", token.ID),
			slog.Uint64("token", token.Revision),
			slog.Uint64("current", l.revisions[token.ID]),
		)
		return *current, ErrStale
	}

	updated := *current
	updated.Tags = append([]string(nil), current.Tags...)
	fn(&updated)

	// Identity fields are never touched by a merge
	updated.ID = current.ID
	updated.AddedAt = current.AddedAt
	updated.Tags = model.NormalizeTags(updated.Tags)
	if !updated.Category.Valid() {
		updated.Category = current.Category
	}
	if !updated.Status.Valid() {
		updated.Status = current.Status
	}

	if err := l.store.Replace(updated); err != nil {
		return model.Video{}, err
	}
	l.bump(token.ID)
	return updated, l.save()
}

func (l *Library) bump(id string) {
	l.revisions[id]++
}

// save rewrites the whole list. Caller holds l.mu.
func (l *Library) save() error {
	if err := l.storage.Save(l.store); err != nil {
		l.logger.Error("could not save videos", slog.Any("error", err))
		return fmt.Errorf("save videos: %w", err)
	}
	return nil
}
