package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikbrunner/vb/internal/model"
)

// Storage defines the interface for persisting the video list.
type Storage interface {
	Load() (*model.Store, error)
	Save(store *model.Store) error
}

// JSONStorage implements Storage using a single JSON file holding the
// array of all videos.
type JSONStorage struct {
	path string
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist or is empty.
func (s *JSONStorage) Load() (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewStore(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewStore(), nil
	}

	var videos []model.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	// Ensure slices are not nil
	if videos == nil {
		videos = []model.Video{}
	}
	for i := range videos {
		if videos[i].Tags == nil {
			videos[i].Tags = []string{}
		}
	}

	return &model.Store{Videos: videos}, nil
}

// Save rewrites the whole JSON file.
// Creates the directory if it doesn't exist. The write goes through a
// temporary file and a rename.
func (s *JSONStorage) Save(store *model.Store) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	videos := store.Videos
	if videos == nil {
		videos = []model.Video{}
	}

	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// DefaultDataDir returns the data directory: ~/.config/vb
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "vb"), nil
}

// DefaultJSONPath returns the default JSON path: ~/.config/vb/videos.json
func DefaultJSONPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "videos.json"), nil
}

// OpenStorage opens the backend selected in the config.
func OpenStorage(config *Config) (Storage, error) {
	switch config.Storage {
	case BackendSQLite:
		path := config.SQLitePath
		if path == "" {
			var err error
			if path, err = DefaultSQLitePath(); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStorage(path)
	case BackendJSON, "":
		path := config.JSONPath
		if path == "" {
			var err error
			if path, err = DefaultJSONPath(); err != nil {
				return nil, err
			}
		}
		return NewJSONStorage(path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage)
	}
}
