package storage_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/storage"
	"gotest.tools/v3/assert"
)

func newSQLite(t *testing.T, name string) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_SaveAndLoad(t *testing.T) {
	s := newSQLite(t, "videos.db")
	store := sampleStore()

	if err := s.Save(store); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	assert.DeepEqual(t, loaded.Videos, store.Videos)
}

func TestSQLiteStorage_EmptyDatabase(t *testing.T) {
	s := newSQLite(t, "empty.db")

	store, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load empty db: %v", err)
	}
	if len(store.Videos) != 0 {
		t.Error("expected empty store")
	}
}

func TestSQLiteStorage_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "videos.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage with nested dir: %v", err)
	}
	defer s.Close()

	if err := s.Save(model.NewStore()); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
}

func TestSQLiteStorage_NilTags(t *testing.T) {
	s := newSQLite(t, "nil.db")

	store := &model.Store{
		Videos: []model.Video{
			{ID: "v1", Title: "No tags", URL: "https://x.dev", Tags: nil,
				Category: model.CategoryOther, Status: model.StatusUnwatched},
		},
	}
	assert.NilError(t, s.Save(store))

	loaded, err := s.Load()
	assert.NilError(t, err)
	if loaded.Videos[0].Tags == nil {
		t.Error("expected tags to be empty slice, not nil")
	}
	if loaded.Videos[0].AISummary != "" {
		t.Error("expected empty summary")
	}
}

func TestSQLiteStorage_SaveReplacesEverything(t *testing.T) {
	s := newSQLite(t, "replace.db")

	assert.NilError(t, s.Save(sampleStore()))

	store := sampleStore()
	if err := store.Delete("v2"); err != nil {
		t.Fatal(err)
	}
	store.Videos[0].Title = "Renamed"
	assert.NilError(t, s.Save(store))

	loaded, err := s.Load()
	assert.NilError(t, err)
	assert.Equal(t, len(loaded.Videos), 2)
	assert.Equal(t, loaded.Videos[0].Title, "Renamed")
	assert.Equal(t, loaded.Videos[1].ID, "v3")
}

func TestSQLiteStorage_MigratesToCurrentVersion(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "migrate.db")

	s, err := storage.NewSQLiteStorage(dbPath)
	assert.NilError(t, err)
	assert.NilError(t, s.Save(sampleStore()))
	assert.NilError(t, s.Close())

	// Reopening must not rerun migrations
	s, err = storage.NewSQLiteStorage(dbPath)
	assert.NilError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion()
	assert.NilError(t, err)
	assert.Equal(t, version, 2)

	loaded, err := s.Load()
	assert.NilError(t, err)
	assert.Equal(t, len(loaded.Videos), 3)
}

func TestSQLiteStorage_BadTimestamp(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bad.db")
	s, err := storage.NewSQLiteStorage(dbPath)
	assert.NilError(t, err)
	defer s.Close()
	assert.NilError(t, s.Save(sampleStore()))

	db, err := sql.Open("sqlite", dbPath)
	assert.NilError(t, err)
	_, err = db.Exec("UPDATE videos SET added_at = 'last tuesday' WHERE id = 'v2'")
	assert.NilError(t, err)
	assert.NilError(t, db.Close())

	_, err = s.Load()
	assert.ErrorContains(t, err, "video v2: added_at")
}
