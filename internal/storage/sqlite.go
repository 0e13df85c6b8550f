package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/vb/internal/model"
)

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{
	`CREATE TABLE videos (
		id TEXT PRIMARY KEY NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		added_at TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_videos_position ON videos(position);
	CREATE INDEX idx_videos_url ON videos(url);`,

	`ALTER TABLE videos ADD COLUMN ai_summary TEXT;`,
}

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens the database at path, creating it and its
// directory if needed, and brings the schema up to date.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the number of migrations applied so far.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return version, err
}

func (s *SQLiteStorage) migrate() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return err
	}

	version, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for ; version < len(migrations); version++ {
		if err := s.step(version); err != nil {
			return fmt.Errorf("version %d: %w", version+1, err)
		}
	}
	return nil
}

// step applies one migration and records the new version atomically.
func (s *SQLiteStorage) step(from int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migrations[from]); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", from+1); err != nil {
		return err
	}
	return tx.Commit()
}

// Load reads the store from the SQLite database in list order.
func (s *SQLiteStorage) Load() (*model.Store, error) {
	store := model.NewStore()

	rows, err := s.db.Query(`
		SELECT id, title, url, tags, category, status, added_at, notes, ai_summary
		FROM videos
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Video
		var tagsJSON string
		var category, status string
		var addedAtStr string
		var aiSummary sql.NullString

		if err := rows.Scan(
			&v.ID, &v.Title, &v.URL, &tagsJSON,
			&category, &status, &addedAtStr, &v.Notes, &aiSummary,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(tagsJSON), &v.Tags); err != nil || v.Tags == nil {
			v.Tags = []string{}
		}

		if v.Category, err = model.ParseCategory(category); err != nil {
			v.Category = model.CategoryOther
		}
		if v.Status, err = model.ParseStatus(status); err != nil {
			v.Status = model.StatusUnwatched
		}

		if v.AddedAt, err = time.Parse(time.RFC3339Nano, addedAtStr); err != nil {
			return nil, fmt.Errorf("video %s: added_at: %w", v.ID, err)
		}

		if aiSummary.Valid {
			v.AISummary = aiSummary.String
		}

		store.Videos = append(store.Videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store, nil
}

// Save rewrites the whole list inside one transaction.
func (s *SQLiteStorage) Save(store *model.Store) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM videos"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO videos (id, position, title, url, tags, category, status, added_at, notes, ai_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range store.Videos {
		tagsJSON := []byte("[]")
		if v.Tags != nil {
			if tagsJSON, err = json.Marshal(v.Tags); err != nil {
				return err
			}
		}

		var aiSummary *string
		if v.AISummary != "" {
			aiSummary = &v.AISummary
		}

		if _, err := stmt.Exec(
			v.ID, i, v.Title, v.URL, string(tagsJSON),
			string(v.Category), string(v.Status),
			v.AddedAt.Format(time.RFC3339Nano), v.Notes, aiSummary,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/vb/videos.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "videos.db"), nil
}
