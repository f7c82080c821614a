package sqliterepo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abase/abase-manager/clientstore"
	apperrors "github.com/abase/abase-manager/internal/errors"
)

var _ clientstore.Repo = (*Repo)(nil)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Repo persists client storage in a single sqlite table.
type Repo struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite file at path.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("[sqliterepo.Open] failed to open database: %w", err)
	}
	// One writer keeps sqlite away from SQLITE_BUSY on upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqliterepo.Open] failed to create schema: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Get(key string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}
	var value string
	err := r.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[sqliterepo.Get] %s: %w", key, err)
	}
	return value, nil
}

func (r *Repo) Set(key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	_, err := r.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, NowTimeFunc().UTC(),
	)
	if err != nil {
		return fmt.Errorf("[sqliterepo.Set] %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Delete(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if _, err := r.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("[sqliterepo.Delete] %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}
