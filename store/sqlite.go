package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLite stores the document as a row in a key/value table.
type SQLite struct {
	db  *sql.DB
	key string
}

func NewSQLite(path, key string) (*SQLite, error) {
	if path == "" {
		path = "./levgame.db"
	}
	if key == "" {
		key = DefaultKey
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite store")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create sqlite schema")
	}
	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) (*Document, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable(err, "load sqlite document")
	}
	d, err := Decode([]byte(value))
	if err != nil {
		return nil, unavailable(err, "load sqlite document")
	}
	return d, nil
}

func (s *SQLite) Save(ctx context.Context, d *Document) error {
	payload, err := Encode(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(payload), time.Now().UTC())
	return unavailable(err, "save sqlite document")
}

// Delete removes the stored document.
func (s *SQLite) Delete(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, s.key)
	return unavailable(err, "delete sqlite document")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
