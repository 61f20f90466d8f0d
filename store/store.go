// Package store persists the game document. Every backend stores the same
// JSON payload under one key: in memory, in a file, in SQLite, in Redis or
// in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnavailable marks a failed read or write. Callers keep their
// in-memory state and retry on the next save.
var ErrUnavailable = errors.New("storage unavailable")

// Gateway is the persistence port.
type Gateway interface {
	// Load returns the stored document, or nil when nothing is stored yet.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the stored document.
	Save(ctx context.Context, d *Document) error

	// Delete removes the stored document; the next Load returns nil.
	Delete(ctx context.Context) error

	Close() error
}

const DefaultKey = "levgame"

// Config selects and addresses a backend.
type Config struct {
	Type string // memory, file, sqlite, redis, postgres
	Path string // file and sqlite
	Key  string // document key for kv backends
	URL  string // redis and postgres
}

// Open builds the backend named by cfg.Type.
func Open(ctx context.Context, cfg Config) (Gateway, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path)
	case "sqlite":
		return NewSQLite(cfg.Path, key)
	case "redis":
		return NewRedis(ctx, cfg.URL, key)
	case "postgres":
		return NewPostgres(ctx, cfg.URL, key)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

// unavailable wraps err with context and tags it ErrUnavailable.
func unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, errors.Wrap(err, msg))
}
