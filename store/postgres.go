package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// The value column is TEXT, not JSONB, so saved bytes come back unchanged.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS levgame_documents (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores the document as a row in a key/value table.
type Postgres struct {
	pool *pgxpool.Pool
	key  string
}

func NewPostgres(ctx context.Context, url, key string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable(err, "ping postgres")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create postgres schema")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Postgres{pool: pool, key: key}, nil
}

func (p *Postgres) Load(ctx context.Context) (*Document, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM levgame_documents WHERE key = $1`, p.key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable(err, "load postgres document")
	}
	d, err := Decode([]byte(value))
	if err != nil {
		return nil, unavailable(err, "load postgres document")
	}
	return d, nil
}

func (p *Postgres) Save(ctx context.Context, d *Document) error {
	payload, err := Encode(d)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO levgame_documents (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.key, string(payload))
	return unavailable(err, "save postgres document")
}

func (p *Postgres) Delete(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM levgame_documents WHERE key = $1`, p.key)
	return unavailable(err, "delete postgres document")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
