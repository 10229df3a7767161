package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS captures (
	identifier            TEXT PRIMARY KEY,
	url                   TEXT NOT NULL,
	captured_at           TIMESTAMPTZ NOT NULL,
	category              TEXT NOT NULL,
	content               TEXT NOT NULL,
	duplicate_of_previous BOOLEAN NOT NULL DEFAULT FALSE,
	version               INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tags (
	id                 BIGSERIAL PRIMARY KEY,
	capture_identifier TEXT NOT NULL REFERENCES captures(identifier) ON DELETE CASCADE,
	tag_type           TEXT NOT NULL,
	content            TEXT,
	location           TEXT,
	attributes         JSONB
)`

// Mirror receives best-effort copies of locally committed captures.
type Mirror interface {
	InsertCapture(ctx context.Context, c Capture) error
	InsertTag(ctx context.Context, identifier string, t Tag) error
	Ping(ctx context.Context) error
	Close()
}

// pgxPool is the slice of pgxpool.Pool the mirror needs; pgxmock
// satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresMirror mirrors captures to Postgres over a pgx pool.
type PostgresMirror struct {
	pool pgxPool
}

// OpenMirror connects to the remote database and verifies it responds.
func OpenMirror(ctx context.Context, dsn string) (*PostgresMirror, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect mirror: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &PostgresMirror{pool: pool}, nil
}

// NewMirrorWithPool wraps an existing pool. Used by tests.
func NewMirrorWithPool(pool pgxPool) *PostgresMirror {
	return &PostgresMirror{pool: pool}
}

// EnsureSchema creates the remote tables if they do not exist.
func (m *PostgresMirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, remoteSchema); err != nil {
		return fmt.Errorf("init mirror schema: %w", err)
	}
	return nil
}

// InsertCapture mirrors one capture row.
func (m *PostgresMirror) InsertCapture(ctx context.Context, c Capture) error {
	const q = `
INSERT INTO captures (identifier, url, captured_at, category, content, duplicate_of_previous, version)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := m.pool.Exec(ctx, q,
		c.Identifier, c.URL, c.CapturedAt.UTC(), c.Category, c.Content, c.DuplicateOfPrevious, c.Version,
	)
	if err != nil {
		return fmt.Errorf("mirror capture %s: %w", c.Identifier, err)
	}
	return nil
}

// InsertTag mirrors a single tag row. Tags are inserted one by one so a bad
// row loses only itself, not the rest of the capture's tags.
func (m *PostgresMirror) InsertTag(ctx context.Context, identifier string, t Tag) error {
	attrs, err := json.Marshal(t.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes for %s: %w", identifier, err)
	}
	const q = `
INSERT INTO tags (capture_identifier, tag_type, content, location, attributes)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := m.pool.Exec(ctx, q, identifier, t.TagType, t.Content, t.Location, string(attrs)); err != nil {
		return fmt.Errorf("mirror tag for %s: %w", identifier, err)
	}
	return nil
}

// Ping verifies the remote database is reachable.
func (m *PostgresMirror) Ping(ctx context.Context) error {
	if err := m.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (m *PostgresMirror) Close() {
	m.pool.Close()
}
