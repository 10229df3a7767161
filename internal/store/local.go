package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS captures (
	identifier            TEXT PRIMARY KEY,
	url                   TEXT NOT NULL,
	captured_at           TEXT NOT NULL,
	category              TEXT NOT NULL,
	content               TEXT NOT NULL,
	duplicate_of_previous INTEGER NOT NULL DEFAULT 0,
	version               INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tags (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	capture_identifier TEXT NOT NULL REFERENCES captures(identifier) ON DELETE CASCADE,
	tag_type           TEXT NOT NULL,
	content            TEXT,
	location           TEXT,
	attributes         TEXT
);

CREATE INDEX IF NOT EXISTS idx_tags_capture ON tags(capture_identifier);

CREATE TABLE IF NOT EXISTS sequence_counters (
	source_code   TEXT NOT NULL,
	category_char TEXT NOT NULL,
	last_sequence INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source_code, category_char)
);
`

// Local is the authoritative capture store, backed by SQLite.
type Local struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenLocal opens (creating if needed) the SQLite database at path.
func OpenLocal(ctx context.Context, path string, logger *zap.Logger) (*Local, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Serialize writers; SQLite allows only one anyway and the archiver
	// writes strictly one capture at a time.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &Local{db: db, logger: logger}, nil
}

// InitSchema creates the capture, tag, and sequence tables if missing.
func (l *Local) InitSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, localSchema); err != nil {
		return fmt.Errorf("init local schema: %w", err)
	}
	return nil
}

// NextSequence atomically advances and returns the counter for the
// (source code, category) pair, starting at 1 for a fresh pair.
func (l *Local) NextSequence(ctx context.Context, sourceCode, categoryChar string) (int64, error) {
	const q = `
INSERT INTO sequence_counters (source_code, category_char, last_sequence)
VALUES (?, ?, 1)
ON CONFLICT (source_code, category_char)
DO UPDATE SET last_sequence = last_sequence + 1
RETURNING last_sequence`

	var seq int64
	if err := l.db.QueryRowContext(ctx, q, sourceCode, categoryChar).Scan(&seq); err != nil {
		return 0, fmt.Errorf("%w: advance sequence %s/%s: %v", ErrUnavailable, sourceCode, categoryChar, err)
	}
	return seq, nil
}

// HasIdenticalContent reports whether any prior capture of url stored
// byte-identical content.
func (l *Local) HasIdenticalContent(ctx context.Context, url, content string) (bool, error) {
	const q = `SELECT 1 FROM captures WHERE url = ? AND content = ? LIMIT 1`
	var one int
	err := l.db.QueryRowContext(ctx, q, url, content).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("duplicate probe for %s: %w", url, err)
	}
	return true, nil
}

// SaveCapture writes the capture and all its tags in one transaction.
// Any failure rolls the whole capture back.
func (l *Local) SaveCapture(ctx context.Context, c Capture, tags []Tag) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin capture tx: %w", err)
	}
	defer tx.Rollback()

	const insCapture = `
INSERT INTO captures (identifier, url, captured_at, category, content, duplicate_of_previous, version)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insCapture,
		c.Identifier,
		c.URL,
		c.CapturedAt.UTC().Format(time.RFC3339),
		c.Category,
		c.Content,
		c.DuplicateOfPrevious,
		c.Version,
	)
	if err != nil {
		return fmt.Errorf("insert capture %s: %w", c.Identifier, err)
	}

	const insTag = `
INSERT INTO tags (capture_identifier, tag_type, content, location, attributes)
VALUES (?, ?, ?, ?, ?)`
	for _, t := range tags {
		attrs, err := json.Marshal(t.Attributes)
		if err != nil {
			return fmt.Errorf("marshal attributes for %s: %w", c.Identifier, err)
		}
		if _, err := tx.ExecContext(ctx, insTag, c.Identifier, t.TagType, t.Content, t.Location, string(attrs)); err != nil {
			return fmt.Errorf("insert tag for %s: %w", c.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit capture %s: %w", c.Identifier, err)
	}
	return nil
}

// CaptureByIdentifier loads a stored capture.
func (l *Local) CaptureByIdentifier(ctx context.Context, identifier string) (Capture, error) {
	const q = `
SELECT identifier, url, captured_at, category, content, duplicate_of_previous, version
FROM captures WHERE identifier = ?`

	var (
		c  Capture
		at string
	)
	err := l.db.QueryRowContext(ctx, q, identifier).Scan(
		&c.Identifier, &c.URL, &at, &c.Category, &c.Content, &c.DuplicateOfPrevious, &c.Version,
	)
	if err != nil {
		return Capture{}, fmt.Errorf("load capture %s: %w", identifier, err)
	}
	c.CapturedAt, err = time.Parse(time.RFC3339, at)
	if err != nil {
		return Capture{}, fmt.Errorf("parse captured_at for %s: %w", identifier, err)
	}
	return c, nil
}

// TagCount returns the number of tags stored for a capture.
func (l *Local) TagCount(ctx context.Context, identifier string) (int, error) {
	const q = `SELECT COUNT(*) FROM tags WHERE capture_identifier = ?`
	var n int
	if err := l.db.QueryRowContext(ctx, q, identifier).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tags for %s: %w", identifier, err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (l *Local) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *Local) Close() error {
	return l.db.Close()
}
