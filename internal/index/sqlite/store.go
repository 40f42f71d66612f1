// Package sqlite is a local, file-backed index backend. It stages submitted
// documents in a transaction and makes them durable on Commit, mirroring the
// submit/commit contract of a search server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"xcri-import/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS presentations (
    presentation_identifier TEXT PRIMARY KEY,
    course_identifier       TEXT NOT NULL DEFAULT '',
    document                TEXT NOT NULL,
    indexed_at              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS presentations_course ON presentations(course_identifier);`

const upsert = `INSERT INTO presentations (presentation_identifier, course_identifier, document, indexed_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(presentation_identifier) DO UPDATE SET
    course_identifier = excluded.course_identifier,
    document = excluded.document,
    indexed_at = excluded.indexed_at`

// ErrMissingKey is returned for a document without presentation_identifier.
var ErrMissingKey = errors.New("sqlite: document has no presentation_identifier")

// Store is safe for concurrent use; at most one staging transaction is open.
type Store struct {
	db   *sql.DB
	path string

	mu sync.Mutex
	tx *sql.Tx
}

// pragmas go in the DSN so every pooled connection gets them, not only the
// first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	q := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		q = append(q, "_pragma="+p)
	}
	return "file:" + path + "?" + strings.Join(q, "&")
}

// Open initializes or connects to the index database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Index stages docs. Documents written before a failing one stay staged and
// are kept by the next Commit.
func (s *Store) Index(ctx context.Context, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite: begin: %w", err)
		}
		s.tx = tx
	}

	stmt, err := s.tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, d := range docs {
		id, _ := d[domain.FieldPresentationIdentifier].(string)
		if id == "" {
			return fmt.Errorf("%w (document %d)", ErrMissingKey, i)
		}
		course, _ := d[domain.FieldCourseIdentifier].(string)

		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("sqlite: marshal %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, course, string(b), now); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", id, err)
		}
	}
	return nil
}

// Commit makes staged documents durable. It is a no-op when nothing is staged.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Get returns the committed document for a presentation.
func (s *Store) Get(ctx context.Context, presentationID string) (domain.Document, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM presentations WHERE presentation_identifier = ?`, presentationID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: get %s: %w", presentationID, err)
	}

	var d domain.Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, false, fmt.Errorf("sqlite: decode %s: %w", presentationID, err)
	}
	return d, true, nil
}

// Count returns the number of committed presentations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presentations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

// Close discards anything staged and closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	s.mu.Unlock()
	return s.db.Close()
}
