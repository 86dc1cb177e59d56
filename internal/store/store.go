// Package store handles SQLite persistence for the document cache.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/hearme/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// schemaVersion is stored in PRAGMA user_version. Older cache tables are
// dropped and rebuilt; they only hold re-extractable text.
const schemaVersion = 2

// Store wraps SQLite access for cached documents.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	stmts := []string{}
	if version < schemaVersion {
		stmts = append(stmts, `DROP TABLE IF EXISTS documents;`)
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS documents (
			hash TEXT NOT NULL,
			max_chars INTEGER NOT NULL,
			page_limit INTEGER NOT NULL,
			path TEXT NOT NULL,
			format TEXT NOT NULL,
			expected_text TEXT NOT NULL,
			pages INTEGER NOT NULL,
			first_opened_at TEXT NOT NULL,
			last_opened_at TEXT NOT NULL,
			open_count INTEGER NOT NULL,
			PRIMARY KEY (hash, max_chars, page_limit)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_last_opened_at ON documents(last_opened_at);`,
		fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion),
	)
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDocument records an opened document, bumping its open count when the
// same content was seen before with the same extraction limits.
func (s *Store) SaveDocument(ctx context.Context, doc model.Document, maxChars, pageLimit int) error {
	now := s.now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (hash, max_chars, page_limit, path, format, expected_text, pages, first_opened_at, last_opened_at, open_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT (hash, max_chars, page_limit) DO UPDATE SET
			path = excluded.path,
			last_opened_at = excluded.last_opened_at,
			open_count = documents.open_count + 1`,
		doc.Hash,
		maxChars,
		pageLimit,
		doc.Path,
		string(doc.Format),
		doc.Expected,
		doc.Pages,
		now,
		now,
	)
	return err
}

// GetDocument returns the cached document for a content hash and limits.
func (s *Store) GetDocument(ctx context.Context, hash string, maxChars, pageLimit int) (model.Document, bool, error) {
	var doc model.Document
	var format string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, path, format, expected_text, pages
		 FROM documents
		 WHERE hash = ? AND max_chars = ? AND page_limit = ?`,
		hash, maxChars, pageLimit,
	).Scan(&doc.Hash, &doc.Path, &format, &doc.Expected, &doc.Pages)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, err
	}
	doc.Format = model.Format(format)
	return doc, true, nil
}

// ListDocuments returns cached documents, most recently opened first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]model.DocumentSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, max_chars, page_limit, path, format, pages, length(expected_text), first_opened_at, last_opened_at, open_count
		 FROM documents
		 ORDER BY last_opened_at DESC, path ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.DocumentSummary
	for rows.Next() {
		var sum model.DocumentSummary
		var format, firstOpened, lastOpened string
		if err := rows.Scan(&sum.Hash, &sum.MaxChars, &sum.PageLimit, &sum.Path, &format, &sum.Pages, &sum.ExpectedChars, &firstOpened, &lastOpened, &sum.OpenCount); err != nil {
			return nil, err
		}
		sum.Format = model.Format(format)
		if sum.FirstOpenedAt, err = time.Parse(time.RFC3339Nano, firstOpened); err != nil {
			return nil, err
		}
		if sum.LastOpenedAt, err = time.Parse(time.RFC3339Nano, lastOpened); err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
