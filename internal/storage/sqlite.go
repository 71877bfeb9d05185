package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteOptions tunes the sqlite backend.
type SQLiteOptions struct {
	BusyTimeout time.Duration
}

// SQLiteStore keeps documents in a sqlite table with an FTS5 index over content.
type SQLiteStore struct {
	db *sql.DB
}

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		content,
		content='documents',
		content_rowid='rowid'
	)`,
	`CREATE TRIGGER IF NOT EXISTS documents_fts_ai AFTER INSERT ON documents BEGIN
		INSERT INTO documents_fts(rowid, content) VALUES (new.rowid, new.content);
	END`,
	`CREATE TRIGGER IF NOT EXISTS documents_fts_au AFTER UPDATE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		INSERT INTO documents_fts(rowid, content) VALUES (new.rowid, new.content);
	END`,
	`CREATE TRIGGER IF NOT EXISTS documents_fts_ad AFTER DELETE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	END`,
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, opts SQLiteOptions) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "temp_store(MEMORY)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// AddText implements DocumentStore.
func (s *SQLiteStore) AddText(ctx context.Context, content string, metadata map[string]string) (string, error) {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, content, metadata) VALUES (?, ?, ?)`, id, content, string(meta)); err != nil {
		return "", err
	}
	return id, nil
}

// Get implements DocumentStore.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	var content, meta string
	err := s.db.QueryRowContext(ctx, `SELECT content, metadata FROM documents WHERE id = ?`, id).Scan(&content, &meta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc := &Document{ID: id, Content: content}
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("corrupt metadata for document %s: %w", id, err)
	}
	return doc, nil
}

// GetAllIDs implements DocumentStore.
func (s *SQLiteStore) GetAllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete implements DocumentStore.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SearchText runs an exact phrase match first, then a phrase-prefix match,
// then a LIKE scan, until limit results are collected.
func (s *SQLiteStore) SearchText(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	query = strings.TrimSpace(query)
	results := []SearchResult{}
	if query == "" {
		return results, nil
	}

	seen := make(map[string]bool)
	add := func(batch []SearchResult) {
		for _, r := range batch {
			if len(results) >= limit || seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			results = append(results, r)
		}
	}

	phrase := `"` + escapeFTS5Phrase(query) + `"`
	tiers := []struct {
		match string
		score float64
		fn    func() ([]SearchResult, error)
	}{
		{MatchExact, 1.0, func() ([]SearchResult, error) { return s.searchFTS(ctx, phrase, limit) }},
		{MatchPrefix, 0.8, func() ([]SearchResult, error) { return s.searchFTS(ctx, phrase+"*", limit) }},
		{MatchSubstring, 0.5, func() ([]SearchResult, error) { return s.searchLike(ctx, query, limit) }},
	}
	for _, tier := range tiers {
		if len(results) >= limit {
			break
		}
		batch, err := tier.fn()
		if err != nil {
			if tier.match != MatchSubstring && ctx.Err() == nil && isFTSQueryError(err) {
				// odd input the FTS parser rejects falls through to the next tier
				continue
			}
			return nil, fmt.Errorf("search %s: %w", tier.match, err)
		}
		for i := range batch {
			batch[i].MatchType = tier.match
			batch[i].Score = tier.score
		}
		add(batch)
	}
	return results, nil
}

func (s *SQLiteStore) searchFTS(ctx context.Context, match string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, d.metadata
		FROM documents_fts f
		JOIN documents d ON f.rowid = d.rowid
		WHERE documents_fts MATCH ?
		ORDER BY bm25(documents_fts)
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *SQLiteStore) searchLike(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata
		FROM documents
		WHERE content LIKE ? ESCAPE '\' OR metadata LIKE ? ESCAPE '\'
		ORDER BY id
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var meta string
		if err := rows.Scan(&r.ID, &r.Content, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close implements DocumentStore.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// isFTSQueryError reports whether err is the FTS5 parser rejecting a MATCH
// expression, as opposed to the database failing.
func isFTSQueryError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5:") ||
		strings.Contains(msg, "malformed match") ||
		strings.Contains(msg, "unterminated string")
}

// escapeFTS5Phrase escapes a string for use inside an FTS5 "phrase".
func escapeFTS5Phrase(q string) string {
	return strings.ReplaceAll(q, `"`, `""`)
}

func escapeLike(q string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
}
