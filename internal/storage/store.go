// Package storage provides the ID-keyed document stores that hold a project's facts.
//
// A document is opaque text plus a flat string metadata map. The fact layers
// above only use the DocumentStore contract; the backend is picked by config.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"codefacts/internal/config"
)

// Document is one stored record.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Match types reported by SearchText, best first.
const (
	MatchExact     = "exact"
	MatchPrefix    = "prefix"
	MatchSubstring = "substring"
)

// SearchResult is a ranked hit from SearchText.
type SearchResult struct {
	Document
	Score     float64 `json:"score"`
	MatchType string  `json:"matchType"`
}

// DocumentStore is the persistence contract the fact index relies on.
// Implementations must be safe for concurrent use.
type DocumentStore interface {
	// AddText stores a new document and returns its generated id.
	AddText(ctx context.Context, content string, metadata map[string]string) (string, error)
	// Get returns the document, or nil with no error when id is unknown.
	Get(ctx context.Context, id string) (*Document, error)
	// GetAllIDs lists every document id in ascending order.
	GetAllIDs(ctx context.Context) ([]string, error)
	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// SearchText returns up to limit documents ranked by text relevance.
	SearchText(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}

const defaultSearchLimit = 20

// Open opens the configured backend under dir.
func Open(cfg config.StoreConfig, dir string, logger *slog.Logger) (DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return OpenSQLite(filepath.Join(dir, "facts.db"), SQLiteOptions{
			BusyTimeout: time.Duration(cfg.SQLite.BusyTimeoutMs) * time.Millisecond,
		})
	case config.BackendBadger:
		return OpenBadger(BadgerOptions{
			Path:       filepath.Join(dir, "badger"),
			SyncWrites: cfg.Badger.SyncWrites,
			GCInterval: time.Duration(cfg.Badger.GCIntervalSeconds) * time.Second,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
