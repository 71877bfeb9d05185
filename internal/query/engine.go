// Package query answers enumeration and detail queries over the facts held
// in a project's document store.
package query

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// Engine runs queries against a document store. It holds no fact state;
// every call reads a fresh snapshot.
type Engine struct {
	reader *factstore.Reader
	limits config.QueryConfig
	logger *slog.Logger
}

// NewEngine creates a query engine.
func NewEngine(reader *factstore.Reader, limits config.QueryConfig, logger *slog.Logger) *Engine {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 50
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = limits.DefaultLimit
	}
	return &Engine{reader: reader, limits: limits, logger: slogutil.OrDiscard(logger)}
}

// Page is the pagination envelope shared by list responses.
type Page struct {
	TotalCount int  `json:"totalCount"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"hasMore"`
}

// window resolves limit/offset and returns the bounds of the requested page
// within a filtered set of n items.
func (e *Engine) window(n, limit, offset int) (Page, int, int, error) {
	if offset < 0 {
		return Page{}, 0, 0, cferrors.Invalid("offset must not be negative, got %d", offset)
	}
	limit = e.clampLimit(limit)
	start := min(offset, n)
	end := min(start+limit, n)
	return Page{TotalCount: n, Offset: offset, Limit: limit, HasMore: end < n}, start, end, nil
}

// clampLimit applies the default to non-positive limits and caps the rest.
func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.limits.DefaultLimit
	}
	return min(limit, e.limits.MaxLimit)
}

func (e *Engine) load(ctx context.Context, store storage.DocumentStore) (*factstore.Snapshot, error) {
	return e.reader.Load(ctx, store)
}

// matches is a case-insensitive substring test; an empty filter matches all.
func matches(value, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

func requireFQN(kind, fqn string) (string, error) {
	fqn = strings.TrimSpace(fqn)
	if fqn == "" {
		return "", cferrors.Invalid("%s is required", kind)
	}
	return fqn, nil
}

func lessLocated(aKey string, a facts.Location, bKey string, b facts.Location) bool {
	if aKey != bKey {
		return aKey < bKey
	}
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	return a.LineNumber < b.LineNumber
}

func sortFacts[T facts.Fact](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return lessLocated(items[i].IdentityKey(), items[i].Location(), items[j].IdentityKey(), items[j].Location())
	})
}

// shortName returns the last dotted segment of an FQN.
func shortName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
