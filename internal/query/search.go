package query

import (
	"context"
	"strings"
	"time"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/graph"
	"codefacts/internal/storage"
)

// SearchOptions configures SearchFacts.
type SearchOptions struct {
	Query string
	// Type restricts hits to one fact type.
	Type  facts.Type
	Limit int
}

// SearchHit is one decoded search result.
type SearchHit struct {
	ID        string     `json:"id"`
	Type      facts.Type `json:"type"`
	Name      string     `json:"name,omitempty"`
	Score     float64    `json:"score"`
	MatchType string     `json:"matchType"`
	Content   string     `json:"content"`
	Fact      facts.Fact `json:"fact"`
}

// SearchResponse lists search hits in ranking order.
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// SearchFacts runs the store's text search and decodes each hit. Documents
// that are not facts are dropped.
func (e *Engine) SearchFacts(ctx context.Context, store storage.DocumentStore, opts SearchOptions) (*SearchResponse, error) {
	q := strings.TrimSpace(opts.Query)
	if q == "" {
		return nil, cferrors.Invalid("query is required")
	}
	if opts.Type != "" {
		if _, ok := facts.ParseType(string(opts.Type)); !ok {
			return nil, cferrors.Invalid("unknown fact type %q", opts.Type)
		}
	}
	limit := e.clampLimit(opts.Limit)

	fetch := limit
	if opts.Type != "" {
		fetch = e.limits.MaxLimit
	}
	results, err := store.SearchText(ctx, q, fetch)
	if err != nil {
		e.logger.Error("Text search failed", "query", q, "error", err)
		return nil, cferrors.Store("search documents", err)
	}

	resp := &SearchResponse{Query: q, Hits: []SearchHit{}}
	for _, r := range results {
		if len(resp.Hits) >= limit {
			break
		}
		f, err := facts.Decode(r.Metadata)
		if err != nil {
			continue
		}
		if opts.Type != "" && f.Type() != opts.Type {
			continue
		}
		resp.Hits = append(resp.Hits, SearchHit{
			ID:        r.ID,
			Type:      f.Type(),
			Name:      facts.Name(f),
			Score:     r.Score,
			MatchType: r.MatchType,
			Content:   r.Content,
			Fact:      f,
		})
	}
	return resp, nil
}

// StatsResponse summarizes a store.
type StatsResponse struct {
	Counts     map[facts.Type]int `json:"counts"`
	Total      int                `json:"total"`
	Skipped    int                `json:"skipped"`
	Malformed  int                `json:"malformed"`
	Duplicates int                `json:"duplicates"`
	CallEdges  int                `json:"callEdges"`
	ScannedAt  time.Time          `json:"scannedAt"`
}

// Stats counts stored facts per type. Duplicates counts identity keys held
// by more than one document, which ingestion should never produce.
func (e *Engine) Stats(ctx context.Context, store storage.DocumentStore) (*StatsResponse, error) {
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}
	dups := snap.Duplicates()
	if len(dups) > 0 {
		e.logger.Warn("Store holds duplicate facts", "keys", len(dups))
	}
	return &StatsResponse{
		Counts:     snap.CountByType(),
		Total:      len(snap.Entries),
		Skipped:    snap.Skipped,
		Malformed:  snap.Malformed,
		Duplicates: len(dups),
		CallEdges:  graph.NewIndex(snap).NumEdges(),
		ScannedAt:  snap.ScannedAt,
	}, nil
}
