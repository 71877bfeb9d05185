// Package factstore turns a document store into typed fact snapshots.
//
// Every read-side component (graph, query, diff, consistency) starts from a
// Snapshot: a full scan of "all current ids" followed by a fetch per id. There
// is no isolation from concurrent writers; a snapshot reflects whatever the
// store held while it was being read.
package factstore

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/metrics"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// Entry is one decoded fact and the id of the document holding it.
type Entry struct {
	ID   string
	Fact facts.Fact
}

// Snapshot is the typed view of a store at scan time.
type Snapshot struct {
	Entries []Entry
	// Skipped counts documents without a known fact type.
	Skipped int
	// Malformed counts documents with a known type that failed to decode.
	Malformed int
	ScannedAt time.Time
}

// Reader loads snapshots.
type Reader struct {
	concurrency int
	logger      *slog.Logger
}

// NewReader creates a reader fetching up to concurrency documents at a time.
func NewReader(concurrency int, logger *slog.Logger) *Reader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reader{concurrency: concurrency, logger: slogutil.OrDiscard(logger)}
}

// Load scans the whole store. A document deleted between listing and
// fetching is ignored. Store errors are returned as STORE_FAILURE.
func (r *Reader) Load(ctx context.Context, store storage.DocumentStore) (*Snapshot, error) {
	start := time.Now()
	ids, err := store.GetAllIDs(ctx)
	if err != nil {
		r.logger.Error("Failed to list documents", "error", err)
		return nil, cferrors.Store("list documents", err)
	}

	docs := make([]*storage.Document, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, err := store.Get(gctx, id)
			if err != nil {
				r.logger.Error("Failed to fetch document", "docId", id, "error", err)
				return cferrors.Store("get document "+id, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Entries: make([]Entry, 0, len(ids)), ScannedAt: start}
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		f, err := facts.Decode(doc.Metadata)
		switch {
		case err == nil:
			snap.Entries = append(snap.Entries, Entry{ID: ids[i], Fact: f})
		case errors.Is(err, facts.ErrUntyped), errors.Is(err, facts.ErrUnknownType):
			snap.Skipped++
		default:
			snap.Malformed++
			r.logger.Warn("Skipping malformed fact document", "docId", ids[i], "error", err)
		}
	}

	metrics.StoreScanDocuments.Observe(float64(len(ids)))
	r.logger.Debug("Loaded fact snapshot",
		"documents", len(ids),
		"facts", len(snap.Entries),
		"skipped", snap.Skipped,
		"malformed", snap.Malformed,
		"duration", time.Since(start),
	)
	return snap, nil
}

// ByType returns the entries of type t in store order.
func (s *Snapshot) ByType(t facts.Type) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Fact.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// Calls returns every method_call fact.
func (s *Snapshot) Calls() []facts.MethodCall {
	var out []facts.MethodCall
	for _, e := range s.Entries {
		if c, ok := e.Fact.(facts.MethodCall); ok {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns every method_definition fact.
func (s *Snapshot) Methods() []facts.MethodDefinition {
	var out []facts.MethodDefinition
	for _, e := range s.Entries {
		if m, ok := e.Fact.(facts.MethodDefinition); ok {
			out = append(out, m)
		}
	}
	return out
}

// Classes returns every class_definition fact.
func (s *Snapshot) Classes() []facts.ClassDefinition {
	var out []facts.ClassDefinition
	for _, e := range s.Entries {
		if c, ok := e.Fact.(facts.ClassDefinition); ok {
			out = append(out, c)
		}
	}
	return out
}

// Key identifies a fact across types.
type Key struct {
	Type     facts.Type
	Identity string
}

// KeyOf returns the cross-type key of f.
func KeyOf(f facts.Fact) Key {
	return Key{Type: f.Type(), Identity: f.IdentityKey()}
}

// IDsByKey groups document ids by fact key. More than one id per key means
// the store holds duplicates.
func (s *Snapshot) IDsByKey() map[Key][]string {
	out := make(map[Key][]string, len(s.Entries))
	for _, e := range s.Entries {
		k := KeyOf(e.Fact)
		out[k] = append(out[k], e.ID)
	}
	return out
}

// CountByType counts entries per fact type. Every type is present.
func (s *Snapshot) CountByType() map[facts.Type]int {
	out := make(map[facts.Type]int, len(facts.AllTypes))
	for _, t := range facts.AllTypes {
		out[t] = 0
	}
	for _, e := range s.Entries {
		out[e.Fact.Type()]++
	}
	return out
}

// Duplicates lists keys stored under more than one document, sorted.
func (s *Snapshot) Duplicates() []Key {
	var out []Key
	for k, ids := range s.IDsByKey() {
		if len(ids) > 1 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}
