// Package ingest validates fact records and writes them to a document store
// without ever creating two documents for the same fact.
package ingest

import (
	"context"
	"log/slog"
	"time"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/metrics"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// Result labels for the ingestion metric.
const (
	ResultWritten   = "written"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
	ResultDuplicate = "duplicate"
)

// Stats counts what one ingestion did.
type Stats struct {
	Received   int `json:"received"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
	Written    int `json:"written"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	// Repaired counts redundant stored copies removed along the way.
	Repaired int `json:"repaired"`
}

// Result is the outcome of Ingest.
type Result struct {
	Stats
	// Failures lists every invalid record with all of its violations.
	Failures []facts.IndexedResult `json:"failures,omitempty"`
}

// Progress is called after each fact is handled.
type Progress func(done, total int)

// Ingester writes validated facts to a store.
type Ingester struct {
	reader    *factstore.Reader
	validator *facts.Validator
	logger    *slog.Logger
}

// NewIngester creates an ingester.
func NewIngester(reader *factstore.Reader, logger *slog.Logger) *Ingester {
	return &Ingester{
		reader:    reader,
		validator: facts.NewValidator(),
		logger:    slogutil.OrDiscard(logger),
	}
}

type stored struct {
	id          string
	fingerprint string
}

// Ingest validates recs, drops batch duplicates (first wins) and upserts the
// rest: a fact already stored with identical attributes is left alone, a
// changed fact replaces the stored one. Invalid records are never written and
// do not fail the call. A store error aborts with STORE_FAILURE.
func (in *Ingester) Ingest(ctx context.Context, store storage.DocumentStore, recs []facts.Record, progress Progress) (*Result, error) {
	start := time.Now()
	res := &Result{Stats: Stats{Received: len(recs)}}

	valid, failures := in.validator.ValidateBatch(recs)
	res.Failures = failures
	res.Invalid = len(failures)
	for _, f := range failures {
		metrics.ValidationFailures.WithLabelValues(recs[f.Index].Type()).Inc()
	}

	batch := make([]facts.Fact, 0, len(valid))
	seen := make(map[factstore.Key]bool, len(valid))
	for _, f := range valid {
		k := factstore.KeyOf(f)
		if seen[k] {
			res.Duplicates++
			metrics.FactsIngested.WithLabelValues(string(f.Type()), ResultDuplicate).Inc()
			continue
		}
		seen[k] = true
		batch = append(batch, f)
	}

	snap, err := in.reader.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	existing := make(map[factstore.Key][]stored)
	for _, e := range snap.Entries {
		k := factstore.KeyOf(e.Fact)
		existing[k] = append(existing[k], stored{id: e.ID, fingerprint: facts.Fingerprint(e.Fact)})
	}

	for i, f := range batch {
		result, err := in.upsert(ctx, store, f, existing[factstore.KeyOf(f)], &res.Stats)
		if err != nil {
			return nil, err
		}
		metrics.FactsIngested.WithLabelValues(string(f.Type()), result).Inc()
		if progress != nil {
			progress(i+1, len(batch))
		}
	}

	in.logger.Info("Ingested facts",
		"received", res.Received,
		"invalid", res.Invalid,
		"duplicates", res.Duplicates,
		"written", res.Written,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"repaired", res.Repaired,
		"duration", time.Since(start),
	)
	return res, nil
}

func (in *Ingester) upsert(ctx context.Context, store storage.DocumentStore, f facts.Fact, current []stored, st *Stats) (string, error) {
	fp := facts.Fingerprint(f)
	keep := -1
	for i, s := range current {
		if s.fingerprint == fp {
			keep = i
			break
		}
	}

	for i, s := range current {
		if i == keep {
			continue
		}
		if _, err := store.Delete(ctx, s.id); err != nil {
			in.logger.Error("Failed to replace stored fact", "docId", s.id, "key", f.IdentityKey(), "error", err)
			return "", cferrors.Store("delete document "+s.id, err)
		}
	}
	if redundant := len(current) - 1; redundant > 0 {
		st.Repaired += redundant
	}

	if keep >= 0 {
		st.Unchanged++
		return ResultUnchanged, nil
	}

	if _, err := store.AddText(ctx, facts.Describe(f), f.Metadata()); err != nil {
		in.logger.Error("Failed to write fact", "key", f.IdentityKey(), "error", err)
		return "", cferrors.Store("add document", err)
	}
	if len(current) > 0 {
		st.Updated++
		return ResultUpdated, nil
	}
	st.Written++
	return ResultWritten, nil
}
