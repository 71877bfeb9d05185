// Package consistency removes stored facts that no longer correspond to live
// source, using a fresh extraction as ground truth.
package consistency

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/metrics"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// CleanupOptions controls CleanupStale.
type CleanupOptions struct {
	// DryRun computes the stale set without deleting anything.
	DryRun bool
}

// Counts is the cleanup outcome for one fact type.
type Counts struct {
	Kept    int `json:"kept"`
	Stale   int `json:"stale"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

func (c *Counts) add(o Counts) {
	c.Kept += o.Kept
	c.Stale += o.Stale
	c.Deleted += o.Deleted
	c.Failed += o.Failed
}

// StaleItem is one stored fact absent from ground truth.
type StaleItem struct {
	DocID    string     `json:"docId"`
	Type     facts.Type `json:"type"`
	Identity string     `json:"identity"`
	Deleted  bool       `json:"deleted"`
	Error    string     `json:"error,omitempty"`
}

// CleanupReport summarizes one cleanup run.
type CleanupReport struct {
	ByType map[facts.Type]Counts `json:"byType"`
	Totals Counts                `json:"totals"`
	// Skipped counts documents that are not typed facts. They are never
	// deleted and never counted as kept.
	Skipped    int         `json:"skipped"`
	StaleItems []StaleItem `json:"staleItems"`
	DryRun     bool        `json:"dryRun"`
}

// Maintainer deletes stale facts from a store.
type Maintainer struct {
	reader *factstore.Reader
	logger *slog.Logger
}

// NewMaintainer creates a maintainer.
func NewMaintainer(reader *factstore.Reader, logger *slog.Logger) *Maintainer {
	return &Maintainer{reader: reader, logger: slogutil.OrDiscard(logger)}
}

// CleanupStale deletes every stored fact whose (type, identity key) is absent
// from groundTruth. Every document is classified exactly once. Deletion is
// best-effort: a failed delete is logged and counted and the run continues.
// Reading the store is not best-effort and fails with STORE_FAILURE.
func (m *Maintainer) CleanupStale(ctx context.Context, store storage.DocumentStore, groundTruth []facts.Fact, opts CleanupOptions) (*CleanupReport, error) {
	start := time.Now()
	snap, err := m.reader.Load(ctx, store)
	if err != nil {
		return nil, err
	}

	live := make(map[factstore.Key]struct{}, len(groundTruth))
	for _, f := range groundTruth {
		live[factstore.KeyOf(f)] = struct{}{}
	}

	report := &CleanupReport{
		ByType:     make(map[facts.Type]Counts, len(facts.AllTypes)),
		Skipped:    snap.Skipped + snap.Malformed,
		StaleItems: []StaleItem{},
		DryRun:     opts.DryRun,
	}
	for _, t := range facts.AllTypes {
		report.ByType[t] = Counts{}
	}

	for _, e := range snap.Entries {
		t := e.Fact.Type()
		c := report.ByType[t]
		k := factstore.KeyOf(e.Fact)
		if _, ok := live[k]; ok {
			c.Kept++
			report.ByType[t] = c
			continue
		}

		c.Stale++
		item := StaleItem{DocID: e.ID, Type: t, Identity: k.Identity}
		if !opts.DryRun {
			m.remove(ctx, store, &item, &c)
		}
		report.ByType[t] = c
		report.StaleItems = append(report.StaleItems, item)
	}

	for _, c := range report.ByType {
		report.Totals.add(c)
	}
	sort.Slice(report.StaleItems, func(i, j int) bool {
		a, b := report.StaleItems[i], report.StaleItems[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Identity != b.Identity {
			return a.Identity < b.Identity
		}
		return a.DocID < b.DocID
	})

	m.logger.Info("Cleaned up stale facts",
		"kept", report.Totals.Kept,
		"stale", report.Totals.Stale,
		"deleted", report.Totals.Deleted,
		"failed", report.Totals.Failed,
		"skipped", report.Skipped,
		"dryRun", opts.DryRun,
		"duration", time.Since(start),
	)
	return report, nil
}

// remove deletes one stale document. A document that is already gone counts
// as deleted.
func (m *Maintainer) remove(ctx context.Context, store storage.DocumentStore, item *StaleItem, c *Counts) {
	existed, err := store.Delete(ctx, item.DocID)
	if err != nil {
		m.logger.Warn("Failed to delete stale fact", "docId", item.DocID, "key", item.Identity, "error", err)
		metrics.CleanupDeleteFailures.Inc()
		item.Error = err.Error()
		c.Failed++
		return
	}
	if !existed {
		m.logger.Debug("Stale fact already removed", "docId", item.DocID)
	}
	metrics.CleanupDeleted.WithLabelValues(string(item.Type)).Inc()
	item.Deleted = true
	c.Deleted++
}
