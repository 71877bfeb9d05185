// Package snapshot moves a project's facts in and out of a portable,
// zstd-compressed JSON Lines file.
//
// The first line is a header; every following line is one fact's metadata.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/storage"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// Header is the first line of a snapshot.
type Header struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Count      int       `json:"count"`
}

// Export writes every typed fact in store to w, ordered by type then
// identity key. Untyped documents are not exported.
func Export(ctx context.Context, reader *factstore.Reader, store storage.DocumentStore, w io.Writer) (*Header, error) {
	snap, err := reader.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	all := make([]facts.Fact, len(snap.Entries))
	for i, e := range snap.Entries {
		all[i] = e.Fact
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Type() != all[j].Type() {
			return all[i].Type() < all[j].Type()
		}
		return all[i].IdentityKey() < all[j].IdentityKey()
	})

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	h := &Header{Version: FormatVersion, ExportedAt: time.Now().UTC(), Count: len(all)}
	if err := enc.Encode(h); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, f := range all {
		if err := enc.Encode(f.Metadata()); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("write fact %s: %w", f.IdentityKey(), err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish snapshot: %w", err)
	}
	return h, nil
}

// Import reads a snapshot and returns its records for ingestion. The count
// in the header must match the number of fact lines.
func Import(r io.Reader) (*Header, []facts.Record, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, nil, fmt.Errorf("read header: %w", err)
		}
		return nil, nil, fmt.Errorf("empty snapshot")
	}
	var h Header
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
		return nil, nil, fmt.Errorf("parse header: %w", err)
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return nil, nil, fmt.Errorf("snapshot version %d not supported (max: %d)", h.Version, FormatVersion)
	}

	recs := make([]facts.Record, 0, h.Count)
	for line := 2; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec facts.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(recs) != h.Count {
		return nil, nil, fmt.Errorf("snapshot truncated: header says %d facts, found %d", h.Count, len(recs))
	}
	return &h, recs, nil
}
