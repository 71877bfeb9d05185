package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/factstore"
	"codefacts/internal/metrics"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

// Service answers caller/callee queries against a document store. Every
// request rebuilds the index from a fresh scan; concurrent requests against
// the same store share one in-flight build.
type Service struct {
	reader   *factstore.Reader
	maxDepth int
	logger   *slog.Logger
	builds   singleflight.Group
}

// NewService creates a Service. maxDepth <= 0 disables clamping.
func NewService(reader *factstore.Reader, maxDepth int, logger *slog.Logger) *Service {
	return &Service{reader: reader, maxDepth: maxDepth, logger: slogutil.OrDiscard(logger)}
}

// Build scans store and returns a call graph index. The shared build is
// detached from any one caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (s *Service) Build(ctx context.Context, store storage.DocumentStore) (*Index, error) {
	key := fmt.Sprintf("%p", store)
	ch := s.builds.DoChan(key, func() (interface{}, error) {
		snap, err := s.reader.Load(context.WithoutCancel(ctx), store)
		if err != nil {
			return nil, err
		}
		return NewIndex(snap), nil
	})
	select {
	case <-ctx.Done():
		s.logger.Debug("Stopped waiting for call graph build", "store", key, "error", ctx.Err())
		return nil, cferrors.Store("build call graph", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("Shared call graph build", "store", key)
		}
		return res.Val.(*Index), nil
	}
}

// GetCallers returns the methods that transitively call opts.Method.
func (s *Service) GetCallers(ctx context.Context, store storage.DocumentStore, opts Options) (*Result, error) {
	return s.traverse(ctx, store, DirectionCallers, opts)
}

// GetCallees returns the methods transitively called by opts.Method.
func (s *Service) GetCallees(ctx context.Context, store storage.DocumentStore, opts Options) (*Result, error) {
	return s.traverse(ctx, store, DirectionCallees, opts)
}

func (s *Service) traverse(ctx context.Context, store storage.DocumentStore, dir Direction, opts Options) (*Result, error) {
	opts.Method = strings.TrimSpace(opts.Method)
	if opts.Method == "" {
		return nil, cferrors.Invalid("method is required")
	}
	if opts.Depth < 1 {
		return nil, cferrors.Invalid("depth must be at least 1, got %d", opts.Depth)
	}
	if s.maxDepth > 0 && opts.Depth > s.maxDepth {
		s.logger.Debug("Clamping traversal depth", "requested", opts.Depth, "max", s.maxDepth)
		opts.Depth = s.maxDepth
	}

	start := time.Now()
	defer func() {
		metrics.TraversalDuration.WithLabelValues(string(dir)).Observe(time.Since(start).Seconds())
	}()

	idx, err := s.Build(ctx, store)
	if err != nil {
		return nil, err
	}
	if !idx.Known(opts.Method) {
		return nil, cferrors.Missing("method", opts.Method)
	}

	res := idx.Traverse(dir, opts)
	s.logger.Debug("Traversed call graph",
		"direction", dir,
		"method", opts.Method,
		"depth", opts.Depth,
		"nodes", len(res.Nodes),
		"duration", time.Since(start),
	)
	return res, nil
}
