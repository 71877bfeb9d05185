package projects

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/extract"
	"codefacts/internal/factstore"
	"codefacts/internal/ingest"
	"codefacts/internal/slogutil"
	"codefacts/internal/storage"
)

const numShards = 16

// Resolver picks the extractor for a project path.
type Resolver func(projectPath string, cfg config.ExtractorConfig, logger *slog.Logger) (*extract.Plan, error)

// Option configures a Registry.
type Option func(*Registry)

// WithResolver replaces extract.Resolve.
func WithResolver(fn Resolver) Option {
	return func(r *Registry) { r.resolve = fn }
}

type entry struct {
	mu      sync.Mutex
	project *Project
	store   storage.DocumentStore
	removed bool
	// done is closed when the indexing task for this entry has finished.
	done chan struct{}
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Registry owns every project, its indexing task and its open store handle.
// Unrelated projects never contend on a single lock.
type Registry struct {
	cfg      *config.Config
	logger   *slog.Logger
	ingester *ingest.Ingester
	resolve  Resolver

	shards [numShards]shard
	saveMu sync.Mutex
	tasks  sync.WaitGroup
}

// NewRegistry loads <dataDir>/projects.json. Projects that were queued or
// indexing when the previous process stopped are marked failed.
func NewRegistry(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Registry, error) {
	logger = slogutil.OrDiscard(logger)
	r := &Registry{
		cfg:      cfg,
		logger:   logger,
		ingester: ingest.NewIngester(factstore.NewReader(cfg.Scan.Concurrency, logger), logger),
		resolve:  extract.Resolve,
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*entry)
	}
	for _, o := range opts {
		o(r)
	}

	loaded, err := r.load()
	if err != nil {
		return nil, err
	}
	interrupted := 0
	for _, p := range loaded {
		if !p.IsTerminal() {
			p.markFailed(errors.New("indexing interrupted"))
			p.Message = "indexing interrupted"
			interrupted++
		}
		e := &entry{project: p, done: make(chan struct{})}
		close(e.done)
		r.shard(p.ID).entries[p.ID] = e
	}
	if interrupted > 0 {
		logger.Warn("Marked interrupted indexing runs as failed", "count", interrupted)
		r.save()
	}
	return r, nil
}

func (r *Registry) shard(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.shards[h.Sum32()%numShards]
}

func (r *Registry) lookup(id string) *entry {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

func (r *Registry) get(id string) (*entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, cferrors.Invalid("project id is required")
	}
	e := r.lookup(id)
	if e == nil {
		return nil, cferrors.Missing("project", id)
	}
	return e, nil
}

// IndexProject registers the project at path and starts indexing it in the
// background. A path equivalent to an already registered one returns the
// existing id with created false and does nothing else.
func (r *Registry) IndexProject(projectPath, name string) (id string, created bool, err error) {
	if strings.TrimSpace(projectPath) == "" {
		return "", false, cferrors.Invalid("project path is required")
	}
	id, err = ID(projectPath)
	if err != nil {
		return "", false, cferrors.Invalid("invalid project path %q: %v", projectPath, err)
	}
	abs, err := absPath(projectPath)
	if err != nil {
		return "", false, cferrors.Invalid("invalid project path %q: %v", projectPath, err)
	}

	s := r.shard(id)
	s.mu.Lock()
	if _, ok := s.entries[id]; ok {
		s.mu.Unlock()
		r.logger.Debug("Project already registered", "projectId", id)
		return id, false, nil
	}
	if name == "" {
		name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(abs, `\`, "/")))
	}
	e := &entry{
		project: &Project{
			ID:        id,
			Name:      name,
			Path:      abs,
			StorePath: filepath.Join(r.cfg.DataDir, "projects", id),
			Status:    StatusQueued,
			Message:   "queued",
			CreatedAt: time.Now().UTC(),
		},
		done: make(chan struct{}),
	}
	s.entries[id] = e
	r.tasks.Add(1)
	s.mu.Unlock()

	r.logger.Info("Queued project for indexing", "projectId", id, "path", abs)
	r.save()
	go r.run(e)
	return id, true, nil
}

// Plan resolves how the project at projectPath is extracted.
func (r *Registry) Plan(projectPath string) (*extract.Plan, error) {
	return r.resolve(projectPath, r.cfg.Extractor, r.logger)
}

// GetStatus returns a copy of the project.
func (r *Registry) GetStatus(id string) (*Project, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project.clone(), nil
}

// ListProjects returns every project ordered by name, then id.
func (r *Registry) ListProjects() []*Project {
	out := r.all()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) all() []*Project {
	var out []*Project
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, e := range s.entries {
			e.mu.Lock()
			out = append(out, e.project.clone())
			e.mu.Unlock()
		}
		s.mu.RUnlock()
	}
	return out
}

// ResolveProject accepts a project id or a path of a registered project.
func (r *Registry) ResolveProject(idOrPath string) (*Project, error) {
	if strings.TrimSpace(idOrPath) == "" {
		return nil, cferrors.Invalid("project id or path is required")
	}
	if e := r.lookup(idOrPath); e != nil {
		return r.GetStatus(idOrPath)
	}
	id, err := ID(idOrPath)
	if err != nil || r.lookup(id) == nil {
		return nil, cferrors.Missing("project", idOrPath)
	}
	return r.GetStatus(id)
}

// WaitForIndexing blocks until the project's indexing task has finished or
// ctx is done, and returns the final project state.
func (r *Registry) WaitForIndexing(ctx context.Context, id string) (*Project, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.GetStatus(id)
}

// Store returns the shared store handle of a project, opening it on first
// use. Callers must not close it.
func (r *Registry) Store(id string) (storage.DocumentStore, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return r.openStore(e)
}

func (r *Registry) openStore(e *entry) (storage.DocumentStore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, cferrors.Missing("project", e.project.ID)
	}
	if e.store != nil {
		return e.store, nil
	}
	st, err := storage.Open(r.cfg.Store, e.project.StorePath, r.logger)
	if err != nil {
		r.logger.Error("Failed to open project store", "projectId", e.project.ID, "path", e.project.StorePath, "error", err)
		return nil, cferrors.Store("open store", err)
	}
	e.store = st
	return st, nil
}

// DeleteProject waits for the project's indexing task, deletes its facts and
// removes it from the registry. It returns false for an unknown id. The wait
// is unbounded unless ctx ends it, in which case nothing is deleted. Store
// failures are logged and do not keep the entry alive.
func (r *Registry) DeleteProject(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, cferrors.Invalid("project id is required")
	}
	e := r.lookup(id)
	if e == nil {
		return false, nil
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	st, err := r.openStore(e)
	if err == nil {
		r.purge(ctx, id, st)
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return false, nil
	}
	e.removed = true
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			r.logger.Warn("Failed to close project store", "projectId", id, "error", err)
		}
		e.store = nil
	}
	storePath := e.project.StorePath
	e.mu.Unlock()

	if err := removeAll(storePath); err != nil {
		r.logger.Warn("Failed to remove project store", "projectId", id, "path", storePath, "error", err)
	}

	s := r.shard(id)
	s.mu.Lock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	r.logger.Info("Deleted project", "projectId", id)
	r.save()
	return true, nil
}

// purge deletes every document of a store, best-effort.
func (r *Registry) purge(ctx context.Context, id string, st storage.DocumentStore) {
	ids, err := st.GetAllIDs(ctx)
	if err != nil {
		r.logger.Warn("Failed to list project documents", "projectId", id, "error", err)
		return
	}
	failed := 0
	for _, docID := range ids {
		if _, err := st.Delete(ctx, docID); err != nil {
			failed++
			r.logger.Warn("Failed to delete project document", "projectId", id, "docId", docID, "error", err)
		}
	}
	r.logger.Debug("Purged project documents", "projectId", id, "documents", len(ids), "failed", failed)
}

// Close waits for running indexing tasks and closes every open store.
func (r *Registry) Close() error {
	r.tasks.Wait()
	var errs []error
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, e := range s.entries {
			e.mu.Lock()
			if e.store != nil {
				errs = append(errs, e.store.Close())
				e.store = nil
			}
			e.mu.Unlock()
		}
		s.mu.RUnlock()
	}
	return errors.Join(errs...)
}
