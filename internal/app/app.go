// Package app wires the fact index together and exposes every operation of
// the query surface keyed by project. The CLI, the HTTP API and the MCP
// server are thin transports over it.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codefacts/internal/config"
	"codefacts/internal/consistency"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/extract"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/graph"
	"codefacts/internal/ingest"
	"codefacts/internal/projects"
	"codefacts/internal/query"
	"codefacts/internal/slogutil"
	"codefacts/internal/snapshot"
	"codefacts/internal/storage"
)

// App owns the registry and the read-side services.
type App struct {
	Config      *config.Config
	Registry    *projects.Registry
	Query       *query.Engine
	Graph       *graph.Service
	Consistency *consistency.Service

	reader    *factstore.Reader
	ingester  *ingest.Ingester
	validator *facts.Validator
	logger    *slog.Logger
}

// New loads the project registry from cfg.DataDir and builds the services.
func New(cfg *config.Config, logger *slog.Logger, opts ...projects.Option) (*App, error) {
	logger = slogutil.OrDiscard(logger)
	reg, err := projects.NewRegistry(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	reader := factstore.NewReader(cfg.Scan.Concurrency, logger)
	return &App{
		Config:      cfg,
		Registry:    reg,
		Query:       query.NewEngine(reader, cfg.Query, logger),
		Graph:       graph.NewService(reader, cfg.Query.MaxDepth, logger),
		Consistency: consistency.NewService(reg, reader, logger),
		reader:      reader,
		ingester:    ingest.NewIngester(reader, logger),
		validator:   facts.NewValidator(),
		logger:      logger,
	}, nil
}

// Close waits for running indexing tasks and closes every store.
func (a *App) Close() error {
	return a.Registry.Close()
}

// resolve maps a project id or path to a registered project id.
func (a *App) resolve(project string) (string, error) {
	p, err := a.Registry.ResolveProject(project)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Store returns the shared store of a project given by id or path.
func (a *App) Store(project string) (storage.DocumentStore, error) {
	id, err := a.resolve(project)
	if err != nil {
		return nil, err
	}
	return a.Registry.Store(id)
}

func withStore[T any](a *App, project string, fn func(storage.DocumentStore) (T, error)) (T, error) {
	st, err := a.Store(project)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(st)
}

// IndexResponse is returned by IndexProject.
type IndexResponse struct {
	ProjectID string          `json:"projectId"`
	Created   bool            `json:"created"`
	Status    projects.Status `json:"status"`
}

// IndexProject registers a project and starts indexing it.
func (a *App) IndexProject(path, name string) (*IndexResponse, error) {
	id, created, err := a.Registry.IndexProject(path, name)
	if err != nil {
		return nil, err
	}
	p, err := a.Registry.GetStatus(id)
	if err != nil {
		return nil, err
	}
	return &IndexResponse{ProjectID: id, Created: created, Status: p.Status}, nil
}

// GetStatus returns the project given by id or path.
func (a *App) GetStatus(project string) (*projects.Project, error) {
	return a.Registry.ResolveProject(project)
}

// WaitForIndexing blocks until the project's indexing has finished.
func (a *App) WaitForIndexing(ctx context.Context, project string) (*projects.Project, error) {
	id, err := a.resolve(project)
	if err != nil {
		return nil, err
	}
	return a.Registry.WaitForIndexing(ctx, id)
}

// ListProjectsResponse lists every registered project.
type ListProjectsResponse struct {
	Projects   []*projects.Project `json:"projects"`
	TotalCount int                 `json:"totalCount"`
}

// ListProjects returns every registered project.
func (a *App) ListProjects() *ListProjectsResponse {
	ps := a.Registry.ListProjects()
	if ps == nil {
		ps = []*projects.Project{}
	}
	return &ListProjectsResponse{Projects: ps, TotalCount: len(ps)}
}

// DeleteProject removes a project given by id or path. Unknown projects
// return false without an error.
func (a *App) DeleteProject(ctx context.Context, project string) (bool, error) {
	id, err := a.resolve(project)
	if cferrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Registry.DeleteProject(ctx, id)
}

// ListClasses pages the class definitions of a project.
func (a *App) ListClasses(ctx context.Context, project string, opts query.ListClassesOptions) (*query.ListClassesResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.ListClassesResponse, error) {
		return a.Query.ListClasses(ctx, st, opts)
	})
}

// ListMethods pages the method definitions of a project.
func (a *App) ListMethods(ctx context.Context, project string, opts query.ListMethodsOptions) (*query.ListMethodsResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.ListMethodsResponse, error) {
		return a.Query.ListMethods(ctx, st, opts)
	})
}

// ListEntryPoints pages the entry points of a project.
func (a *App) ListEntryPoints(ctx context.Context, project string, opts query.EntryPointOptions) (*query.ListEntryPointsResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.ListEntryPointsResponse, error) {
		return a.Query.ListEntryPoints(ctx, st, opts)
	})
}

func (a *App) GetMethod(ctx context.Context, project, fqn string) (*query.GetMethodResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.GetMethodResponse, error) {
		return a.Query.GetMethod(ctx, st, fqn)
	})
}

func (a *App) GetClass(ctx context.Context, project, fqn string) (*query.GetClassResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.GetClassResponse, error) {
		return a.Query.GetClass(ctx, st, fqn)
	})
}

func (a *App) GetClassMethods(ctx context.Context, project, fqn string) (*query.GetClassMethodsResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.GetClassMethodsResponse, error) {
		return a.Query.GetClassMethods(ctx, st, fqn)
	})
}

func (a *App) GetClassReferences(ctx context.Context, project string, opts query.ClassReferencesOptions) (*query.ClassReferencesResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.ClassReferencesResponse, error) {
		return a.Query.GetClassReferences(ctx, st, opts)
	})
}

// GetCallers walks the call graph of a project towards callers.
func (a *App) GetCallers(ctx context.Context, project string, opts graph.Options) (*graph.Result, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*graph.Result, error) {
		return a.Graph.GetCallers(ctx, st, opts)
	})
}

// GetCallees walks the call graph of a project towards callees.
func (a *App) GetCallees(ctx context.Context, project string, opts graph.Options) (*graph.Result, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*graph.Result, error) {
		return a.Graph.GetCallees(ctx, st, opts)
	})
}

func (a *App) SearchFacts(ctx context.Context, project string, opts query.SearchOptions) (*query.SearchResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.SearchResponse, error) {
		return a.Query.SearchFacts(ctx, st, opts)
	})
}

func (a *App) Stats(ctx context.Context, project string) (*query.StatsResponse, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*query.StatsResponse, error) {
		return a.Query.Stats(ctx, st)
	})
}

// CompareAgainstGroundTruth scores a project's stored facts against a fresh
// extraction.
func (a *App) CompareAgainstGroundTruth(ctx context.Context, project string) (*consistency.AccuracyReport, error) {
	id, err := a.resolve(project)
	if err != nil {
		return nil, err
	}
	return a.Consistency.CompareAgainstGroundTruth(ctx, id)
}

// CleanupStale deletes a project's facts that a fresh extraction no longer
// produces.
func (a *App) CleanupStale(ctx context.Context, project string, opts consistency.CleanupOptions) (*consistency.CleanupReport, error) {
	id, err := a.resolve(project)
	if err != nil {
		return nil, err
	}
	return a.Consistency.CleanupStale(ctx, id, opts)
}

// ExportSnapshot writes a project's facts to w.
func (a *App) ExportSnapshot(ctx context.Context, project string, w io.Writer) (*snapshot.Header, error) {
	return withStore(a, project, func(st storage.DocumentStore) (*snapshot.Header, error) {
		return snapshot.Export(ctx, a.reader, st, w)
	})
}

// ImportSnapshot ingests a snapshot into an existing project.
func (a *App) ImportSnapshot(ctx context.Context, project string, r io.Reader) (*ingest.Result, error) {
	st, err := a.Store(project)
	if err != nil {
		return nil, err
	}
	_, recs, err := snapshot.Import(r)
	if err != nil {
		return nil, cferrors.Invalid("invalid snapshot: %v", err)
	}
	return a.ingester.Ingest(ctx, st, recs, nil)
}

// ValidateResponse reports the validation of a fact bundle.
type ValidateResponse struct {
	Path     string                `json:"path"`
	Records  int                   `json:"records"`
	Valid    int                   `json:"valid"`
	Invalid  int                   `json:"invalid"`
	Failures []facts.IndexedResult `json:"failures"`
}

// ValidateBundle checks every record of a fact bundle without storing it.
func (a *App) ValidateBundle(path string) (*ValidateResponse, error) {
	return validateBundle(a.validator, path)
}

// ValidateBundle is App.ValidateBundle for callers without a data directory.
func ValidateBundle(path string) (*ValidateResponse, error) {
	return validateBundle(facts.NewValidator(), path)
}

func validateBundle(v *facts.Validator, path string) (*ValidateResponse, error) {
	if strings.TrimSpace(path) == "" {
		return nil, cferrors.Invalid("bundle path is required")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cferrors.Missing("bundle", path)
	}
	if err != nil {
		return nil, cferrors.Invalid("read bundle %s: %v", path, err)
	}
	recs, err := extract.ParseBundle(path, data)
	if err != nil {
		return nil, cferrors.Invalid("parse bundle %s: %v", filepath.Base(path), err)
	}
	valid, failures := v.ValidateBatch(recs)
	if failures == nil {
		failures = []facts.IndexedResult{}
	}
	return &ValidateResponse{
		Path:     path,
		Records:  len(recs),
		Valid:    len(valid),
		Invalid:  len(failures),
		Failures: failures,
	}, nil
}
