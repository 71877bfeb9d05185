package api

import (
	"context"
	"net/http"
	"strings"

	"codefacts/internal/consistency"
	"codefacts/internal/graph"
	"codefacts/internal/query"
	"codefacts/internal/version"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Projects int    `json:"projects"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:   "ok",
		Version:  version.Info(),
		Projects: s.app.ListProjects().TotalCount,
	}, http.StatusOK)
}

// IndexRequest is the body of POST /v1/projects.
type IndexRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
	// Wait blocks the request until indexing has finished.
	Wait bool `json:"wait"`
}

func (s *Server) handleIndexProject(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	resp, err := s.app.IndexProject(req.Path, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !req.Wait {
		status := http.StatusAccepted
		if !resp.Created {
			status = http.StatusOK
		}
		WriteJSON(w, resp, status)
		return
	}
	p, err := s.app.WaitForIndexing(r.Context(), resp.ProjectID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, p, http.StatusOK)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, s.app.ListProjects(), http.StatusOK)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.GetStatus(r.PathValue("project"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, p, http.StatusOK)
}

// DeleteResponse is returned by DELETE /v1/projects/{project}.
type DeleteResponse struct {
	ProjectID string `json:"projectId"`
	Deleted   bool   `json:"deleted"`
}

// handleDeleteProject waits for a running index of the project; a client
// disconnect cancels the wait and nothing is deleted.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	ok, err := s.app.DeleteProject(r.Context(), project)
	if err != nil {
		WriteError(w, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	WriteJSON(w, DeleteResponse{ProjectID: project, Deleted: ok}, status)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := s.app.ListClasses(r.Context(), r.PathValue("project"), query.ListClassesOptions{
		Namespace: r.URL.Query().Get("namespace"),
		Limit:     limit,
		Offset:    offset,
	})
	respond(w, resp, err)
}

func (s *Server) handleListMethods(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	q := r.URL.Query()
	resp, err := s.app.ListMethods(r.Context(), r.PathValue("project"), query.ListMethodsOptions{
		Class:     q.Get("class"),
		Namespace: q.Get("namespace"),
		Limit:     limit,
		Offset:    offset,
	})
	respond(w, resp, err)
}

func (s *Server) handleListEntryPoints(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := s.app.ListEntryPoints(r.Context(), r.PathValue("project"), query.EntryPointOptions{
		Kind:   strings.ToLower(r.URL.Query().Get("kind")),
		Limit:  limit,
		Offset: offset,
	})
	respond(w, resp, err)
}

func (s *Server) handleGetMethod(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.GetMethod(r.Context(), r.PathValue("project"), r.PathValue("method"))
	respond(w, resp, err)
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.GetClass(r.Context(), r.PathValue("project"), r.PathValue("class"))
	respond(w, resp, err)
}

func (s *Server) handleGetClassMethods(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.GetClassMethods(r.Context(), r.PathValue("project"), r.PathValue("class"))
	respond(w, resp, err)
}

func (s *Server) handleGetClassReferences(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.GetClassReferences(r.Context(), r.PathValue("project"), query.ClassReferencesOptions{
		Class:            r.PathValue("class"),
		RelationshipType: r.URL.Query().Get("relationshipType"),
	})
	respond(w, resp, err)
}

func (s *Server) handleCallers(w http.ResponseWriter, r *http.Request) {
	s.traverse(w, r, s.app.GetCallers)
}

func (s *Server) handleCallees(w http.ResponseWriter, r *http.Request) {
	s.traverse(w, r, s.app.GetCallees)
}

type traversal func(ctx context.Context, project string, opts graph.Options) (*graph.Result, error)

func (s *Server) traverse(w http.ResponseWriter, r *http.Request, fn traversal) {
	// depth=0 is passed through so the engine reports it as invalid.
	depth, err := QueryParamInt(r, "depth", 1)
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := fn(r.Context(), r.PathValue("project"), graph.Options{
		Method:      r.PathValue("method"),
		Depth:       depth,
		IncludeSelf: QueryParamBool(r, "includeSelf", false),
	})
	respond(w, resp, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := QueryParamInt(r, "limit", 0)
	if err != nil {
		WriteError(w, err)
		return
	}
	typ, err := QueryParamType(r, "type")
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := s.app.SearchFacts(r.Context(), r.PathValue("project"), query.SearchOptions{
		Query: r.URL.Query().Get("q"),
		Type:  typ,
		Limit: limit,
	})
	respond(w, resp, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.Stats(r.Context(), r.PathValue("project"))
	respond(w, resp, err)
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.CompareAgainstGroundTruth(r.Context(), r.PathValue("project"))
	respond(w, resp, err)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.CleanupStale(r.Context(), r.PathValue("project"), consistency.CleanupOptions{
		DryRun: QueryParamBool(r, "dryRun", false),
	})
	respond(w, resp, err)
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	// Resolve first so a bad project still gets a JSON error.
	if _, err := s.app.Store(project); err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="facts.jsonl.zst"`)
	if _, err := s.app.ExportSnapshot(r.Context(), project, w); err != nil {
		s.logger.Error("Snapshot export failed", "project", project, "error", err, "requestID", GetRequestID(r.Context()))
	}
}

func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.app.ImportSnapshot(r.Context(), r.PathValue("project"), r.Body)
	respond(w, resp, err)
}

// respond writes resp as JSON, or err with its mapped status.
func respond(w http.ResponseWriter, resp interface{}, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, resp, http.StatusOK)
}
