package api

import (
	"net/http"

	"codefacts/internal/metrics"
	"codefacts/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	if s.app.Config.Metrics.Enabled {
		s.router.Handle("GET /metrics", metrics.Handler())
	}

	// Projects
	s.router.HandleFunc("GET /v1/projects", s.handleListProjects)
	s.router.HandleFunc("POST /v1/projects", s.handleIndexProject)
	s.router.HandleFunc("GET /v1/projects/{project}", s.handleGetStatus)
	s.router.HandleFunc("DELETE /v1/projects/{project}", s.handleDeleteProject)

	// Enumeration and detail
	s.router.HandleFunc("GET /v1/projects/{project}/classes", s.handleListClasses)
	s.router.HandleFunc("GET /v1/projects/{project}/classes/{class}", s.handleGetClass)
	s.router.HandleFunc("GET /v1/projects/{project}/classes/{class}/methods", s.handleGetClassMethods)
	s.router.HandleFunc("GET /v1/projects/{project}/classes/{class}/references", s.handleGetClassReferences)
	s.router.HandleFunc("GET /v1/projects/{project}/methods", s.handleListMethods)
	s.router.HandleFunc("GET /v1/projects/{project}/methods/{method}", s.handleGetMethod)
	s.router.HandleFunc("GET /v1/projects/{project}/entrypoints", s.handleListEntryPoints)
	s.router.HandleFunc("GET /v1/projects/{project}/search", s.handleSearch)
	s.router.HandleFunc("GET /v1/projects/{project}/stats", s.handleStats)

	// Call graph
	s.router.HandleFunc("GET /v1/projects/{project}/methods/{method}/callers", s.handleCallers)
	s.router.HandleFunc("GET /v1/projects/{project}/methods/{method}/callees", s.handleCallees)

	// Consistency
	s.router.HandleFunc("GET /v1/projects/{project}/accuracy", s.handleAccuracy)
	s.router.HandleFunc("POST /v1/projects/{project}/cleanup", s.handleCleanup)

	// Snapshots
	s.router.HandleFunc("GET /v1/projects/{project}/snapshot", s.handleExportSnapshot)
	s.router.HandleFunc("POST /v1/projects/{project}/snapshot", s.handleImportSnapshot)

	s.router.HandleFunc("GET /{$}", s.handleRoot)
}

// handleRoot lists the endpoints.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "codefacts HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /metrics - Prometheus metrics",
			"GET /v1/projects - List projects",
			"POST /v1/projects - Index a project {path, name, wait}",
			"GET /v1/projects/{project} - Project status",
			"DELETE /v1/projects/{project} - Delete a project and its facts",
			"GET /v1/projects/{project}/classes?namespace=&limit=&offset= - List classes",
			"GET /v1/projects/{project}/classes/{class} - Class details",
			"GET /v1/projects/{project}/classes/{class}/methods - Methods of a class",
			"GET /v1/projects/{project}/classes/{class}/references?relationshipType= - Class references",
			"GET /v1/projects/{project}/methods?class=&namespace=&limit=&offset= - List methods",
			"GET /v1/projects/{project}/methods/{method} - Method details",
			"GET /v1/projects/{project}/methods/{method}/callers?depth=&includeSelf= - Callers",
			"GET /v1/projects/{project}/methods/{method}/callees?depth=&includeSelf= - Callees",
			"GET /v1/projects/{project}/entrypoints?kind=&limit=&offset= - Entry points",
			"GET /v1/projects/{project}/search?q=&type=&limit= - Search facts",
			"GET /v1/projects/{project}/stats - Fact counts",
			"GET /v1/projects/{project}/accuracy - Compare against a fresh extraction",
			"POST /v1/projects/{project}/cleanup?dryRun= - Delete stale facts",
			"GET /v1/projects/{project}/snapshot - Export a zstd snapshot",
			"POST /v1/projects/{project}/snapshot - Import a zstd snapshot",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
