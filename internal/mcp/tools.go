package mcp

import (
	"context"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"codefacts/internal/consistency"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/graph"
	"codefacts/internal/query"
)

// --- Input types ---

type IndexProjectInput struct {
	Path string `json:"path" jsonschema:"Project directory to index"`
	Name string `json:"name,omitempty" jsonschema:"Display name, defaults to the directory name"`
	Wait bool   `json:"wait,omitempty" jsonschema:"Block until indexing has finished"`
}

type ProjectInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
}

type ListClassesInput struct {
	Project   string `json:"project" jsonschema:"Project id or registered project path"`
	Namespace string `json:"namespace,omitempty" jsonschema:"Only classes in this namespace"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Page size"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Page start"`
}

type ListMethodsInput struct {
	Project   string `json:"project" jsonschema:"Project id or registered project path"`
	Class     string `json:"class,omitempty" jsonschema:"Only methods of this class FQN"`
	Namespace string `json:"namespace,omitempty" jsonschema:"Only methods in this namespace"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Page size"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Page start"`
}

type ListEntryPointsInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
	Kind    string `json:"kind,omitempty" jsonschema:"main or controller; empty for both"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Page size"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Page start"`
}

type MethodInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
	Method  string `json:"method" jsonschema:"Fully qualified method name"`
}

type ClassInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
	Class   string `json:"class" jsonschema:"Fully qualified class name"`
}

type ClassReferencesInput struct {
	Project          string `json:"project" jsonschema:"Project id or registered project path"`
	Class            string `json:"class" jsonschema:"Fully qualified class name"`
	RelationshipType string `json:"relationshipType,omitempty" jsonschema:"inherits, implements or calls; empty for all"`
}

type TraverseInput struct {
	Project     string `json:"project" jsonschema:"Project id or registered project path"`
	Method      string `json:"method" jsonschema:"Fully qualified seed method name"`
	Depth       *int   `json:"depth,omitempty" jsonschema:"Levels to walk, at least 1; defaults to 1"`
	IncludeSelf bool   `json:"includeSelf,omitempty" jsonschema:"Report the seed at depth 0"`
}

type SearchFactsInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
	Query   string `json:"query" jsonschema:"Text to search for"`
	Type    string `json:"type,omitempty" jsonschema:"Only facts of this type"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum hits"`
}

type CleanupInput struct {
	Project string `json:"project" jsonschema:"Project id or registered project path"`
	DryRun  bool   `json:"dryRun,omitempty" jsonschema:"Report stale facts without deleting them"`
}

// DeleteResult is returned by delete_project.
type DeleteResult struct {
	Project string `json:"project"`
	Deleted bool   `json:"deleted"`
}

func (s *Server) register(srv *sdk.Server) {
	// Projects
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "index_project",
		Description: "Register a project and index its facts in the background. Re-indexing a known path is a no-op.",
	}, handle(s, "index_project", s.indexProject))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_status",
		Description: "Get a project's indexing status, progress and errors",
	}, handle(s, "get_status", func(_ context.Context, in ProjectInput) (any, error) {
		return s.app.GetStatus(in.Project)
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "list_projects",
		Description: "List every registered project",
	}, handle(s, "list_projects", func(context.Context, struct{}) (any, error) {
		return s.app.ListProjects(), nil
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "delete_project",
		Description: "Delete a project and all of its facts. Waits for a running index to finish.",
	}, handle(s, "delete_project", func(ctx context.Context, in ProjectInput) (any, error) {
		ok, err := s.app.DeleteProject(ctx, in.Project)
		if err != nil {
			return nil, err
		}
		return DeleteResult{Project: in.Project, Deleted: ok}, nil
	}))

	// Enumeration and detail
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "list_classes",
		Description: "List class definitions, optionally filtered by namespace, with pagination",
	}, handle(s, "list_classes", func(ctx context.Context, in ListClassesInput) (any, error) {
		return s.app.ListClasses(ctx, in.Project, query.ListClassesOptions{
			Namespace: in.Namespace,
			Limit:     in.Limit,
			Offset:    in.Offset,
		})
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "list_methods",
		Description: "List method definitions, optionally filtered by class or namespace, with pagination",
	}, handle(s, "list_methods", func(ctx context.Context, in ListMethodsInput) (any, error) {
		return s.app.ListMethods(ctx, in.Project, query.ListMethodsOptions{
			Class:     in.Class,
			Namespace: in.Namespace,
			Limit:     in.Limit,
			Offset:    in.Offset,
		})
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "list_entry_points",
		Description: "List Main methods and HTTP controller actions",
	}, handle(s, "list_entry_points", func(ctx context.Context, in ListEntryPointsInput) (any, error) {
		return s.app.ListEntryPoints(ctx, in.Project, query.EntryPointOptions{
			Kind:   strings.ToLower(in.Kind),
			Limit:  in.Limit,
			Offset: in.Offset,
		})
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_method",
		Description: "Get a method definition with its incoming and outgoing call counts",
	}, handle(s, "get_method", func(ctx context.Context, in MethodInput) (any, error) {
		return s.app.GetMethod(ctx, in.Project, in.Method)
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_class",
		Description: "Get a class definition",
	}, handle(s, "get_class", func(ctx context.Context, in ClassInput) (any, error) {
		return s.app.GetClass(ctx, in.Project, in.Class)
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_class_methods",
		Description: "List the methods defined by a class",
	}, handle(s, "get_class_methods", func(ctx context.Context, in ClassInput) (any, error) {
		return s.app.GetClassMethods(ctx, in.Project, in.Class)
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_class_references",
		Description: "List the classes a class depends on, grouped by relationship type",
	}, handle(s, "get_class_references", func(ctx context.Context, in ClassReferencesInput) (any, error) {
		return s.app.GetClassReferences(ctx, in.Project, query.ClassReferencesOptions{
			Class:            in.Class,
			RelationshipType: in.RelationshipType,
		})
	}))

	// Call graph
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_callers",
		Description: "Walk the call graph towards callers of a method, breadth-first up to depth levels",
	}, handle(s, "get_callers", func(ctx context.Context, in TraverseInput) (any, error) {
		return s.app.GetCallers(ctx, in.Project, in.options())
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "get_callees",
		Description: "Walk the call graph towards callees of a method, breadth-first up to depth levels",
	}, handle(s, "get_callees", func(ctx context.Context, in TraverseInput) (any, error) {
		return s.app.GetCallees(ctx, in.Project, in.options())
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "search_facts",
		Description: "Search stored facts by text, optionally restricted to one fact type",
	}, handle(s, "search_facts", s.searchFacts))

	// Consistency
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "compare_accuracy",
		Description: "Re-extract the project and report precision, recall and F1 of the stored facts per fact type",
	}, handle(s, "compare_accuracy", func(ctx context.Context, in ProjectInput) (any, error) {
		return s.app.CompareAgainstGroundTruth(ctx, in.Project)
	}))

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "cleanup_stale",
		Description: "Re-extract the project and delete stored facts that no longer exist in the source",
	}, handle(s, "cleanup_stale", func(ctx context.Context, in CleanupInput) (any, error) {
		return s.app.CleanupStale(ctx, in.Project, consistency.CleanupOptions{DryRun: in.DryRun})
	}))
}

func (s *Server) indexProject(ctx context.Context, in IndexProjectInput) (any, error) {
	resp, err := s.app.IndexProject(in.Path, in.Name)
	if err != nil || !in.Wait {
		return resp, err
	}
	return s.app.WaitForIndexing(ctx, resp.ProjectID)
}

func (s *Server) searchFacts(ctx context.Context, in SearchFactsInput) (any, error) {
	var typ facts.Type
	if in.Type != "" {
		t, ok := facts.ParseType(in.Type)
		if !ok {
			return nil, cferrors.Invalid("unknown fact type %q", in.Type)
		}
		typ = t
	}
	return s.app.SearchFacts(ctx, in.Project, query.SearchOptions{
		Query: in.Query,
		Type:  typ,
		Limit: in.Limit,
	})
}

func (in TraverseInput) options() graph.Options {
	depth := 1
	if in.Depth != nil {
		depth = *in.Depth
	}
	return graph.Options{Method: in.Method, Depth: depth, IncludeSelf: in.IncludeSelf}
}
