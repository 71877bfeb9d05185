package query

import (
	"context"
	"strings"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/storage"
)

// ListClassesOptions filters and pages ListClasses.
type ListClassesOptions struct {
	Namespace string
	Limit     int
	Offset    int
}

// ListClassesResponse is one page of class definitions.
type ListClassesResponse struct {
	Classes []facts.ClassDefinition `json:"classes"`
	Page
}

// ListClasses returns class definitions whose namespace matches the filter,
// ordered by FQN. Pagination applies to the filtered set.
func (e *Engine) ListClasses(ctx context.Context, store storage.DocumentStore, opts ListClassesOptions) (*ListClassesResponse, error) {
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}

	var filtered []facts.ClassDefinition
	for _, c := range snap.Classes() {
		if matches(c.Namespace, opts.Namespace) {
			filtered = append(filtered, c)
		}
	}
	sortFacts(filtered)

	page, start, end, err := e.window(len(filtered), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return &ListClassesResponse{Classes: append([]facts.ClassDefinition{}, filtered[start:end]...), Page: page}, nil
}

// ListMethodsOptions filters and pages ListMethods.
type ListMethodsOptions struct {
	Class     string
	Namespace string
	Limit     int
	Offset    int
}

// ListMethodsResponse is one page of method definitions.
type ListMethodsResponse struct {
	Methods []facts.MethodDefinition `json:"methods"`
	Page
}

// ListMethods returns method definitions matching both filters, ordered by
// FQN, file and line.
func (e *Engine) ListMethods(ctx context.Context, store storage.DocumentStore, opts ListMethodsOptions) (*ListMethodsResponse, error) {
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}

	var filtered []facts.MethodDefinition
	for _, m := range snap.Methods() {
		if matches(m.Class, opts.Class) && matches(m.Namespace, opts.Namespace) {
			filtered = append(filtered, m)
		}
	}
	sortFacts(filtered)

	page, start, end, err := e.window(len(filtered), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return &ListMethodsResponse{Methods: append([]facts.MethodDefinition{}, filtered[start:end]...), Page: page}, nil
}

// Entry point kinds.
const (
	EntryPointMain       = "main"
	EntryPointController = "controller"
)

// Unknown is reported for attributes the index does not record.
const Unknown = "unknown"

// EntryPointOptions filters and pages ListEntryPoints.
type EntryPointOptions struct {
	// Kind is "", "main" or "controller".
	Kind   string
	Limit  int
	Offset int
}

// EntryPoint is a method classified as a program or API entry.
type EntryPoint struct {
	Method     string `json:"method"`
	MethodName string `json:"methodName"`
	Class      string `json:"class"`
	Namespace  string `json:"namespace"`
	Kind       string `json:"kind"`
	HTTPMethod string `json:"httpMethod,omitempty"`
	Route      string `json:"route,omitempty"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// ListEntryPointsResponse is one page of entry points.
type ListEntryPointsResponse struct {
	EntryPoints []EntryPoint `json:"entryPoints"`
	Page
}

// classify returns the entry point kind of m, or "".
// A method named exactly Main wins over the controller convention.
func classify(m facts.MethodDefinition) string {
	if m.MethodName == "Main" {
		return EntryPointMain
	}
	if strings.HasSuffix(strings.ToLower(shortName(m.Class)), "controller") {
		return EntryPointController
	}
	return ""
}

// ListEntryPoints classifies method definitions by naming convention only.
// Controller routes and HTTP verbs are reported as unknown.
func (e *Engine) ListEntryPoints(ctx context.Context, store storage.DocumentStore, opts EntryPointOptions) (*ListEntryPointsResponse, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind != "" && kind != EntryPointMain && kind != EntryPointController {
		return nil, cferrors.Invalid("entry point type must be %q or %q, got %q", EntryPointMain, EntryPointController, opts.Kind)
	}

	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}

	methods := snap.Methods()
	sortFacts(methods)

	var found []EntryPoint
	for _, m := range methods {
		k := classify(m)
		if k == "" || (kind != "" && k != kind) {
			continue
		}
		ep := EntryPoint{
			Method:     m.Method,
			MethodName: m.MethodName,
			Class:      m.Class,
			Namespace:  m.Namespace,
			Kind:       k,
			FilePath:   m.FilePath,
			LineNumber: m.LineNumber,
		}
		if k == EntryPointController {
			ep.HTTPMethod, ep.Route = Unknown, Unknown
		}
		found = append(found, ep)
	}

	page, start, end, err := e.window(len(found), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return &ListEntryPointsResponse{EntryPoints: append([]EntryPoint{}, found[start:end]...), Page: page}, nil
}
