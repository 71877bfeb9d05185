// Package graph builds call graphs from stored method_call facts and walks
// them breadth-first in either direction.
package graph

import (
	"sort"
	"strings"

	"codefacts/internal/facts"
	"codefacts/internal/factstore"
)

// Direction specifies which way a traversal follows call edges.
type Direction string

const (
	DirectionCallers Direction = "callers"
	DirectionCallees Direction = "callees"
)

// CallSite is one call edge seen from one of its endpoints. Method is the
// far endpoint; FilePath and LineNumber locate the call expression.
type CallSite struct {
	Method     string
	Class      string
	Namespace  string
	Via        string
	FilePath   string
	LineNumber int
}

type siteKey struct {
	method, via, file string
	line              int
}

// Index holds callee->callers and caller->callees adjacency for one snapshot.
// Edges are sets: the same (caller, callee, file, line) is recorded once.
type Index struct {
	callers     map[string][]CallSite
	callees     map[string][]CallSite
	definitions map[string]facts.MethodDefinition
	numEdges    int
}

// NewIndex builds an index from every method_call and method_definition in snap.
func NewIndex(snap *factstore.Snapshot) *Index {
	idx := &Index{
		callers:     make(map[string][]CallSite),
		callees:     make(map[string][]CallSite),
		definitions: make(map[string]facts.MethodDefinition),
	}
	seen := make(map[siteKey]bool)
	for _, c := range snap.Calls() {
		k := siteKey{method: c.Callee, via: c.Caller, file: c.FilePath, line: c.LineNumber}
		if seen[k] {
			continue
		}
		seen[k] = true
		idx.numEdges++

		idx.callees[c.Caller] = append(idx.callees[c.Caller], CallSite{
			Method:     c.Callee,
			Class:      c.CalleeClass,
			Namespace:  c.CalleeNamespace,
			Via:        c.Caller,
			FilePath:   c.FilePath,
			LineNumber: c.LineNumber,
		})
		idx.callers[c.Callee] = append(idx.callers[c.Callee], CallSite{
			Method:     c.Caller,
			Class:      c.CallerClass,
			Namespace:  c.CallerNamespace,
			Via:        c.Callee,
			FilePath:   c.FilePath,
			LineNumber: c.LineNumber,
		})
	}
	for _, m := range snap.Methods() {
		if _, ok := idx.definitions[m.Method]; !ok {
			idx.definitions[m.Method] = m
		}
	}
	for _, adj := range []map[string][]CallSite{idx.callers, idx.callees} {
		for _, sites := range adj {
			sortSites(sites)
		}
	}
	return idx
}

func sortSites(sites []CallSite) {
	sort.Slice(sites, func(i, j int) bool {
		a, b := sites[i], sites[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineNumber < b.LineNumber
	})
}

// Callers returns the call sites that call method.
func (idx *Index) Callers(method string) []CallSite { return idx.callers[method] }

// Callees returns the call sites inside method.
func (idx *Index) Callees(method string) []CallSite { return idx.callees[method] }

// NumEdges returns the number of distinct call edges.
func (idx *Index) NumEdges() int { return idx.numEdges }

// Definition returns the method_definition for method, if stored.
func (idx *Index) Definition(method string) (facts.MethodDefinition, bool) {
	d, ok := idx.definitions[method]
	return d, ok
}

// HasEndpoint reports whether method appears on either side of a call edge.
func (idx *Index) HasEndpoint(method string) bool {
	return len(idx.callers[method]) > 0 || len(idx.callees[method]) > 0
}

// Known reports whether method is defined or takes part in a call.
func (idx *Index) Known(method string) bool {
	_, ok := idx.definitions[method]
	return ok || idx.HasEndpoint(method)
}

func (idx *Index) adjacency(dir Direction) map[string][]CallSite {
	if dir == DirectionCallers {
		return idx.callers
	}
	return idx.callees
}

// shortName returns the last dotted segment of an FQN, ignoring any
// parameter list.
func shortName(fqn string) string {
	if i := strings.IndexByte(fqn, '('); i >= 0 {
		fqn = fqn[:i]
	}
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
