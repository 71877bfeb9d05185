package query

import (
	"context"
	"sort"
	"strings"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/graph"
	"codefacts/internal/storage"
)

// GetMethodResponse describes one method.
type GetMethodResponse struct {
	Method        facts.MethodDefinition `json:"method"`
	IncomingCalls int                    `json:"incomingCalls"`
	OutgoingCalls int                    `json:"outgoingCalls"`
}

// GetMethod looks a method up by exact FQN.
func (e *Engine) GetMethod(ctx context.Context, store storage.DocumentStore, fqn string) (*GetMethodResponse, error) {
	fqn, err := requireFQN("method", fqn)
	if err != nil {
		return nil, err
	}
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}

	def, ok := findMethod(snap, fqn)
	if !ok {
		return nil, cferrors.Missing("method", fqn)
	}
	idx := graph.NewIndex(snap)
	return &GetMethodResponse{
		Method:        def,
		IncomingCalls: len(idx.Callers(fqn)),
		OutgoingCalls: len(idx.Callees(fqn)),
	}, nil
}

func findMethod(snap *factstore.Snapshot, fqn string) (facts.MethodDefinition, bool) {
	for _, m := range snap.Methods() {
		if m.Method == fqn {
			return m, true
		}
	}
	return facts.MethodDefinition{}, false
}

func findClass(snap *factstore.Snapshot, fqn string) (facts.ClassDefinition, bool) {
	for _, c := range snap.Classes() {
		if c.Class == fqn {
			return c, true
		}
	}
	return facts.ClassDefinition{}, false
}

// GetClassResponse describes one class.
type GetClassResponse struct {
	Class facts.ClassDefinition `json:"class"`
	// StoredMethods counts method definitions in the store that belong to
	// the class; MethodCount is what the front end reported.
	StoredMethods int `json:"storedMethods"`
}

// GetClass looks a class up by exact FQN.
func (e *Engine) GetClass(ctx context.Context, store storage.DocumentStore, fqn string) (*GetClassResponse, error) {
	fqn, err := requireFQN("class", fqn)
	if err != nil {
		return nil, err
	}
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}

	def, ok := findClass(snap, fqn)
	if !ok {
		return nil, cferrors.Missing("class", fqn)
	}
	resp := &GetClassResponse{Class: def}
	for _, m := range snap.Methods() {
		if m.Class == fqn {
			resp.StoredMethods++
		}
	}
	return resp, nil
}

// GetClassMethodsResponse lists the methods of one class.
type GetClassMethodsResponse struct {
	Class      string                   `json:"class"`
	Methods    []facts.MethodDefinition `json:"methods"`
	TotalCount int                      `json:"totalCount"`
}

// GetClassMethods lists the methods whose containing class is fqn. The class
// itself must be indexed, even when method facts reference it.
func (e *Engine) GetClassMethods(ctx context.Context, store storage.DocumentStore, fqn string) (*GetClassMethodsResponse, error) {
	fqn, err := requireFQN("class", fqn)
	if err != nil {
		return nil, err
	}
	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}
	if _, ok := findClass(snap, fqn); !ok {
		return nil, cferrors.Missing("class", fqn)
	}

	methods := []facts.MethodDefinition{}
	for _, m := range snap.Methods() {
		if m.Class == fqn {
			methods = append(methods, m)
		}
	}
	sortFacts(methods)
	return &GetClassMethodsResponse{Class: fqn, Methods: methods, TotalCount: len(methods)}, nil
}

// Relationship types reported by GetClassReferences.
const (
	RelationshipInherits   = "inherits"
	RelationshipImplements = "implements"
	RelationshipCalls      = "calls"
)

var relationshipOrder = map[string]int{
	RelationshipInherits:   0,
	RelationshipImplements: 1,
	RelationshipCalls:      2,
}

// ClassReferencesOptions selects the references of one class.
type ClassReferencesOptions struct {
	Class string
	// RelationshipType, when set, keeps only references of that type.
	// Matching is case-insensitive.
	RelationshipType string
}

// ClassReference is an outgoing dependency of a class on another type.
type ClassReference struct {
	Target           string           `json:"target"`
	RelationshipType string           `json:"relationshipType"`
	Count            int              `json:"count"`
	Sites            []facts.Location `json:"sites"`
}

// ClassReferencesResponse lists the outgoing references of a class.
type ClassReferencesResponse struct {
	Class      string           `json:"class"`
	References []ClassReference `json:"references"`
	TotalCount int              `json:"totalCount"`
}

// GetClassReferences reports what a class depends on: its base class, the
// interfaces it implements and the classes its methods call. Calls into the
// class itself are not references.
func (e *Engine) GetClassReferences(ctx context.Context, store storage.DocumentStore, opts ClassReferencesOptions) (*ClassReferencesResponse, error) {
	fqn, err := requireFQN("class", opts.Class)
	if err != nil {
		return nil, err
	}
	rel := strings.ToLower(strings.TrimSpace(opts.RelationshipType))
	if _, ok := relationshipOrder[rel]; rel != "" && !ok {
		return nil, cferrors.Invalid("unknown relationship type %q", opts.RelationshipType)
	}

	snap, err := e.load(ctx, store)
	if err != nil {
		return nil, err
	}
	def, ok := findClass(snap, fqn)
	if !ok {
		return nil, cferrors.Missing("class", fqn)
	}

	type refKey struct{ target, rel string }
	refs := make(map[refKey]*ClassReference)
	add := func(target, rel string, site facts.Location) {
		k := refKey{target, rel}
		r, ok := refs[k]
		if !ok {
			r = &ClassReference{Target: target, RelationshipType: rel, Sites: []facts.Location{}}
			refs[k] = r
		}
		r.Count++
		r.Sites = append(r.Sites, site)
	}

	if def.BaseClass != "" {
		add(def.BaseClass, RelationshipInherits, def.Location())
	}
	for _, iface := range def.Interfaces {
		add(iface, RelationshipImplements, def.Location())
	}
	seen := make(map[string]bool)
	for _, c := range snap.Calls() {
		if c.CallerClass != fqn || c.CalleeClass == fqn || c.CalleeClass == "" {
			continue
		}
		if key := c.IdentityKey(); !seen[key] {
			seen[key] = true
			add(c.CalleeClass, RelationshipCalls, c.Location())
		}
	}

	resp := &ClassReferencesResponse{Class: fqn, References: []ClassReference{}}
	for _, r := range refs {
		if rel != "" && r.RelationshipType != rel {
			continue
		}
		sort.Slice(r.Sites, func(i, j int) bool {
			return lessLocated("", r.Sites[i], "", r.Sites[j])
		})
		resp.References = append(resp.References, *r)
	}
	sort.Slice(resp.References, func(i, j int) bool {
		a, b := resp.References[i], resp.References[j]
		if a.RelationshipType != b.RelationshipType {
			return relationshipOrder[a.RelationshipType] < relationshipOrder[b.RelationshipType]
		}
		return a.Target < b.Target
	})
	resp.TotalCount = len(resp.References)
	return resp, nil
}
