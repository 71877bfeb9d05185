package query

import (
	"context"
	"testing"

	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/factstore"
	"codefacts/internal/storage"
	"codefacts/internal/testutil"
)

func newEngine() *Engine {
	return NewEngine(factstore.NewReader(4, nil), config.QueryConfig{DefaultLimit: 50, MaxLimit: 100}, nil)
}

func seedProject(t *testing.T) storage.DocumentStore {
	t.Helper()
	store := testutil.NewStore(t)
	testutil.Seed(t, store,
		testutil.With(testutil.Class("App.Svc", "s.cs", 1),
			"base_class", "App.Base",
			"interfaces", "App.IService, App.IDisposable"),
		testutil.Class("App.Program", "p.cs", 1),
		testutil.Class("App.HomeController", "h.cs", 1),
		testutil.Class("Lib.Util", "u.cs", 1),
		testutil.Method("App.Svc.A", "s.cs", 5),
		testutil.Method("App.Svc.B", "s.cs", 15),
		testutil.Method("App.Program.Main", "p.cs", 3),
		testutil.Method("App.HomeController.Index", "h.cs", 4),
		testutil.Method("App.HomeController.Main", "h.cs", 9),
		testutil.Method("App.Orphan.Run", "o.cs", 2),
		testutil.Call("App.Svc.A", "App.Repo.Load", "s.cs", 10),
		testutil.Call("App.Svc.A", "App.Repo.Load", "s.cs", 11),
		testutil.Call("App.Svc.B", "App.Svc.A", "s.cs", 16),
		testutil.Call("App.Svc.B", "App.Log.Write", "s.cs", 20),
		facts.Record{"note": "not a fact"},
	)
	return store
}

func TestListMethods_Pagination(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.Seed(t, store,
		testutil.Method("App.S.E", "s.cs", 5),
		testutil.Method("App.S.C", "s.cs", 3),
		testutil.Method("App.S.A", "s.cs", 1),
		testutil.Method("App.S.D", "s.cs", 4),
		testutil.Method("App.S.B", "s.cs", 2),
	)

	resp, err := newEngine().ListMethods(context.Background(), store, ListMethodsOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListMethods() error = %v", err)
	}
	if resp.TotalCount != 5 {
		t.Errorf("TotalCount = %d, want 5", resp.TotalCount)
	}
	if len(resp.Methods) != 2 || resp.Methods[0].Method != "App.S.B" || resp.Methods[1].Method != "App.S.C" {
		t.Errorf("Methods = %v, want App.S.B, App.S.C", resp.Methods)
	}
	if !resp.HasMore {
		t.Error("HasMore = false, want true")
	}
}

func TestListMethods_Filters(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		opts  ListMethodsOptions
		total int
	}{
		{"no filter", ListMethodsOptions{}, 6},
		{"class substring", ListMethodsOptions{Class: "controller"}, 2},
		{"class exact", ListMethodsOptions{Class: "App.Svc"}, 2},
		{"namespace", ListMethodsOptions{Namespace: "APP"}, 6},
		{"both", ListMethodsOptions{Class: "Program", Namespace: "App"}, 1},
		{"offset past end", ListMethodsOptions{Offset: 40}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newEngine().ListMethods(ctx, store, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if resp.TotalCount != tt.total {
				t.Errorf("TotalCount = %d, want %d", resp.TotalCount, tt.total)
			}
			if tt.opts.Offset >= tt.total && len(resp.Methods) != 0 {
				t.Errorf("page past end returned %d methods", len(resp.Methods))
			}
		})
	}

	if _, err := newEngine().ListMethods(ctx, store, ListMethodsOptions{Offset: -1}); !cferrors.IsInvalid(err) {
		t.Errorf("negative offset error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestListClasses(t *testing.T) {
	store := seedProject(t)

	resp, err := newEngine().ListClasses(context.Background(), store, ListClassesOptions{Namespace: "app"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"App.HomeController", "App.Program", "App.Svc"}
	if resp.TotalCount != len(want) {
		t.Fatalf("TotalCount = %d, want %d", resp.TotalCount, len(want))
	}
	for i, c := range resp.Classes {
		if c.Class != want[i] {
			t.Errorf("Classes[%d] = %s, want %s", i, c.Class, want[i])
		}
	}
	if resp.Limit != 50 {
		t.Errorf("Limit = %d, want default 50", resp.Limit)
	}
}

func TestGetMethod(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()
	e := newEngine()

	resp, err := e.GetMethod(ctx, store, "App.Svc.A")
	if err != nil {
		t.Fatalf("GetMethod() error = %v", err)
	}
	if resp.Method.MethodName != "A" || resp.IncomingCalls != 1 || resp.OutgoingCalls != 2 {
		t.Errorf("GetMethod() = %+v", resp)
	}

	if _, err := e.GetMethod(ctx, store, "App.Svc.Missing"); !cferrors.IsNotFound(err) {
		t.Errorf("missing method error = %v", err)
	}
	if _, err := e.GetMethod(ctx, store, " "); !cferrors.IsInvalid(err) {
		t.Errorf("blank method error = %v", err)
	}
}

func TestGetClass(t *testing.T) {
	store := seedProject(t)
	resp, err := newEngine().GetClass(context.Background(), store, "App.Svc")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StoredMethods != 2 || resp.Class.BaseClass != "App.Base" {
		t.Errorf("GetClass() = %+v", resp)
	}
}

func TestGetClassMethods(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()
	e := newEngine()

	resp, err := e.GetClassMethods(ctx, store, "App.HomeController")
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 2 || resp.Methods[0].Method != "App.HomeController.Index" {
		t.Errorf("GetClassMethods() = %+v", resp)
	}

	// App.Orphan has a method fact but no class definition.
	if _, err := e.GetClassMethods(ctx, store, "App.Orphan"); !cferrors.IsNotFound(err) {
		t.Errorf("unindexed class error = %v, want NOT_FOUND", err)
	}
}

func TestGetClassReferences(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()
	e := newEngine()

	resp, err := e.GetClassReferences(ctx, store, ClassReferencesOptions{Class: "App.Svc"})
	if err != nil {
		t.Fatalf("GetClassReferences() error = %v", err)
	}
	type ref struct {
		target, rel string
		count       int
	}
	want := []ref{
		{"App.Base", RelationshipInherits, 1},
		{"App.IDisposable", RelationshipImplements, 1},
		{"App.IService", RelationshipImplements, 1},
		{"App.Log", RelationshipCalls, 1},
		{"App.Repo", RelationshipCalls, 2},
	}
	if len(resp.References) != len(want) {
		t.Fatalf("References = %+v", resp.References)
	}
	for i, r := range resp.References {
		if got := (ref{r.Target, r.RelationshipType, r.Count}); got != want[i] {
			t.Errorf("References[%d] = %+v, want %+v", i, got, want[i])
		}
	}

	resp, err = e.GetClassReferences(ctx, store, ClassReferencesOptions{Class: "App.Svc", RelationshipType: "CALLS"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 2 {
		t.Errorf("filtered TotalCount = %d, want 2", resp.TotalCount)
	}

	if _, err := e.GetClassReferences(ctx, store, ClassReferencesOptions{Class: "App.Svc", RelationshipType: "uses"}); !cferrors.IsInvalid(err) {
		t.Errorf("unknown relationship error = %v", err)
	}
	if _, err := e.GetClassReferences(ctx, store, ClassReferencesOptions{Class: "App.Repo"}); !cferrors.IsNotFound(err) {
		t.Errorf("unindexed class error = %v", err)
	}
}

func TestListEntryPoints(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()
	e := newEngine()

	tests := []struct {
		kind string
		want map[string]string
	}{
		{"", map[string]string{
			"App.HomeController.Index": EntryPointController,
			"App.HomeController.Main":  EntryPointMain,
			"App.Program.Main":         EntryPointMain,
		}},
		{"main", map[string]string{
			"App.HomeController.Main": EntryPointMain,
			"App.Program.Main":        EntryPointMain,
		}},
		{"Controller", map[string]string{
			"App.HomeController.Index": EntryPointController,
		}},
	}
	for _, tt := range tests {
		t.Run("kind="+tt.kind, func(t *testing.T) {
			resp, err := e.ListEntryPoints(ctx, store, EntryPointOptions{Kind: tt.kind})
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.EntryPoints) != len(tt.want) {
				t.Fatalf("EntryPoints = %+v", resp.EntryPoints)
			}
			for _, ep := range resp.EntryPoints {
				if tt.want[ep.Method] != ep.Kind {
					t.Errorf("%s kind = %q, want %q", ep.Method, ep.Kind, tt.want[ep.Method])
				}
				if ep.Kind == EntryPointController && (ep.Route != Unknown || ep.HTTPMethod != Unknown) {
					t.Errorf("%s route/verb = %q/%q, want unknown", ep.Method, ep.Route, ep.HTTPMethod)
				}
			}
		})
	}

	if _, err := e.ListEntryPoints(ctx, store, EntryPointOptions{Kind: "cron"}); !cferrors.IsInvalid(err) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestSearchFacts(t *testing.T) {
	store := seedProject(t)
	ctx := context.Background()
	e := newEngine()

	resp, err := e.SearchFacts(ctx, store, SearchOptions{Query: "Svc.A", Type: facts.TypeMethodDefinition, Limit: 5})
	if err != nil {
		t.Fatalf("SearchFacts() error = %v", err)
	}
	if len(resp.Hits) == 0 {
		t.Fatal("SearchFacts() returned no hits")
	}
	first := resp.Hits[0]
	m, ok := first.Fact.(facts.MethodDefinition)
	if !ok || m.Method != "App.Svc.A" {
		t.Errorf("first hit = %+v", first)
	}
	if first.Name == "" || first.Name != m.MethodName {
		t.Errorf("first hit name = %q, want %q", first.Name, m.MethodName)
	}
	for _, h := range resp.Hits {
		if h.Type != facts.TypeMethodDefinition {
			t.Errorf("hit of type %s leaked through the filter", h.Type)
		}
	}

	if _, err := e.SearchFacts(ctx, store, SearchOptions{Query: " "}); !cferrors.IsInvalid(err) {
		t.Errorf("blank query error = %v", err)
	}
	if _, err := e.SearchFacts(ctx, store, SearchOptions{Query: "x", Type: "namespace"}); !cferrors.IsInvalid(err) {
		t.Errorf("unknown type error = %v", err)
	}
}

func TestStats(t *testing.T) {
	store := seedProject(t)
	resp, err := newEngine().Stats(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Counts[facts.TypeClassDefinition] != 4 || resp.Counts[facts.TypeMethodDefinition] != 6 {
		t.Errorf("Counts = %v", resp.Counts)
	}
	if resp.Total != 14 || resp.Skipped != 1 || resp.CallEdges != 4 || resp.Duplicates != 0 {
		t.Errorf("Stats() = %+v", resp)
	}
}
