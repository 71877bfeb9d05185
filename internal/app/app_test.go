package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codefacts/internal/config"
	"codefacts/internal/consistency"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/extract"
	"codefacts/internal/facts"
	"codefacts/internal/graph"
	"codefacts/internal/projects"
	"codefacts/internal/query"
	"codefacts/internal/testutil"
)

type fixedExtractor []facts.Record

func (f fixedExtractor) Extract(context.Context, extract.Request) ([]facts.Record, error) {
	return f, nil
}

func fixture() []facts.Record {
	return []facts.Record{
		testutil.Class("App.Orders", "orders.cs", 1),
		testutil.Method("App.Orders.Place", "orders.cs", 3),
		testutil.Method("App.Orders.Validate", "orders.cs", 9),
		testutil.Call("App.Orders.Place", "App.Orders.Validate", "orders.cs", 4),
	}
}

// newApp returns an App whose projects are extracted from *recs at index time.
func newApp(t *testing.T, recs *[]facts.Record) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	resolve := func(string, config.ExtractorConfig, *slog.Logger) (*extract.Plan, error) {
		return &extract.Plan{Extractor: fixedExtractor(*recs), Source: "fixture"}, nil
	}
	a, err := New(cfg, nil, projects.WithResolver(resolve))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func indexed(t *testing.T, a *App, path string) string {
	t.Helper()
	resp, err := a.IndexProject(path, "")
	if err != nil {
		t.Fatalf("IndexProject() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p, err := a.WaitForIndexing(ctx, resp.ProjectID)
	if err != nil {
		t.Fatalf("WaitForIndexing() error = %v", err)
	}
	if p.Status != projects.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", p.Status, p.Message)
	}
	return resp.ProjectID
}

func TestApp_QueriesByIDOrPath(t *testing.T) {
	recs := fixture()
	a := newApp(t, &recs)
	dir := t.TempDir()
	id := indexed(t, a, dir)
	ctx := context.Background()

	for _, project := range []string{id, dir} {
		classes, err := a.ListClasses(ctx, project, query.ListClassesOptions{})
		if err != nil {
			t.Fatalf("ListClasses(%s) error = %v", project, err)
		}
		if len(classes.Classes) != 1 {
			t.Errorf("ListClasses(%s) = %d classes, want 1", project, len(classes.Classes))
		}
	}

	m, err := a.GetMethod(ctx, id, "App.Orders.Place")
	if err != nil {
		t.Fatal(err)
	}
	if m.OutgoingCalls != 1 {
		t.Errorf("OutgoingCalls = %d, want 1", m.OutgoingCalls)
	}

	callers, err := a.GetCallers(ctx, id, graph.Options{Method: "App.Orders.Validate", Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(callers.Nodes) != 1 || callers.Nodes[0].Method != "App.Orders.Place" {
		t.Errorf("callers = %+v", callers.Nodes)
	}

	stats, err := a.Stats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 {
		t.Errorf("Stats.Total = %d, want 4", stats.Total)
	}

	if _, err := a.GetClass(ctx, "/nowhere", "App.Orders"); !cferrors.IsNotFound(err) {
		t.Errorf("unknown project error = %v, want NOT_FOUND", err)
	}
	if _, err := a.ListMethods(ctx, "", query.ListMethodsOptions{}); !cferrors.IsInvalid(err) {
		t.Errorf("blank project error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestApp_Consistency(t *testing.T) {
	recs := fixture()
	a := newApp(t, &recs)
	id := indexed(t, a, t.TempDir())
	ctx := context.Background()

	// The next extraction no longer sees Validate or the call into it.
	recs = recs[:2]

	acc, err := a.CompareAgainstGroundTruth(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Overall.Extra != 2 || acc.Overall.Missing != 0 {
		t.Errorf("overall = %+v", acc.Overall)
	}

	dry, err := a.CleanupStale(ctx, id, consistency.CleanupOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if dry.Totals.Stale != 2 || dry.Totals.Deleted != 0 {
		t.Errorf("dry run totals = %+v", dry.Totals)
	}
	report, err := a.CleanupStale(ctx, id, consistency.CleanupOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Totals.Deleted != 2 {
		t.Errorf("totals = %+v", report.Totals)
	}
	stats, err := a.Stats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Errorf("Stats.Total after cleanup = %d, want 2", stats.Total)
	}
}

func TestApp_DeleteProject(t *testing.T) {
	recs := fixture()
	a := newApp(t, &recs)
	dir := t.TempDir()
	id := indexed(t, a, dir)
	ctx := context.Background()

	ok, err := a.DeleteProject(ctx, dir)
	if err != nil || !ok {
		t.Fatalf("DeleteProject() = %v, %v", ok, err)
	}
	ok, err = a.DeleteProject(ctx, id)
	if err != nil || ok {
		t.Errorf("second DeleteProject() = %v, %v, want false, nil", ok, err)
	}
	if got := a.ListProjects(); got.TotalCount != 0 || got.Projects == nil {
		t.Errorf("ListProjects() = %+v", got)
	}
}

func TestApp_SnapshotRoundTrip(t *testing.T) {
	recs := fixture()
	a := newApp(t, &recs)
	src := indexed(t, a, t.TempDir())
	ctx := context.Background()

	var buf bytes.Buffer
	h, err := a.ExportSnapshot(ctx, src, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Count != 4 {
		t.Errorf("exported %d facts, want 4", h.Count)
	}

	recs = nil
	dst := indexed(t, a, t.TempDir())
	res, err := a.ImportSnapshot(ctx, dst, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 4 {
		t.Errorf("imported Stats = %+v", res.Stats)
	}

	if _, err := a.ImportSnapshot(ctx, dst, bytes.NewReader([]byte("garbage"))); !cferrors.IsInvalid(err) {
		t.Errorf("garbage snapshot error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestApp_ValidateBundle(t *testing.T) {
	recs := fixture()
	a := newApp(t, &recs)
	dir := t.TempDir()
	bundle := filepath.Join(dir, "facts.json")
	data, err := json.Marshal([]facts.Record{
		testutil.Class("App.Orders", "orders.cs", 1),
		testutil.With(testutil.Method("App.Orders.Place", "orders.cs", 3), "method_name", "", "line_number", "0"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bundle, data, 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := a.ValidateBundle(bundle)
	if err != nil {
		t.Fatalf("ValidateBundle() error = %v", err)
	}
	if resp.Records != 2 || resp.Valid != 1 || resp.Invalid != 1 || resp.Failures[0].Index != 1 {
		t.Errorf("ValidateBundle() = %+v", resp)
	}

	if _, err := a.ValidateBundle(filepath.Join(dir, "missing.json")); !cferrors.IsNotFound(err) {
		t.Errorf("missing bundle error = %v", err)
	}
}
