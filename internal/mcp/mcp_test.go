package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"codefacts/internal/app"
	"codefacts/internal/config"
	"codefacts/internal/extract"
	"codefacts/internal/facts"
	"codefacts/internal/graph"
	"codefacts/internal/projects"
	"codefacts/internal/testutil"
)

type fixedExtractor []facts.Record

func (f fixedExtractor) Extract(context.Context, extract.Request) ([]facts.Record, error) {
	return f, nil
}

// connect serves a fresh app over in-memory transports and returns the
// client side.
func connect(t *testing.T) *sdk.ClientSession {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	recs := []facts.Record{
		testutil.Class("Billing.Invoice", "invoice.cs", 1),
		testutil.Method("Billing.Invoice.Issue", "invoice.cs", 5),
		testutil.Method("Billing.Invoice.Sign", "invoice.cs", 12),
		testutil.Method("Billing.Program.Main", "program.cs", 3),
		testutil.Call("Billing.Program.Main", "Billing.Invoice.Issue", "program.cs", 4),
		testutil.Call("Billing.Invoice.Issue", "Billing.Invoice.Sign", "invoice.cs", 6),
	}
	resolve := func(string, config.ExtractorConfig, *slog.Logger) (*extract.Plan, error) {
		return &extract.Plan{Extractor: fixedExtractor(recs), Source: "fixture"}, nil
	}
	a, err := app.New(cfg, nil, projects.WithResolver(resolve))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	if _, err := NewServer(a, nil).Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// call invokes a tool and returns its text and error flag.
func call(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text, result.IsError
}

func mustCall(t *testing.T, session *sdk.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	text, isErr := call(t, session, name, args)
	if isErr {
		t.Fatalf("CallTool(%s) returned error: %s", name, text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("decode %s result: %v", name, err)
		}
	}
}

func indexFixture(t *testing.T, session *sdk.ClientSession) string {
	t.Helper()
	var p projects.Project
	mustCall(t, session, "index_project", map[string]any{"path": t.TempDir(), "wait": true}, &p)
	if p.Status != projects.StatusCompleted {
		t.Fatalf("status = %s (%s)", p.Status, p.Message)
	}
	return p.ID
}

func TestListTools(t *testing.T) {
	session := connect(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"index_project", "get_status", "list_projects", "delete_project",
		"list_classes", "list_methods", "list_entry_points", "get_method",
		"get_class", "get_class_methods", "get_class_references",
		"get_callers", "get_callees", "search_facts", "compare_accuracy", "cleanup_stale",
	}
	have := make(map[string]bool, len(res.Tools))
	for _, tool := range res.Tools {
		have[tool.Name] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestTools_QueryFlow(t *testing.T) {
	session := connect(t)
	id := indexFixture(t, session)

	var list app.ListProjectsResponse
	mustCall(t, session, "list_projects", map[string]any{}, &list)
	if list.TotalCount != 1 {
		t.Errorf("list_projects total = %d", list.TotalCount)
	}

	var callers graph.Result
	mustCall(t, session, "get_callers", map[string]any{"project": id, "method": "Billing.Invoice.Sign", "depth": 2}, &callers)
	if len(callers.Nodes) != 2 || callers.MaxDepthReached != 2 {
		t.Errorf("callers = %+v", callers)
	}

	var entry struct {
		EntryPoints []struct {
			Method string `json:"method"`
		} `json:"entryPoints"`
	}
	mustCall(t, session, "list_entry_points", map[string]any{"project": id, "kind": "Main"}, &entry)
	if len(entry.EntryPoints) != 1 || entry.EntryPoints[0].Method != "Billing.Program.Main" {
		t.Errorf("entry points = %+v", entry)
	}

	mustCall(t, session, "get_class_methods", map[string]any{"project": id, "class": "Billing.Invoice"}, nil)
	mustCall(t, session, "search_facts", map[string]any{"project": id, "query": "Sign", "type": "method_definition"}, nil)

	var acc struct {
		Overall struct {
			F1 float64 `json:"f1"`
		} `json:"overall"`
	}
	mustCall(t, session, "compare_accuracy", map[string]any{"project": id}, &acc)
	if acc.Overall.F1 != 1 {
		t.Errorf("F1 = %v, want 1", acc.Overall.F1)
	}

	var del DeleteResult
	mustCall(t, session, "delete_project", map[string]any{"project": id}, &del)
	if !del.Deleted {
		t.Error("delete_project did not delete")
	}
}

func TestTools_Errors(t *testing.T) {
	session := connect(t)
	id := indexFixture(t, session)

	tests := []struct {
		name string
		tool string
		args map[string]any
		code string
	}{
		{"unknown project", "get_status", map[string]any{"project": "nope"}, "NOT_FOUND"},
		{"blank method", "get_method", map[string]any{"project": id, "method": " "}, "INVALID_ARGUMENT"},
		{"zero depth", "get_callees", map[string]any{"project": id, "method": "Billing.Invoice.Issue", "depth": 0}, "INVALID_ARGUMENT"},
		{"unknown seed", "get_callees", map[string]any{"project": id, "method": "Billing.Nope"}, "NOT_FOUND"},
		{"bad fact type", "search_facts", map[string]any{"project": id, "query": "x", "type": "enum"}, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, session, tt.tool, tt.args)
			if !isErr {
				t.Fatalf("%s succeeded: %s", tt.tool, text)
			}
			if !strings.Contains(text, tt.code) {
				t.Errorf("error %q does not carry %s", text, tt.code)
			}
		})
	}
}
