package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"codefacts/internal/config"
	"codefacts/internal/slogutil"
)

func openSQLiteForTest(t *testing.T) DocumentStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "facts.db"), SQLiteOptions{})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openBadgerForTest(t *testing.T) DocumentStore {
	t.Helper()
	s, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// backends runs fn against every DocumentStore implementation.
func backends(t *testing.T, fn func(t *testing.T, s DocumentStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLiteForTest(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, openBadgerForTest(t)) })
}

func TestStore_AddGetDelete(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		meta := map[string]string{"type": "method_call", "caller": "A.Run"}

		id, err := s.AddText(ctx, "Method call: A.Run calls B.Go", meta)
		if err != nil {
			t.Fatalf("AddText() error = %v", err)
		}
		if id == "" {
			t.Fatal("AddText() returned empty id")
		}

		doc, err := s.Get(ctx, id)
		if err != nil || doc == nil {
			t.Fatalf("Get() = %v, %v", doc, err)
		}
		if doc.Content != "Method call: A.Run calls B.Go" || doc.Metadata["caller"] != "A.Run" {
			t.Errorf("Get() = %+v", doc)
		}

		deleted, err := s.Delete(ctx, id)
		if err != nil || !deleted {
			t.Fatalf("Delete() = %v, %v", deleted, err)
		}
		deleted, err = s.Delete(ctx, id)
		if err != nil || deleted {
			t.Errorf("second Delete() = %v, %v, want false", deleted, err)
		}

		doc, err = s.Get(ctx, id)
		if err != nil || doc != nil {
			t.Errorf("Get() after delete = %v, %v, want nil, nil", doc, err)
		}
	})
}

func TestStore_GetAllIDsSorted(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()

		ids, err := s.GetAllIDs(ctx)
		if err != nil || ids == nil || len(ids) != 0 {
			t.Fatalf("empty GetAllIDs() = %#v, %v", ids, err)
		}

		var added []string
		for i := 0; i < 5; i++ {
			id, err := s.AddText(ctx, "doc", map[string]string{"n": string(rune('a' + i))})
			if err != nil {
				t.Fatal(err)
			}
			added = append(added, id)
		}
		sort.Strings(added)

		ids, err = s.GetAllIDs(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 5 {
			t.Fatalf("GetAllIDs() len = %d, want 5", len(ids))
		}
		for i := range ids {
			if ids[i] != added[i] {
				t.Errorf("ids[%d] = %s, want %s", i, ids[i], added[i])
			}
		}
	})
}

func TestStore_SearchText(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		greet, _ := s.AddText(ctx, "Method definition: public void App.Greeter.Greet() in App.Greeter", map[string]string{"type": "method_definition"})
		_, _ = s.AddText(ctx, "Class definition: public App.Program in namespace App", map[string]string{"type": "class_definition"})

		results, err := s.SearchText(ctx, "Greeter.Greet", 10)
		if err != nil {
			t.Fatalf("SearchText() error = %v", err)
		}
		if len(results) != 1 || results[0].ID != greet {
			t.Fatalf("SearchText() = %+v, want only the Greet document", results)
		}
		if results[0].Score <= 0 || results[0].MatchType == "" {
			t.Errorf("result missing score/match type: %+v", results[0])
		}

		results, err = s.SearchText(ctx, "app", 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 {
			t.Errorf("limit not applied: %d results", len(results))
		}

		results, err = s.SearchText(ctx, "   ", 10)
		if err != nil || len(results) != 0 {
			t.Errorf("blank query = %v, %v", results, err)
		}
	})
}

func TestSQLiteStore_SearchTextFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *SQLiteStore) context.Context
	}{
		{"closed store", func(s *SQLiteStore) context.Context {
			_ = s.Close()
			return context.Background()
		}},
		{"cancelled context", func(s *SQLiteStore) context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "facts.db"), SQLiteOptions{})
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			if _, err := s.AddText(context.Background(), "Method call: A.Run calls B.Go", map[string]string{"type": "method_call"}); err != nil {
				t.Fatal(err)
			}

			ctx := tt.setup(s)
			results, err := s.SearchText(ctx, "Run", 10)
			if err == nil {
				t.Fatalf("SearchText() = %+v, nil; want error", results)
			}
		})
	}
}

func TestBadgerStore_SearchTextSkipsCorruptDocument(t *testing.T) {
	var logs bytes.Buffer
	s, err := OpenBadger(BadgerOptions{InMemory: true, Logger: slogutil.NewLogger(&logs, slog.LevelWarn)})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	good, err := s.AddText(ctx, "Method call: A.Run calls B.Go", map[string]string{"type": "method_call"})
	if err != nil {
		t.Fatal(err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docPrefix+"corrupt"), []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := s.SearchText(ctx, "Run", 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != good {
		t.Errorf("SearchText() = %+v, want only %s", results, good)
	}
	if !strings.Contains(logs.String(), "docId=corrupt") {
		t.Errorf("corrupt document not logged, got: %s", logs.String())
	}
	if _, err := s.Get(ctx, "corrupt"); err == nil {
		t.Error("Get() of corrupt document should fail")
	}
}

func TestIsFTSQueryError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New(`SQL logic error: fts5: syntax error near "*" (1)`), true},
		{errors.New("malformed MATCH expression: [x]"), true},
		{errors.New("unterminated string"), true},
		{sql.ErrConnDone, false},
		{errors.New("sql: database is closed"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isFTSQueryError(tt.err); got != tt.want {
			t.Errorf("isFTSQueryError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.AddText(ctx, "concurrent", map[string]string{"type": "x"}); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("AddText() error = %v", err)
		}

		ids, _ := s.GetAllIDs(ctx)
		if len(ids) != 20 {
			t.Errorf("GetAllIDs() len = %d, want 20", len(ids))
		}
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "facts.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, SQLiteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	id, _ := s.AddText(ctx, "persisted", map[string]string{"k": "v"})
	_ = s.Close()

	s, err = OpenSQLite(path, SQLiteOptions{})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	doc, err := s.Get(ctx, id)
	if err != nil || doc == nil || doc.Metadata["k"] != "v" {
		t.Errorf("Get() after reopen = %+v, %v", doc, err)
	}
	if ids, _ := s.GetAllIDs(ctx); len(ids) != 1 {
		t.Errorf("GetAllIDs() after reopen = %v, want one id", ids)
	}
}

func TestOpen_Backends(t *testing.T) {
	logger := slogutil.NewDiscardLogger()

	for _, backend := range []string{config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.DefaultConfig().Store
			cfg.Backend = backend
			s, err := Open(cfg, t.TempDir(), logger)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}

	if _, err := Open(config.StoreConfig{Backend: "mongo"}, t.TempDir(), logger); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Error("expected error without path")
	}
}
