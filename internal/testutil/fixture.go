// Package testutil provides fact fixtures and throwaway stores for tests.
package testutil

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"codefacts/internal/facts"
	"codefacts/internal/storage"
)

// NewStore opens a sqlite store in a temp dir, closed on cleanup.
func NewStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "facts.db"), storage.SQLiteOptions{})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Seed writes each record as a document and returns the ids in order.
// Records are written as given, without validation.
func Seed(t *testing.T, s storage.DocumentStore, recs ...facts.Record) []string {
	t.Helper()
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		content := rec[facts.TypeKey]
		if f, err := facts.Decode(rec); err == nil {
			content = facts.Describe(f)
		}
		id, err := s.AddText(context.Background(), content, rec)
		if err != nil {
			t.Fatalf("seed document: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// split breaks "Ns.Sub.Class.Member" into namespace, class FQN and short name.
func split(fqn string) (namespace, class, name string) {
	i := strings.LastIndex(fqn, ".")
	if i < 0 {
		return "Global", "Global", fqn
	}
	class, name = fqn[:i], fqn[i+1:]
	if j := strings.LastIndex(class, "."); j >= 0 {
		namespace = class[:j]
	} else {
		namespace = "Global"
	}
	return namespace, class, name
}

// Call builds a method_call record between two method FQNs.
func Call(caller, callee, file string, line int) facts.Record {
	callerNs, callerClass, _ := split(caller)
	calleeNs, calleeClass, _ := split(callee)
	return facts.Record{
		"type":             string(facts.TypeMethodCall),
		"caller":           caller,
		"callee":           callee,
		"caller_class":     callerClass,
		"callee_class":     calleeClass,
		"caller_namespace": callerNs,
		"callee_namespace": calleeNs,
		"file_path":        file,
		"line_number":      strconv.Itoa(line),
	}
}

// Method builds a method_definition record for a method FQN.
func Method(fqn, file string, line int) facts.Record {
	ns, class, name := split(fqn)
	return facts.Record{
		"type":            string(facts.TypeMethodDefinition),
		"method":          fqn,
		"method_name":     name,
		"class":           class,
		"namespace":       ns,
		"return_type":     "void",
		"access_modifier": "public",
		"is_static":       "false",
		"is_virtual":      "false",
		"is_abstract":     "false",
		"is_override":     "false",
		"file_path":       file,
		"line_number":     strconv.Itoa(line),
	}
}

// Class builds a class_definition record for a class FQN.
func Class(fqn, file string, line int) facts.Record {
	_, ns, name := split(fqn)
	if !strings.Contains(fqn, ".") {
		ns = "Global"
	}
	return facts.Record{
		"type":            string(facts.TypeClassDefinition),
		"class":           fqn,
		"class_name":      name,
		"namespace":       ns,
		"access_modifier": "public",
		"is_static":       "false",
		"is_abstract":     "false",
		"is_sealed":       "false",
		"file_path":       file,
		"line_number":     strconv.Itoa(line),
	}
}

// With returns a copy of rec with extra fields set.
func With(rec facts.Record, kv ...string) facts.Record {
	out := rec.Clone()
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// Decoded validates rec and returns the typed fact, failing the test otherwise.
func Decoded(t *testing.T, rec facts.Record) facts.Fact {
	t.Helper()
	res := facts.NewValidator().Validate(rec)
	if !res.Valid {
		t.Fatalf("fixture record invalid: %v", res.Errors)
	}
	return res.Fact
}
