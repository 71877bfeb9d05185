package factstore

import (
	"context"
	"errors"
	"testing"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/storage"
	"codefacts/internal/testutil"
)

func TestReader_Load(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.Seed(t, store,
		testutil.Call("App.A.Run", "App.B.Go", "a.cs", 3),
		testutil.Method("App.A.Run", "a.cs", 1),
		testutil.Class("App.A", "a.cs", 1),
		facts.Record{"note": "no type at all"},
		facts.Record{"type": "namespace_definition"},
		testutil.With(testutil.Call("App.A.Run", "App.C.Stop", "a.cs", 4), "line_number", "four"),
	)

	snap, err := NewReader(4, nil).Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(snap.Entries) != 3 {
		t.Errorf("Entries = %d, want 3", len(snap.Entries))
	}
	if snap.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", snap.Skipped)
	}
	if snap.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", snap.Malformed)
	}
	if len(snap.Calls()) != 1 || len(snap.Methods()) != 1 || len(snap.Classes()) != 1 {
		t.Errorf("typed accessors = %d/%d/%d", len(snap.Calls()), len(snap.Methods()), len(snap.Classes()))
	}

	counts := snap.CountByType()
	if counts[facts.TypeMethodCall] != 1 || counts[facts.TypeEnumDefinition] != 0 {
		t.Errorf("CountByType() = %v", counts)
	}
	if _, ok := counts[facts.TypeFieldDefinition]; !ok {
		t.Error("CountByType() should include every type")
	}
}

func TestSnapshot_Duplicates(t *testing.T) {
	store := testutil.NewStore(t)
	ids := testutil.Seed(t, store,
		testutil.Method("App.A.Run", "a.cs", 1),
		testutil.Method("App.A.Run", "a.cs", 1),
		testutil.Method("App.A.Stop", "a.cs", 9),
	)

	snap, err := NewReader(1, nil).Load(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}

	dups := snap.Duplicates()
	if len(dups) != 1 || dups[0].Identity != "App.A.Run" {
		t.Fatalf("Duplicates() = %v", dups)
	}
	byKey := snap.IDsByKey()
	got := byKey[Key{Type: facts.TypeMethodDefinition, Identity: "App.A.Run"}]
	if len(got) != 2 {
		t.Errorf("IDsByKey() = %v, want the two ids %v", got, ids[:2])
	}
}

type failingStore struct {
	storage.DocumentStore
	listErr error
	getErr  error
}

func (f failingStore) GetAllIDs(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []string{"x"}, nil
}

func (f failingStore) Get(context.Context, string) (*storage.Document, error) {
	return nil, f.getErr
}

func TestReader_StoreFailures(t *testing.T) {
	tests := []struct {
		name  string
		store failingStore
	}{
		{"list fails", failingStore{listErr: errors.New("io")}},
		{"get fails", failingStore{getErr: errors.New("io")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(2, nil).Load(context.Background(), tt.store)
			if cferrors.CodeOf(err) != cferrors.StoreFailure {
				t.Errorf("Load() error = %v, want STORE_FAILURE", err)
			}
		})
	}
}

func TestReader_VanishedDocumentIgnored(t *testing.T) {
	// Get returning nil, nil models a delete between list and fetch.
	snap, err := NewReader(2, nil).Load(context.Background(), failingStore{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Entries) != 0 || snap.Skipped != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}
