package snapshot

import (
	"testing"

	"github.com/GriffinCanCode/isolate/internal/isolate"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return store
}

func newContext(t *testing.T) *isolate.Context {
	t.Helper()
	c, err := isolate.New(isolate.DefaultConfig())
	if err != nil {
		t.Fatalf("isolate.New() error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func seed(t *testing.T, c *isolate.Context, script string) {
	t.Helper()
	if _, err := isolate.RunSync(c, func() (isolate.Task, error) {
		return isolate.NewEvalTask(c, script)
	}); err != nil {
		t.Fatalf("seed script: %v", err)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	store := newStore(t)
	source := newContext(t)
	seed(t, source, `counter = 41; state = {items: ["a", "b"]}`)

	snap, err := store.Save(source, "checkpoint", []string{"counter", "state"})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if snap.Name != "checkpoint" || len(snap.Globals) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	// Restore into a fresh context and verify the values took.
	target := newContext(t)
	if _, err := store.Restore(target, "checkpoint"); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	value, err := isolate.RunSync(target, func() (isolate.Task, error) {
		return isolate.NewEvalTask(target, "counter + state.items.length")
	})
	if err != nil {
		t.Fatalf("eval after restore: %v", err)
	}
	if value != float64(43) {
		t.Errorf("eval after restore = %v, want 43", value)
	}
}

func TestSaveValidation(t *testing.T) {
	store := newStore(t)
	c := newContext(t)

	tests := []struct {
		name     string
		snapName string
		keys     []string
	}{
		{"empty name", "", []string{"x"}},
		{"path traversal", "../escape", []string{"x"}},
		{"no keys", "ok", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Save(c, tt.snapName, tt.keys); err == nil {
				t.Error("Save() should have failed")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	store := newStore(t)

	if _, err := store.Load("nope"); err == nil {
		t.Error("Load() of missing snapshot should fail")
	}
}

func TestListAndDelete(t *testing.T) {
	store := newStore(t)
	c := newContext(t)
	seed(t, c, "x = 1")

	if _, err := store.Save(c, "first", []string{"x"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := store.Save(c, "second", []string{"x"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List() = %v, want 2 entries", names)
	}

	if err := store.Delete("first"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	names, _ = store.List()
	if len(names) != 1 || names[0] != "second" {
		t.Errorf("List() after delete = %v", names)
	}
}

func TestMissingGlobalsSaveAsNull(t *testing.T) {
	store := newStore(t)
	c := newContext(t)

	snap, err := store.Save(c, "empty", []string{"never_set"})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if snap.Globals["never_set"] != nil {
		t.Errorf("unset global = %v, want nil", snap.Globals["never_set"])
	}
}
