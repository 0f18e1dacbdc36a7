package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

type catalogSpec struct {
	Name  string `json:"name"`
	Stack int    `json:"stack"`
}

func (s *catalogSpec) Validate() error {
	return nil
}

func writeAsset(t *testing.T, dir, file string, asset any) {
	t.Helper()

	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	tests := map[string]struct {
		setup    func(t *testing.T, dir string)
		expCount int
		expErr   string
	}{
		"empty directory": {
			setup:    func(t *testing.T, dir string) {},
			expCount: 0,
		},
		"loads assets and ignores other files": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, dir, "wood.json", Asset[*catalogSpec]{Version: 1, Identifier: "wood", Spec: &catalogSpec{Name: "Wood", Stack: 64}})
				writeAsset(t, dir, "axe.json", Asset[*catalogSpec]{Version: 1, Identifier: "axe", Spec: &catalogSpec{Name: "Axe", Stack: 1}})
				_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644)
			},
			expCount: 2,
		},
		"invalid json": {
			setup: func(t *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{invalid`), 0644)
			},
			expErr: "unmarshalling asset",
		},
		"validation error": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, dir, "wood.json", Asset[*catalogSpec]{Version: 0, Identifier: "wood", Spec: &catalogSpec{}})
			},
			expErr: "version must be set",
		},
		"duplicate key": {
			setup: func(t *testing.T, dir string) {
				sub := filepath.Join(dir, "nested")
				if err := os.Mkdir(sub, 0755); err != nil {
					t.Fatalf("failed to create subdir: %v", err)
				}
				a := Asset[*catalogSpec]{Version: 1, Identifier: "wood", Spec: &catalogSpec{}}
				writeAsset(t, dir, "a.json", a)
				writeAsset(t, sub, "b.json", a)
			},
			expErr: "duplicate key detected: wood",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			store, err := NewFileStore[*catalogSpec](dir)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "record count", len(store.GetAll()), tt.expCount)
		})
	}
}

func TestNewFileStore_MissingDirectory(t *testing.T) {
	_, err := NewFileStore[*catalogSpec]("/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestFileStore_Get(t *testing.T) {
	store, err := NewMemoryStore(map[Identifier]*catalogSpec{
		"wood": {Name: "Wood", Stack: 64},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.Get("wood")
	if got == nil {
		t.Fatal("expected wood to be present")
	}
	testutil.AssertEqual(t, "name", got.Name, "Wood")
	testutil.AssertEqual(t, "stack", got.Stack, 64)

	if store.Get("stone") != nil {
		t.Error("expected nil for missing record")
	}
}

func TestFileStore_GetAllReturnsCopy(t *testing.T) {
	store, err := NewMemoryStore(map[Identifier]*catalogSpec{
		"wood": {Name: "Wood"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := store.GetAll()
	delete(all, "wood")

	testutil.AssertEqual(t, "record count", len(store.GetAll()), 1)
}

func TestNewMemoryStore_RejectsBadIdentifier(t *testing.T) {
	_, err := NewMemoryStore(map[Identifier]*catalogSpec{
		"bad id": {Name: "Wood"},
	})
	testutil.AssertErrorContains(t, err, "id must be alphanumeric")
}
