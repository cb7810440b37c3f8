package recipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

func TestMemorySourceList(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	recipes, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recipes) != 3 {
		t.Fatalf("expected 3 built-in recipes, got %d", len(recipes))
	}
	for i := 1; i < len(recipes); i++ {
		if recipes[i-1].Name > recipes[i].Name {
			t.Fatalf("list not sorted by name: %q before %q", recipes[i-1].Name, recipes[i].Name)
		}
	}
}

func TestMemorySourceGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"new-hybrid", nil},
		{"four-six", nil},
		{"five-pour", nil},
		{"nonexistent", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := src.Get(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.ID != tt.id {
				t.Fatalf("expected ID %s, got %s", tt.id, r.ID)
			}
			if r.Source != "builtin" {
				t.Fatalf("expected builtin source, got %q", r.Source)
			}
		})
	}
}

func TestMemorySourceSearch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"switch", 1},
		{"CONE", 2},
		{"", 3},
		{"espresso", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := src.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("query %q: expected %d results, got %d", tt.query, tt.want, len(got))
			}
		})
	}
}

func TestMemorySourceLoadDir(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	dir := t.TempDir()
	data, err := builtinFS.ReadFile("builtin/five-pour.yaml")
	if err != nil {
		t.Fatalf("read builtin: %v", err)
	}
	custom := []byte("id: my-five\n" + string(data[len("id: five-pour\n"):]))
	if err := os.WriteFile(filepath.Join(dir, "mine.yaml"), custom, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := src.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recipe loaded, got %d", n)
	}

	r, err := src.Get(ctx, "my-five")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Source != filepath.Join(dir, "mine.yaml") {
		t.Fatalf("unexpected source %q", r.Source)
	}

	if n, err := src.LoadDir(filepath.Join(dir, "missing")); err != nil || n != 0 {
		t.Fatalf("missing dir: expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestMemorySourceAddRejectsDuplicates(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	existing, err := src.Get(ctx, "four-six")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := src.Add(existing); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
