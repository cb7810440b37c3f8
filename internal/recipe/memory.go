// Package recipe provides recipe sources and the pure schedule generator
// that turns a recipe definition into concrete, time-stamped pour steps.
package recipe

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipe definitions in memory. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.RecipeDefinition
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with the built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		recipes: make(map[string]*domain.RecipeDefinition),
		log:     log,
	}
	src.seed()
	return src
}

// seed loads the embedded recipes. They are validated by tests, so a
// failure here is a build defect and is only logged.
func (s *MemorySource) seed() {
	defs, err := loadFS(builtinFS, "builtin")
	if err != nil {
		s.log.Error("recipe: loading built-in recipes: %v", err)
		return
	}
	for _, def := range defs {
		s.recipes[def.ID] = def
	}
	s.log.Debug("recipe: seeded %d built-in recipes", len(defs))
}

// LoadDir adds every recipe found in dir. Recipes with an ID that is
// already present replace the existing definition.
func (s *MemorySource) LoadDir(dir string) (int, error) {
	defs, err := LoadRecipesFromDir(dir)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range defs {
		if _, ok := s.recipes[def.ID]; ok {
			s.log.Info("recipe: %s from %s overrides existing definition", def.ID, def.Source)
		}
		s.recipes[def.ID] = def
	}
	return len(defs), nil
}

// Add registers a recipe definition after validating it.
func (s *MemorySource) Add(def *domain.RecipeDefinition) error {
	if err := Validate(def); err != nil {
		return fmt.Errorf("validating recipe %q: %w", def.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[def.ID]; ok {
		return fmt.Errorf("recipe %q: %w", def.ID, domain.ErrAlreadyExists)
	}
	s.recipes[def.ID] = def
	return nil
}

// List returns summaries of all recipes, sorted by name.
func (s *MemorySource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecipeSummary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, summarize(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a recipe definition by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.RecipeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, fmt.Errorf("recipe %q: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// Search returns recipes whose name, description, dripper or tags contain
// the query (case-insensitive).
func (s *MemorySource) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if q == "" {
		return all, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RecipeSummary
	for _, sum := range all {
		r := s.recipes[sum.ID]
		haystack := strings.ToLower(strings.Join(append([]string{r.Name, r.Description, r.Dripper}, r.Tags...), " "))
		if strings.Contains(haystack, q) {
			out = append(out, sum)
		}
	}
	return out, nil
}

func summarize(r *domain.RecipeDefinition) domain.RecipeSummary {
	return domain.RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
	}
}
