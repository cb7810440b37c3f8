package recipe

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// LoadRecipe reads a single recipe definition from disk.
func LoadRecipe(path string) (*domain.RecipeDefinition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("recipe path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing recipe %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// LoadRecipesFromDir loads every *.yaml / *.yml recipe in dir, sorted by ID.
// A missing directory yields no recipes and no error.
func LoadRecipesFromDir(dir string) ([]*domain.RecipeDefinition, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recipes dir %s: %w", dir, err)
	}

	var defs []*domain.RecipeDefinition
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		def, err := LoadRecipe(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// loadFS loads every recipe in an fs.FS directory (used for the embedded
// built-ins).
func loadFS(fsys fs.FS, dir string) ([]*domain.RecipeDefinition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var defs []*domain.RecipeDefinition
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		def.Source = "builtin"
		defs = append(defs, def)
	}
	return defs, nil
}

// Parse decodes and validates a YAML recipe definition.
func Parse(data []byte) (*domain.RecipeDefinition, error) {
	var def domain.RecipeDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecipe, err)
	}

	def.ID = strings.TrimSpace(def.ID)
	def.Name = strings.TrimSpace(def.Name)
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
