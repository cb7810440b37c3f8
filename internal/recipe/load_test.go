package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

const minimalRecipe = `id: tiny
name: Tiny
water_ratio: 10
params:
  beans: {min: 10, max: 20, default: 10, step: 1}
  flavors: [neutral]
  default_flavor: neutral
  strengths: [medium]
  default_strength: medium
steps:
  - time: 0
    volume: fivePour
    action_type: pour
    names: {en: Pour}
    actions:
      en: Pour to ${cumulative} g
  - time: 60
    names: {en: Done}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRecipe(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tiny.yaml", minimalRecipe)

	def, err := LoadRecipe(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "tiny" || def.Source != path {
		t.Fatalf("unexpected recipe %+v", def)
	}

	steps, err := Generate(def, DefaultParams(def))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(steps) != 2 || steps[0].CumulativeVolumeMl != 20 || steps[1].ActionType != domain.ActionNone {
		t.Fatalf("unexpected schedule %+v", steps)
	}
	if got := steps[0].Action("en"); got != "Pour to 20 g" {
		t.Fatalf("unexpected action text %q", got)
	}
}

func TestLoadRecipeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "id: [unterminated"},
		{"missing id", strings.Replace(minimalRecipe, "id: tiny\n", "", 1)},
		{"zero ratio", strings.Replace(minimalRecipe, "water_ratio: 10", "water_ratio: 0", 1)},
		{"unknown action", strings.Replace(minimalRecipe, "action_type: pour", "action_type: stir", 1)},
		{"out of order", strings.Replace(minimalRecipe, "time: 60", "time: 0", 1)},
		{"default flavor not declared", strings.Replace(minimalRecipe, "default_flavor: neutral", "default_flavor: sour", 1)},
		{"bean default outside bounds", strings.Replace(minimalRecipe, "default: 10", "default: 30", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "bad.yaml", tt.body)
			_, err := LoadRecipe(path)
			if !errors.Is(err, domain.ErrInvalidRecipe) {
				t.Fatalf("expected ErrInvalidRecipe, got %v", err)
			}
		})
	}
}

func TestLoadRecipesFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yml", strings.Replace(minimalRecipe, "id: tiny", "id: zeta", 1))
	writeFile(t, dir, "a.yaml", minimalRecipe)
	writeFile(t, dir, "README.md", "# not a recipe")
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	defs, err := LoadRecipesFromDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != "tiny" || defs[1].ID != "zeta" {
		t.Fatalf("expected [tiny zeta], got %d recipes", len(defs))
	}

	defs, err = LoadRecipesFromDir("")
	if err != nil || defs != nil {
		t.Fatalf("empty dir path: got (%v, %v)", defs, err)
	}
}

func TestValidateParams(t *testing.T) {
	def := mustRecipe(t, "four-six")

	tests := []struct {
		name    string
		params  domain.BrewParams
		wantErr bool
	}{
		{"defaults", DefaultParams(def), false},
		{"fractional beans", domain.BrewParams{BeansGrams: 12.5, Flavor: domain.FlavorSweet, Strength: domain.StrengthLight}, false},
		{"too few beans", domain.BrewParams{BeansGrams: 5, Flavor: domain.FlavorSweet, Strength: domain.StrengthLight}, true},
		{"too many beans", domain.BrewParams{BeansGrams: 41, Flavor: domain.FlavorSweet, Strength: domain.StrengthLight}, true},
		{"unknown flavor", domain.BrewParams{BeansGrams: 20, Flavor: "bitter", Strength: domain.StrengthLight}, true},
		{"unknown strength", domain.BrewParams{BeansGrams: 20, Flavor: domain.FlavorSweet, Strength: "extra"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(def, tt.params)
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
