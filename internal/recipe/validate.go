package recipe

import (
	"fmt"
	"slices"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

var knownActions = map[domain.ActionType]bool{
	domain.ActionNone:            true,
	domain.ActionPour:            true,
	domain.ActionCool:            true,
	domain.ActionSwitchOpen:      true,
	domain.ActionSwitchClose:     true,
	domain.ActionSwitchOpenPour:  true,
	domain.ActionSwitchClosePour: true,
	domain.ActionPourCool:        true,
}

// Validate checks a recipe definition's structure, then generates a schedule
// for every declared flavor/strength combination so that a malformed recipe
// is rejected at load time rather than mid-brew.
func Validate(def *domain.RecipeDefinition) error {
	if def.ID == "" {
		return &domain.RecipeValidationError{Field: "id", Index: -1, Message: "is required"}
	}
	if def.Name == "" {
		return &domain.RecipeValidationError{Field: "name", Index: -1, Message: "is required"}
	}
	if def.WaterRatio <= 0 {
		return &domain.RecipeValidationError{Field: "water_ratio", Index: -1, Message: "must be positive"}
	}
	if len(def.Steps) == 0 {
		return &domain.RecipeValidationError{Field: "steps", Index: -1, Message: "at least one step is required"}
	}

	for i, tpl := range def.Steps {
		if (tpl.Time == nil) == (len(tpl.Formula) == 0) {
			return &domain.RecipeValidationError{Field: "steps", Index: i, Message: "exactly one of time or time_by_steps is required"}
		}
		if tpl.ActionType != "" && !knownActions[tpl.ActionType] {
			return &domain.RecipeValidationError{Field: "steps", Index: i, Message: fmt.Sprintf("unknown action type %q", tpl.ActionType)}
		}
		if len(tpl.Names) == 0 {
			return &domain.RecipeValidationError{Field: "steps", Index: i, Message: "at least one localized name is required"}
		}
	}

	p := def.Params
	if len(p.Flavors) == 0 || len(p.Strengths) == 0 {
		return &domain.RecipeValidationError{Field: "params", Index: -1, Message: "flavors and strengths must not be empty"}
	}
	if !slices.Contains(p.Flavors, p.DefaultFlavor) {
		return &domain.RecipeValidationError{Field: "params.default_flavor", Index: -1, Message: fmt.Sprintf("%q is not a declared flavor", p.DefaultFlavor)}
	}
	if !slices.Contains(p.Strengths, p.DefaultStrength) {
		return &domain.RecipeValidationError{Field: "params.default_strength", Index: -1, Message: fmt.Sprintf("%q is not a declared strength", p.DefaultStrength)}
	}
	if p.Beans.Min <= 0 || p.Beans.Max < p.Beans.Min || p.Beans.Default < p.Beans.Min || p.Beans.Default > p.Beans.Max {
		return &domain.RecipeValidationError{Field: "params.beans", Index: -1, Message: "bounds must satisfy 0 < min <= default <= max"}
	}

	for _, flavor := range p.Flavors {
		for _, strength := range p.Strengths {
			params := domain.BrewParams{BeansGrams: p.Beans.Default, Flavor: flavor, Strength: strength}
			steps, err := Generate(def, params)
			if err != nil {
				return fmt.Errorf("generating %s/%s: %w", flavor, strength, err)
			}
			if len(steps) == 0 {
				return &domain.RecipeValidationError{Field: "steps", Index: -1, Message: fmt.Sprintf("no steps apply to strength %q", strength)}
			}
		}
	}
	return nil
}

// DefaultParams returns the recipe's declared default parameters.
func DefaultParams(def *domain.RecipeDefinition) domain.BrewParams {
	return domain.BrewParams{
		BeansGrams: def.Params.Beans.Default,
		Flavor:     def.Params.DefaultFlavor,
		Strength:   def.Params.DefaultStrength,
	}
}

// ValidateParams checks user parameters against the recipe's descriptors.
// Callers run this before Generate, which trusts its inputs.
func ValidateParams(def *domain.RecipeDefinition, p domain.BrewParams) error {
	b := def.Params.Beans
	if p.BeansGrams <= 0 || p.BeansGrams < b.Min || p.BeansGrams > b.Max {
		return fmt.Errorf("%w: beans %.1f g outside [%.0f, %.0f]", domain.ErrInvalidParams, p.BeansGrams, b.Min, b.Max)
	}
	if !slices.Contains(def.Params.Flavors, p.Flavor) {
		return fmt.Errorf("%w: flavor %q not offered by %s", domain.ErrInvalidParams, p.Flavor, def.ID)
	}
	if !slices.Contains(def.Params.Strengths, p.Strength) {
		return fmt.Errorf("%w: strength %q not offered by %s", domain.ErrInvalidParams, p.Strength, def.ID)
	}
	return nil
}
