package recipe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Pool shares of total water.
const (
	flavorPoolShare   = 0.4
	strengthPoolShare = 0.6
	fivePourParts     = 5
)

// firstPourShare is the fraction of the flavor pool poured first.
// A smaller first pour reads sweeter, a larger one brighter.
var firstPourShare = map[domain.Flavor]float64{
	domain.FlavorSweet:   0.42,
	domain.FlavorNeutral: 0.50,
	domain.FlavorSour:    0.58,
}

// Generate turns a recipe definition and user parameters into a concrete
// pour schedule. It is pure: identical inputs always produce identical output.
//
// Cumulative volume is tracked as a float and rounded to whole grams at each
// step; each step's pour is the difference between consecutive rounded totals.
// The displayed totals therefore never regress and the final total is the
// rounded target volume.
//
// Generate does not bound-check beans; see ValidateParams.
func Generate(def *domain.RecipeDefinition, p domain.BrewParams) ([]domain.CalculatedStep, error) {
	strengthSteps := p.Strength.Steps()
	total := p.BeansGrams * def.WaterRatio

	steps := make([]domain.CalculatedStep, 0, len(def.Steps))
	running := 0.0
	prevCumulative := 0

	for i, tpl := range def.Steps {
		t, ok, err := resolveTime(tpl, strengthSteps)
		if err != nil {
			return nil, &domain.RecipeValidationError{Field: "steps", Index: i, Message: err.Error()}
		}
		if !ok {
			continue
		}
		if t < 0 {
			return nil, &domain.RecipeValidationError{Field: "steps", Index: i, Message: fmt.Sprintf("negative time %g", t)}
		}
		if n := len(steps); n > 0 && t <= steps[n-1].TimeSec {
			return nil, &domain.RecipeValidationError{
				Field:   "steps",
				Index:   i,
				Message: fmt.Sprintf("time %gs does not follow previous step at %gs", t, steps[n-1].TimeSec),
			}
		}

		increment, err := volumeIncrement(tpl.Volume, total, p.Flavor, strengthSteps)
		if errors.Is(err, domain.ErrInvalidParams) {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err != nil {
			return nil, &domain.RecipeValidationError{Field: "steps", Index: i, Message: err.Error()}
		}

		running += increment
		cumulative := int(math.Round(running))

		steps = append(steps, domain.CalculatedStep{
			TimeSec:            t,
			PourVolumeMl:       cumulative - prevCumulative,
			CumulativeVolumeMl: cumulative,
			Names:              copyText(tpl.Names, ""),
			Actions:            copyText(tpl.Actions, strconv.Itoa(cumulative)),
			ActionType:         actionOrNone(tpl.ActionType),
			Status:             domain.StatusUpcoming,
		})
		prevCumulative = cumulative
	}

	return steps, nil
}

// resolveTime returns the template's time and whether the template applies.
func resolveTime(tpl domain.StepTemplate, strengthSteps int) (float64, bool, error) {
	if tpl.Time != nil {
		return *tpl.Time, true, nil
	}
	if len(tpl.Formula) == 0 {
		return 0, false, fmt.Errorf("neither time nor time_by_steps is set")
	}
	t, ok := tpl.Formula[strengthSteps]
	return t, ok, nil
}

func volumeIncrement(src domain.VolumeSource, total float64, flavor domain.Flavor, strengthSteps int) (float64, error) {
	switch src {
	case domain.VolumeNone:
		return 0, nil
	case domain.VolumeFlavor1, domain.VolumeFlavor2:
		share, ok := firstPourShare[flavor]
		if !ok {
			return 0, fmt.Errorf("%w: unknown flavor %q", domain.ErrInvalidParams, flavor)
		}
		pool := total * flavorPoolShare
		if src == domain.VolumeFlavor1 {
			return pool * share, nil
		}
		return pool * (1 - share), nil
	case domain.VolumeStrength:
		if strengthSteps <= 0 {
			return 0, fmt.Errorf("%w: unknown strength selector", domain.ErrInvalidParams)
		}
		return total * strengthPoolShare / float64(strengthSteps), nil
	case domain.VolumeFivePour:
		return total / fivePourParts, nil
	default:
		return 0, fmt.Errorf("unknown volume source %q", src)
	}
}

// copyText copies localized text, substituting the cumulative placeholder
// in every locale independently when value is non-empty.
func copyText(src map[string]string, value string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for locale, text := range src {
		if value != "" {
			text = strings.ReplaceAll(text, domain.CumulativePlaceholder, value)
		}
		out[locale] = text
	}
	return out
}

func actionOrNone(a domain.ActionType) domain.ActionType {
	if a == "" {
		return domain.ActionNone
	}
	return a
}
