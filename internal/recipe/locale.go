package recipe

import (
	"sort"

	"golang.org/x/text/language"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Locales returns every locale a recipe has step names for, with the
// default locale first when present.
func Locales(def *domain.RecipeDefinition) []string {
	seen := make(map[string]bool)
	for _, tpl := range def.Steps {
		for loc := range tpl.Names {
			seen[loc] = true
		}
	}

	out := make([]string, 0, len(seen))
	for loc := range seen {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i] == domain.DefaultLocale || out[j] == domain.DefaultLocale {
			return out[i] == domain.DefaultLocale
		}
		return out[i] < out[j]
	})
	return out
}

// MatchLocale picks the supported locale closest to the requested one
// ("ja-JP" → "ja"). The first supported locale is the fallback.
func MatchLocale(requested string, supported []string) string {
	if len(supported) == 0 {
		return domain.DefaultLocale
	}

	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = language.Make(s)
	}

	want, err := language.Parse(requested)
	if err != nil {
		return supported[0]
	}

	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}
