// Package domain defines the core types and interfaces for the brewing
// assistant. All other packages depend on domain; domain depends on nothing.
package domain

// Flavor selects how the 40% flavor pool is split between the first two pours.
type Flavor string

const (
	FlavorSweet   Flavor = "sweet"
	FlavorNeutral Flavor = "neutral"
	FlavorSour    Flavor = "sour"
)

// Strength selects how many sub-pours deliver the 60% strength pool.
type Strength string

const (
	StrengthLight  Strength = "light"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Steps returns the number of strength sub-pours for the selector.
// Unknown selectors return 0.
func (s Strength) Steps() int {
	switch s {
	case StrengthLight:
		return 1
	case StrengthMedium:
		return 2
	case StrengthStrong:
		return 3
	default:
		return 0
	}
}

// VolumeSource tags which formula supplies a template's pour increment.
type VolumeSource string

const (
	VolumeNone     VolumeSource = ""
	VolumeFlavor1  VolumeSource = "flavor1"
	VolumeFlavor2  VolumeSource = "flavor2"
	VolumeStrength VolumeSource = "strength"
	VolumeFivePour VolumeSource = "fivePour"
)

// ActionType tags the physical action(s) a step's animation depicts.
type ActionType string

const (
	ActionNone            ActionType = "none"
	ActionPour            ActionType = "pour"
	ActionCool            ActionType = "cool"
	ActionSwitchOpen      ActionType = "switch_open"
	ActionSwitchClose     ActionType = "switch_close"
	ActionSwitchOpenPour  ActionType = "switch_open_pour"
	ActionSwitchClosePour ActionType = "switch_close_pour"
	ActionPourCool        ActionType = "pour_cool"
)

// CumulativePlaceholder is replaced with the resolved cumulative volume in
// localized action text.
const CumulativePlaceholder = "${cumulative}"

// TimeFormula maps a strength step count to a time offset in seconds.
// A step count with no entry means the template does not apply.
type TimeFormula map[int]float64

// StepTemplate is one declarative recipe entry. Exactly one of Time or
// Formula is set.
type StepTemplate struct {
	Time       *float64          `yaml:"time,omitempty"`
	Formula    TimeFormula       `yaml:"time_by_steps,omitempty"`
	Volume     VolumeSource      `yaml:"volume,omitempty"`
	Names      map[string]string `yaml:"names,omitempty"`
	Actions    map[string]string `yaml:"actions,omitempty"`
	ActionType ActionType        `yaml:"action_type,omitempty"`
}

// BeansParam describes the accepted bean dose in grams.
type BeansParam struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
	Step    float64 `yaml:"step"`
}

// ParamDescriptors describes the user-tunable inputs of a recipe.
type ParamDescriptors struct {
	Beans           BeansParam `yaml:"beans"`
	Flavors         []Flavor   `yaml:"flavors"`
	DefaultFlavor   Flavor     `yaml:"default_flavor"`
	Strengths       []Strength `yaml:"strengths"`
	DefaultStrength Strength   `yaml:"default_strength"`
}

// RecipeDefinition is an immutable brewing method.
type RecipeDefinition struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Dripper     string            `yaml:"dripper"`
	WaterRatio  float64           `yaml:"water_ratio"`
	Params      ParamDescriptors  `yaml:"params"`
	Steps       []StepTemplate    `yaml:"steps"`
	Tags        []string          `yaml:"tags,omitempty"`
	Source      string            `yaml:"-"` // file path or "builtin"
	Extra       map[string]string `yaml:"extra,omitempty"`
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          string
	Name        string
	Description string
	Tags        []string
}

// BrewParams are the user inputs to schedule generation.
type BrewParams struct {
	BeansGrams float64  `json:"beans_grams"`
	Flavor     Flavor   `json:"flavor"`
	Strength   Strength `json:"strength"`
}
