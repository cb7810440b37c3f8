package domain

// StepStatus is the lifecycle state of a calculated step. The zero value is
// StatusUpcoming. Values are ordered: a step only ever moves to a higher one.
type StepStatus int

const (
	StatusUpcoming StepStatus = iota
	StatusNext
	StatusCurrent
	StatusCompleted
)

// String returns a human-readable step status.
func (s StepStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "upcoming"
	case StatusNext:
		return "next"
	case StatusCurrent:
		return "current"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CalculatedStep is one concrete pour event produced by schedule generation.
// Only Status changes after generation.
type CalculatedStep struct {
	TimeSec            float64           `json:"time_sec"`
	PourVolumeMl       int               `json:"pour_volume_ml"`
	CumulativeVolumeMl int               `json:"cumulative_volume_ml"`
	Names              map[string]string `json:"names,omitempty"`
	Actions            map[string]string `json:"actions,omitempty"`
	ActionType         ActionType        `json:"action_type"`
	Status             StepStatus        `json:"status"`
}

// Name returns the step name for locale, falling back to any available one.
func (s CalculatedStep) Name(locale string) string {
	return pickLocale(s.Names, locale)
}

// Action returns the action text for locale, falling back to any available one.
func (s CalculatedStep) Action(locale string) string {
	return pickLocale(s.Actions, locale)
}

func pickLocale(m map[string]string, locale string) string {
	if v, ok := m[locale]; ok {
		return v
	}
	if v, ok := m[DefaultLocale]; ok {
		return v
	}
	// Lowest key wins so the fallback is stable across calls.
	best := ""
	for k := range m {
		if best == "" || k < best {
			best = k
		}
	}
	return m[best]
}

// ClockState is the externally visible state of the elapsed clock.
type ClockState struct {
	ElapsedSec float64
	IsRunning  bool
}

// TransitionEvent is raised once per actual step status change.
type TransitionEvent struct {
	StepIndex  int
	OldStatus  StepStatus
	NewStatus  StepStatus
	ActionType ActionType
	FromVolume int
	ToVolume   int
}

// AnimationPhase is one atomic presentation unit.
type AnimationPhase string

const (
	PhaseSwitchOpen  AnimationPhase = "switch_open"
	PhaseSwitchClose AnimationPhase = "switch_close"
	PhasePour        AnimationPhase = "pour"
	PhaseCool        AnimationPhase = "cool"
)

// CueKind identifies an acoustic/haptic cue.
type CueKind int

const (
	CueNone CueKind = iota
	CueNextStep
	CueFinish
)

// String returns a human-readable cue kind.
func (k CueKind) String() string {
	switch k {
	case CueNextStep:
		return "next"
	case CueFinish:
		return "finish"
	default:
		return "none"
	}
}

// CueRequest asks the audio collaborator to play a cue.
type CueRequest struct {
	Locale string
	Voice  string
	Kind   CueKind
}
