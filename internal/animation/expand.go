package animation

import "github.com/hammamikhairi/ottobrew/internal/domain"

// Expand turns an action tag into the ordered phases that depict it.
// A "none" step with a volume change still shows a pour; without one the
// queue is empty and the session proceeds immediately. Unknown tags are
// treated like "none".
func Expand(action domain.ActionType, fromVolume, toVolume int) []domain.AnimationPhase {
	switch action {
	case domain.ActionSwitchClosePour:
		return []domain.AnimationPhase{domain.PhaseSwitchClose, domain.PhasePour}
	case domain.ActionSwitchOpenPour:
		return []domain.AnimationPhase{domain.PhaseSwitchOpen, domain.PhasePour}
	case domain.ActionPourCool:
		return []domain.AnimationPhase{domain.PhasePour, domain.PhaseCool}
	case domain.ActionPour:
		return []domain.AnimationPhase{domain.PhasePour}
	case domain.ActionCool:
		return []domain.AnimationPhase{domain.PhaseCool}
	case domain.ActionSwitchOpen:
		return []domain.AnimationPhase{domain.PhaseSwitchOpen}
	case domain.ActionSwitchClose:
		return []domain.AnimationPhase{domain.PhaseSwitchClose}
	default:
		if toVolume != fromVolume {
			return []domain.AnimationPhase{domain.PhasePour}
		}
		return nil
	}
}
