package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fde68a"))

	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	volumeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bae6fd"))

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bbf7d0"))

	nextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	upcomingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8")).
			Italic(true)

	stalledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))
)

var statusMarks = map[domain.StepStatus]string{
	domain.StatusCompleted: "✓",
	domain.StatusCurrent:   "▶",
	domain.StatusNext:      "›",
	domain.StatusUpcoming:  " ",
}

// renderBrew draws the brew panel for one snapshot: header, progress,
// counter, then the step list.
func renderBrew(snap engine.Snapshot, bar progress.Model, width int) string {
	if !snap.Loaded() {
		return upcomingStyle.Render("  No brew open.")
	}

	var b strings.Builder

	state := "paused"
	switch {
	case snap.Finished:
		state = "done"
	case snap.Stalled:
		state = "stalled"
	case snap.Holding:
		state = "first pour"
	case snap.Running:
		state = "brewing"
	}
	fmt.Fprintf(&b, "  %s  %s\n",
		headerStyle.Render(snap.RecipeName),
		clockStyle.Render(fmt.Sprintf("%s / %s  %s", fmtClock(snap.ElapsedSec), fmtClock(snap.FinalSec), state)))

	bar.Width = max(10, min(width-4, 60))
	fmt.Fprintf(&b, "  %s\n", bar.ViewAs(fraction(snap)))

	counter := volumeStyle.Render(fmt.Sprintf("%d / %d ml", snap.Displayed, snap.Target))
	switch {
	case snap.Stalled:
		counter += "  " + stalledStyle.Render(fmt.Sprintf("(%s stuck)", snap.Phase))
	case snap.Animating:
		counter += "  " + phaseStyle.Render(phaseLabel(snap.Phase))
	}
	fmt.Fprintf(&b, "  %s\n\n", counter)

	for i, st := range snap.Steps {
		b.WriteString(renderStep(st, snap.Locale, i == len(snap.Steps)-1))
		b.WriteByte('\n')
	}

	if next, ok := snap.NextStep(); ok && !snap.Finished {
		wait := next.TimeSec - snap.ElapsedSec
		if wait > 0 {
			fmt.Fprintf(&b, "\n  %s", nextStyle.Render(fmt.Sprintf("%s in %s", next.Name(snap.Locale), fmtClock(wait))))
		}
	}
	return b.String()
}

func renderStep(st domain.CalculatedStep, locale string, last bool) string {
	vol := fmt.Sprintf("%4d ml", st.CumulativeVolumeMl)
	if last || st.PourVolumeMl == 0 {
		vol = strings.Repeat(" ", len(vol))
	}
	line := fmt.Sprintf("  %s %5s  %s  %s", statusMarks[st.Status], fmtClock(st.TimeSec), vol, st.Name(locale))
	if action := st.Action(locale); action != "" && st.Status == domain.StatusCurrent {
		line += "  " + phaseStyle.Render(action)
	}

	switch st.Status {
	case domain.StatusCompleted:
		return completedStyle.Render(line)
	case domain.StatusCurrent:
		return currentStyle.Render(line)
	case domain.StatusNext:
		return nextStyle.Render(line)
	default:
		return upcomingStyle.Render(line)
	}
}

func phaseLabel(p domain.AnimationPhase) string {
	switch p {
	case domain.PhaseSwitchOpen:
		return "opening switch"
	case domain.PhaseSwitchClose:
		return "closing switch"
	case domain.PhasePour:
		return "pouring"
	case domain.PhaseCool:
		return "cooling"
	default:
		return string(p)
	}
}

// titleStr is the terminal window title for the snapshot.
func titleStr(snap engine.Snapshot) string {
	if !snap.Loaded() {
		return "OttoBrew"
	}
	if snap.Finished {
		return "OttoBrew: " + snap.RecipeName + " done"
	}
	return fmt.Sprintf("OttoBrew: %s %s", snap.RecipeName, fmtClock(snap.ElapsedSec))
}

func fraction(snap engine.Snapshot) float64 {
	if snap.FinalSec <= 0 {
		return 0
	}
	return max(0, min(1, snap.ElapsedSec/snap.FinalSec))
}

// fmtClock renders seconds as m:ss.
func fmtClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
