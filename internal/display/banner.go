package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerArt string

const fallbackWidth = 80

// RenderBanner returns the cup art and any caption lines centred for the
// terminal, ready to print before the brew screen takes over.
func RenderBanner(caption ...string) string {
	return renderBanner(termWidth(), caption...)
}

func renderBanner(width int, caption ...string) string {
	art := BannerStyle.Render(strings.TrimRight(bannerArt, "\n"))
	block := art
	if len(caption) > 0 {
		text := CaptionStyle.Render(strings.Join(caption, "\n"))
		block = lipgloss.JoinVertical(lipgloss.Center, art, "", text)
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block) + "\n"
}

func termWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return fallbackWidth
	}
	return w
}
