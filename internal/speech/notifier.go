package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
)

// Compile-time interface check.
var _ domain.Notifier = (*SpeakingNotifier)(nil)

// Speaker says text aloud.
type Speaker interface {
	Say(ctx context.Context, locale, voice, text string) error
}

// SpeakingNotifier wraps a text notifier and also speaks urgent messages.
// Messages are printed immediately and spoken in the background.
type SpeakingNotifier struct {
	text    domain.Notifier
	speaker Speaker
	locale  string
	voice   string
	log     *logger.Logger
	all     bool
}

// NewSpeakingNotifier creates a notifier that prints and speaks. When all
// is false only urgent messages are spoken.
func NewSpeakingNotifier(text domain.Notifier, speaker Speaker, locale, voice string, all bool, log *logger.Logger) *SpeakingNotifier {
	locale = recipe.MatchLocale(locale, phraseLocales)
	return &SpeakingNotifier{
		text:    text,
		speaker: speaker,
		locale:  locale,
		voice:   VoiceFor(locale, voice),
		log:     log,
		all:     all,
	}
}

// Notify prints the message and speaks it when all messages are spoken.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	if n.all {
		n.speak(ctx, message)
	}
	return nil
}

// NotifyUrgent prints the message and speaks it.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.speak(ctx, message)
	return nil
}

func (n *SpeakingNotifier) speak(ctx context.Context, message string) {
	text := cleanForSpeech(message)
	if text == "" {
		return
	}
	go func() {
		if err := n.speaker.Say(context.WithoutCancel(ctx), n.locale, n.voice, text); err != nil {
			n.log.Warn("speaking notifier: %v", err)
		}
	}()
}

// cleanForSpeech strips formatting artifacts that shouldn't be spoken.
var bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
var ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
