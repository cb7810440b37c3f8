package speech

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
)

// ErrSpeechDisabled is returned once the speech service has rejected the
// configured credentials.
var ErrSpeechDisabled = errors.New("speech synthesis disabled")

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, locale, text string) ([]byte, error)
}

// WAVSink plays WAV audio synchronously.
type WAVSink interface {
	PlayWAV(wav []byte) error
}

// Compile-time interface checks.
var (
	_ domain.CuePlayer = (*VoiceCues)(nil)
	_ Synthesizer      = (*AzureClient)(nil)
)

// cuePhrases are the spoken cue texts per locale.
var cuePhrases = map[string]map[domain.CueKind]string{
	"en": {
		domain.CueNextStep: "Next pour.",
		domain.CueFinish:   "Brew complete. Enjoy your coffee.",
	},
	"ja": {
		domain.CueNextStep: "次の注湯です。",
		domain.CueFinish:   "抽出完了です。",
	},
}

var phraseLocales = []string{"en", "ja"}

// VoiceOption configures VoiceCues.
type VoiceOption func(*VoiceCues)

// WithFallback sets the cue player used when synthesis or playback fails.
func WithFallback(p domain.CuePlayer) VoiceOption {
	return func(v *VoiceCues) {
		v.fallback = p
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(c *AudioCache) VoiceOption {
	return func(v *VoiceCues) {
		v.cache = c
	}
}

// VoiceCues speaks cues in the brew's locale. Synthesized phrases are
// cached, so each phrase costs one request per voice.
type VoiceCues struct {
	tts      Synthesizer
	sink     WAVSink
	log      *logger.Logger
	cache    *AudioCache
	fallback domain.CuePlayer

	// disabled is set once the service rejects our credentials; every
	// later cue goes straight to the fallback.
	disabled atomic.Bool
}

// NewVoiceCues creates a spoken cue player.
func NewVoiceCues(tts Synthesizer, sink WAVSink, log *logger.Logger, opts ...VoiceOption) *VoiceCues {
	v := &VoiceCues{
		tts:  tts,
		sink: sink,
		log:  log,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.cache == nil {
		v.cache = NewAudioCache("", false, log)
	}
	return v
}

// Play speaks the cue. On failure the fallback plays instead, if set;
// otherwise the error is reported through done.
func (v *VoiceCues) Play(ctx context.Context, req domain.CueRequest, done func(err error)) {
	go func() {
		locale := recipe.MatchLocale(req.Locale, phraseLocales)
		text, ok := cuePhrases[locale][req.Kind]
		var err error
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownCue, req.Kind)
		} else {
			err = v.Say(ctx, locale, VoiceFor(locale, req.Voice), text)
		}

		if err != nil && v.fallback != nil {
			v.log.Warn("voice cue %s failed, using fallback: %v", req.Kind, err)
			v.fallback.Play(ctx, req, done)
			return
		}
		done(err)
	}()
}

// Say speaks text synchronously.
func (v *VoiceCues) Say(ctx context.Context, locale, voice, text string) error {
	wav, err := v.audio(ctx, locale, voice, text)
	if err != nil {
		return err
	}
	if err := v.sink.PlayWAV(wav); err != nil {
		return fmt.Errorf("playing %q: %w", truncateForLog(text, 40), err)
	}
	return nil
}

// Prefetch synthesizes every cue phrase for the locale so the first cue of
// a brew plays without network latency.
func (v *VoiceCues) Prefetch(ctx context.Context, locale, voice string) error {
	locale = recipe.MatchLocale(locale, phraseLocales)
	voice = VoiceFor(locale, voice)
	for _, text := range cuePhrases[locale] {
		if _, err := v.audio(ctx, locale, voice, text); err != nil {
			return err
		}
	}
	return nil
}

func (v *VoiceCues) audio(ctx context.Context, locale, voice, text string) ([]byte, error) {
	if wav, ok := v.cache.Get(voice, text); ok {
		return wav, nil
	}
	if v.disabled.Load() {
		return nil, ErrSpeechDisabled
	}
	wav, err := v.tts.Synthesize(ctx, voice, locale, text)
	if err != nil {
		var se *SynthesisError
		if errors.As(err, &se) && se.Permanent() {
			v.disabled.Store(true)
			v.log.Error("voice cues: speech service rejected the request, using fallback from now on: %v", err)
		}
		return nil, fmt.Errorf("synthesizing %q: %w", truncateForLog(text, 40), err)
	}
	v.cache.Put(voice, text, wav)
	return wav, nil
}
