package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// ErrUnknownCue is returned for a cue kind with no sound assigned.
var ErrUnknownCue = errors.New("unknown cue")

// PCMSink plays raw PCM in the package's audio format.
type PCMSink interface {
	PlayPCM(pcm []byte) error
}

// Compile-time interface check.
var _ domain.CuePlayer = (*ToneCues)(nil)

type tone struct {
	freq float64 // Hz, 0 for silence
	dur  time.Duration
}

// Two short beeps announce the next pour; a rising triad marks the finish.
var cueTones = map[domain.CueKind][]tone{
	domain.CueNextStep: {
		{880, 120 * time.Millisecond},
		{0, 80 * time.Millisecond},
		{880, 120 * time.Millisecond},
	},
	domain.CueFinish: {
		{660, 150 * time.Millisecond},
		{0, 60 * time.Millisecond},
		{880, 150 * time.Millisecond},
		{0, 60 * time.Millisecond},
		{1320, 320 * time.Millisecond},
	},
}

const fadeDuration = 5 * time.Millisecond

// ToneOption configures ToneCues.
type ToneOption func(*ToneCues)

// WithVolume sets the tone amplitude in [0, 1].
func WithVolume(v float64) ToneOption {
	return func(c *ToneCues) {
		c.volume = math.Max(0, math.Min(1, v))
	}
}

// ToneCues plays synthesized beeps. It needs no network and no assets, so
// it is the default cue player and the fallback for spoken cues.
type ToneCues struct {
	sink   PCMSink
	log    *logger.Logger
	volume float64
	pcm    map[domain.CueKind][]byte
}

// NewToneCues renders every cue once up front.
func NewToneCues(sink PCMSink, log *logger.Logger, opts ...ToneOption) *ToneCues {
	c := &ToneCues{
		sink:   sink,
		log:    log,
		volume: 0.3,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pcm = make(map[domain.CueKind][]byte, len(cueTones))
	for kind, tones := range cueTones {
		c.pcm[kind] = renderTones(tones, SampleRate, c.volume)
	}
	return c
}

// Play plays the cue's tone pattern. done is always called from another
// goroutine.
func (c *ToneCues) Play(ctx context.Context, req domain.CueRequest, done func(err error)) {
	pcm, ok := c.pcm[req.Kind]
	go func() {
		if !ok {
			done(fmt.Errorf("%w: %s", ErrUnknownCue, req.Kind))
			return
		}
		if err := ctx.Err(); err != nil {
			done(err)
			return
		}
		c.log.Debug("tone cue: %s", req.Kind)
		done(c.sink.PlayPCM(pcm))
	}()
}

// renderTones renders a sequence of sine tones as mono 16-bit PCM. Each
// tone fades in and out to avoid clicks.
func renderTones(tones []tone, rate int, volume float64) []byte {
	var total int
	for _, t := range tones {
		total += samplesFor(t.dur, rate)
	}

	out := make([]byte, 0, total*2)
	fade := samplesFor(fadeDuration, rate)
	for _, t := range tones {
		n := samplesFor(t.dur, rate)
		for i := 0; i < n; i++ {
			var v float64
			if t.freq > 0 {
				v = math.Sin(2*math.Pi*t.freq*float64(i)/float64(rate)) * volume
				if i < fade {
					v *= float64(i) / float64(fade)
				} else if n-i <= fade {
					v *= float64(n-i-1) / float64(fade)
				}
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v*math.MaxInt16)))
		}
	}
	return out
}

func samplesFor(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}
