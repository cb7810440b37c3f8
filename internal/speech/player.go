// Package speech plays brewing cues: synthesized tones, spoken phrases
// through Azure TTS, and the whisper-backed listener for voice control.
package speech

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// drainPoll is how often a playing cue is checked for completion.
const drainPoll = 10 * time.Millisecond

// Player owns the process's single oto audio context. Cues never overlap:
// a cue that arrives while another plays waits its turn.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	turn sync.Mutex // held for one cue

	mu      sync.Mutex
	current *oto.Player
}

// NewPlayer opens the audio device in the cue format. It fails when no
// device is available; callers fall back to vibration.
func NewPlayer(log *logger.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	log.Debug("audio: device open (%d Hz, %d ch)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// PlayWAV plays a WAV phrase. The WAV must already be in the cue format;
// Azure is asked for exactly that.
func (p *Player) PlayWAV(wav []byte) error {
	format, pcm, err := decodeWAV(wav)
	if err != nil {
		return fmt.Errorf("decoding wav: %w", err)
	}
	if err := format.playable(); err != nil {
		return err
	}
	return p.PlayPCM(pcm)
}

// PlayPCM plays 16-bit little-endian samples and returns once they have
// drained or Stop cut them short.
func (p *Player) PlayPCM(pcm []byte) error {
	p.turn.Lock()
	defer p.turn.Unlock()

	op := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.mu.Lock()
	p.current = op
	p.mu.Unlock()

	op.Play()
	p.log.Debug("audio: playing %s of samples", pcmDuration(len(pcm)))

	tick := time.NewTicker(drainPoll)
	for op.IsPlaying() {
		<-tick.C
	}
	tick.Stop()

	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return op.Close()
}

// Stop cuts off the cue that is playing, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Pause()
		p.log.Debug("audio: cue stopped")
	}
}

func pcmDuration(n int) time.Duration {
	frame := ChannelCount * BitDepth / 8
	return time.Duration(n/frame) * time.Second / SampleRate
}
