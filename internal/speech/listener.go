package speech

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// envAnnotation matches whisper environmental annotations like
// "(water running)", "[laughter]", "(speaking French)".
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s_]*[\)\]]`)

// ListenerOption configures the Listener.
type ListenerOption func(*Listener)

// WithRecordDuration sets the length of each recorded clip.
func WithRecordDuration(d time.Duration) ListenerOption {
	return func(l *Listener) {
		l.recordDuration = d
	}
}

// WithTempDir sets the directory whisper writes its recordings to.
func WithTempDir(dir string) ListenerOption {
	return func(l *Listener) {
		l.tempDir = dir
	}
}

// Listener records short clips from the microphone, transcribes them with
// a local whisper model and delivers the non-empty transcriptions on C.
// Hands are busy while pouring, so there is no wake word: every clip is a
// candidate command and the parser discards the rest.
type Listener struct {
	whisperBin     string
	modelPath      string
	tempDir        string
	recordDuration time.Duration
	log            *logger.Logger

	mu     sync.Mutex
	muted  bool
	textCh chan string
}

// NewListener creates a voice input listener.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewListener(whisperBin, modelPath string, log *logger.Logger, opts ...ListenerOption) *Listener {
	l := &Listener{
		whisperBin:     whisperBin,
		modelPath:      modelPath,
		tempDir:        ".ottobrew-stt",
		recordDuration: 3 * time.Second,
		log:            log,
		textCh:         make(chan string, 8),
	}
	for _, opt := range opts {
		opt(l)
	}

	if _, err := exec.LookPath(l.whisperBin); err != nil {
		log.Error("listener: whisper binary %q not found in PATH: %v", l.whisperBin, err)
	}
	return l
}

// C returns the channel that receives transcribed text.
func (l *Listener) C() <-chan string {
	return l.textCh
}

// Mute temporarily disables listening (e.g. while a cue is spoken).
func (l *Listener) Mute() {
	l.mu.Lock()
	l.muted = true
	l.mu.Unlock()
	l.log.Debug("listener: muted")
}

// Unmute re-enables listening.
func (l *Listener) Unmute() {
	l.mu.Lock()
	l.muted = false
	l.mu.Unlock()
	l.log.Debug("listener: unmuted")
}

func (l *Listener) isMuted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.muted
}

// Run records and transcribes until ctx is cancelled. Call it in a
// goroutine.
func (l *Listener) Run(ctx context.Context) {
	l.log.Info("listener: started (clip=%s)", l.recordDuration)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("listener: stopped")
			return
		default:
		}

		if l.isMuted() {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		text := cleanTranscription(l.recordChunk(ctx, l.recordDuration))
		if text == "" {
			continue
		}
		l.log.Debug("listener: heard %q", text)

		select {
		case l.textCh <- text:
		default:
			l.log.Warn("listener: dropping %q, reader is behind", text)
		}
	}
}

// recordChunk does one recording cycle and returns the transcribed text.
func (l *Listener) recordChunk(ctx context.Context, duration time.Duration) string {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := l.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		l.whisperBin,
		l.modelPath,
		l.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		l.log.Error("listener: transcriber init failed: %v", err)
		time.Sleep(2 * time.Second)
		return ""
	}

	if err := t.Start(); err != nil {
		l.log.Error("listener: recording start failed: %v", err)
		time.Sleep(2 * time.Second)
		return ""
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	t.Stop()
	wg.Wait()
	if ctx.Err() != nil {
		return ""
	}
	return result
}

// hallucinations are phrases whisper emits on silence.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}

// cleanTranscription normalizes whitespace, strips whisper annotations
// and timestamps, and discards known hallucinations.
func cleanTranscription(s string) string {
	s = strings.Join(strings.Fields(s), " ")

	// Timestamp prefixes like "[00:00:00.000 --> 00:00:05.000]".
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 && strings.Contains(s[:idx], "-->") {
			s = strings.TrimSpace(s[idx+1:])
		}
	}

	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if h == lower {
			return ""
		}
	}
	return s
}
