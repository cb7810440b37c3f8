package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// phraseKey identifies one synthesized phrase. Locale is implied by the
// voice name.
type phraseKey struct {
	voice string
	text  string
}

// AudioCache keeps synthesized cue phrases in memory and, optionally, on
// disk under <dir>/<voice>/<hash>.wav. The disk layer is read whenever a
// directory is set; new phrases are written to it only when diskWrite is
// true.
//
// Only a handful of phrases exist per voice, so the memory tier is never
// evicted.
type AudioCache struct {
	dir       string
	diskWrite bool
	log       *logger.Logger

	mu      sync.RWMutex
	phrases map[phraseKey][]byte

	hits   atomic.Int64
	misses atomic.Int64
}

// NewAudioCache creates a phrase cache. An empty dir keeps it in memory.
func NewAudioCache(dir string, diskWrite bool, log *logger.Logger) *AudioCache {
	return &AudioCache{
		dir:       dir,
		diskWrite: diskWrite,
		log:       log,
		phrases:   make(map[phraseKey][]byte),
	}
}

// Get returns the audio for text in voice. Disk hits are kept in memory.
func (c *AudioCache) Get(voice, text string) ([]byte, bool) {
	k := phraseKey{voice: voice, text: text}

	c.mu.RLock()
	audio, ok := c.phrases[k]
	c.mu.RUnlock()
	if !ok && c.dir != "" {
		audio, ok = c.load(k)
		if ok {
			c.mu.Lock()
			c.phrases[k] = audio
			c.mu.Unlock()
		}
	}

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return audio, true
}

// Put stores audio for text in voice.
func (c *AudioCache) Put(voice, text string, audio []byte) {
	k := phraseKey{voice: voice, text: text}

	c.mu.Lock()
	c.phrases[k] = audio
	c.mu.Unlock()

	if c.dir == "" || !c.diskWrite {
		return
	}
	if err := c.store(k, audio); err != nil {
		c.log.Warn("cache: saving %q for %s: %v", truncateForLog(text, 40), voice, err)
	}
}

// Len returns the number of phrases held in memory.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.phrases)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *AudioCache) path(k phraseKey) string {
	sum := sha256.Sum256([]byte(k.text))
	voiceDir := strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(k.voice)
	if voiceDir == "" {
		voiceDir = "default"
	}
	return filepath.Join(c.dir, voiceDir, hex.EncodeToString(sum[:16])+".wav")
}

func (c *AudioCache) load(k phraseKey) ([]byte, bool) {
	audio, err := os.ReadFile(c.path(k))
	if err != nil || len(audio) == 0 {
		return nil, false
	}
	c.log.Debug("cache: %q for %s read from disk", truncateForLog(k.text, 40), k.voice)
	return audio, true
}

// store writes through a temp file so a crash never leaves a truncated
// WAV behind.
func (c *AudioCache) store(k phraseKey, audio []byte) error {
	path := c.path(k)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".phrase-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func truncateForLog(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
