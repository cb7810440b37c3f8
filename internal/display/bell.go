package display

import (
	"io"
	"sync"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Compile-time interface check.
var _ domain.Vibrator = (*Bell)(nil)

// Bell stands in for a vibration motor: each "on" segment of a pattern
// rings the terminal bell once.
type Bell struct {
	w     io.Writer
	log   *logger.Logger
	sleep func(time.Duration)

	mu sync.Mutex // one pattern at a time
}

// NewBell creates a bell that writes to w (usually os.Stderr).
func NewBell(w io.Writer, log *logger.Logger) *Bell {
	return &Bell{w: w, log: log, sleep: time.Sleep}
}

// Vibrate rings the pattern in the background and returns immediately.
func (b *Bell) Vibrate(pattern []time.Duration) error {
	if len(pattern) == 0 {
		return nil
	}
	p := append([]time.Duration(nil), pattern...)
	go b.ring(p)
	return nil
}

// ring plays a pattern of alternating on/off durations, starting with on.
func (b *Bell) ring(pattern []time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, d := range pattern {
		if i%2 == 0 {
			if _, err := io.WriteString(b.w, "\a"); err != nil {
				b.log.Warn("bell: %v", err)
				return
			}
		}
		b.sleep(d)
	}
}
