package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Compile-time interface check.
var _ domain.WakeLock = (*Inhibitor)(nil)

// InhibitorOption configures the Inhibitor.
type InhibitorOption func(*Inhibitor)

// WithInhibitBinary sets the inhibitor executable.
func WithInhibitBinary(bin string) InhibitorOption {
	return func(i *Inhibitor) {
		i.bin = bin
	}
}

// Inhibitor keeps the machine from idling or sleeping during a brew by
// holding a systemd-inhibit lock in a child process.
type Inhibitor struct {
	bin string
	log *logger.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewInhibitor creates a wake lock backed by systemd-inhibit.
func NewInhibitor(log *logger.Logger, opts ...InhibitorOption) *Inhibitor {
	i := &Inhibitor{bin: "systemd-inhibit", log: log}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Acquire takes the lock. Acquiring a held lock is a no-op.
func (i *Inhibitor) Acquire(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cmd != nil {
		return nil
	}

	path, err := exec.LookPath(i.bin)
	if err != nil {
		return fmt.Errorf("finding %s: %w", i.bin, err)
	}

	// The lock lives as long as the child; Release kills it.
	cmd := exec.Command(path,
		"--what=idle:sleep",
		"--who=ottobrew",
		"--why=Brewing coffee",
		"--mode=block",
		"sleep", "infinity")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", i.bin, err)
	}
	go func() { _ = cmd.Wait() }()

	i.cmd = cmd
	i.log.Debug("wake lock acquired (pid=%d)", cmd.Process.Pid)
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cmd == nil {
		return nil
	}
	cmd := i.cmd
	i.cmd = nil

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stopping %s: %w", i.bin, err)
	}
	i.log.Debug("wake lock released")
	return nil
}

// Held reports whether the lock is held.
func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cmd != nil
}
