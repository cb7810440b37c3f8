package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottobrew/internal/logger"
)

func TestCLINotifier(t *testing.T) {
	var lines []string
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), func(format string, a ...any) {
		lines = append(lines, fmt.Sprintf(format, a...))
	})

	require.NoError(t, n.Notify(context.Background(), "[Timer] almost done"))
	require.NoError(t, n.NotifyUrgent(context.Background(), "[Watcher] stuck"))
	require.NoError(t, n.Notify(context.Background(), "plain"))

	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "timer")
	assert.Contains(t, lines[0], "almost done")
	assert.NotContains(t, lines[0], "[Timer]")
	assert.Contains(t, lines[1], "watcher")
	assert.Contains(t, lines[1], "! stuck")
	assert.Contains(t, lines[2], "plain")
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		in, source, text string
	}{
		{"[Timer] almost done", "Timer", "almost done"},
		{"  [Watcher]   paused  ", "Watcher", "paused"},
		{"no tag", "", "no tag"},
		{"[] empty", "", "[] empty"},
		{"[unclosed text", "", "[unclosed text"},
	}
	for _, tt := range tests {
		source, text := splitSource(tt.in)
		assert.Equal(t, tt.source, source, tt.in)
		assert.Equal(t, tt.text, text, tt.in)
	}
}
