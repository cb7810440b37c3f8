package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ottobrew.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "sound", cfg.NotificationMode)
	assert.Equal(t, CuesTone, cfg.Cues)
	assert.InDelta(t, 5.0, cfg.LeadSeconds, 1e-9)
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.RecomputeInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.CountDelay)
	assert.Equal(t, time.Second, cfg.CountDuration)
	assert.Equal(t, 3, cfg.RecordSecs)
	assert.True(t, cfg.DiskCache)
	assert.False(t, cfg.SpeechEnabled())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
locale: ja-JP
notification_mode: vibrate
lead_seconds: 3
stall_after: 20s
db_path: /tmp/brews.db
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "ja-JP", cfg.Locale)
	assert.Equal(t, "vibrate", cfg.NotificationMode)
	assert.InDelta(t, 3.0, cfg.LeadSeconds, 1e-9)
	assert.Equal(t, 20*time.Second, cfg.StallAfter)
	assert.Equal(t, "/tmp/brews.db", cfg.DBPath)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Minute, cfg.PauseNudgeAfter)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "locale: ja\nvoice: file-voice\nnotification_mode: vibrate\n")
	t.Setenv("OTTOBREW_LOCALE", "en-GB")
	t.Setenv("OTTOBREW_VOICE", "env-voice")
	t.Setenv("AZURE_SPEECH_KEY", "k")
	t.Setenv("AZURE_SPEECH_REGION", "westeurope")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--voice", "flag-voice", "--lead", "7"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "en-GB", cfg.Locale, "env beats file")
	assert.Equal(t, "flag-voice", cfg.Voice, "flag beats env")
	assert.Equal(t, "vibrate", cfg.NotificationMode, "file beats default")
	assert.InDelta(t, 7.0, cfg.LeadSeconds, 1e-9, "aliased flag")
	assert.True(t, cfg.SpeechEnabled())
}

func TestLoadUnchangedFlagsKeepDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "sound", cfg.NotificationMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad mode", "notification_mode: loud\n"},
		{"bad cues", "cues: opera\n"},
		{"negative lead", "lead_seconds: -1\n"},
		{"zero frame", "frame_interval: 0s\n"},
		{"negative stall", "stall_after: -5s\n"},
		{"zero record", "record_secs: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSettings(t *testing.T) {
	cfg := &Config{Locale: "ja", Voice: "ja-JP-NanamiNeural", NotificationMode: "off"}
	assert.Equal(t, domain.Settings{
		Locale:           "ja",
		Voice:            "ja-JP-NanamiNeural",
		NotificationMode: domain.NotifyOff,
	}, cfg.Settings())
}
