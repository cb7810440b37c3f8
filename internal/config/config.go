// Package config loads ottobrew settings from defaults, an optional YAML
// file, OTTOBREW_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "OTTOBREW"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Cue styles.
const (
	CuesTone  = "tone"
	CuesVoice = "voice"
)

// Config is the full application configuration.
type Config struct {
	Locale           string  `mapstructure:"locale"`
	Voice            string  `mapstructure:"voice"`
	NotificationMode string  `mapstructure:"notification_mode"`
	Cues             string  `mapstructure:"cues"`
	LeadSeconds      float64 `mapstructure:"lead_seconds"`

	FrameInterval     time.Duration `mapstructure:"frame_interval"`
	RecomputeInterval time.Duration `mapstructure:"recompute_interval"`
	CountDelay        time.Duration `mapstructure:"count_delay"`
	CountDuration     time.Duration `mapstructure:"count_duration"`
	PhaseDuration     time.Duration `mapstructure:"phase_duration"`

	DBPath     string `mapstructure:"db_path"`
	RecipesDir string `mapstructure:"recipes_dir"`
	CacheDir   string `mapstructure:"cache_dir"`
	DiskCache  bool   `mapstructure:"disk_cache"`

	LogFile string `mapstructure:"log_file"`
	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`

	AzureSpeechKey    string `mapstructure:"azure_speech_key"`
	AzureSpeechRegion string `mapstructure:"azure_speech_region"`

	Listen       bool   `mapstructure:"listen"`
	WhisperBin   string `mapstructure:"whisper_bin"`
	WhisperModel string `mapstructure:"whisper_model"`
	RecordSecs   int    `mapstructure:"record_secs"`

	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	StallAfter         time.Duration `mapstructure:"stall_after"`
	PauseNudgeAfter    time.Duration `mapstructure:"pause_nudge_after"`
}

// defaults lists every key with its default value. Keys absent here are
// not read from the environment.
var defaults = map[string]any{
	"locale":              domain.DefaultLocale,
	"voice":               "",
	"notification_mode":   string(domain.NotifySound),
	"cues":                CuesTone,
	"lead_seconds":        5.0,
	"frame_interval":      16 * time.Millisecond,
	"recompute_interval":  100 * time.Millisecond,
	"count_delay":         500 * time.Millisecond,
	"count_duration":      1 * time.Second,
	"phase_duration":      1500 * time.Millisecond,
	"db_path":             ".ottobrew/brews.db",
	"recipes_dir":         ".ottobrew/recipes",
	"cache_dir":           ".ottobrew/cache",
	"disk_cache":          true,
	"log_file":            ".ottobrew/ottobrew.log",
	"verbose":             false,
	"quiet":               false,
	"azure_speech_key":    "",
	"azure_speech_region": "",
	"listen":              false,
	"whisper_bin":         "whisper-cli",
	"whisper_model":       "bin/ggml-small.bin",
	"record_secs":         3,
	"checkpoint_interval": 5 * time.Second,
	"stall_after":         10 * time.Second,
	"pause_nudge_after":   2 * time.Minute,
}

// Load reads the configuration. path names an explicit config file; when
// empty, ottobrew.yaml is looked up in the working directory and in
// ~/.ottobrew, and a missing file is not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ottobrew")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ottobrew"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The Azure credentials are also read under their usual names.
	_ = v.BindEnv("azure_speech_key", EnvPrefix+"_AZURE_SPEECH_KEY", "AZURE_SPEECH_KEY")
	_ = v.BindEnv("azure_speech_region", EnvPrefix+"_AZURE_SPEECH_REGION", "AZURE_SPEECH_REGION")

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindFlags binds every flag whose name maps to a config key. Flag names
// use dashes, keys use underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if alias, ok := flagAliases[f.Name]; ok {
			key = alias
		}
		if _, known := defaults[key]; !known || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("binding flag --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// flagAliases maps short flag names to their config keys.
var flagAliases = map[string]string{
	"notify": "notification_mode",
	"db":     "db_path",
	"lead":   "lead_seconds",
}

// RegisterFlags defines the flags shared by every command.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./ottobrew.yaml or ~/.ottobrew/ottobrew.yaml)")
	fs.String("locale", domain.DefaultLocale, "locale for step names and spoken cues (e.g. en, ja-JP)")
	fs.String("voice", "", "TTS voice name (default depends on locale)")
	fs.String("notify", string(domain.NotifySound), "notification mode: sound, vibrate or off")
	fs.String("cues", CuesTone, "cue style: tone or voice")
	fs.Float64("lead", 5, "seconds before a step starts that it is announced as next")
	fs.String("db", ".ottobrew/brews.db", "SQLite database for brew history (\":memory:\" to keep nothing)")
	fs.String("recipes-dir", ".ottobrew/recipes", "directory of extra recipe YAML files")
	fs.String("log-file", ".ottobrew/ottobrew.log", "file to write logs to (use \"stderr\" to log to console)")
	fs.BoolP("verbose", "v", false, "enable verbose/debug logging")
	fs.BoolP("quiet", "q", false, "disable all logging")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch domain.NotificationMode(c.NotificationMode) {
	case domain.NotifySound, domain.NotifyVibrate, domain.NotifyOff:
	default:
		return fmt.Errorf("%w: notification_mode %q (want sound, vibrate or off)", ErrInvalidConfig, c.NotificationMode)
	}
	if c.Cues != CuesTone && c.Cues != CuesVoice {
		return fmt.Errorf("%w: cues %q (want tone or voice)", ErrInvalidConfig, c.Cues)
	}
	if c.LeadSeconds < 0 {
		return fmt.Errorf("%w: lead_seconds must not be negative", ErrInvalidConfig)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame_interval must be positive", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"recompute_interval":  c.RecomputeInterval,
		"count_delay":         c.CountDelay,
		"count_duration":      c.CountDuration,
		"phase_duration":      c.PhaseDuration,
		"checkpoint_interval": c.CheckpointInterval,
		"stall_after":         c.StallAfter,
		"pause_nudge_after":   c.PauseNudgeAfter,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if c.RecordSecs <= 0 {
		return fmt.Errorf("%w: record_secs must be positive", ErrInvalidConfig)
	}
	return nil
}

// Settings returns the user preferences the brew engine reads.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		Locale:           c.Locale,
		Voice:            c.Voice,
		NotificationMode: domain.NotificationMode(c.NotificationMode),
	}
}

// SpeechEnabled reports whether Azure credentials are configured.
func (c *Config) SpeechEnabled() bool {
	return c.AzureSpeechKey != "" && c.AzureSpeechRegion != ""
}
