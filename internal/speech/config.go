package speech

// Default voices per locale. Full list:
// https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
var defaultVoices = map[string]string{
	"en": "en-US-AvaNeural",
	"ja": "ja-JP-NanamiNeural",
}

// DefaultVoice is used when a locale has no voice of its own.
const DefaultVoice = "en-US-AvaNeural"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format. Synthesized tones use the
// same format so one audio context serves both.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// VoiceFor returns the configured voice, or the default voice for locale.
func VoiceFor(locale, voice string) string {
	if voice != "" {
		return voice
	}
	if v, ok := defaultVoices[locale]; ok {
		return v
	}
	return DefaultVoice
}
