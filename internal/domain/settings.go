package domain

// DefaultLocale is used when a requested locale has no translation.
const DefaultLocale = "en"

// NotificationMode controls how cues reach the user.
type NotificationMode string

const (
	NotifySound   NotificationMode = "sound"   // audio, vibration on failure
	NotifyVibrate NotificationMode = "vibrate" // haptic only
	NotifyOff     NotificationMode = "off"
)

// Settings are the persisted user preferences read by the core. They are
// passed explicitly; nothing in the core reads global state.
type Settings struct {
	Locale           string
	Voice            string
	NotificationMode NotificationMode
}

// DefaultSettings returns English, no voice, sound notifications.
func DefaultSettings() Settings {
	return Settings{
		Locale:           DefaultLocale,
		NotificationMode: NotifySound,
	}
}
