//go:build linux

package notify

const freedesktopSounds = "/usr/share/sounds/freedesktop/stereo/"

// soundCommands plays through PulseAudio first, then ALSA.
func soundCommands(event string) []command {
	var name string
	switch event {
	case eventFocusComplete:
		name = "complete"
	case eventBreakComplete:
		name = "message"
	case eventPaused:
		name = "service-logout"
	case eventResumed:
		name = "service-login"
	default:
		name = "bell"
	}
	return []command{
		{"paplay", []string{freedesktopSounds + name + ".oga"}},
		{"aplay", []string{freedesktopSounds + name + ".wav"}},
	}
}

func notifierCommand(title, body string) (command, bool) {
	return command{"notify-send", []string{"--app-name=ClockKo", title, body}}, true
}
