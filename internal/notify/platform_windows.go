//go:build windows

package notify

func soundCommands(event string) []command {
	var sounds []string
	switch event {
	case eventFocusComplete:
		sounds = []string{"Asterisk", "Beep"}
	case eventBreakComplete:
		sounds = []string{"Exclamation", "Beep"}
	case eventPaused, eventResumed:
		sounds = []string{"Question", "Beep"}
	default:
		sounds = []string{"Beep"}
	}

	commands := make([]command, 0, len(sounds))
	for _, sound := range sounds {
		commands = append(commands, command{"powershell", []string{"-c", "[System.Media.SystemSounds]::" + sound + ".Play()"}})
	}
	return commands
}

// Toast notifications need an app registration; sounds only.
func notifierCommand(title, body string) (command, bool) {
	return command{}, false
}
