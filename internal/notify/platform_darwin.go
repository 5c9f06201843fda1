//go:build darwin

package notify

import "strconv"

func soundCommands(event string) []command {
	var files []string
	switch event {
	case eventFocusComplete:
		files = []string{"Glass", "Tink"}
	case eventBreakComplete:
		files = []string{"Hero", "Ping"}
	case eventPaused:
		files = []string{"Pop"}
	case eventResumed:
		files = []string{"Purr", "Submarine"}
	default:
		files = []string{"Glass"}
	}

	commands := make([]command, 0, len(files))
	for _, file := range files {
		commands = append(commands, command{"afplay", []string{"/System/Library/Sounds/" + file + ".aiff"}})
	}
	return commands
}

func notifierCommand(title, body string) (command, bool) {
	script := "display notification " + strconv.Quote(body) + " with title " + strconv.Quote(title)
	return command{"osascript", []string{"-e", script}}, true
}
