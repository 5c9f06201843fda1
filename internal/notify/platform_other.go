//go:build !linux && !darwin && !windows

package notify

func soundCommands(event string) []command {
	return nil
}

func notifierCommand(title, body string) (command, bool) {
	return command{}, false
}
