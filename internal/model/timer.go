package model

import "time"

type TimerMode string

const (
	ModeInitial   TimerMode = "initial"
	ModeFocus     TimerMode = "focus"
	ModeBreak     TimerMode = "break"
	ModeCompleted TimerMode = "completed"
)

const (
	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5

	DefaultFocusDurationSeconds = DefaultFocusMinutes * 60
	DefaultBreakDurationSeconds = DefaultBreakMinutes * 60
)

type TimerState struct {
	Mode                       TimerMode `json:"mode"`
	TimeLeftSeconds            int       `json:"timeLeftSeconds"`
	IsRunning                  bool      `json:"isRunning"`
	FocusDurationSeconds       int       `json:"focusDurationSeconds"`
	BreakDurationSeconds       int       `json:"breakDurationSeconds"`
	CurrentSession             *Session  `json:"currentSession"`
	PausedFocusSession         *Session  `json:"pausedFocusSession"`
	PausedFocusTimeLeftSeconds *int      `json:"pausedFocusTimeLeftSeconds"`
	CompletedFocusSessions     int       `json:"completedFocusSessions"`
}

func (s TimerState) Clone() TimerState {
	c := s
	c.CurrentSession = s.CurrentSession.Clone()
	c.PausedFocusSession = s.PausedFocusSession.Clone()
	if s.PausedFocusTimeLeftSeconds != nil {
		v := *s.PausedFocusTimeLeftSeconds
		c.PausedFocusTimeLeftSeconds = &v
	}
	return c
}

// PausedFocusSnapshot is the persisted record of a focus session set aside
// for a break, with the countdown it had left.
type PausedFocusSnapshot struct {
	Session         Session   `json:"session"`
	TimeLeftSeconds int       `json:"timeLeftSeconds"`
	SavedAt         time.Time `json:"savedAt"`
}
