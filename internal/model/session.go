package model

import "time"

type SessionKind string

const (
	KindFocus SessionKind = "focus"
	KindBreak SessionKind = "break"
)

func (k SessionKind) Valid() bool {
	return k == KindFocus || k == KindBreak
}

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusStopped   SessionStatus = "stopped"
)

// Terminal reports whether a session in this status is closed for good.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

type Session struct {
	ID              string        `json:"id"`
	Kind            SessionKind   `json:"kind"`
	Status          SessionStatus `json:"status"`
	PlannedDuration int           `json:"plannedDuration"`
	ActualDuration  int           `json:"actualDuration"`
	ActualSeconds   int           `json:"actualSeconds"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         *time.Time    `json:"endTime,omitempty"`
	PausedAt        *time.Time    `json:"pausedAt,omitempty"`
	PausedSeconds   int           `json:"pausedSeconds"`
	Day             string        `json:"day,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hold on to a session without
// sharing the time pointers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.PausedAt != nil {
		t := *s.PausedAt
		c.PausedAt = &t
	}
	return &c
}

// ElapsedSeconds is the time the session has spent in the active slot as of
// now: wall time since start minus the time it was set aside.
func (s *Session) ElapsedSeconds(now time.Time) int {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	paused := s.PausedSeconds
	if s.PausedAt != nil && s.EndTime == nil {
		paused += int(now.Sub(*s.PausedAt).Seconds())
	}
	elapsed := int(end.Sub(s.StartTime).Seconds()) - paused
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// RemainingSeconds is the countdown left on the session, never negative.
func (s *Session) RemainingSeconds(now time.Time) int {
	remaining := s.PlannedDuration*60 - s.ElapsedSeconds(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type DailyAggregate struct {
	Date               string    `json:"date"`
	TotalFocusSessions int       `json:"totalFocusSessions"`
	TotalFocusSeconds  int       `json:"totalFocusSeconds"`
	TotalBreakSeconds  int       `json:"totalBreakSeconds"`
	Sessions           []Session `json:"sessions"`
}

// Recompute derives the totals from Sessions. The stored totals are a cache
// of this.
func (a *DailyAggregate) Recompute() {
	a.TotalFocusSessions = 0
	a.TotalFocusSeconds = 0
	a.TotalBreakSeconds = 0
	for _, session := range a.Sessions {
		if !session.Status.Terminal() {
			continue
		}
		switch session.Kind {
		case KindFocus:
			a.TotalFocusSessions++
			a.TotalFocusSeconds += session.ActualSeconds
		case KindBreak:
			a.TotalBreakSeconds += session.ActualSeconds
		}
	}
}

const DateLayout = "2006-01-02"
