// Package timer implements the focus/break countdown that survives restarts
// of its host process.
//
// A Timer owns the in-memory TimerState, drives a one-second countdown while
// running, and records every phase in a SessionStore so that Initialize can
// rebuild the countdown after a reload. A focus session can be set aside for
// a break and is resumed automatically when the break runs out; the pointer
// to that set-aside session lives both in memory and in the store, and the
// in-memory copy wins when both exist.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/metrics"
	"clockko/focus/internal/model"
)

// SessionStore is the durable record of sessions the timer drives.
type SessionStore interface {
	Start(ctx context.Context, durationMinutes int, kind model.SessionKind) (*model.Session, *apperrors.APIError)
	Complete(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError)
	StopSession(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError)
	Pause(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError)
	Resume(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError)
	ActiveSession(ctx context.Context) (*model.Session, *apperrors.APIError)
	PausedSession(ctx context.Context) (*model.Session, *apperrors.APIError)
}

// SnapshotStore persists the focus session set aside for a break together
// with the countdown it had left. LoadPausedFocus returns nil when nothing
// is stored.
type SnapshotStore interface {
	SavePausedFocus(ctx context.Context, snapshot model.PausedFocusSnapshot) error
	LoadPausedFocus(ctx context.Context) (*model.PausedFocusSnapshot, error)
	ClearPausedFocus(ctx context.Context) error
}

// NotificationSink alerts the user. Implementations must not block.
type NotificationSink interface {
	PlayFocusComplete()
	PlayBreakComplete()
	PlayPaused()
	PlayResumed()
	Notify(title, body string)
}

// Listener receives a copy of the state after every mutation. It runs on the
// mutating goroutine with the state lock held, so it must return quickly and
// must not call back into the Timer.
type Listener func(model.TimerState)

// Ticker delivers countdown ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	FocusMinutes int
	BreakMinutes int
	TickInterval time.Duration
	// ClearStuckSessions stops a foreign active session that blocks a start
	// and retries the start once.
	ClearStuckSessions bool

	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
}

type Timer struct {
	store     SessionStore
	snapshots SnapshotStore
	sink      NotificationSink
	logger    zerolog.Logger
	cfg       Config
	ctx       context.Context

	// opMu serializes operations, including completion handling, so no
	// operation observes another one half way through.
	opMu sync.Mutex

	mu           sync.Mutex
	state        model.TimerState
	listeners    map[uint64]Listener
	nextListener uint64
	ticker       Ticker
	tickStop     chan struct{}
	tickGen      uint64
	completing   bool
	initialized  bool
}

func New(store SessionStore, snapshots SnapshotStore, sink NotificationSink, cfg Config, logger zerolog.Logger) *Timer {
	if cfg.FocusMinutes <= 0 {
		cfg.FocusMinutes = model.DefaultFocusMinutes
	}
	if cfg.BreakMinutes <= 0 {
		cfg.BreakMinutes = model.DefaultBreakMinutes
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = newRealTicker
	}

	t := &Timer{
		store:     store,
		snapshots: snapshots,
		sink:      sink,
		logger:    logger.With().Str("component", "timer").Logger(),
		cfg:       cfg,
		ctx:       context.Background(),
		listeners: make(map[uint64]Listener),
	}
	t.state = t.defaultState()
	return t
}

// State returns a copy of the current state.
func (t *Timer) State() model.TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// DefaultMinutes returns the configured focus and break lengths.
func (t *Timer) DefaultMinutes() (focus, brk int) {
	return t.cfg.FocusMinutes, t.cfg.BreakMinutes
}

// Subscribe registers listener, delivers the current state to it right away
// and returns the function that removes it.
func (t *Timer) Subscribe(listener Listener) func() {
	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = listener
	t.deliverLocked(listener, t.state.Clone())
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

// Destroy stops the countdown and drops every subscriber. Initialize may be
// called again afterwards.
func (t *Timer) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	t.listeners = make(map[uint64]Listener)
	t.completing = false
	t.initialized = false
	metrics.TimerRunning.Set(0)
}

func (t *Timer) defaultState() model.TimerState {
	return model.TimerState{
		Mode:                 model.ModeInitial,
		TimeLeftSeconds:      t.cfg.FocusMinutes * 60,
		FocusDurationSeconds: t.cfg.FocusMinutes * 60,
		BreakDurationSeconds: t.cfg.BreakMinutes * 60,
	}
}

// resetLocked returns to the idle state, keeping only the local counters.
func (t *Timer) resetLocked() {
	completed := t.state.CompletedFocusSessions
	t.setModeLocked(model.ModeInitial)
	t.state = t.defaultState()
	t.state.CompletedFocusSessions = completed
}

func (t *Timer) setModeLocked(mode model.TimerMode) {
	if t.state.Mode != mode {
		metrics.TimerTransitions.WithLabelValues(string(t.state.Mode), string(mode)).Inc()
	}
	t.state.Mode = mode
}

func (t *Timer) emitLocked() {
	if t.state.IsRunning {
		metrics.TimerRunning.Set(1)
	} else {
		metrics.TimerRunning.Set(0)
	}
	for _, listener := range t.listeners {
		t.deliverLocked(listener, t.state.Clone())
	}
}

func (t *Timer) deliverLocked(listener Listener, state model.TimerState) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("Timer listener panicked")
		}
	}()
	listener(state)
}

func (t *Timer) busyLocked() *apperrors.APIError {
	if t.completing {
		return apperrors.Conflict(apperrors.CodeTimerBusy, "timer is finishing the current phase", nil)
	}
	return nil
}

func (t *Timer) storeFailed(op string, apiErr *apperrors.APIError) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	t.logger.Warn().
		Str("op", op).
		Str("code", apiErr.Code).
		Msg(apiErr.Message)
}
