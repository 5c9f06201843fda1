package timer

import (
	"context"

	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/model"
)

// Initialize rebuilds the countdown from the store. It runs once; later calls
// return the current state without touching the store until Destroy. A failed
// read leaves the timer idle and may be retried.
func (t *Timer) Initialize(ctx context.Context) (model.TimerState, *apperrors.APIError) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if t.initialized {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, nil
	}
	t.initialized = true
	t.mu.Unlock()

	active, apiErr := t.store.ActiveSession(ctx)
	if apiErr != nil {
		t.storeFailed("initialize", apiErr)
		t.mu.Lock()
		t.initialized = false
		t.mu.Unlock()
		return t.State(), apiErr
	}

	snapshot, err := t.snapshots.LoadPausedFocus(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to load paused focus snapshot")
	}
	if snapshot != nil && (active == nil || active.Kind != model.KindBreak) {
		// Only a running break can hand the countdown back.
		if err := t.snapshots.ClearPausedFocus(ctx); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to clear stale paused focus snapshot")
		}
		snapshot = nil
	}

	t.mu.Lock()
	if active == nil {
		t.emitLocked()
		state := t.state.Clone()
		t.mu.Unlock()
		return state, nil
	}

	timeLeft := active.RemainingSeconds(t.cfg.Now())
	t.stopTickerLocked()
	switch active.Kind {
	case model.KindFocus:
		t.setModeLocked(model.ModeFocus)
		t.state.FocusDurationSeconds = active.PlannedDuration * 60
	case model.KindBreak:
		t.setModeLocked(model.ModeBreak)
		t.state.BreakDurationSeconds = active.PlannedDuration * 60
		if snapshot != nil {
			left := snapshot.TimeLeftSeconds
			t.state.PausedFocusSession = snapshot.Session.Clone()
			t.state.PausedFocusTimeLeftSeconds = &left
		}
	}
	t.state.TimeLeftSeconds = timeLeft
	t.state.IsRunning = true
	t.state.CurrentSession = active.Clone()

	t.logger.Info().
		Str("session_id", active.ID).
		Str("kind", string(active.Kind)).
		Int("time_left", timeLeft).
		Msg("Restored active session")

	if timeLeft > 0 {
		t.startTickerLocked()
		t.emitLocked()
		state := t.state.Clone()
		t.mu.Unlock()
		return state, nil
	}

	// The phase ran out while nobody was watching.
	t.state.TimeLeftSeconds = 0
	t.completing = true
	t.emitLocked()
	t.mu.Unlock()

	t.finishPhase(ctx)
	return t.State(), nil
}

func (t *Timer) StartFocusSession(ctx context.Context, durationMinutes int) (model.TimerState, *apperrors.APIError) {
	if durationMinutes < 0 {
		return t.State(), apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must not be negative")
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if apiErr := t.busyLocked(); apiErr != nil {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, apiErr
	}
	t.mu.Unlock()

	session, apiErr := t.startSession(ctx, durationMinutes, model.KindFocus)
	if apiErr != nil {
		return t.State(), apiErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	t.setModeLocked(model.ModeFocus)
	t.state.TimeLeftSeconds = durationMinutes * 60
	t.state.FocusDurationSeconds = durationMinutes * 60
	t.state.IsRunning = true
	t.state.CurrentSession = session
	t.beginPhaseLocked()
	return t.state.Clone(), nil
}

// StartBreakSession starts a break. With pauseFocus set and a focus session
// underway, that session is paused in the store and remembered so it resumes
// when the break ends.
func (t *Timer) StartBreakSession(ctx context.Context, durationMinutes int, pauseFocus bool) (model.TimerState, *apperrors.APIError) {
	if durationMinutes < 0 {
		return t.State(), apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must not be negative")
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if apiErr := t.busyLocked(); apiErr != nil {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, apiErr
	}
	interrupt := pauseFocus && t.state.Mode == model.ModeFocus && t.state.CurrentSession != nil
	var focus *model.Session
	var focusLeft int
	wasRunning := t.state.IsRunning
	if interrupt {
		// Freeze the countdown so the remembered time matches the pause.
		t.stopTickerLocked()
		focus = t.state.CurrentSession.Clone()
		focusLeft = t.state.TimeLeftSeconds
	}
	t.mu.Unlock()

	var paused *model.Session
	if interrupt {
		p, apiErr := t.store.Pause(ctx, focus.ID)
		if apiErr != nil {
			t.storeFailed("pause", apiErr)
			t.restartIfRunning(wasRunning)
			return t.State(), apiErr
		}
		paused = p
		snapshot := model.PausedFocusSnapshot{Session: *paused, TimeLeftSeconds: focusLeft, SavedAt: t.cfg.Now().UTC()}
		if err := t.snapshots.SavePausedFocus(ctx, snapshot); err != nil {
			t.logger.Warn().Err(err).Str("session_id", paused.ID).Msg("Failed to save paused focus snapshot")
		}
	}

	session, apiErr := t.startSession(ctx, durationMinutes, model.KindBreak)
	if apiErr != nil {
		if paused != nil {
			t.undoInterrupt(ctx, paused)
			t.restartIfRunning(wasRunning)
		}
		return t.State(), apiErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTickerLocked()
	if paused != nil {
		t.state.PausedFocusSession = paused
		t.state.PausedFocusTimeLeftSeconds = &focusLeft
	}
	t.setModeLocked(model.ModeBreak)
	t.state.TimeLeftSeconds = durationMinutes * 60
	t.state.BreakDurationSeconds = durationMinutes * 60
	t.state.IsRunning = true
	t.state.CurrentSession = session
	t.beginPhaseLocked()
	return t.state.Clone(), nil
}

// Pause freezes the countdown locally. The store is not told, so a reload
// while paused recomputes the remaining time from the session start.
func (t *Timer) Pause() (model.TimerState, *apperrors.APIError) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if apiErr := t.busyLocked(); apiErr != nil {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, apiErr
	}
	if !t.state.IsRunning {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, nil
	}
	t.stopTickerLocked()
	t.state.IsRunning = false
	t.emitLocked()
	state := t.state.Clone()
	t.mu.Unlock()

	t.sink.PlayPaused()
	return state, nil
}

func (t *Timer) Resume() (model.TimerState, *apperrors.APIError) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if apiErr := t.busyLocked(); apiErr != nil {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, apiErr
	}
	if t.state.IsRunning {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, nil
	}
	if t.state.Mode != model.ModeFocus && t.state.Mode != model.ModeBreak {
		state := t.state.Clone()
		t.mu.Unlock()
		return state, apperrors.Conflict(apperrors.CodeInvalidTransition, "nothing to resume in mode "+string(state.Mode), nil)
	}
	t.state.IsRunning = true
	t.startTickerLocked()
	t.emitLocked()
	state := t.state.Clone()
	t.mu.Unlock()

	t.sink.PlayResumed()
	return state, nil
}

// Stop abandons whatever is underway. The local state is reset first and
// stays reset even when the store cannot be updated.
func (t *Timer) Stop(ctx context.Context) model.TimerState {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	t.stopTickerLocked()
	t.completing = false
	current := t.state.CurrentSession
	paused := t.state.PausedFocusSession
	t.resetLocked()
	t.emitLocked()
	state := t.state.Clone()
	t.mu.Unlock()

	t.release(ctx, current, paused)

	t.logger.Info().Msg("Timer stopped")
	return state
}

// release closes the sessions the timer no longer tracks. A nil paused falls
// back to the store's paused slot. Failures are logged only.
func (t *Timer) release(ctx context.Context, current, paused *model.Session) {
	if current != nil {
		t.discard(ctx, current.ID)
	}
	if paused == nil {
		stored, apiErr := t.store.PausedSession(ctx)
		if apiErr != nil {
			t.storeFailed("paused_session", apiErr)
		}
		paused = stored
	}
	if paused != nil {
		t.discard(ctx, paused.ID)
	}
	if err := t.snapshots.ClearPausedFocus(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to clear paused focus snapshot")
	}
}

// startSession opens a session in the store. A conflict with a session this
// timer does not own is treated as left over from an earlier run: it is
// stopped and the start is tried once more.
func (t *Timer) startSession(ctx context.Context, durationMinutes int, kind model.SessionKind) (*model.Session, *apperrors.APIError) {
	session, apiErr := t.store.Start(ctx, durationMinutes, kind)
	if apiErr == nil {
		return session, nil
	}
	if !apiErr.Is(apperrors.CodeSessionConflict) || !t.cfg.ClearStuckSessions {
		t.storeFailed("start", apiErr)
		return nil, apiErr
	}

	active, lookupErr := t.store.ActiveSession(ctx)
	if lookupErr != nil {
		t.storeFailed("active_session", lookupErr)
		return nil, apiErr
	}
	if active != nil {
		t.mu.Lock()
		owned := t.state.CurrentSession != nil && t.state.CurrentSession.ID == active.ID
		t.mu.Unlock()
		if owned {
			return nil, apiErr
		}

		t.logger.Warn().
			Str("session_id", active.ID).
			Str("kind", string(active.Kind)).
			Msg("Stopping stuck session")
		if _, stopErr := t.store.StopSession(ctx, active.ID); stopErr != nil && !stopErr.Is(apperrors.CodeSessionNotFound) {
			t.storeFailed("stop", stopErr)
			return nil, apiErr
		}
	}

	session, apiErr = t.store.Start(ctx, durationMinutes, kind)
	if apiErr != nil {
		t.storeFailed("start", apiErr)
		return nil, apiErr
	}
	return session, nil
}

func (t *Timer) beginPhaseLocked() {
	t.startTickerLocked()
	t.emitLocked()
	t.logger.Info().
		Str("mode", string(t.state.Mode)).
		Str("session_id", t.state.CurrentSession.ID).
		Int("time_left", t.state.TimeLeftSeconds).
		Msg("Phase started")
}

func (t *Timer) restartIfRunning(wasRunning bool) {
	if !wasRunning {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsRunning && t.ticker == nil {
		t.startTickerLocked()
	}
}

// undoInterrupt puts a focus session paused for a break back into the active
// slot after the break failed to start.
func (t *Timer) undoInterrupt(ctx context.Context, paused *model.Session) {
	if _, apiErr := t.store.Resume(ctx, paused.ID); apiErr != nil {
		t.storeFailed("resume", apiErr)
	}
	if err := t.snapshots.ClearPausedFocus(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to clear paused focus snapshot")
	}
}

func (t *Timer) discard(ctx context.Context, sessionID string) {
	if _, apiErr := t.store.StopSession(ctx, sessionID); apiErr != nil && !apiErr.Is(apperrors.CodeSessionNotFound) {
		t.storeFailed("stop", apiErr)
	}
}
