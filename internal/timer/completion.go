package timer

import (
	"context"

	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/model"
)

const (
	focusCompleteTitle = "Focus Session Complete!"
	focusCompleteBody  = "Great job! Time for a break?"
	breakCompleteTitle = "Break Complete!"
	breakCompleteBody  = "Ready to get back to work?"
)

func (t *Timer) complete() {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	t.finishPhase(t.ctx)
}

// finishPhase closes the phase whose countdown reached zero. The caller holds
// opMu and has set completing.
func (t *Timer) finishPhase(ctx context.Context) {
	t.mu.Lock()
	if !t.completing {
		// Stop got there first.
		t.mu.Unlock()
		return
	}
	mode := t.state.Mode
	current := t.state.CurrentSession.Clone()
	paused := t.state.PausedFocusSession.Clone()
	t.mu.Unlock()

	if current != nil {
		_, apiErr := t.store.Complete(ctx, current.ID)
		if apiErr != nil && !apiErr.Is(apperrors.CodeSessionNotFound) {
			t.storeFailed("complete", apiErr)
			t.mu.Lock()
			t.resetLocked()
			t.completing = false
			t.emitLocked()
			t.mu.Unlock()
			// Going idle must not leave an interrupted focus session in the
			// paused slot.
			t.release(ctx, current, paused)
			return
		}
	}

	switch mode {
	case model.ModeFocus:
		t.sink.PlayFocusComplete()
		t.sink.Notify(focusCompleteTitle, focusCompleteBody)

		t.mu.Lock()
		t.setModeLocked(model.ModeCompleted)
		t.state.IsRunning = false
		t.state.TimeLeftSeconds = 0
		t.state.CurrentSession = nil
		t.state.CompletedFocusSessions++
		t.completing = false
		t.emitLocked()
		t.mu.Unlock()
		t.logger.Info().Msg("Focus session completed")

	case model.ModeBreak:
		t.sink.PlayBreakComplete()
		t.sink.Notify(breakCompleteTitle, breakCompleteBody)
		t.resumeAfterBreak(ctx)

	default:
		t.mu.Lock()
		t.state.IsRunning = false
		t.completing = false
		t.emitLocked()
		t.mu.Unlock()
	}
}

// resumeAfterBreak brings back the focus session the break interrupted. The
// in-memory pointer is tried first, then the store's paused slot; with
// neither the timer goes idle.
func (t *Timer) resumeAfterBreak(ctx context.Context) {
	t.mu.Lock()
	inMemory := t.state.PausedFocusSession.Clone()
	var inMemoryLeft int
	if t.state.PausedFocusTimeLeftSeconds != nil {
		inMemoryLeft = *t.state.PausedFocusTimeLeftSeconds
	}
	t.mu.Unlock()

	if inMemory != nil {
		if t.resumeFocus(ctx, inMemory.ID, inMemoryLeft) {
			return
		}
	}

	stored, apiErr := t.store.PausedSession(ctx)
	if apiErr != nil {
		t.storeFailed("paused_session", apiErr)
	} else if stored != nil && stored.Kind == model.KindFocus && (inMemory == nil || stored.ID != inMemory.ID) {
		if t.resumeFocus(ctx, stored.ID, stored.RemainingSeconds(t.cfg.Now())) {
			return
		}
	}

	if err := t.snapshots.ClearPausedFocus(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to clear paused focus snapshot")
	}

	t.mu.Lock()
	t.resetLocked()
	t.completing = false
	t.emitLocked()
	t.mu.Unlock()
	t.logger.Info().Msg("Break completed")
}

func (t *Timer) resumeFocus(ctx context.Context, sessionID string, timeLeft int) bool {
	resumed, apiErr := t.store.Resume(ctx, sessionID)
	if apiErr != nil {
		t.storeFailed("resume", apiErr)
		return false
	}
	if err := t.snapshots.ClearPausedFocus(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to clear paused focus snapshot")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.setModeLocked(model.ModeFocus)
	t.state.TimeLeftSeconds = timeLeft
	t.state.FocusDurationSeconds = resumed.PlannedDuration * 60
	t.state.IsRunning = true
	t.state.CurrentSession = resumed
	t.state.PausedFocusSession = nil
	t.state.PausedFocusTimeLeftSeconds = nil
	t.completing = false

	// A focus session with no time left completes on the next tick.
	t.startTickerLocked()
	t.emitLocked()
	t.logger.Info().
		Str("session_id", resumed.ID).
		Int("time_left", timeLeft).
		Msg("Break completed, focus session resumed")
	return true
}
