package timer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockko/focus/internal/db"
	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/model"
	"clockko/focus/internal/repository"
	"clockko/focus/internal/service"
	"clockko/focus/migrations"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualTicker never fires; tests drive the countdown through advance.
type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

type recordingSink struct {
	mu            sync.Mutex
	focusComplete int
	breakComplete int
	paused        int
	resumed       int
	notifications []string
}

func (s *recordingSink) PlayFocusComplete() { s.mu.Lock(); s.focusComplete++; s.mu.Unlock() }
func (s *recordingSink) PlayBreakComplete() { s.mu.Lock(); s.breakComplete++; s.mu.Unlock() }
func (s *recordingSink) PlayPaused()        { s.mu.Lock(); s.paused++; s.mu.Unlock() }
func (s *recordingSink) PlayResumed()       { s.mu.Lock(); s.resumed++; s.mu.Unlock() }
func (s *recordingSink) Notify(title, body string) {
	s.mu.Lock()
	s.notifications = append(s.notifications, title)
	s.mu.Unlock()
}

// scriptedStore wraps the real session service, counting calls and failing
// the ones a test asks it to.
type scriptedStore struct {
	SessionStore

	mu             sync.Mutex
	completes      int
	activeLookups  int
	failComplete   *apperrors.APIError
	failStop       *apperrors.APIError
	failBreakStart *apperrors.APIError
}

func (s *scriptedStore) Complete(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	s.mu.Lock()
	s.completes++
	fail := s.failComplete
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.SessionStore.Complete(ctx, sessionID)
}

func (s *scriptedStore) StopSession(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	s.mu.Lock()
	fail := s.failStop
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.SessionStore.StopSession(ctx, sessionID)
}

func (s *scriptedStore) Start(ctx context.Context, minutes int, kind model.SessionKind) (*model.Session, *apperrors.APIError) {
	s.mu.Lock()
	fail := s.failBreakStart
	s.mu.Unlock()
	if fail != nil && kind == model.KindBreak {
		return nil, fail
	}
	return s.SessionStore.Start(ctx, minutes, kind)
}

func (s *scriptedStore) ActiveSession(ctx context.Context) (*model.Session, *apperrors.APIError) {
	s.mu.Lock()
	s.activeLookups++
	s.mu.Unlock()
	return s.SessionStore.ActiveSession(ctx)
}

func (s *scriptedStore) completeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completes
}

type harness struct {
	t         *testing.T
	clock     *fakeClock
	sessions  *service.SessionService
	snapshots *repository.SnapshotRepository
	store     *scriptedStore
	sink      *recordingSink
	cfg       Config
	timer     *Timer
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "timer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, migrations.FS))

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	sessions := service.NewSessionService(repository.NewSessionRepository(database), service.SessionServiceOptions{
		Location: time.UTC,
		Now:      clock.Now,
	})

	cfg := Config{
		ClearStuckSessions: true,
		Now:                clock.Now,
		NewTicker: func(time.Duration) Ticker {
			return &manualTicker{c: make(chan time.Time)}
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		t:         t,
		clock:     clock,
		sessions:  sessions,
		snapshots: repository.NewSnapshotRepository(database),
		store:     &scriptedStore{SessionStore: sessions},
		sink:      &recordingSink{},
		cfg:       cfg,
	}
	h.timer = h.newTimer()
	return h
}

// newTimer builds a timer over the same store, as a reloaded process would.
func (h *harness) newTimer() *Timer {
	tm := New(h.store, h.snapshots, h.sink, h.cfg, zerolog.Nop())
	h.t.Cleanup(tm.Destroy)
	return tm
}

// advance moves the clock and delivers one tick per second.
func (h *harness) advance(tm *Timer, seconds int) {
	for i := 0; i < seconds; i++ {
		h.clock.Advance(time.Second)
		tm.mu.Lock()
		gen := tm.tickGen
		tm.mu.Unlock()
		tm.tick(gen)
	}
}

func TestStartFocusSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 1500, state.TimeLeftSeconds)
	require.NotNil(t, state.CurrentSession)

	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	require.NotNil(t, active)
	assert.Equal(t, state.CurrentSession.ID, active.ID)
	assert.Equal(t, model.KindFocus, active.Kind)

	h.advance(h.timer, 10)
	assert.Equal(t, 1490, h.timer.State().TimeLeftSeconds)
}

func TestFocusCompletesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 1)
	require.Nil(t, apiErr)

	h.timer.mu.Lock()
	staleGen := h.timer.tickGen
	h.timer.mu.Unlock()

	h.advance(h.timer, 60)
	state := h.timer.State()
	assert.Equal(t, model.ModeCompleted, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Equal(t, 0, state.TimeLeftSeconds)
	assert.Nil(t, state.CurrentSession)
	assert.Equal(t, 1, state.CompletedFocusSessions)

	// Late ticks from the finished countdown change nothing.
	h.timer.tick(staleGen)
	h.advance(h.timer, 5)
	assert.Equal(t, 1, h.store.completeCalls())
	assert.Equal(t, 1, h.sink.focusComplete)
	assert.Equal(t, []string{"Focus Session Complete!"}, h.sink.notifications)

	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	assert.Nil(t, active)

	aggregate, apiErr := h.sessions.DailyAggregate(ctx, "")
	require.Nil(t, apiErr)
	assert.Equal(t, 1, aggregate.TotalFocusSessions)
	assert.Equal(t, 60, aggregate.TotalFocusSeconds)
	require.Len(t, aggregate.Sessions, 1)
	assert.Equal(t, model.StatusCompleted, aggregate.Sessions[0].Status)
}

func TestFullFocusSessionIsRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)

	h.advance(h.timer, 1499)
	assert.Equal(t, model.ModeFocus, h.timer.State().Mode)
	assert.Equal(t, 1, h.timer.State().TimeLeftSeconds)

	h.advance(h.timer, 1)
	state := h.timer.State()
	assert.Equal(t, model.ModeCompleted, state.Mode)
	assert.Equal(t, 1, state.CompletedFocusSessions)

	summary, apiErr := h.sessions.DailyAggregate(ctx, "")
	require.Nil(t, apiErr)
	require.Len(t, summary.Sessions, 1)
	closed := summary.Sessions[0]
	assert.Equal(t, model.KindFocus, closed.Kind)
	assert.Equal(t, model.StatusCompleted, closed.Status)
	assert.Equal(t, 25, closed.ActualDuration)
	assert.Equal(t, 1500, closed.ActualSeconds)
	assert.Equal(t, 1500, summary.TotalFocusSeconds)
}

func TestZeroDurationCompletesOnNextTick(t *testing.T) {
	h := newHarness(t)

	state, apiErr := h.timer.StartFocusSession(context.Background(), 0)
	require.Nil(t, apiErr)
	assert.Equal(t, 0, state.TimeLeftSeconds)
	assert.True(t, state.IsRunning)

	h.advance(h.timer, 1)
	assert.Equal(t, model.ModeCompleted, h.timer.State().Mode)
	assert.Equal(t, 1, h.store.completeCalls())
}

func TestNegativeDurationRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, -1)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeInvalidDuration, apiErr.Code)

	_, apiErr = h.timer.StartBreakSession(ctx, -5, false)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeInvalidDuration, apiErr.Code)

	assert.Equal(t, model.ModeInitial, h.timer.State().Mode)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)

	_, apiErr := h.timer.StartFocusSession(context.Background(), 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 10)

	state, apiErr := h.timer.Pause()
	require.Nil(t, apiErr)
	assert.False(t, state.IsRunning)
	assert.Equal(t, 1490, state.TimeLeftSeconds)

	h.advance(h.timer, 5)
	assert.Equal(t, 1490, h.timer.State().TimeLeftSeconds)

	// Pausing twice is a no-op.
	_, apiErr = h.timer.Pause()
	require.Nil(t, apiErr)
	assert.Equal(t, 1, h.sink.paused)

	state, apiErr = h.timer.Resume()
	require.Nil(t, apiErr)
	assert.True(t, state.IsRunning)
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.Equal(t, 1, h.sink.resumed)

	h.advance(h.timer, 10)
	assert.Equal(t, 1480, h.timer.State().TimeLeftSeconds)
}

func TestResumeWithoutPhaseIsInvalid(t *testing.T) {
	h := newHarness(t)

	_, apiErr := h.timer.Resume()
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeInvalidTransition, apiErr.Code)

	_, apiErr = h.timer.StartFocusSession(context.Background(), 0)
	require.Nil(t, apiErr)
	h.advance(h.timer, 1)
	require.Equal(t, model.ModeCompleted, h.timer.State().Mode)

	_, apiErr = h.timer.Resume()
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeInvalidTransition, apiErr.Code)
}

func TestBreakInterruptResumesFocus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	focus, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 100)

	state, apiErr := h.timer.StartBreakSession(ctx, 5, true)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeBreak, state.Mode)
	assert.Equal(t, 300, state.TimeLeftSeconds)
	require.NotNil(t, state.PausedFocusSession)
	assert.Equal(t, focus.CurrentSession.ID, state.PausedFocusSession.ID)
	require.NotNil(t, state.PausedFocusTimeLeftSeconds)
	assert.Equal(t, 1400, *state.PausedFocusTimeLeftSeconds)

	paused, apiErr := h.sessions.PausedSession(ctx)
	require.Nil(t, apiErr)
	require.NotNil(t, paused)
	assert.Equal(t, focus.CurrentSession.ID, paused.ID)

	snapshot, err := h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1400, snapshot.TimeLeftSeconds)

	h.advance(h.timer, 300)
	state = h.timer.State()
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 1400, state.TimeLeftSeconds)
	require.NotNil(t, state.CurrentSession)
	assert.Equal(t, focus.CurrentSession.ID, state.CurrentSession.ID)
	assert.Nil(t, state.PausedFocusSession)
	assert.Nil(t, state.PausedFocusTimeLeftSeconds)
	assert.Equal(t, 1, h.sink.breakComplete)

	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	require.NotNil(t, active)
	assert.Equal(t, focus.CurrentSession.ID, active.ID)

	snapshot, err = h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestBreakFromLocallyPausedFocus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 30)
	_, apiErr = h.timer.Pause()
	require.Nil(t, apiErr)

	state, apiErr := h.timer.StartBreakSession(ctx, 1, true)
	require.Nil(t, apiErr)
	require.NotNil(t, state.PausedFocusTimeLeftSeconds)
	assert.Equal(t, 1470, *state.PausedFocusTimeLeftSeconds)

	h.advance(h.timer, 60)
	state = h.timer.State()
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.Equal(t, 1470, state.TimeLeftSeconds)
}

func TestBreakResumesFocusFromStoreAfterReload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	focus, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 100)
	_, apiErr = h.timer.StartBreakSession(ctx, 5, true)
	require.Nil(t, apiErr)

	// Reload without the snapshot: only the store remembers the focus session.
	h.timer.Destroy()
	require.NoError(t, h.snapshots.ClearPausedFocus(ctx))
	reloaded := h.newTimer()

	state, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeBreak, state.Mode)
	assert.Equal(t, 300, state.TimeLeftSeconds)
	assert.Nil(t, state.PausedFocusSession)

	h.advance(reloaded, 300)
	state = reloaded.State()
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 1400, state.TimeLeftSeconds)
	require.NotNil(t, state.CurrentSession)
	assert.Equal(t, focus.CurrentSession.ID, state.CurrentSession.ID)
}

func TestBreakWithoutPausedFocusGoesIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, apiErr := h.timer.StartBreakSession(ctx, 1, false)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeBreak, state.Mode)
	assert.Nil(t, state.PausedFocusSession)

	h.advance(h.timer, 60)
	state = h.timer.State()
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Equal(t, model.DefaultFocusDurationSeconds, state.TimeLeftSeconds)
	assert.Nil(t, state.CurrentSession)
	assert.Equal(t, []string{"Break Complete!"}, h.sink.notifications)
}

func TestBreakWithoutPauseFocusStopsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)

	// The running focus session is the timer's own, so the conflict surfaces.
	_, apiErr = h.timer.StartBreakSession(ctx, 5, false)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeSessionConflict, apiErr.Code)
	assert.Equal(t, model.ModeFocus, h.timer.State().Mode)
}

func TestStartBreakRollsBackWhenBreakFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	focus, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 5)

	h.store.failBreakStart = apperrors.Storage("")
	_, apiErr = h.timer.StartBreakSession(ctx, 5, true)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeStorage, apiErr.Code)

	state := h.timer.State()
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Nil(t, state.PausedFocusSession)

	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	require.NotNil(t, active)
	assert.Equal(t, focus.CurrentSession.ID, active.ID)

	snapshot, err := h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	h.advance(h.timer, 5)
	assert.Equal(t, 1490, h.timer.State().TimeLeftSeconds)
}

func TestInitializeRestoresActiveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.timer.Destroy()
	h.clock.Advance(10 * time.Minute)

	reloaded := h.newTimer()
	state, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 900, state.TimeLeftSeconds)

	lookups := h.store.activeLookups
	again, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, state.Mode, again.Mode)
	assert.Equal(t, state.TimeLeftSeconds, again.TimeLeftSeconds)
	assert.Equal(t, lookups, h.store.activeLookups)
}

func TestInitializeWithoutSessionsStaysIdle(t *testing.T) {
	h := newHarness(t)

	state, apiErr := h.timer.Initialize(context.Background())
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Equal(t, model.DefaultFocusDurationSeconds, state.TimeLeftSeconds)
}

func TestInitializeClearsStaleSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	require.NoError(t, h.snapshots.SavePausedFocus(ctx, model.PausedFocusSnapshot{
		Session:         *state.CurrentSession,
		TimeLeftSeconds: 1200,
		SavedAt:         h.clock.Now(),
	}))
	h.timer.Destroy()

	reloaded := h.newTimer()
	restored, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeFocus, restored.Mode)
	assert.Nil(t, restored.PausedFocusSession)

	snapshot, err := h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestInitializeCompletesExpiredFocus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 1)
	require.Nil(t, apiErr)
	h.timer.Destroy()
	h.clock.Advance(5 * time.Minute)

	reloaded := h.newTimer()
	state, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeCompleted, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Equal(t, 1, h.store.completeCalls())

	_, apiErr = reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 1, h.store.completeCalls())

	aggregate, apiErr := h.sessions.DailyAggregate(ctx, "")
	require.Nil(t, apiErr)
	assert.Equal(t, 1, aggregate.TotalFocusSessions)
	assert.Equal(t, 60, aggregate.TotalFocusSeconds)
}

func TestInitializeExpiredBreakResumesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	focus, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 100)
	_, apiErr = h.timer.StartBreakSession(ctx, 5, true)
	require.Nil(t, apiErr)
	h.timer.Destroy()
	h.clock.Advance(10 * time.Minute)

	reloaded := h.newTimer()
	state, apiErr := reloaded.Initialize(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeFocus, state.Mode)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 1400, state.TimeLeftSeconds)
	require.NotNil(t, state.CurrentSession)
	assert.Equal(t, focus.CurrentSession.ID, state.CurrentSession.ID)
	assert.Nil(t, state.PausedFocusSession)
}

func TestStopResetsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 60)
	_, apiErr = h.timer.StartBreakSession(ctx, 5, true)
	require.Nil(t, apiErr)

	state := h.timer.Stop(ctx)
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Equal(t, model.DefaultFocusDurationSeconds, state.TimeLeftSeconds)
	assert.Nil(t, state.CurrentSession)
	assert.Nil(t, state.PausedFocusSession)

	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	assert.Nil(t, active)
	paused, apiErr := h.sessions.PausedSession(ctx)
	require.Nil(t, apiErr)
	assert.Nil(t, paused)

	snapshot, err := h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	h.advance(h.timer, 10)
	assert.Equal(t, model.ModeInitial, h.timer.State().Mode)
}

func TestStopSurvivesStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)

	h.store.failStop = apperrors.Storage("")
	state := h.timer.Stop(ctx)
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Nil(t, state.CurrentSession)
}

func TestStartClearsStuckSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stuck, apiErr := h.sessions.Start(ctx, 25, model.KindFocus)
	require.Nil(t, apiErr)

	state, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	require.NotNil(t, state.CurrentSession)
	assert.NotEqual(t, stuck.ID, state.CurrentSession.ID)

	history, apiErr := h.sessions.History(ctx, 10)
	require.Nil(t, apiErr)
	statuses := map[string]model.SessionStatus{}
	for _, session := range history {
		statuses[session.ID] = session.Status
	}
	assert.Equal(t, model.StatusStopped, statuses[stuck.ID])
	assert.Equal(t, model.StatusActive, statuses[state.CurrentSession.ID])
}

func TestStartConflictSurfacesWhenClearingDisabled(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.ClearStuckSessions = false })
	ctx := context.Background()

	_, apiErr := h.sessions.Start(ctx, 25, model.KindFocus)
	require.Nil(t, apiErr)

	state, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeSessionConflict, apiErr.Code)
	assert.Equal(t, model.ModeInitial, state.Mode)
}

func TestCompletionStoreFailureGoesIdle(t *testing.T) {
	h := newHarness(t)

	_, apiErr := h.timer.StartFocusSession(context.Background(), 1)
	require.Nil(t, apiErr)

	h.store.failComplete = apperrors.Storage("")
	h.advance(h.timer, 60)

	state := h.timer.State()
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.False(t, state.IsRunning)
	assert.Nil(t, state.CurrentSession)
	assert.Equal(t, 0, h.sink.focusComplete)
	assert.Equal(t, 1, h.store.completeCalls())
}

func TestBreakCompletionStoreFailureReleasesPausedFocus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	focus, apiErr := h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	h.advance(h.timer, 100)
	_, apiErr = h.timer.StartBreakSession(ctx, 1, true)
	require.Nil(t, apiErr)

	h.store.failComplete = apperrors.Storage("")
	h.advance(h.timer, 60)

	state := h.timer.State()
	assert.Equal(t, model.ModeInitial, state.Mode)
	assert.Nil(t, state.PausedFocusSession)

	paused, apiErr := h.sessions.PausedSession(ctx)
	require.Nil(t, apiErr)
	assert.Nil(t, paused)
	active, apiErr := h.sessions.ActiveSession(ctx)
	require.Nil(t, apiErr)
	assert.Nil(t, active)
	snapshot, err := h.snapshots.LoadPausedFocus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	summary, apiErr := h.sessions.DailyAggregate(ctx, "")
	require.Nil(t, apiErr)
	require.Len(t, summary.Sessions, 2)
	var stoppedFocus bool
	for _, session := range summary.Sessions {
		if session.ID == focus.CurrentSession.ID {
			stoppedFocus = session.Status == model.StatusStopped
		}
	}
	assert.True(t, stoppedFocus)

	h.store.failComplete = nil
	_, apiErr = h.timer.StartFocusSession(ctx, 25)
	require.Nil(t, apiErr)
	state, apiErr = h.timer.StartBreakSession(ctx, 5, true)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeBreak, state.Mode)
	require.NotNil(t, state.PausedFocusSession)
}

func TestCompletionProceedsWhenSessionAlreadyClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, apiErr := h.timer.StartFocusSession(ctx, 1)
	require.Nil(t, apiErr)
	_, apiErr = h.sessions.StopSession(ctx, state.CurrentSession.ID)
	require.Nil(t, apiErr)

	h.advance(h.timer, 60)
	state = h.timer.State()
	assert.Equal(t, model.ModeCompleted, state.Mode)
	assert.Equal(t, 1, state.CompletedFocusSessions)
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var modes []model.TimerMode
	unsubscribe := h.timer.Subscribe(func(state model.TimerState) {
		mu.Lock()
		modes = append(modes, state.Mode)
		mu.Unlock()
	})

	_, apiErr := h.timer.StartFocusSession(context.Background(), 0)
	require.Nil(t, apiErr)
	h.advance(h.timer, 1)

	unsubscribe()
	_, apiErr = h.timer.StartFocusSession(context.Background(), 1)
	require.Nil(t, apiErr)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.TimerMode{model.ModeInitial, model.ModeFocus, model.ModeCompleted}, modes)
}

func TestPanickingSubscriberDoesNotBreakTimer(t *testing.T) {
	h := newHarness(t)

	h.timer.Subscribe(func(state model.TimerState) {
		if state.Mode == model.ModeFocus {
			panic("listener failure")
		}
	})

	state, apiErr := h.timer.StartFocusSession(context.Background(), 25)
	require.Nil(t, apiErr)
	assert.Equal(t, model.ModeFocus, state.Mode)
	h.advance(h.timer, 1)
	assert.Equal(t, 1499, h.timer.State().TimeLeftSeconds)
}
