package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/metrics"
	"clockko/focus/internal/model"
	"clockko/focus/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SessionService is the durable record of focus and break sessions. Every
// operation runs in its own transaction so the active/paused slots and the
// daily aggregates never disagree.
type SessionService struct {
	repo       *repository.SessionRepository
	staleAfter time.Duration
	location   *time.Location
	now        func() time.Time
}

type SessionServiceOptions struct {
	// StaleAfter stops an active session older than this instead of
	// reporting a conflict on Start. Zero disables it.
	StaleAfter time.Duration
	// Location decides which calendar day a closed session is filed under.
	Location *time.Location
	Now      func() time.Time
}

func NewSessionService(repo *repository.SessionRepository, opts SessionServiceOptions) *SessionService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionService{
		repo:       repo,
		staleAfter: opts.StaleAfter,
		location:   opts.Location,
		now:        opts.Now,
	}
}

func (s *SessionService) Start(ctx context.Context, durationMinutes int, kind model.SessionKind) (*model.Session, *apperrors.APIError) {
	if !kind.Valid() {
		return nil, apperrors.BadRequest("invalid_kind", "kind must be one of focus, break")
	}
	if durationMinutes < 0 {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must not be negative")
	}

	now := s.now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction")
	}
	defer tx.Rollback()

	active, err := s.repo.GetByStatusTx(ctx, tx, model.StatusActive)
	if err != nil && err != repository.ErrNotFound {
		return nil, apperrors.Storage("failed to read active session")
	}
	if active != nil {
		if !s.isStale(active, now) {
			return nil, apperrors.SessionConflict("an active "+string(active.Kind)+" session already exists", active)
		}
		// Nobody saw it finish, so it is closed as stopped.
		if apiErr := s.closeSession(ctx, tx, active, model.StatusStopped, now); apiErr != nil {
			return nil, apiErr
		}
		metrics.StaleSessionsCleared.Inc()
	}

	session := model.Session{
		ID:              uuid.NewString(),
		Kind:            kind,
		Status:          model.StatusActive,
		PlannedDuration: durationMinutes,
		StartTime:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertSessionTx(ctx, tx, &session); err != nil {
		return nil, apperrors.Storage("failed to create session")
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Storage("failed to commit transaction")
	}

	metrics.SessionsStarted.WithLabelValues(string(kind)).Inc()
	return &session, nil
}

func (s *SessionService) Complete(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	return s.finish(ctx, sessionID, model.StatusCompleted)
}

// StopSession closes a session the user abandoned. The stopped session still
// counts towards the day's aggregate.
func (s *SessionService) StopSession(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	return s.finish(ctx, sessionID, model.StatusStopped)
}

func (s *SessionService) Pause(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	return s.move(ctx, sessionID, model.StatusActive, model.StatusPaused)
}

func (s *SessionService) Resume(ctx context.Context, sessionID string) (*model.Session, *apperrors.APIError) {
	return s.move(ctx, sessionID, model.StatusPaused, model.StatusActive)
}

// ActiveSession returns nil when no session occupies the active slot.
func (s *SessionService) ActiveSession(ctx context.Context) (*model.Session, *apperrors.APIError) {
	return s.bySlot(ctx, model.StatusActive)
}

// PausedSession returns nil when no session has been set aside.
func (s *SessionService) PausedSession(ctx context.Context) (*model.Session, *apperrors.APIError) {
	return s.bySlot(ctx, model.StatusPaused)
}

// DailyAggregate returns the rollup for date (YYYY-MM-DD). An empty date
// means today; a day without closed sessions yields an empty aggregate.
func (s *SessionService) DailyAggregate(ctx context.Context, date string) (*model.DailyAggregate, *apperrors.APIError) {
	date, apiErr := s.normalizeDate(date)
	if apiErr != nil {
		return nil, apiErr
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction")
	}
	defer tx.Rollback()

	aggregate, err := s.repo.GetAggregateTx(ctx, tx, date)
	if err == repository.ErrNotFound {
		aggregate = &model.DailyAggregate{Date: date}
	} else if err != nil {
		return nil, apperrors.Storage("failed to read daily aggregate")
	}

	sessions, err := s.repo.ListClosedByDayTx(ctx, tx, date)
	if err != nil {
		return nil, apperrors.Storage("failed to list sessions")
	}
	aggregate.Sessions = sessions
	return aggregate, nil
}

// RebuildDailyAggregate recomputes the cached totals for date from the
// sessions filed under it.
func (s *SessionService) RebuildDailyAggregate(ctx context.Context, date string) (*model.DailyAggregate, *apperrors.APIError) {
	date, apiErr := s.normalizeDate(date)
	if apiErr != nil {
		return nil, apiErr
	}

	now := s.now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction")
	}
	defer tx.Rollback()

	sessions, err := s.repo.ListClosedByDayTx(ctx, tx, date)
	if err != nil {
		return nil, apperrors.Storage("failed to list sessions")
	}
	aggregate := &model.DailyAggregate{Date: date, Sessions: sessions}
	aggregate.Recompute()

	if err := s.repo.ReplaceAggregateTx(ctx, tx, aggregate, now); err != nil {
		return nil, apperrors.Storage("failed to store daily aggregate")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Storage("failed to commit transaction")
	}
	return aggregate, nil
}

func (s *SessionService) History(ctx context.Context, limit int) ([]model.Session, *apperrors.APIError) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	sessions, err := s.repo.ListSessions(ctx, limit)
	if err != nil {
		return nil, apperrors.Storage("failed to get history")
	}
	return sessions, nil
}

func (s *SessionService) finish(ctx context.Context, sessionID string, status model.SessionStatus) (*model.Session, *apperrors.APIError) {
	now := s.now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction")
	}
	defer tx.Rollback()

	session, err := s.repo.GetSessionTx(ctx, tx, sessionID)
	if err == repository.ErrNotFound {
		return nil, apperrors.SessionNotFound("")
	}
	if err != nil {
		return nil, apperrors.Storage("failed to read session")
	}
	if session.Status.Terminal() {
		return nil, apperrors.SessionNotFound("session is already closed")
	}

	if apiErr := s.closeSession(ctx, tx, session, status, now); apiErr != nil {
		return nil, apiErr
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Storage("failed to commit transaction")
	}
	return session, nil
}

func (s *SessionService) closeSession(
	ctx context.Context,
	tx *sql.Tx,
	session *model.Session,
	status model.SessionStatus,
	now time.Time,
) *apperrors.APIError {
	if session.PausedAt != nil {
		session.PausedSeconds += secondsBetween(*session.PausedAt, now)
		session.PausedAt = nil
	}

	session.EndTime = &now
	actual := session.ElapsedSeconds(now)
	if planned := session.PlannedDuration * 60; actual > planned {
		actual = planned
	}
	session.ActualSeconds = actual
	session.ActualDuration = int(math.Round(float64(actual) / 60))
	session.Status = status
	session.Day = now.In(s.location).Format(model.DateLayout)
	session.UpdatedAt = now

	if err := s.repo.UpdateSessionTx(ctx, tx, session); err != nil {
		return apperrors.Storage("failed to update session")
	}
	if err := s.repo.AddToAggregateTx(ctx, tx, session, now); err != nil {
		return apperrors.Storage("failed to update daily aggregate")
	}

	metrics.SessionsClosed.WithLabelValues(string(session.Kind), string(status)).Inc()
	metrics.SessionSeconds.WithLabelValues(string(session.Kind)).Add(float64(actual))
	return nil
}

func (s *SessionService) move(ctx context.Context, sessionID string, from, to model.SessionStatus) (*model.Session, *apperrors.APIError) {
	now := s.now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction")
	}
	defer tx.Rollback()

	session, err := s.repo.GetSessionTx(ctx, tx, sessionID)
	if err == repository.ErrNotFound {
		return nil, apperrors.SessionNotFound("")
	}
	if err != nil {
		return nil, apperrors.Storage("failed to read session")
	}
	if session.Status != from {
		return nil, apperrors.SessionNotFound("no " + string(from) + " session with that id")
	}

	occupant, err := s.repo.GetByStatusTx(ctx, tx, to)
	if err != nil && err != repository.ErrNotFound {
		return nil, apperrors.Storage("failed to read session slot")
	}
	if occupant != nil {
		return nil, apperrors.SessionConflict("a "+string(to)+" session already exists", occupant)
	}

	switch to {
	case model.StatusPaused:
		session.PausedAt = &now
	case model.StatusActive:
		if session.PausedAt != nil {
			session.PausedSeconds += secondsBetween(*session.PausedAt, now)
			session.PausedAt = nil
		}
	}
	session.Status = to
	session.UpdatedAt = now

	if err := s.repo.UpdateSessionTx(ctx, tx, session); err != nil {
		return nil, apperrors.Storage("failed to update session")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Storage("failed to commit transaction")
	}
	return session, nil
}

func (s *SessionService) bySlot(ctx context.Context, status model.SessionStatus) (*model.Session, *apperrors.APIError) {
	session, err := s.repo.GetByStatus(ctx, status)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("failed to read " + string(status) + " session")
	}
	return session, nil
}

func (s *SessionService) isStale(session *model.Session, now time.Time) bool {
	return s.staleAfter > 0 && now.Sub(session.StartTime) > s.staleAfter
}

func (s *SessionService) normalizeDate(date string) (string, *apperrors.APIError) {
	if date == "" {
		return s.now().In(s.location).Format(model.DateLayout), nil
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", apperrors.BadRequest("invalid_date", "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

func secondsBetween(from, to time.Time) int {
	seconds := int(to.Sub(from).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
