package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clockko/focus/internal/model"
)

const sessionColumns = `id, kind, status, planned_duration, actual_duration, actual_seconds,
		        start_time, end_time, paused_at, paused_seconds, day, created_at, updated_at`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *SessionRepository) InsertSessionTx(ctx context.Context, tx *sql.Tx, session *model.Session) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO sessions (
			id, kind, status, planned_duration, actual_duration, actual_seconds,
			start_time, end_time, paused_at, paused_seconds, day, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		string(session.Kind),
		string(session.Status),
		session.PlannedDuration,
		session.ActualDuration,
		session.ActualSeconds,
		formatTime(session.StartTime),
		nullableTime(session.EndTime),
		nullableTime(session.PausedAt),
		session.PausedSeconds,
		nullableString(session.Day),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSessionTx(ctx context.Context, tx *sql.Tx, sessionID string) (*model.Session, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

// GetByStatus returns the session occupying the active or paused slot.
func (r *SessionRepository) GetByStatus(ctx context.Context, status model.SessionStatus) (*model.Session, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE status = ?
		 ORDER BY start_time DESC
		 LIMIT 1`,
		string(status),
	)
	return scanSession(row)
}

func (r *SessionRepository) GetByStatusTx(ctx context.Context, tx *sql.Tx, status model.SessionStatus) (*model.Session, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE status = ?
		 ORDER BY start_time DESC
		 LIMIT 1`,
		string(status),
	)
	return scanSession(row)
}

func (r *SessionRepository) UpdateSessionTx(ctx context.Context, tx *sql.Tx, session *model.Session) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE sessions
		 SET status = ?,
		     planned_duration = ?,
			 actual_duration = ?,
			 actual_seconds = ?,
			 end_time = ?,
			 paused_at = ?,
			 paused_seconds = ?,
			 day = ?,
			 updated_at = ?
		 WHERE id = ?`,
		string(session.Status),
		session.PlannedDuration,
		session.ActualDuration,
		session.ActualSeconds,
		nullableTime(session.EndTime),
		nullableTime(session.PausedAt),
		session.PausedSeconds,
		nullableString(session.Day),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 ORDER BY start_time DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, limit)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListClosedByDayTx returns the terminal sessions filed under day, oldest
// close first.
func (r *SessionRepository) ListClosedByDayTx(ctx context.Context, tx *sql.Tx, day string) ([]model.Session, error) {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE day = ? AND status IN (?, ?)
		 ORDER BY end_time ASC`,
		day,
		string(model.StatusCompleted),
		string(model.StatusStopped),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions by day: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions by day: %w", err)
	}
	return sessions, nil
}

// AddToAggregateTx folds one closed session into its day's totals, creating
// the row on the first close of the day.
func (r *SessionRepository) AddToAggregateTx(ctx context.Context, tx *sql.Tx, session *model.Session, now time.Time) error {
	focusSessions, focusSeconds, breakSeconds := 0, 0, 0
	switch session.Kind {
	case model.KindFocus:
		focusSessions = 1
		focusSeconds = session.ActualSeconds
	case model.KindBreak:
		breakSeconds = session.ActualSeconds
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO daily_aggregates (
			date, total_focus_sessions, total_focus_seconds, total_break_seconds, updated_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_focus_sessions = total_focus_sessions + excluded.total_focus_sessions,
			total_focus_seconds = total_focus_seconds + excluded.total_focus_seconds,
			total_break_seconds = total_break_seconds + excluded.total_break_seconds,
			updated_at = excluded.updated_at`,
		session.Day,
		focusSessions,
		focusSeconds,
		breakSeconds,
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("add to daily aggregate: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetAggregateTx(ctx context.Context, tx *sql.Tx, date string) (*model.DailyAggregate, error) {
	aggregate := model.DailyAggregate{Date: date}
	err := tx.QueryRowContext(
		ctx,
		`SELECT total_focus_sessions, total_focus_seconds, total_break_seconds
		 FROM daily_aggregates
		 WHERE date = ?`,
		date,
	).Scan(&aggregate.TotalFocusSessions, &aggregate.TotalFocusSeconds, &aggregate.TotalBreakSeconds)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get daily aggregate: %w", err)
	}
	return &aggregate, nil
}

func (r *SessionRepository) ReplaceAggregateTx(ctx context.Context, tx *sql.Tx, aggregate *model.DailyAggregate, now time.Time) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO daily_aggregates (
			date, total_focus_sessions, total_focus_seconds, total_break_seconds, updated_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_focus_sessions = excluded.total_focus_sessions,
			total_focus_seconds = excluded.total_focus_seconds,
			total_break_seconds = excluded.total_break_seconds,
			updated_at = excluded.updated_at`,
		aggregate.Date,
		aggregate.TotalFocusSessions,
		aggregate.TotalFocusSeconds,
		aggregate.TotalBreakSeconds,
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("replace daily aggregate: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.Session, error) {
	session := model.Session{}
	var kind string
	var status string
	var startTime string
	var endTime sql.NullString
	var pausedAt sql.NullString
	var day sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&session.ID,
		&kind,
		&status,
		&session.PlannedDuration,
		&session.ActualDuration,
		&session.ActualSeconds,
		&startTime,
		&endTime,
		&pausedAt,
		&session.PausedSeconds,
		&day,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.Kind = model.SessionKind(kind)
	session.Status = model.SessionStatus(status)
	if day.Valid {
		session.Day = day.String
	}

	parsedStartTime, err := parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse session start_time: %w", err)
	}
	session.StartTime = parsedStartTime

	if endTime.Valid {
		parsedEndTime, parseErr := parseTime(endTime.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session end_time: %w", parseErr)
		}
		session.EndTime = &parsedEndTime
	}

	if pausedAt.Valid {
		parsedPausedAt, parseErr := parseTime(pausedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session paused_at: %w", parseErr)
		}
		session.PausedAt = &parsedPausedAt
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	session.UpdatedAt = parsedUpdatedAt

	return &session, nil
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
