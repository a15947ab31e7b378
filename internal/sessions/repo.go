package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Start(ctx context.Context, enrollmentID, programDayID int, startedAt time.Time) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("program_day_id", programDayID),
	)

	s := &Session{
		EnrollmentID: enrollmentID,
		ProgramDayID: programDayID,
		StartedAt:    startedAt,
	}
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_session (enrollment_id, program_day_id, started_at) VALUES ($1, $2, $3) RETURNING id`,
		enrollmentID, programDayID, startedAt,
	).Scan(&s.ID)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	span.SetAttributes(attribute.Int("session_id", s.ID))
	return s, nil
}

// Finish sets the finish time once. Finishing a finished session keeps the
// first finish time.
func (r *Repo) Finish(ctx context.Context, sessionID int, finishedAt time.Time) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session_id", sessionID))

	var s Session
	err = r.db.QueryRow(
		ctx,
		`
			UPDATE workout_session SET finished_at = COALESCE(finished_at, $2)
			WHERE id = $1
			RETURNING id, enrollment_id, program_day_id, started_at, finished_at
		`,
		sessionID, finishedAt,
	).Scan(&s.ID, &s.EnrollmentID, &s.ProgramDayID, &s.StartedAt, &s.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("finish session: %w", err)
	}

	return &s, nil
}

func (r *Repo) Get(ctx context.Context, sessionID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session_id", sessionID))

	var s Session
	err = r.db.QueryRow(
		ctx,
		`SELECT id, enrollment_id, program_day_id, started_at, finished_at FROM workout_session WHERE id = $1`,
		sessionID,
	).Scan(&s.ID, &s.EnrollmentID, &s.ProgramDayID, &s.StartedAt, &s.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// HasCompletedSessionToday reports a session for the pair finished inside
// [today.Start, today.End).
func (r *Repo) HasCompletedSessionToday(ctx context.Context, enrollmentID, programDayID int, today clock.Window) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.completed_today")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("program_day_id", programDayID),
	)

	var exists bool
	err = r.db.QueryRow(
		ctx,
		`
			SELECT EXISTS (
			    SELECT 1 FROM workout_session
			    WHERE enrollment_id = $1 AND program_day_id = $2
			      AND finished_at >= $3 AND finished_at < $4
			)
		`,
		enrollmentID, programDayID, today.Start, today.End,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("session lookup: %w", err)
	}

	return exists, nil
}
