package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/progression/internal/db"
	"github.com/2beens/progression/internal/program"
	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// oneActiveIndex is the partial unique index backing the
// one-ENROLLED-or-ACTIVE-enrollment-per-user rule.
const oneActiveIndex = "enrollment_one_active_per_user"

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements program.Store on PostgreSQL.
type Store struct {
	*repo
	pool *pgxpool.Pool
}

var _ program.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		repo: &repo{q: pool},
		pool: pool,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo program.Repo) error) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.tx")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repo{q: tx})
	})
}

// repo runs every statement on q, which is either the pool or an open
// transaction.
type repo struct {
	q querier
}

func (r *repo) GetProgram(ctx context.Context, programID int) (_ *program.Program, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("program_id", programID))

	var p program.Program
	err = r.q.QueryRow(
		ctx,
		`
			SELECT
			    id, name, goal, experience_level, duration_weeks, workouts_per_week, required_equipment, created_at
			FROM program
			WHERE id = $1
		`,
		programID,
	).Scan(
		&p.ID,
		&p.Name,
		&p.Goal,
		&p.ExperienceLevel,
		&p.DurationWeeks,
		&p.WorkoutsPerWeek,
		&p.RequiredEquipment,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("program %d: %w", programID, program.ErrNotFound)
		}
		return nil, fmt.Errorf("program [query row]: %w", err)
	}

	return &p, nil
}

func (r *repo) ListProgramDays(ctx context.Context, programID int) (_ []program.ProgramDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.days")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("program_id", programID))

	rows, err := r.q.Query(
		ctx,
		`
			SELECT id, program_id, day_number, day_of_week, day_type, routine_id
			FROM program_day
			WHERE program_id = $1
			ORDER BY day_number
		`,
		programID,
	)
	if err != nil {
		return nil, fmt.Errorf("program days [query]: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (program.ProgramDay, error) {
		var d program.ProgramDay
		err := row.Scan(&d.ID, &d.ProgramID, &d.DayNumber, &d.DayOfWeek, &d.DayType, &d.RoutineID)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("program days [collect]: %w", err)
	}

	return days, nil
}

func (r *repo) ListRoutineExercises(ctx context.Context, routineID int) (_ []program.RoutineExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.routine")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("routine_id", routineID))

	rows, err := r.q.Query(
		ctx,
		`
			SELECT routine_id, position, exercise_id, sets, reps
			FROM routine_exercise
			WHERE routine_id = $1
			ORDER BY position
		`,
		routineID,
	)
	if err != nil {
		return nil, fmt.Errorf("routine exercises [query]: %w", err)
	}

	exercises, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (program.RoutineExercise, error) {
		var re program.RoutineExercise
		err := row.Scan(&re.RoutineID, &re.Position, &re.ExerciseID, &re.Sets, &re.Reps)
		return re, err
	})
	if err != nil {
		return nil, fmt.Errorf("routine exercises [collect]: %w", err)
	}

	return exercises, nil
}

const enrollmentColumns = `
	id, user_id, program_id, enrolled_at, started_at, current_day, status,
	total_days_completed, total_days_skipped, longest_streak,
	last_activity_date, estimated_completion_date, actual_completion_date
`

func scanEnrollment(row pgx.Row) (program.Enrollment, error) {
	var e program.Enrollment
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ProgramID,
		&e.EnrolledAt,
		&e.StartedAt,
		&e.CurrentDay,
		&e.Status,
		&e.TotalDaysCompleted,
		&e.TotalDaysSkipped,
		&e.LongestStreak,
		&e.LastActivityDate,
		&e.EstimatedCompletionDate,
		&e.ActualCompletionDate,
	)
	return e, err
}

func collectEnrollment(row pgx.CollectableRow) (program.Enrollment, error) {
	return scanEnrollment(row)
}

func (r *repo) GetEnrollment(ctx context.Context, enrollmentID int) (_ *program.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	return r.getEnrollment(ctx, enrollmentID, "")
}

// LockEnrollment takes a row lock that is held until the transaction ends.
func (r *repo) LockEnrollment(ctx context.Context, enrollmentID int) (_ *program.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.lock")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	return r.getEnrollment(ctx, enrollmentID, "FOR UPDATE")
}

func (r *repo) getEnrollment(ctx context.Context, enrollmentID int, lockClause string) (*program.Enrollment, error) {
	e, err := scanEnrollment(r.q.QueryRow(
		ctx,
		`SELECT `+enrollmentColumns+` FROM enrollment WHERE id = $1 `+lockClause,
		enrollmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, program.ErrNotFound)
		}
		return nil, fmt.Errorf("enrollment [query row]: %w", err)
	}
	return &e, nil
}

func (r *repo) LockActiveEnrollments(ctx context.Context, userID string) (_ []program.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.lock_active")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.q.Query(
		ctx,
		`SELECT `+enrollmentColumns+`
			FROM enrollment
			WHERE user_id = $1 AND status IN ('ENROLLED', 'ACTIVE')
			ORDER BY id
			FOR UPDATE`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("active enrollments [query]: %w", err)
	}

	enrollments, err := pgx.CollectRows(rows, collectEnrollment)
	if err != nil {
		return nil, fmt.Errorf("active enrollments [collect]: %w", err)
	}
	return enrollments, nil
}

func (r *repo) ListUserEnrollments(ctx context.Context, userID string) (_ []program.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.q.Query(
		ctx,
		`SELECT `+enrollmentColumns+`
			FROM enrollment
			WHERE user_id = $1
			ORDER BY enrolled_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("user enrollments [query]: %w", err)
	}

	enrollments, err := pgx.CollectRows(rows, collectEnrollment)
	if err != nil {
		return nil, fmt.Errorf("user enrollments [collect]: %w", err)
	}
	return enrollments, nil
}

func (r *repo) CreateEnrollment(ctx context.Context, e *program.Enrollment) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", e.UserID),
		attribute.Int("program_id", e.ProgramID),
	)

	err = r.q.QueryRow(
		ctx,
		`
			INSERT INTO enrollment (
			    user_id, program_id, enrolled_at, started_at, current_day, status,
			    total_days_completed, total_days_skipped, longest_streak,
			    last_activity_date, estimated_completion_date, actual_completion_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`,
		e.UserID, e.ProgramID, e.EnrolledAt, e.StartedAt, e.CurrentDay, e.Status,
		e.TotalDaysCompleted, e.TotalDaysSkipped, e.LongestStreak,
		e.LastActivityDate, e.EstimatedCompletionDate, e.ActualCompletionDate,
	).Scan(&e.ID)
	if err != nil {
		if pkg.IsUniqueViolationOn(err, oneActiveIndex) {
			return &program.ConflictError{UserID: e.UserID}
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	span.SetAttributes(attribute.Int("enrollment_id", e.ID))
	return nil
}

func (r *repo) UpdateEnrollment(ctx context.Context, e *program.Enrollment) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollment.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", e.ID))

	tag, err := r.q.Exec(
		ctx,
		`
			UPDATE enrollment SET
			    started_at = $2, current_day = $3, status = $4,
			    total_days_completed = $5, total_days_skipped = $6, longest_streak = $7,
			    last_activity_date = $8, estimated_completion_date = $9, actual_completion_date = $10
			WHERE id = $1
		`,
		e.ID, e.StartedAt, e.CurrentDay, e.Status,
		e.TotalDaysCompleted, e.TotalDaysSkipped, e.LongestStreak,
		e.LastActivityDate, e.EstimatedCompletionDate, e.ActualCompletionDate,
	)
	if err != nil {
		if pkg.IsUniqueViolationOn(err, oneActiveIndex) {
			return &program.ConflictError{UserID: e.UserID, EnrollmentID: e.ID}
		}
		return fmt.Errorf("update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("enrollment %d: %w", e.ID, program.ErrNotFound)
	}

	return nil
}

const completionColumns = `
	id, enrollment_id, program_day_id, program_day_number, completion_date,
	status, session_id, skip_reason, notes
`

func collectCompletion(row pgx.CollectableRow) (program.Completion, error) {
	var c program.Completion
	err := row.Scan(
		&c.ID,
		&c.EnrollmentID,
		&c.ProgramDayID,
		&c.ProgramDayNumber,
		&c.CompletionDate,
		&c.Status,
		&c.SessionID,
		&c.SkipReason,
		&c.Notes,
	)
	return c, err
}

// UpsertCompletion relies on the (enrollment_id, program_day_number) unique
// constraint. The previous row is read under the enrollment row lock the
// caller already holds, so nothing can slip in between.
func (r *repo) UpsertCompletion(ctx context.Context, c *program.Completion) (_ *program.Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.completion.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", c.EnrollmentID),
		attribute.Int("day_number", c.ProgramDayNumber),
		attribute.String("status", c.Status.String()),
	)

	rows, err := r.q.Query(
		ctx,
		`SELECT `+completionColumns+`
			FROM program_day_completion
			WHERE enrollment_id = $1 AND program_day_number = $2`,
		c.EnrollmentID, c.ProgramDayNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("previous completion [query]: %w", err)
	}
	previous, err := pgx.CollectRows(rows, collectCompletion)
	if err != nil {
		return nil, fmt.Errorf("previous completion [collect]: %w", err)
	}

	err = r.q.QueryRow(
		ctx,
		`
			INSERT INTO program_day_completion (
			    enrollment_id, program_day_id, program_day_number, completion_date,
			    status, session_id, skip_reason, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (enrollment_id, program_day_number) DO UPDATE SET
			    program_day_id = EXCLUDED.program_day_id,
			    completion_date = EXCLUDED.completion_date,
			    status = EXCLUDED.status,
			    session_id = EXCLUDED.session_id,
			    skip_reason = EXCLUDED.skip_reason,
			    notes = EXCLUDED.notes
			RETURNING id
		`,
		c.EnrollmentID, c.ProgramDayID, c.ProgramDayNumber, c.CompletionDate,
		c.Status, c.SessionID, c.SkipReason, c.Notes,
	).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert completion: %w", err)
	}

	if len(previous) == 0 {
		return nil, nil
	}
	return &previous[0], nil
}

func (r *repo) ListCompletions(ctx context.Context, enrollmentID int) (_ []program.Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.completion.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	rows, err := r.q.Query(
		ctx,
		`SELECT `+completionColumns+`
			FROM program_day_completion
			WHERE enrollment_id = $1
			ORDER BY program_day_number`,
		enrollmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("completions [query]: %w", err)
	}

	completions, err := pgx.CollectRows(rows, collectCompletion)
	if err != nil {
		return nil, fmt.Errorf("completions [collect]: %w", err)
	}
	return completions, nil
}

func (r *repo) UpsertSubstitution(ctx context.Context, sub *program.DaySubstitution) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.substitution.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", sub.EnrollmentID),
		attribute.Int("day_number", sub.DayNumber),
	)

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	err = r.q.QueryRow(
		ctx,
		`
			INSERT INTO day_substitution (
			    enrollment_id, day_number, original_exercise_id, substitute_exercise_id, created_at
			) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (enrollment_id, day_number, original_exercise_id) DO UPDATE SET
			    substitute_exercise_id = EXCLUDED.substitute_exercise_id,
			    created_at = EXCLUDED.created_at
			RETURNING id
		`,
		sub.EnrollmentID, sub.DayNumber, sub.OriginalExerciseID, sub.SubstituteExerciseID, sub.CreatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("upsert substitution: %w", err)
	}
	return nil
}

func (r *repo) DeleteSubstitution(ctx context.Context, key program.SubstitutionKey) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.substitution.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", key.EnrollmentID),
		attribute.Int("day_number", key.DayNumber),
	)

	tag, err := r.q.Exec(
		ctx,
		`DELETE FROM day_substitution
			WHERE enrollment_id = $1 AND day_number = $2 AND original_exercise_id = $3`,
		key.EnrollmentID, key.DayNumber, key.OriginalExerciseID,
	)
	if err != nil {
		return false, fmt.Errorf("delete substitution: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) ListSubstitutions(ctx context.Context, enrollmentID, dayNumber int) (_ []program.DaySubstitution, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.substitution.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("day_number", dayNumber),
	)

	rows, err := r.q.Query(
		ctx,
		`
			SELECT id, enrollment_id, day_number, original_exercise_id, substitute_exercise_id, created_at
			FROM day_substitution
			WHERE enrollment_id = $1 AND day_number = $2
			ORDER BY original_exercise_id
		`,
		enrollmentID, dayNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("substitutions [query]: %w", err)
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (program.DaySubstitution, error) {
		var s program.DaySubstitution
		err := row.Scan(&s.ID, &s.EnrollmentID, &s.DayNumber, &s.OriginalExerciseID, &s.SubstituteExerciseID, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("substitutions [collect]: %w", err)
	}
	return subs, nil
}

func (r *repo) ClearSubstitutions(ctx context.Context, enrollmentID, dayNumber int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.substitution.clear")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("day_number", dayNumber),
	)

	tag, err := r.q.Exec(
		ctx,
		`DELETE FROM day_substitution WHERE enrollment_id = $1 AND day_number = $2`,
		enrollmentID, dayNumber,
	)
	if err != nil {
		return 0, fmt.Errorf("clear substitutions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
