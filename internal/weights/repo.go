package weights

import (
	"context"
	"fmt"

	"github.com/2beens/progression/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// Repo reads the exercise_log history. Rows are written by the set logging
// side of the app, this service only reads them.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Recent returns up to limit logs of the user's exercise, newest first.
func (r *Repo) Recent(ctx context.Context, userID, exerciseID string, limit int) (_ []Log, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weights.recent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("exercise_id", exerciseID),
	)

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, exercise_id, kilos, reps, created_at
			FROM exercise_log
			WHERE user_id = $1 AND exercise_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		`,
		userID, exerciseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("exercise logs [query]: %w", err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Log, error) {
		var l Log
		err := row.Scan(&l.ID, &l.UserID, &l.ExerciseID, &l.Kilos, &l.Reps, &l.CreatedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("exercise logs [collect]: %w", err)
	}
	return logs, nil
}
