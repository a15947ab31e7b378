package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/progression/internal/telemetry/tracing"

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

func (r *Repo) GetExerciseType(ctx context.Context, exerciseTypeID string) (_ ExerciseType, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.exercise_types.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_type_id", exerciseTypeID))

	var exerciseType ExerciseType
	err = r.db.QueryRow(
		ctx,
		`
			SELECT
			    id, muscle_group, name, description, created_at
			FROM exercise_type
			WHERE id = $1
		`,
		exerciseTypeID,
	).Scan(
		&exerciseType.ID,
		&exerciseType.MuscleGroup,
		&exerciseType.Name,
		&exerciseType.Description,
		&exerciseType.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ExerciseType{}, fmt.Errorf("exercise type %s: %w", exerciseTypeID, ErrExerciseTypeNotFound)
		}
		return ExerciseType{}, fmt.Errorf("exercise type [query row]: %w", err)
	}

	return exerciseType, nil
}

func (r *Repo) ListExerciseTypes(ctx context.Context, params ListParams) (_ []ExerciseType, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.exercise_types.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("muscle_group", params.MuscleGroup))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id, muscle_group, name, description, created_at
			FROM exercise_type
			WHERE ($1 = '' OR muscle_group = lower($1))
			  AND ($2 = '' OR id != $2)
			ORDER BY name
		`,
		params.MuscleGroup,
		params.ExcludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("exercise types [query]: %w", err)
	}

	exerciseTypes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExerciseType, error) {
		var et ExerciseType
		err := row.Scan(&et.ID, &et.MuscleGroup, &et.Name, &et.Description, &et.CreatedAt)
		return et, err
	})
	if err != nil {
		return nil, fmt.Errorf("exercise types [scan]: %w", err)
	}

	return exerciseTypes, nil
}

func (r *Repo) AddExerciseType(ctx context.Context, exerciseType ExerciseType) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.exercise_types.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO exercise_type (id, muscle_group, name, description, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
		exerciseType.ID,
		exerciseType.MuscleGroup,
		exerciseType.Name,
		exerciseType.Description,
		exerciseType.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add exercise type: %w", err)
	}

	return nil
}
