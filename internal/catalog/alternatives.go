package catalog

import (
	"context"
	"fmt"
)

type exerciseTypeReader interface {
	GetExerciseType(ctx context.Context, exerciseTypeID string) (ExerciseType, error)
	ListExerciseTypes(ctx context.Context, params ListParams) ([]ExerciseType, error)
}

// Alternatives lists the exercises that can replace exerciseTypeID: every
// other exercise type of the same muscle group.
func Alternatives(ctx context.Context, repo exerciseTypeReader, exerciseTypeID string) ([]ExerciseType, error) {
	original, err := repo.GetExerciseType(ctx, exerciseTypeID)
	if err != nil {
		return nil, err
	}

	alternatives, err := repo.ListExerciseTypes(ctx, ListParams{
		MuscleGroup: original.MuscleGroup,
		ExcludeID:   original.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("list alternatives of %s: %w", exerciseTypeID, err)
	}

	return alternatives, nil
}
