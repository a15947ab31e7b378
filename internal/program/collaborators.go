package program

import (
	"context"

	"github.com/2beens/progression/internal/catalog"
	"github.com/2beens/progression/internal/clock"
)

// SessionLookup answers whether a workout session for the (enrollment, day)
// pair was finished inside the given local day window.
type SessionLookup interface {
	HasCompletedSessionToday(ctx context.Context, enrollmentID, programDayID int, today clock.Window) (bool, error)
}

// ExerciseCatalog is the read-only exercise metadata source.
type ExerciseCatalog interface {
	GetExerciseType(ctx context.Context, exerciseTypeID string) (catalog.ExerciseType, error)
}

// Progression is what is known of a user's history on one exercise.
type Progression struct {
	UserID     string
	ExerciseID string
}

// ExerciseTarget is the prescribed volume of one exercise in a routine.
type ExerciseTarget struct {
	ExerciseID string
	Sets       int
	Reps       int
}

// WeightSuggester proposes the next working weight in kilos. A zero weight
// with a nil error means there is no suggestion.
type WeightSuggester interface {
	SuggestNextWeight(ctx context.Context, progression Progression, target ExerciseTarget) (float64, error)
}

// ChangeListener is notified after a mutation of the enrollment is committed.
type ChangeListener interface {
	EnrollmentChanged(ctx context.Context, enrollmentID int)
}

type noSessions struct{}

func (noSessions) HasCompletedSessionToday(context.Context, int, int, clock.Window) (bool, error) {
	return false, nil
}
