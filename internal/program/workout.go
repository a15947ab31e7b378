package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/progression/internal/catalog"
	"github.com/2beens/progression/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// RoutineExercise is one prescribed exercise of a routine, in order.
type RoutineExercise struct {
	RoutineID  int    `json:"routineId"`
	Position   int    `json:"position"`
	ExerciseID string `json:"exerciseId"`
	Sets       int    `json:"sets"`
	Reps       int    `json:"reps"`
}

type WorkoutExercise struct {
	Position           int      `json:"position"`
	ExerciseID         string   `json:"exerciseId"`
	Name               string   `json:"name,omitempty"`
	MuscleGroup        string   `json:"muscleGroup,omitempty"`
	Sets               int      `json:"sets"`
	Reps               int      `json:"reps"`
	Substituted        bool     `json:"substituted"`
	OriginalExerciseID string   `json:"originalExerciseId,omitempty"`
	SuggestedKilos     *float64 `json:"suggestedKilos,omitempty"`
}

// DayWorkout is the exercise list of one program day of one enrollment.
type DayWorkout struct {
	EnrollmentID int               `json:"enrollmentId"`
	Day          ProgramDay        `json:"day"`
	Exercises    []WorkoutExercise `json:"exercises"`
}

// WorkoutBuilder builds a day's exercise list with the enrollment's
// substitutions for that day number applied.
type WorkoutBuilder struct {
	repo      Repo
	catalog   ExerciseCatalog
	suggester WeightSuggester
}

// NewWorkoutBuilder returns a builder. exerciseCatalog and suggester may be nil.
func NewWorkoutBuilder(repo Repo, exerciseCatalog ExerciseCatalog, suggester WeightSuggester) *WorkoutBuilder {
	return &WorkoutBuilder{
		repo:      repo,
		catalog:   exerciseCatalog,
		suggester: suggester,
	}
}

func (b *WorkoutBuilder) BuildDayWorkout(ctx context.Context, enrollmentID, dayNumber int) (_ *DayWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.workout.build")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("day_number", dayNumber),
	)

	enrollment, err := b.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, wrapStoreErr("get enrollment", err)
	}
	days, err := b.repo.ListProgramDays(ctx, enrollment.ProgramID)
	if err != nil {
		return nil, wrapStoreErr("list program days", err)
	}
	day, ok := findDay(days, dayNumber)
	if !ok {
		return nil, notFound("program day", dayNumber)
	}

	workout := &DayWorkout{
		EnrollmentID: enrollmentID,
		Day:          day,
		Exercises:    []WorkoutExercise{},
	}
	if day.RoutineID == nil {
		return workout, nil
	}

	routine, err := b.repo.ListRoutineExercises(ctx, *day.RoutineID)
	if err != nil {
		return nil, wrapStoreErr("list routine exercises", err)
	}
	subs, err := b.repo.ListSubstitutions(ctx, enrollmentID, dayNumber)
	if err != nil {
		return nil, wrapStoreErr("list substitutions", err)
	}
	substitutes := make(map[string]string, len(subs))
	for _, s := range subs {
		substitutes[s.OriginalExerciseID] = s.SubstituteExerciseID
	}

	for _, re := range routine {
		we := WorkoutExercise{
			Position:   re.Position,
			ExerciseID: re.ExerciseID,
			Sets:       re.Sets,
			Reps:       re.Reps,
		}
		if substitute, ok := substitutes[re.ExerciseID]; ok {
			we.ExerciseID = substitute
			we.Substituted = true
			we.OriginalExerciseID = re.ExerciseID
		}

		if err := b.describe(ctx, &we); err != nil {
			return nil, err
		}
		b.suggest(ctx, enrollment.UserID, &we)

		workout.Exercises = append(workout.Exercises, we)
	}

	return workout, nil
}

func (b *WorkoutBuilder) describe(ctx context.Context, we *WorkoutExercise) error {
	if b.catalog == nil {
		return nil
	}
	et, err := b.catalog.GetExerciseType(ctx, we.ExerciseID)
	if err != nil {
		if errors.Is(err, catalog.ErrExerciseTypeNotFound) {
			// routine points to an exercise no longer in the catalog, keep the bare id
			log.Warnf("workout build: exercise type [%s] not in catalog", we.ExerciseID)
			return nil
		}
		return fmt.Errorf("describe exercise %s: %w", we.ExerciseID, err)
	}
	we.Name = et.Name
	we.MuscleGroup = et.MuscleGroup
	return nil
}

// suggest is best effort: a failing suggester leaves the exercise without a weight.
func (b *WorkoutBuilder) suggest(ctx context.Context, userID string, we *WorkoutExercise) {
	if b.suggester == nil {
		return
	}
	kilos, err := b.suggester.SuggestNextWeight(
		ctx,
		Progression{UserID: userID, ExerciseID: we.ExerciseID},
		ExerciseTarget{ExerciseID: we.ExerciseID, Sets: we.Sets, Reps: we.Reps},
	)
	if err != nil {
		log.Errorf("workout build: suggest weight for [%s]: %s", we.ExerciseID, err)
		return
	}
	if kilos > 0 {
		we.SuggestedKilos = &kilos
	}
}

func findDay(days []ProgramDay, dayNumber int) (ProgramDay, bool) {
	for _, d := range days {
		if d.DayNumber == dayNumber {
			return d, true
		}
	}
	return ProgramDay{}, false
}

func findDayByID(days []ProgramDay, id int) (ProgramDay, bool) {
	for _, d := range days {
		if d.ID == id {
			return d, true
		}
	}
	return ProgramDay{}, false
}
