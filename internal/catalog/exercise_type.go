package catalog

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var ErrExerciseTypeNotFound = errors.New("exercise type not found")

var MuscleGroup = struct {
	Biceps    string
	Triceps   string
	Back      string
	Legs      string
	Chest     string
	Shoulders string
	Core      string
	Cardio    string
	Other     string
}{
	Biceps:    "biceps",
	Triceps:   "triceps",
	Back:      "back",
	Legs:      "legs",
	Chest:     "chest",
	Shoulders: "shoulders",
	Core:      "core",
	Cardio:    "cardio",
	Other:     "other",
}

var MuscleGroups = []string{
	MuscleGroup.Biceps,
	MuscleGroup.Triceps,
	MuscleGroup.Back,
	MuscleGroup.Legs,
	MuscleGroup.Chest,
	MuscleGroup.Shoulders,
	MuscleGroup.Core,
	MuscleGroup.Cardio,
	MuscleGroup.Other,
}

func IsValidMuscleGroup(mg string) bool {
	return slices.Contains(MuscleGroups, strings.ToLower(mg))
}

type ExerciseType struct {
	ID          string    `json:"id"`
	MuscleGroup string    `json:"muscleGroup"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SameMuscleGroup reports whether other can stand in for et.
func (et ExerciseType) SameMuscleGroup(other ExerciseType) bool {
	return strings.EqualFold(et.MuscleGroup, other.MuscleGroup)
}

type ListParams struct {
	MuscleGroup string
	ExcludeID   string
}
