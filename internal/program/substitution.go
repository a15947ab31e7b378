package program

import "time"

// DaySubstitution swaps one exercise of a day's routine for another. It is
// scoped to an enrollment and an absolute day number and is dropped when the
// enrollment moves past that day.
type DaySubstitution struct {
	ID                   int       `json:"id"`
	EnrollmentID         int       `json:"enrollmentId"`
	DayNumber            int       `json:"dayNumber"`
	OriginalExerciseID   string    `json:"originalExerciseId"`
	SubstituteExerciseID string    `json:"substituteExerciseId"`
	CreatedAt            time.Time `json:"createdAt"`
}

// SubstitutionKey identifies a single override.
type SubstitutionKey struct {
	EnrollmentID       int
	DayNumber          int
	OriginalExerciseID string
}

func (s DaySubstitution) Key() SubstitutionKey {
	return SubstitutionKey{
		EnrollmentID:       s.EnrollmentID,
		DayNumber:          s.DayNumber,
		OriginalExerciseID: s.OriginalExerciseID,
	}
}
