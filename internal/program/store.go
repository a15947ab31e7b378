package program

import (
	"context"
)

// ProgramStore reads the immutable program definitions.
type ProgramStore interface {
	GetProgram(ctx context.Context, programID int) (*Program, error)
	ListProgramDays(ctx context.Context, programID int) ([]ProgramDay, error)
	ListRoutineExercises(ctx context.Context, routineID int) ([]RoutineExercise, error)
}

// EnrollmentStore persists enrollments and their lifecycle status.
type EnrollmentStore interface {
	GetEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error)
	// LockEnrollment reads the enrollment and holds it against concurrent
	// writers until the surrounding transaction ends.
	LockEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error)
	// LockActiveEnrollments reads (and locks) the user's ENROLLED/ACTIVE enrollments.
	LockActiveEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	ListUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *Enrollment) error
	UpdateEnrollment(ctx context.Context, enrollment *Enrollment) error
}

// CompletionStore persists one completion record per (enrollment, day number).
type CompletionStore interface {
	// UpsertCompletion inserts the record or replaces the existing one with
	// the same (EnrollmentID, ProgramDayNumber) and returns the replaced one.
	UpsertCompletion(ctx context.Context, completion *Completion) (replaced *Completion, err error)
	ListCompletions(ctx context.Context, enrollmentID int) ([]Completion, error)
}

// SubstitutionStore persists day-scoped exercise overrides.
type SubstitutionStore interface {
	UpsertSubstitution(ctx context.Context, sub *DaySubstitution) error
	DeleteSubstitution(ctx context.Context, key SubstitutionKey) (bool, error)
	ListSubstitutions(ctx context.Context, enrollmentID, dayNumber int) ([]DaySubstitution, error)
	ClearSubstitutions(ctx context.Context, enrollmentID, dayNumber int) (int, error)
}

type Repo interface {
	ProgramStore
	EnrollmentStore
	CompletionStore
	SubstitutionStore
}

// Store is a Repo that can run a unit of work in a single transaction.
// Everything fn writes through the given Repo is committed together, or not
// at all when fn returns an error.
type Store interface {
	Repo
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repo) error) error
}

type programOverlay struct {
	ProgramStore
	EnrollmentStore
	CompletionStore
	SubstitutionStore
}

// WithProgramStore returns a Repo that serves program reads from programs
// and everything else from repo.
func WithProgramStore(repo Repo, programs ProgramStore) Repo {
	return programOverlay{
		ProgramStore:      programs,
		EnrollmentStore:   repo,
		CompletionStore:   repo,
		SubstitutionStore: repo,
	}
}
