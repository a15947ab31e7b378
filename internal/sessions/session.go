package sessions

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("workout session not found")
	// ErrUnknownReference is returned when the enrollment or the program day
	// of a new session does not exist.
	ErrUnknownReference = errors.New("unknown enrollment or program day")
)

// Session is one workout performed for a program day of an enrollment.
type Session struct {
	ID           int        `json:"id"`
	EnrollmentID int        `json:"enrollmentId"`
	ProgramDayID int        `json:"programDayId"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

func (s Session) Finished() bool {
	return s.FinishedAt != nil
}
