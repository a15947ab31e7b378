package program

import "time"

// Enrollment is one user's relationship to one program.
type Enrollment struct {
	ID                      int              `json:"id"`
	UserID                  string           `json:"userId"`
	ProgramID               int              `json:"programId"`
	EnrolledAt              time.Time        `json:"enrolledAt"`
	StartedAt               *time.Time       `json:"startedAt,omitempty"`
	CurrentDay              int              `json:"currentDay"`
	Status                  EnrollmentStatus `json:"status"`
	TotalDaysCompleted      int              `json:"totalDaysCompleted"`
	TotalDaysSkipped        int              `json:"totalDaysSkipped"`
	LongestStreak           int              `json:"longestStreak"`
	LastActivityDate        *time.Time       `json:"lastActivityDate,omitempty"`
	EstimatedCompletionDate *time.Time       `json:"estimatedCompletionDate,omitempty"`
	ActualCompletionDate    *time.Time       `json:"actualCompletionDate,omitempty"`
}

// EnrollmentStatus can be one of:
//   - ENROLLED (created, no day started yet)
//   - ACTIVE
//   - PAUSED
//   - COMPLETED
//   - CANCELLED
type EnrollmentStatus string

const (
	StatusEnrolled  EnrollmentStatus = "ENROLLED"
	StatusActive    EnrollmentStatus = "ACTIVE"
	StatusPaused    EnrollmentStatus = "PAUSED"
	StatusCompleted EnrollmentStatus = "COMPLETED"
	StatusCancelled EnrollmentStatus = "CANCELLED"
)

func (s EnrollmentStatus) String() string {
	return string(s)
}

func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case StatusEnrolled,
		StatusActive,
		StatusPaused,
		StatusCompleted,
		StatusCancelled:
		return true
	default:
		return false
	}
}

// HoldsActiveSlot reports whether the status counts towards the
// one-active-enrollment-per-user limit.
func (s EnrollmentStatus) HoldsActiveSlot() bool {
	return s == StatusEnrolled || s == StatusActive
}

func timePtr(t time.Time) *time.Time {
	return &t
}
