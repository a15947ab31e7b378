package program

import "time"

// Completion is the recorded outcome of one program day of one enrollment.
// There is at most one per (EnrollmentID, ProgramDayNumber); a later write
// for the same key replaces the earlier one.
type Completion struct {
	ID               int              `json:"id"`
	EnrollmentID     int              `json:"enrollmentId"`
	ProgramDayID     int              `json:"programDayId"`
	ProgramDayNumber int              `json:"programDayNumber"`
	CompletionDate   time.Time        `json:"completionDate"`
	Status           CompletionStatus `json:"status"`
	SessionID        *int             `json:"sessionId,omitempty"`
	SkipReason       string           `json:"skipReason,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// CompletionStatus can be one of:
//   - COMPLETED
//   - SKIPPED
//   - PARTIAL
//   - SUBSTITUTED
type CompletionStatus string

const (
	CompletionCompleted   CompletionStatus = "COMPLETED"
	CompletionSkipped     CompletionStatus = "SKIPPED"
	CompletionPartial     CompletionStatus = "PARTIAL"
	CompletionSubstituted CompletionStatus = "SUBSTITUTED"
)

func (s CompletionStatus) String() string {
	return string(s)
}

func (s CompletionStatus) IsValid() bool {
	switch s {
	case CompletionCompleted,
		CompletionSkipped,
		CompletionPartial,
		CompletionSubstituted:
		return true
	default:
		return false
	}
}

// IsDone reports whether the day was trained: fully, partially or with
// substituted exercises.
func (s CompletionStatus) IsDone() bool {
	return s == CompletionCompleted || s == CompletionPartial || s == CompletionSubstituted
}

// Completions indexes completion records by program day number.
type Completions map[int]Completion

func NewCompletions(records []Completion) Completions {
	c := make(Completions, len(records))
	for _, r := range records {
		c[r.ProgramDayNumber] = r
	}
	return c
}

func (c Completions) Get(dayNumber int) (Completion, bool) {
	r, ok := c[dayNumber]
	return r, ok
}
