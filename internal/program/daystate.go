package program

import (
	"cmp"
	"slices"

	"github.com/2beens/progression/internal/clock"
)

// DayState is the derived, never persisted classification of what a program
// day currently permits.
type DayState string

const (
	DayStateAvailableToday          DayState = "AVAILABLE_TODAY"
	DayStateCompletedToday          DayState = "COMPLETED_TODAY"
	DayStateCompletedPast           DayState = "COMPLETED_PAST"
	DayStateSkipped                 DayState = "SKIPPED"
	DayStateRestDayActive           DayState = "REST_DAY_ACTIVE"
	DayStateActiveRecoveryAvailable DayState = "ACTIVE_RECOVERY_AVAILABLE"
	DayStateUpcoming                DayState = "UPCOMING"
	DayStateLocked                  DayState = "LOCKED"
)

func (s DayState) String() string {
	return string(s)
}

// CanStart reports whether the day can be started/completed in this state.
func (s DayState) CanStart() bool {
	return s == DayStateAvailableToday || s == DayStateActiveRecoveryAvailable
}

// CanSkip reports whether the day can be skipped in this state.
func (s DayState) CanSkip() bool {
	return s == DayStateAvailableToday || s == DayStateActiveRecoveryAvailable || s == DayStateRestDayActive
}

// DayContext is everything needed to resolve a single day's state.
// SessionCompletedToday is the Workout Session Lookup answer for this
// (enrollment, day); it only matters for the current WORKOUT day.
type DayContext struct {
	Day                   ProgramDay
	Enrollment            *Enrollment
	Completions           Completions
	Today                 clock.Window
	SessionCompletedToday bool
}

// ResolveDayState is pure and safe for concurrent use. First matching rule wins.
func ResolveDayState(c DayContext) DayState {
	e := c.Enrollment
	if e == nil || e.Status != StatusActive {
		return DayStateLocked
	}

	record, hasRecord := c.Completions.Get(c.Day.DayNumber)
	if hasRecord && c.Today.Contains(record.CompletionDate) {
		if record.Status.IsDone() {
			return DayStateCompletedToday
		}
		return DayStateSkipped
	}

	switch {
	case c.Day.DayNumber == e.CurrentDay:
		switch c.Day.DayType {
		case DayTypeRest:
			return DayStateRestDayActive
		case DayTypeActiveRecovery:
			return DayStateActiveRecoveryAvailable
		case DayTypeWorkout:
			if c.SessionCompletedToday {
				return DayStateCompletedToday
			}
			return DayStateAvailableToday
		default:
			return DayStateAvailableToday
		}
	case c.Day.DayNumber > e.CurrentDay:
		return DayStateUpcoming
	default:
		// past day
		if !hasRecord {
			return DayStateLocked
		}
		if record.Status.IsDone() {
			return DayStateCompletedPast
		}
		return DayStateSkipped
	}
}

// IsAnomaly reports a past day that resolved to LOCKED, i.e. the enrollment
// moved past it without a completion record.
func IsAnomaly(c DayContext, state DayState) bool {
	return state == DayStateLocked &&
		c.Enrollment != nil &&
		c.Enrollment.Status == StatusActive &&
		c.Day.DayNumber < c.Enrollment.CurrentDay
}

// NextAvailableDay scans days with a number >= the enrollment's current day in
// ascending order and returns the first one that can be started or skipped.
// sessionDone may be nil.
func NextAvailableDay(
	days []ProgramDay,
	enrollment *Enrollment,
	completions Completions,
	today clock.Window,
	sessionDone func(dayID int) bool,
) (ProgramDay, DayState, bool) {
	if enrollment == nil {
		return ProgramDay{}, DayStateLocked, false
	}

	for _, d := range sortedDays(days) {
		if d.DayNumber < enrollment.CurrentDay {
			continue
		}
		c := DayContext{
			Day:         d,
			Enrollment:  enrollment,
			Completions: completions,
			Today:       today,
		}
		if sessionDone != nil && d.DayNumber == enrollment.CurrentDay && d.DayType == DayTypeWorkout {
			c.SessionCompletedToday = sessionDone(d.ID)
		}
		state := ResolveDayState(c)
		if state.CanStart() || state.CanSkip() {
			return d, state, true
		}
	}

	return ProgramDay{}, DayStateLocked, false
}

func sortedDays(days []ProgramDay) []ProgramDay {
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b ProgramDay) int {
		return cmp.Compare(a.DayNumber, b.DayNumber)
	})
	return sorted
}
