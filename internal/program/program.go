package program

import (
	"fmt"
	"time"
)

// Program is an immutable training plan template.
type Program struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Goal              string    `json:"goal"`
	ExperienceLevel   string    `json:"experienceLevel"`
	DurationWeeks     int       `json:"durationWeeks"`
	WorkoutsPerWeek   int       `json:"workoutsPerWeek"`
	RequiredEquipment []string  `json:"requiredEquipment"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ProgramDay is one scheduled slot (1..N) of a program.
type ProgramDay struct {
	ID        int     `json:"id"`
	ProgramID int     `json:"programId"`
	DayNumber int     `json:"dayNumber"`
	DayOfWeek int     `json:"dayOfWeek"`
	DayType   DayType `json:"dayType"`
	RoutineID *int    `json:"routineId,omitempty"`
}

// WeekNumber is derived from the day number: days 1-7 are week 1, and so on.
func (d ProgramDay) WeekNumber() int {
	if d.DayNumber <= 0 {
		return 0
	}
	return (d.DayNumber + 6) / 7
}

// DayType can be one of:
//   - WORKOUT
//   - REST
//   - ACTIVE_RECOVERY
//   - OPTIONAL
//   - DELOAD
type DayType string

const (
	DayTypeWorkout        DayType = "WORKOUT"
	DayTypeRest           DayType = "REST"
	DayTypeActiveRecovery DayType = "ACTIVE_RECOVERY"
	DayTypeOptional       DayType = "OPTIONAL"
	DayTypeDeload         DayType = "DELOAD"
)

func (dt DayType) String() string {
	return string(dt)
}

func (dt DayType) IsValid() bool {
	switch dt {
	case DayTypeWorkout,
		DayTypeRest,
		DayTypeActiveRecovery,
		DayTypeOptional,
		DayTypeDeload:
		return true
	default:
		return false
	}
}

// MaxDayNumber returns the highest day number defined in days, 0 for none.
func MaxDayNumber(days []ProgramDay) int {
	maxDay := 0
	for _, d := range days {
		if d.DayNumber > maxDay {
			maxDay = d.DayNumber
		}
	}
	return maxDay
}

// ValidateDays checks the per-program invariants of a day list: day numbers
// are unique and positive, day types are known and day of week is 1-7.
func ValidateDays(days []ProgramDay) error {
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d.DayNumber < 1 {
			return fmt.Errorf("day %d: day number must be positive", d.ID)
		}
		if seen[d.DayNumber] {
			return fmt.Errorf("duplicate day number %d", d.DayNumber)
		}
		seen[d.DayNumber] = true
		if !d.DayType.IsValid() {
			return fmt.Errorf("day %d: invalid day type [%s]", d.DayNumber, d.DayType)
		}
		if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
			return fmt.Errorf("day %d: day of week must be 1-7", d.DayNumber)
		}
	}
	return nil
}
