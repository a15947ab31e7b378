package program

import (
	"cmp"
	"slices"
	"time"

	"github.com/2beens/progression/internal/clock"
)

// Summary is the derived progress summary of one enrollment.
type Summary struct {
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	CompletionRate float64 `json:"completionRate"`
	Completed      int     `json:"completed"`
	Skipped        int     `json:"skipped"`
	Recorded       int     `json:"recorded"`
}

// CurrentStreak counts consecutive local calendar days, walking back from the
// day of the most recent record, on which the day's last record was a done
// status. A skipped day or a day without records ends the streak, so the
// streak is 0 right after a skip.
func CurrentStreak(records []Completion, loc *time.Location) int {
	days := dayOutcomes(records, loc)
	streak := 0
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].done {
			break
		}
		if i < len(days)-1 && !days[i].day.AddDate(0, 0, 1).Equal(days[i+1].day) {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of consecutive done calendar days found
// in the history.
func LongestStreak(records []Completion, loc *time.Location) int {
	longest, run := 0, 0
	days := dayOutcomes(records, loc)
	for i, d := range days {
		switch {
		case !d.done:
			run = 0
		case i > 0 && days[i-1].done && days[i-1].day.AddDate(0, 0, 1).Equal(d.day):
			run++
		default:
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

type dayOutcome struct {
	day  time.Time
	done bool
}

// dayOutcomes reduces the records to one outcome per local calendar day, the
// one of the day's last record, ordered by day.
func dayOutcomes(records []Completion, loc *time.Location) []dayOutcome {
	if loc == nil {
		loc = time.UTC
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Completion) int {
		return a.CompletionDate.Compare(b.CompletionDate)
	})

	var days []dayOutcome
	for _, r := range sorted {
		day := clock.StartOfDay(r.CompletionDate, loc)
		if n := len(days); n > 0 && days[n-1].day.Equal(day) {
			days[n-1].done = r.Status.IsDone()
			continue
		}
		days = append(days, dayOutcome{day: day, done: r.Status.IsDone()})
	}
	return days
}

// CompletionRate is done records / all records * 100. An empty history gives 0.
func CompletionRate(records []Completion) float64 {
	if len(records) == 0 {
		return 0
	}
	done := 0
	for _, r := range records {
		if r.Status.IsDone() {
			done++
		}
	}
	return float64(done) / float64(len(records)) * 100
}

// Summarize derives the summary from the completion history. The longest
// streak is the running maximum stored on the enrollment, raised to what the
// history shows if that is higher.
func Summarize(enrollment *Enrollment, records []Completion, loc *time.Location) Summary {
	s := Summary{
		CurrentStreak:  CurrentStreak(records, loc),
		CompletionRate: CompletionRate(records),
		Recorded:       len(records),
	}
	for _, r := range records {
		switch {
		case r.Status.IsDone():
			s.Completed++
		case r.Status == CompletionSkipped:
			s.Skipped++
		}
	}

	s.LongestStreak = max(s.CurrentStreak, LongestStreak(records, loc))
	if enrollment != nil {
		s.LongestStreak = max(s.LongestStreak, enrollment.LongestStreak)
	}

	return s
}

func sortCompletionsByDay(records []Completion) {
	slices.SortFunc(records, func(a, b Completion) int {
		return cmp.Compare(a.ProgramDayNumber, b.ProgramDayNumber)
	})
}
