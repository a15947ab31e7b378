package program_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/program"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// putActive stores an ACTIVE enrollment of the test user sitting at currentDay,
// with done records for every earlier day.
func (env *testEnv) putActive(t *testing.T, userID string, currentDay int) program.Enrollment {
	t.Helper()
	e := env.store.PutEnrollment(program.Enrollment{
		UserID:             userID,
		ProgramID:          testProgramID,
		EnrolledAt:         testStart.AddDate(0, 0, -currentDay),
		StartedAt:          &testStart,
		CurrentDay:         currentDay,
		Status:             program.StatusActive,
		TotalDaysCompleted: currentDay - 1,
	})
	for n := 1; n < currentDay; n++ {
		env.store.PutCompletion(program.Completion{
			EnrollmentID:     e.ID,
			ProgramDayID:     100 + n,
			ProgramDayNumber: n,
			CompletionDate:   testStart.AddDate(0, 0, n-currentDay),
			Status:           program.CompletionCompleted,
		})
	}
	return e
}

func (env *testEnv) enrollment(t *testing.T, id int) *program.Enrollment {
	t.Helper()
	e, err := env.store.GetEnrollment(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (env *testEnv) completions(t *testing.T, id int) program.Completions {
	t.Helper()
	records, err := env.store.ListCompletions(context.Background(), id)
	require.NoError(t, err)
	return program.NewCompletions(records)
}

func (env *testEnv) resolve(t *testing.T, e *program.Enrollment, dayNumber int) program.DayState {
	t.Helper()
	return program.ResolveDayState(program.DayContext{
		Day:         env.days[dayNumber-1],
		Enrollment:  e,
		Completions: env.completions(t, e.ID),
		Today:       clock.Today(env.clock),
	})
}

func TestController_Enroll(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, program.StatusEnrolled, e.Status)
	assert.Equal(t, 0, e.CurrentDay)
	assert.Nil(t, e.StartedAt)
	assert.Equal(t, testStart, e.EnrolledAt)
	require.NotNil(t, e.EstimatedCompletionDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *e.EstimatedCompletionDate)

	assert.Equal(t, []int{e.ID}, env.changes.ids())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterEnrollments.WithLabelValues("false")))
}

func TestController_Enroll_Errors(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	_, err := env.ctrl.Enroll(ctx, "", testProgramID, false)
	assert.ErrorIs(t, err, program.ErrInvalidArgument)

	_, err = env.ctrl.Enroll(ctx, testUserID, 404, false)
	assert.ErrorIs(t, err, program.ErrNotFound)

	env.store.AddProgram(program.Program{ID: 2, Name: "empty"}, nil)
	_, err = env.ctrl.Enroll(ctx, testUserID, 2, false)
	assert.ErrorIs(t, err, program.ErrInvalidState)
}

func TestController_Enroll_SecondActiveEnrollmentConflicts(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	first := env.startedEnrollment(t)

	_, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.ErrorIs(t, err, program.ErrConflict)
	var conflictErr *program.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, first.ID, conflictErr.EnrollmentID)

	assert.Equal(t, program.StatusActive, env.enrollment(t, first.ID).Status)

	// another user is not affected
	_, err = env.ctrl.Enroll(ctx, "user-2", testProgramID, false)
	require.NoError(t, err)
}

func TestController_Enroll_ReplaceActiveCancelsIt(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	first := env.startedEnrollment(t)
	second, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, true)
	require.NoError(t, err)

	assert.Equal(t, program.StatusCancelled, env.enrollment(t, first.ID).Status)
	assert.Equal(t, program.StatusEnrolled, second.Status)
	assert.ElementsMatch(t, []int{first.ID, second.ID}, env.changes.ids()[2:])
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterEnrollments.WithLabelValues("true")))
}

func TestController_AtMostOneActiveEnrollment(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, true)
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = env.ctrl.StartDay(ctx, e.ID)
			require.NoError(t, err)
		}

		all, err := env.store.ListUserEnrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, all, i+1)
		active := 0
		for _, e := range all {
			if e.Status.HoldsActiveSlot() {
				active++
			}
		}
		require.Equal(t, 1, active)
		assert.Equal(t, e.ID, all[0].ID, "newest first")
	}
}

func TestController_StartDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)

	env.clock.AdvanceDays(2)
	started, err := env.ctrl.StartDay(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusActive, started.Status)
	assert.Equal(t, 1, started.CurrentDay)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, env.clock.Now(), *started.StartedAt)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), *started.EstimatedCompletionDate)

	// idempotent while active
	env.clock.AdvanceDays(1)
	again, err := env.ctrl.StartDay(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, *started.StartedAt, *again.StartedAt)
	assert.Equal(t, 1, again.CurrentDay)

	_, err = env.ctrl.Pause(ctx, e.ID)
	require.NoError(t, err)
	_, err = env.ctrl.StartDay(ctx, e.ID)
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.StatusPaused, stateErr.Status)

	_, err = env.ctrl.StartDay(ctx, 404)
	assert.ErrorIs(t, err, program.ErrNotFound)
}

func TestController_CompleteWorkoutDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()

	e := env.putActive(t, testUserID, 5)
	assert.Equal(t, program.DayStateAvailableToday, env.resolve(t, &e, 5))

	res, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{
		EnrollmentID: e.ID,
		DayID:        105,
		DayNumber:    5,
		SessionID:    intPtr(77),
		Notes:        "felt strong",
	})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Enrollment.CurrentDay)
	assert.Equal(t, 5, res.Enrollment.TotalDaysCompleted)
	assert.Equal(t, program.DayStateCompletedToday, res.DayState)
	require.NotNil(t, res.Enrollment.LastActivityDate)
	assert.Equal(t, testStart, *res.Enrollment.LastActivityDate)

	stored := env.enrollment(t, e.ID)
	assert.Equal(t, 6, stored.CurrentDay)

	rec, ok := env.completions(t, e.ID).Get(5)
	require.True(t, ok)
	assert.Equal(t, program.CompletionCompleted, rec.Status)
	assert.Equal(t, 105, rec.ProgramDayID)
	assert.Equal(t, 77, *rec.SessionID)
	assert.Equal(t, "felt strong", rec.Notes)
	assert.Equal(t, testStart, rec.CompletionDate)

	assert.Equal(t, 5, stored.LongestStreak)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterDayActions.WithLabelValues("complete")))
}

func TestController_SkipRestDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e := env.putActive(t, testUserID, 5)
	state := env.resolve(t, &e, 5)
	require.Equal(t, program.DayStateRestDayActive, state)
	assert.True(t, state.CanSkip())
	assert.False(t, state.CanStart())

	_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateRestDayActive, stateErr.DayState)

	res, err := env.ctrl.SkipDay(ctx, program.SkipDayParams{EnrollmentID: e.ID, DayNumber: 5, Reason: "rest"})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Enrollment.CurrentDay)
	assert.Equal(t, 1, res.Enrollment.TotalDaysSkipped)
	assert.Equal(t, program.DayStateSkipped, res.DayState)

	rec, ok := env.completions(t, e.ID).Get(5)
	require.True(t, ok)
	assert.Equal(t, program.CompletionSkipped, rec.Status)
	assert.Equal(t, "rest", rec.SkipReason)
}

func TestController_DayActionsOutsideTheCurrentDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 5)

	tests := []struct {
		name      string
		dayNumber int
		want      program.DayState
	}{
		{"upcoming", 6, program.DayStateUpcoming},
		{"completed in the past", 3, program.DayStateCompletedPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: tt.dayNumber})
			var stateErr *program.InvalidStateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, tt.want, stateErr.DayState)

			_, err = env.ctrl.SkipDay(ctx, program.SkipDayParams{EnrollmentID: e.ID, DayNumber: tt.dayNumber})
			assert.ErrorIs(t, err, program.ErrInvalidState)
		})
	}

	_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 15})
	assert.ErrorIs(t, err, program.ErrNotFound)

	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayID: 101, DayNumber: 5})
	assert.ErrorIs(t, err, program.ErrInvalidArgument)

	assert.Equal(t, 5, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_DayActionsNeedActiveEnrollment(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)

	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 1})
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateLocked, stateErr.DayState)
}

func TestController_SessionFinishedToday(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 3)
	env.sessions.finish(103)

	// the session is done, skipping is no longer an option
	_, err := env.ctrl.SkipDay(ctx, program.SkipDayParams{EnrollmentID: e.ID, DayNumber: 3})
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateCompletedToday, stateErr.DayState)

	// and neither is completing it a second time
	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 3})
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateCompletedToday, stateErr.DayState)
	assert.Equal(t, "complete", stateErr.Action)

	assert.Equal(t, 3, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_CompleteSessionDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 3)

	res, err := env.ctrl.CompleteSessionDay(ctx, e.ID, 103, 55)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DayNumber)
	assert.Equal(t, 4, res.Enrollment.CurrentDay)
	assert.Equal(t, program.DayStateCompletedToday, res.DayState)

	records, err := env.store.ListCompletions(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].SessionID)
	assert.Equal(t, 55, *records[0].SessionID)
	assert.Equal(t, program.CompletionCompleted, records[0].Status)

	// a session for a day that is not current leaves the enrollment alone
	_, err = env.ctrl.CompleteSessionDay(ctx, e.ID, 106, 56)
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateLocked, stateErr.DayState)

	_, err = env.ctrl.CompleteSessionDay(ctx, e.ID, 999, 57)
	assert.ErrorIs(t, err, program.ErrNotFound)
	assert.Equal(t, 4, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_CompleteSameDayTwice(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 5)

	_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	require.NoError(t, err)

	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.DayStateCompletedToday, stateErr.DayState)

	// writing the same key again replaces the record
	replaced, err := env.store.UpsertCompletion(ctx, &program.Completion{
		EnrollmentID:     e.ID,
		ProgramDayID:     105,
		ProgramDayNumber: 5,
		CompletionDate:   testStart,
		Status:           program.CompletionPartial,
	})
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, program.CompletionCompleted, replaced.Status)

	records, err := env.store.ListCompletions(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, program.CompletionPartial, records[4].Status)
	assert.Equal(t, 6, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_CompleteLastDay(t *testing.T) {
	env := newTestEnv(t, buildDays(90, restOnDay5))
	ctx := context.Background()

	// day 90 is 90 % 7 = 6, a workout day
	e := env.putActive(t, testUserID, 90)

	res, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 90})
	require.NoError(t, err)
	assert.Equal(t, program.StatusCompleted, res.Enrollment.Status)
	assert.Equal(t, 90, res.Enrollment.CurrentDay)
	require.NotNil(t, res.Enrollment.ActualCompletionDate)
	assert.Equal(t, testStart, *res.Enrollment.ActualCompletionDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterProgramsCompleted))

	// advancing a completed enrollment changes nothing
	env.clock.AdvanceDays(1)
	for i := 0; i < 3; i++ {
		after, err := env.ctrl.Advance(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, program.StatusCompleted, after.Status)
		assert.Equal(t, 90, after.CurrentDay)
		assert.Equal(t, testStart, *after.ActualCompletionDate)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterProgramsCompleted))
}

func TestController_AdvanceNeverDecreasesCurrentDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()
	e := env.startedEnrollment(t)

	prev := e.CurrentDay
	for i := 0; i < 25; i++ {
		after, err := env.ctrl.Advance(ctx, e.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, after.CurrentDay, prev)
		require.LessOrEqual(t, after.CurrentDay, 14)
		prev = after.CurrentDay
	}

	final := env.enrollment(t, e.ID)
	assert.Equal(t, 14, final.CurrentDay)
	assert.Equal(t, program.StatusCompleted, final.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterProgramsCompleted))
	assert.Equal(t, 14.0, testutil.ToFloat64(env.metrics.CounterDayActions.WithLabelValues("advance")))
}

func TestController_AdvanceNeedsActiveEnrollment(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)
	_, err = env.ctrl.Advance(ctx, e.ID)
	assert.ErrorIs(t, err, program.ErrInvalidState)

	_, err = env.ctrl.StartDay(ctx, e.ID)
	require.NoError(t, err)
	_, err = env.ctrl.Pause(ctx, e.ID)
	require.NoError(t, err)
	_, err = env.ctrl.Advance(ctx, e.ID)
	assert.ErrorIs(t, err, program.ErrInvalidState)
	assert.Equal(t, 1, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_PauseResume(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()
	e := env.startedEnrollment(t)

	_, err := env.ctrl.Resume(ctx, e.ID)
	assert.ErrorIs(t, err, program.ErrInvalidState, "resume of an active enrollment")

	paused, err := env.ctrl.Pause(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusPaused, paused.Status)

	_, err = env.ctrl.Pause(ctx, e.ID)
	assert.ErrorIs(t, err, program.ErrInvalidState, "pause of a paused enrollment")

	env.clock.AdvanceDays(10)
	resumed, err := env.ctrl.Resume(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusActive, resumed.Status)
	assert.Equal(t, env.clock.Now(), *resumed.LastActivityDate)
	assert.Equal(t, time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC), *resumed.EstimatedCompletionDate)
	assert.Equal(t, 1, resumed.CurrentDay)
}

func TestController_PauseNeedsActive(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)

	_, err = env.ctrl.Pause(ctx, e.ID)
	var stateErr *program.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, program.StatusEnrolled, stateErr.Status)
	assert.Equal(t, "pause", stateErr.Action)
}

func TestController_ResumeAfterEnrollingElsewhere(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	first := env.startedEnrollment(t)
	_, err := env.ctrl.Pause(ctx, first.ID)
	require.NoError(t, err)

	// a paused enrollment does not hold the active slot
	second, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)

	_, err = env.ctrl.Resume(ctx, first.ID)
	var conflictErr *program.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, second.ID, conflictErr.EnrollmentID)
	assert.Equal(t, program.StatusPaused, env.enrollment(t, first.ID).Status)
}

func TestController_Cancel(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()

	e, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)

	cancelled, err := env.ctrl.Cancel(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusCancelled, cancelled.Status)

	notified := len(env.changes.ids())
	again, err := env.ctrl.Cancel(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusCancelled, again.Status)
	assert.Len(t, env.changes.ids(), notified, "no-op cancel does not notify")

	for _, action := range []func(context.Context, int) (*program.Enrollment, error){
		env.ctrl.StartDay, env.ctrl.Pause, env.ctrl.Resume, env.ctrl.Advance,
	} {
		_, err := action(ctx, e.ID)
		assert.ErrorIs(t, err, program.ErrInvalidState)
	}

	// re-enrolling creates a new row
	next, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, false)
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, next.ID)

	// a completed enrollment can be cancelled too
	done := env.putActive(t, "user-2", 14)
	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: done.ID, DayNumber: 14})
	require.NoError(t, err)
	_, err = env.ctrl.Cancel(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusCancelled, env.enrollment(t, done.ID).Status)
}

func TestController_StreakAfterSkip(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()
	e := env.startedEnrollment(t)

	env.completeThrough(t, e.ID, 4)
	// day 5 is a rest day
	res, err := env.ctrl.SkipDay(ctx, program.SkipDayParams{EnrollmentID: e.ID, DayNumber: 5})
	require.NoError(t, err)

	records, err := env.store.ListCompletions(ctx, e.ID)
	require.NoError(t, err)
	summary := program.Summarize(res.Enrollment, records, time.UTC)
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Equal(t, 4, summary.LongestStreak)
	assert.Equal(t, 4, res.Enrollment.LongestStreak)
	assert.Equal(t, 80.0, summary.CompletionRate)
}

func TestController_RemarkDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()

	// day 4 is current, days 1-3 were passed without any record
	e := env.store.PutEnrollment(program.Enrollment{
		UserID:     testUserID,
		ProgramID:  testProgramID,
		CurrentDay: 4,
		Status:     program.StatusActive,
	})
	require.Equal(t, program.DayStateLocked, env.resolve(t, &e, 2))

	res, err := env.ctrl.RemarkDay(ctx, program.RemarkDayParams{
		EnrollmentID: e.ID,
		DayNumber:    2,
		Status:       program.CompletionCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Enrollment.CurrentDay)
	assert.Equal(t, 1, res.Enrollment.TotalDaysCompleted)
	assert.Equal(t, program.DayStateCompletedToday, res.DayState)

	env.clock.AdvanceDays(1)
	res, err = env.ctrl.RemarkDay(ctx, program.RemarkDayParams{
		EnrollmentID: e.ID,
		DayNumber:    2,
		Status:       program.CompletionSkipped,
		Reason:       "was sick",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enrollment.TotalDaysCompleted)
	assert.Equal(t, 1, res.Enrollment.TotalDaysSkipped)
	assert.Equal(t, program.DayStateSkipped, res.DayState)

	rec, ok := env.completions(t, e.ID).Get(2)
	require.True(t, ok)
	assert.Equal(t, testStart, rec.CompletionDate, "re-marking keeps the original date")
	assert.Equal(t, "was sick", rec.SkipReason)

	_, err = env.ctrl.RemarkDay(ctx, program.RemarkDayParams{EnrollmentID: e.ID, DayNumber: 4, Status: program.CompletionCompleted})
	assert.ErrorIs(t, err, program.ErrInvalidState, "current day")

	_, err = env.ctrl.RemarkDay(ctx, program.RemarkDayParams{EnrollmentID: e.ID, DayNumber: 2, Status: "DONE"})
	assert.ErrorIs(t, err, program.ErrInvalidArgument)

	assert.Equal(t, 4, env.enrollment(t, e.ID).CurrentDay)
}

func TestController_RemarkLastDayOfCompletedEnrollment(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 14)

	_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 14})
	require.NoError(t, err)

	res, err := env.ctrl.RemarkDay(ctx, program.RemarkDayParams{EnrollmentID: e.ID, DayNumber: 14, Status: program.CompletionPartial})
	require.NoError(t, err)
	assert.Equal(t, program.StatusCompleted, res.Enrollment.Status)
	assert.Equal(t, 14, res.Enrollment.TotalDaysCompleted)
}

func TestController_Substitution(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	builder := program.NewWorkoutBuilder(env.store, testCatalog(), nil)

	e := env.putActive(t, testUserID, 10)
	other := env.putActive(t, "user-2", 10)

	sub, err := env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID:         e.ID,
		DayNumber:            12,
		OriginalExerciseID:   "squat",
		SubstituteExerciseID: "leg-press",
	})
	require.NoError(t, err)
	assert.NotZero(t, sub.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterSubstitutions.WithLabelValues("set")))

	assertSquatReplaced := func(enrollmentID int, replaced bool) {
		t.Helper()
		w, err := builder.BuildDayWorkout(ctx, enrollmentID, 12)
		require.NoError(t, err)
		require.Len(t, w.Exercises, 3)
		first := w.Exercises[0]
		if replaced {
			assert.Equal(t, "leg-press", first.ExerciseID)
			assert.Equal(t, "Leg press", first.Name)
			assert.True(t, first.Substituted)
			assert.Equal(t, "squat", first.OriginalExerciseID)
		} else {
			assert.Equal(t, "squat", first.ExerciseID)
			assert.False(t, first.Substituted)
		}
		assert.Equal(t, "bench", w.Exercises[1].ExerciseID)
	}

	assertSquatReplaced(e.ID, true)
	assertSquatReplaced(other.ID, false)

	for i := 0; i < 2; i++ {
		_, err = env.ctrl.Advance(ctx, e.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 12, env.enrollment(t, e.ID).CurrentDay)
	assertSquatReplaced(e.ID, true)

	_, err = env.ctrl.Advance(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, env.enrollment(t, e.ID).CurrentDay)
	assertSquatReplaced(e.ID, false)

	subs, err := env.store.ListSubstitutions(ctx, e.ID, 12)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestController_SubstitutionClearedOnCompletion(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 3)

	_, err := env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID: e.ID, DayNumber: 3, OriginalExerciseID: "bench", SubstituteExerciseID: "dips",
	})
	require.NoError(t, err)

	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 3})
	require.NoError(t, err)

	subs, err := env.store.ListSubstitutions(ctx, e.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestController_SubstitutionValidation(t *testing.T) {
	env := newTestEnv(t, buildDays(14, restOnDay5))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 3)

	tests := []struct {
		name    string
		params  program.SubstitutionParams
		wantErr error
	}{
		{
			name:    "different muscle group",
			params:  program.SubstitutionParams{DayNumber: 4, OriginalExerciseID: "squat", SubstituteExerciseID: "curl"},
			wantErr: program.ErrInvalidState,
		},
		{
			name:    "unknown substitute",
			params:  program.SubstitutionParams{DayNumber: 4, OriginalExerciseID: "squat", SubstituteExerciseID: "pistol"},
			wantErr: program.ErrNotFound,
		},
		{
			name:    "unknown original",
			params:  program.SubstitutionParams{DayNumber: 4, OriginalExerciseID: "pistol", SubstituteExerciseID: "squat"},
			wantErr: program.ErrNotFound,
		},
		{
			name:    "exercise replacing itself",
			params:  program.SubstitutionParams{DayNumber: 4, OriginalExerciseID: "squat", SubstituteExerciseID: "squat"},
			wantErr: program.ErrInvalidArgument,
		},
		{
			name:    "passed day",
			params:  program.SubstitutionParams{DayNumber: 2, OriginalExerciseID: "squat", SubstituteExerciseID: "leg-press"},
			wantErr: program.ErrInvalidState,
		},
		{
			name:    "rest day without routine",
			params:  program.SubstitutionParams{DayNumber: 5, OriginalExerciseID: "squat", SubstituteExerciseID: "leg-press"},
			wantErr: program.ErrInvalidState,
		},
		{
			name:    "exercise not in the day's routine",
			params:  program.SubstitutionParams{DayNumber: 4, OriginalExerciseID: "curl", SubstituteExerciseID: "hammer-curl"},
			wantErr: program.ErrInvalidArgument,
		},
		{
			name:    "day outside the program",
			params:  program.SubstitutionParams{DayNumber: 40, OriginalExerciseID: "squat", SubstituteExerciseID: "leg-press"},
			wantErr: program.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.EnrollmentID = e.ID
			_, err := env.ctrl.SetDaySubstitution(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID: e.ID, DayNumber: 4, OriginalExerciseID: "row", SubstituteExerciseID: "squat",
	})
	assert.ErrorIs(t, err, program.ErrInvalidState, "row is back, squat is legs")
}

func TestController_ClearDaySubstitution(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 3)

	_, err := env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID: e.ID, DayNumber: 4, OriginalExerciseID: "bench", SubstituteExerciseID: "dips",
	})
	require.NoError(t, err)

	// setting it again replaces the substitute
	_, err = env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID: e.ID, DayNumber: 4, OriginalExerciseID: "bench", SubstituteExerciseID: "dips",
	})
	require.NoError(t, err)
	subs, err := env.store.ListSubstitutions(ctx, e.ID, 4)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	key := program.SubstitutionKey{EnrollmentID: e.ID, DayNumber: 4, OriginalExerciseID: "bench"}
	removed, err := env.ctrl.ClearDaySubstitution(ctx, key)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = env.ctrl.ClearDaySubstitution(ctx, key)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = env.ctrl.ClearDaySubstitution(ctx, program.SubstitutionKey{EnrollmentID: 404, DayNumber: 4, OriginalExerciseID: "bench"})
	assert.ErrorIs(t, err, program.ErrNotFound)
}

func TestController_FailedCommandLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 5)
	_, err := env.ctrl.SetDaySubstitution(ctx, program.SubstitutionParams{
		EnrollmentID: e.ID, DayNumber: 5, OriginalExerciseID: "bench", SubstituteExerciseID: "dips",
	})
	require.NoError(t, err)
	notified := len(env.changes.ids())

	diskErr := errors.New("disk on fire")
	env.store.FailOn("UpdateEnrollment", diskErr)

	_, err = env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	require.ErrorIs(t, err, diskErr)
	var storeErr *program.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "complete", storeErr.Op)
	assert.False(t, storeErr.Retryable())

	// completion, counters and substitution clean-up were all rolled back
	stored := env.enrollment(t, e.ID)
	assert.Equal(t, 5, stored.CurrentDay)
	assert.Equal(t, 4, stored.TotalDaysCompleted)
	_, ok := env.completions(t, e.ID).Get(5)
	assert.False(t, ok)
	subs, err := env.store.ListSubstitutions(ctx, e.ID, 5)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Len(t, env.changes.ids(), notified)

	env.store.FailOn("UpdateEnrollment", nil)
	res, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Enrollment.CurrentDay)
}

func TestController_TimeoutIsRetryable(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 5)

	ctrl := program.NewController(program.ControllerParams{
		Store:        env.store,
		Clock:        env.clock,
		Metrics:      env.metrics,
		StoreTimeout: 20 * time.Millisecond,
	})
	env.store.SetLatency(50 * time.Millisecond)

	_, err := ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
	require.Error(t, err)
	assert.True(t, program.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	env.store.SetLatency(0)
	assert.Equal(t, 5, env.enrollment(t, e.ID).CurrentDay)
	_, ok := env.completions(t, e.ID).Get(5)
	assert.False(t, ok)
}

func TestController_ConcurrentCompletionsOfOneDay(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()
	e := env.putActive(t, testUserID, 5)

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ctrl.CompleteDay(ctx, program.CompleteDayParams{EnrollmentID: e.ID, DayNumber: 5})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, program.ErrInvalidState):
				rejected++
			default:
				t.Errorf("unexpected error: %s", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	stored := env.enrollment(t, e.ID)
	assert.Equal(t, 6, stored.CurrentDay)
	assert.Equal(t, 5, stored.TotalDaysCompleted)
}

func TestController_ConcurrentEnrollmentsOfOneUser(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(replace bool) {
			defer wg.Done()
			_, err := env.ctrl.Enroll(ctx, testUserID, testProgramID, replace)
			if err != nil && !errors.Is(err, program.ErrConflict) {
				t.Errorf("unexpected error: %s", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	all, err := env.store.ListUserEnrollments(ctx, testUserID)
	require.NoError(t, err)
	active := 0
	for _, e := range all {
		if e.Status.HoldsActiveSlot() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestController_IndependentEnrollmentsProgressInParallel(t *testing.T) {
	env := newTestEnv(t, buildDays(14, allWorkouts))
	ctx := context.Background()

	var ids []int
	for i := 0; i < 8; i++ {
		e := env.putActive(t, "user-"+strconv.Itoa(i), 1)
		ids = append(ids, e.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if _, err := env.ctrl.Advance(ctx, id); err != nil {
					t.Errorf("advance %d: %s", id, err)
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, 6, env.enrollment(t, id).CurrentDay)
	}
}
