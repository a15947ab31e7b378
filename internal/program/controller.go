package program

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/2beens/progression/internal/catalog"
	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/telemetry/metrics"
	"github.com/2beens/progression/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const defaultStoreTimeout = 5 * time.Second

type ControllerParams struct {
	Store        Store
	Clock        clock.Clock
	Sessions     SessionLookup   // optional
	Catalog      ExerciseCatalog // optional, substitutions are not validated without it
	Metrics      *metrics.Manager
	StoreTimeout time.Duration
	Listeners    []ChangeListener
}

// Controller is the only component that mutates enrollments, completions and
// substitutions. Every command runs as one transaction, and commands for the
// same enrollment never run concurrently.
type Controller struct {
	store     Store
	clock     clock.Clock
	sessions  SessionLookup
	catalog   ExerciseCatalog
	metrics   *metrics.Manager
	timeout   time.Duration
	listeners []ChangeListener

	enrollmentLocks *keyedLocks[int]
	userLocks       *keyedLocks[string]
}

func NewController(params ControllerParams) *Controller {
	c := &Controller{
		store:           params.Store,
		clock:           params.Clock,
		sessions:        params.Sessions,
		catalog:         params.Catalog,
		metrics:         params.Metrics,
		timeout:         params.StoreTimeout,
		listeners:       params.Listeners,
		enrollmentLocks: newKeyedLocks[int](),
		userLocks:       newKeyedLocks[string](),
	}
	if c.sessions == nil {
		c.sessions = noSessions{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultStoreTimeout
	}
	return c
}

type CompleteDayParams struct {
	EnrollmentID int
	DayID        int // optional, must match DayNumber when set
	DayNumber    int
	SessionID    *int
	Notes        string
}

type SkipDayParams struct {
	EnrollmentID int
	DayID        int // optional, must match DayNumber when set
	DayNumber    int
	Reason       string
}

type RemarkDayParams struct {
	EnrollmentID int
	DayNumber    int
	Status       CompletionStatus
	Reason       string
	Notes        string
}

type SubstitutionParams struct {
	EnrollmentID         int
	DayNumber            int
	OriginalExerciseID   string
	SubstituteExerciseID string
}

// DayResult is the outcome of a day command: the updated enrollment and the
// state the acted-on day resolves to afterwards.
type DayResult struct {
	Enrollment *Enrollment `json:"enrollment"`
	DayNumber  int         `json:"dayNumber"`
	DayState   DayState    `json:"dayState"`
}

type txFunc func(ctx context.Context, repo Repo) error

// Enroll creates a new ENROLLED enrollment. When the user already holds an
// ENROLLED or ACTIVE enrollment the call fails with a ConflictError, unless
// replaceActive is set, in which case those enrollments are cancelled in the
// same transaction.
func (c *Controller) Enroll(ctx context.Context, userID string, programID int, replaceActive bool) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.enroll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("program_id", programID),
		attribute.Bool("replace_active", replaceActive),
	)

	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", ErrInvalidArgument)
	}

	var (
		created   *Enrollment
		cancelled []int
	)
	lock := func(ctx context.Context) (func(), error) {
		return c.userLocks.Lock(ctx, userID)
	}
	err = c.exec(ctx, "enroll", lock, func(ctx context.Context, repo Repo) error {
		created, cancelled = nil, nil

		if _, err := repo.GetProgram(ctx, programID); err != nil {
			return err
		}
		days, err := repo.ListProgramDays(ctx, programID)
		if err != nil {
			return err
		}
		maxDay := MaxDayNumber(days)
		if maxDay == 0 {
			return &InvalidStateError{Action: "enroll", Reason: fmt.Sprintf("program %d has no days", programID)}
		}

		active, err := repo.LockActiveEnrollments(ctx, userID)
		if err != nil {
			return err
		}
		if len(active) > 0 && !replaceActive {
			return &ConflictError{UserID: userID, EnrollmentID: active[0].ID}
		}

		for _, e := range active {
			e.Status = StatusCancelled
			if err := repo.UpdateEnrollment(ctx, &e); err != nil {
				return err
			}
			cancelled = append(cancelled, e.ID)
		}

		now := c.clock.Now()
		created = &Enrollment{
			UserID:                  userID,
			ProgramID:               programID,
			EnrolledAt:              now,
			CurrentDay:              0,
			Status:                  StatusEnrolled,
			EstimatedCompletionDate: timePtr(c.estimateCompletion(now, maxDay-1)),
		}
		return repo.CreateEnrollment(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.CounterEnrollments.WithLabelValues(strconv.FormatBool(len(cancelled) > 0)).Inc()
	c.notify(ctx, append(cancelled, created.ID)...)
	log.Infof("user [%s] enrolled in program [%d]: enrollment [%d], cancelled %v", userID, programID, created.ID, cancelled)

	return created, nil
}

// StartDay activates an ENROLLED enrollment and moves it to day 1. It is a
// no-op for an already ACTIVE enrollment.
func (c *Controller) StartDay(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.start_day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	var (
		enrollment *Enrollment
		changed    bool
	)
	err = c.execForEnrollment(ctx, "start_day", enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		enrollment, changed = e, false

		switch e.Status {
		case StatusActive:
			return nil
		case StatusEnrolled:
		default:
			return &InvalidStateError{Action: "start", EnrollmentID: e.ID, Status: e.Status}
		}

		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}

		now := c.clock.Now()
		if e.StartedAt == nil {
			e.StartedAt = timePtr(now)
		}
		e.Status = StatusActive
		if e.CurrentDay == 0 {
			e.CurrentDay = 1
		}
		e.LastActivityDate = timePtr(now)
		e.EstimatedCompletionDate = timePtr(c.estimateCompletion(now, MaxDayNumber(days)-e.CurrentDay))
		changed = true

		return repo.UpdateEnrollment(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.notify(ctx, enrollmentID)
		log.Debugf("enrollment [%d] started at day %d", enrollmentID, enrollment.CurrentDay)
	}
	return enrollment, nil
}

// CompleteDay records the day as COMPLETED and advances the enrollment. The
// day must currently be startable.
func (c *Controller) CompleteDay(ctx context.Context, params CompleteDayParams) (_ *DayResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.complete_day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", params.EnrollmentID),
		attribute.Int("day_number", params.DayNumber),
	)

	action := dayAction{
		command:   "complete",
		dayID:     params.DayID,
		dayNumber: params.DayNumber,
		allowed:   DayState.CanStart,
		record: func(day ProgramDay, now time.Time) Completion {
			return Completion{
				EnrollmentID:     params.EnrollmentID,
				ProgramDayID:     day.ID,
				ProgramDayNumber: day.DayNumber,
				CompletionDate:   now,
				Status:           CompletionCompleted,
				SessionID:        params.SessionID,
				Notes:            params.Notes,
			}
		},
	}
	return c.recordDay(ctx, params.EnrollmentID, action)
}

// CompleteSessionDay completes the program day a workout session was
// performed for. It runs before the session is marked finished, so the same
// startable gate as CompleteDay applies.
func (c *Controller) CompleteSessionDay(ctx context.Context, enrollmentID, programDayID, sessionID int) (_ *DayResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.complete_session_day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", enrollmentID),
		attribute.Int("program_day_id", programDayID),
		attribute.Int("session_id", sessionID),
	)

	action := dayAction{
		command: "complete",
		dayID:   programDayID,
		allowed: DayState.CanStart,
		record: func(day ProgramDay, now time.Time) Completion {
			return Completion{
				EnrollmentID:     enrollmentID,
				ProgramDayID:     day.ID,
				ProgramDayNumber: day.DayNumber,
				CompletionDate:   now,
				Status:           CompletionCompleted,
				SessionID:        &sessionID,
			}
		},
	}
	return c.recordDay(ctx, enrollmentID, action)
}

// SkipDay records the day as SKIPPED and advances the enrollment. The day
// must currently be skippable.
func (c *Controller) SkipDay(ctx context.Context, params SkipDayParams) (_ *DayResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.skip_day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", params.EnrollmentID),
		attribute.Int("day_number", params.DayNumber),
	)

	action := dayAction{
		command:   "skip",
		dayID:     params.DayID,
		dayNumber: params.DayNumber,
		allowed:   DayState.CanSkip,
		record: func(day ProgramDay, now time.Time) Completion {
			return Completion{
				EnrollmentID:     params.EnrollmentID,
				ProgramDayID:     day.ID,
				ProgramDayNumber: day.DayNumber,
				CompletionDate:   now,
				Status:           CompletionSkipped,
				SkipReason:       params.Reason,
			}
		},
	}
	return c.recordDay(ctx, params.EnrollmentID, action)
}

type dayAction struct {
	command string
	dayID   int
	// zero resolves the day by dayID alone
	dayNumber int
	allowed   func(DayState) bool
	record    func(day ProgramDay, now time.Time) Completion
}

func (c *Controller) recordDay(ctx context.Context, enrollmentID int, action dayAction) (*DayResult, error) {
	var (
		result       *DayResult
		completedNow bool
	)
	err := c.execForEnrollment(ctx, action.command, enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}
		var (
			day ProgramDay
			ok  bool
		)
		if action.dayNumber == 0 {
			if day, ok = findDayByID(days, action.dayID); !ok {
				return notFound("program day", action.dayID)
			}
		} else if day, ok = findDay(days, action.dayNumber); !ok {
			return notFound("program day", action.dayNumber)
		}
		if action.dayID != 0 && action.dayID != day.ID {
			return fmt.Errorf("day id %d does not match day number %d: %w", action.dayID, action.dayNumber, ErrInvalidArgument)
		}
		records, err := repo.ListCompletions(ctx, e.ID)
		if err != nil {
			return err
		}

		now := c.clock.Now()
		today := clock.DayWindow(now, c.clock.Location())
		dc := DayContext{
			Day:         day,
			Enrollment:  e,
			Completions: NewCompletions(records),
			Today:       today,
		}
		if isSessionDay(day, e) {
			if dc.SessionCompletedToday, err = c.sessions.HasCompletedSessionToday(ctx, e.ID, day.ID, today); err != nil {
				return fmt.Errorf("session lookup: %w", err)
			}
		}
		if state := ResolveDayState(dc); !action.allowed(state) {
			return &InvalidStateError{
				Action:       action.command,
				EnrollmentID: e.ID,
				DayNumber:    day.DayNumber,
				DayState:     state,
			}
		}

		record := action.record(day, now)
		replaced, err := repo.UpsertCompletion(ctx, &record)
		if err != nil {
			return err
		}
		applyRecordDelta(e, replaced, record.Status)
		records = replaceRecord(records, record)
		c.raiseLongestStreak(e, records)
		if record.Status.IsDone() {
			e.LastActivityDate = timePtr(now)
		}

		if completedNow, err = c.advance(ctx, repo, e, MaxDayNumber(days), now); err != nil {
			return err
		}
		if err := repo.UpdateEnrollment(ctx, e); err != nil {
			return err
		}

		result = &DayResult{
			Enrollment: e,
			DayNumber:  day.DayNumber,
			DayState: ResolveDayState(DayContext{
				Day:         day,
				Enrollment:  e,
				Completions: NewCompletions(records),
				Today:       today,
			}),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.CounterDayActions.WithLabelValues(action.command).Inc()
	if completedNow {
		c.metrics.CounterProgramsCompleted.Inc()
		log.Infof("enrollment [%d] completed its program", enrollmentID)
	}
	c.notify(ctx, enrollmentID)

	return result, nil
}

// Advance moves the enrollment to its next day, or marks it COMPLETED when it
// is on the last day. Advancing a COMPLETED enrollment is a no-op.
func (c *Controller) Advance(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.advance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	var (
		enrollment   *Enrollment
		changed      bool
		completedNow bool
	)
	err = c.execForEnrollment(ctx, "advance", enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		enrollment, changed, completedNow = e, false, false
		if e.Status == StatusCompleted {
			return nil
		}

		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}
		if completedNow, err = c.advance(ctx, repo, e, MaxDayNumber(days), c.clock.Now()); err != nil {
			return err
		}
		changed = true
		return repo.UpdateEnrollment(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.metrics.CounterDayActions.WithLabelValues("advance").Inc()
		c.notify(ctx, enrollmentID)
	}
	if completedNow {
		c.metrics.CounterProgramsCompleted.Inc()
		log.Infof("enrollment [%d] completed its program", enrollmentID)
	}
	return enrollment, nil
}

// advance mutates e in place; the caller persists it. currentDay only ever
// grows, and on the last day the status flips to COMPLETED instead.
func (c *Controller) advance(ctx context.Context, repo Repo, e *Enrollment, maxDay int, now time.Time) (completedNow bool, err error) {
	switch e.Status {
	case StatusCompleted:
		return false, nil
	case StatusActive:
	default:
		return false, &InvalidStateError{Action: "advance", EnrollmentID: e.ID, Status: e.Status}
	}

	vacated := e.CurrentDay
	if e.CurrentDay < maxDay {
		e.CurrentDay++
	} else {
		e.Status = StatusCompleted
		e.ActualCompletionDate = timePtr(now)
		completedNow = true
	}

	cleared, err := repo.ClearSubstitutions(ctx, e.ID, vacated)
	if err != nil {
		return false, err
	}
	if cleared > 0 {
		log.Debugf("enrollment [%d]: cleared %d substitutions of day %d", e.ID, cleared, vacated)
	}

	return completedNow, nil
}

func (c *Controller) Pause(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.pause")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	var enrollment *Enrollment
	err = c.execForEnrollment(ctx, "pause", enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if e.Status != StatusActive {
			return &InvalidStateError{Action: "pause", EnrollmentID: e.ID, Status: e.Status}
		}
		e.Status = StatusPaused
		enrollment = e
		return repo.UpdateEnrollment(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, enrollmentID)
	return enrollment, nil
}

// Resume reactivates a PAUSED enrollment. It fails with a ConflictError when
// the user enrolled elsewhere in the meantime.
func (c *Controller) Resume(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.resume")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	var enrollment *Enrollment
	err = c.execForEnrollment(ctx, "resume", enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if e.Status != StatusPaused {
			return &InvalidStateError{Action: "resume", EnrollmentID: e.ID, Status: e.Status}
		}

		active, err := repo.LockActiveEnrollments(ctx, e.UserID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return &ConflictError{UserID: e.UserID, EnrollmentID: active[0].ID}
		}

		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}

		now := c.clock.Now()
		e.Status = StatusActive
		e.LastActivityDate = timePtr(now)
		e.EstimatedCompletionDate = timePtr(c.estimateCompletion(now, MaxDayNumber(days)-e.CurrentDay))
		enrollment = e
		return repo.UpdateEnrollment(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, enrollmentID)
	return enrollment, nil
}

// Cancel moves the enrollment to CANCELLED from any status. Cancelling twice
// is a no-op.
func (c *Controller) Cancel(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.cancel")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	var (
		enrollment *Enrollment
		changed    bool
	)
	err = c.execForEnrollment(ctx, "cancel", enrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		enrollment, changed = e, false
		if e.Status == StatusCancelled {
			return nil
		}
		e.Status = StatusCancelled
		changed = true
		return repo.UpdateEnrollment(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.notify(ctx, enrollmentID)
		log.Debugf("enrollment [%d] cancelled", enrollmentID)
	}
	return enrollment, nil
}

// RemarkDay replaces the record of an already passed day. Counters follow
// the status change, currentDay never moves. The original completion date is
// kept when the day had a record.
func (c *Controller) RemarkDay(ctx context.Context, params RemarkDayParams) (_ *DayResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.remark_day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", params.EnrollmentID),
		attribute.Int("day_number", params.DayNumber),
		attribute.String("status", params.Status.String()),
	)

	if !params.Status.IsValid() {
		return nil, fmt.Errorf("completion status [%s]: %w", params.Status, ErrInvalidArgument)
	}

	var result *DayResult
	err = c.execForEnrollment(ctx, "remark", params.EnrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, params.EnrollmentID)
		if err != nil {
			return err
		}
		switch e.Status {
		case StatusActive, StatusPaused, StatusCompleted:
		default:
			return &InvalidStateError{Action: "remark", EnrollmentID: e.ID, DayNumber: params.DayNumber, Status: e.Status}
		}

		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}
		day, ok := findDay(days, params.DayNumber)
		if !ok {
			return notFound("program day", params.DayNumber)
		}
		passed := day.DayNumber < e.CurrentDay || (e.Status == StatusCompleted && day.DayNumber <= e.CurrentDay)
		if !passed {
			return &InvalidStateError{
				Action:       "remark",
				EnrollmentID: e.ID,
				DayNumber:    day.DayNumber,
				Reason:       "only passed days can be re-marked",
			}
		}

		records, err := repo.ListCompletions(ctx, e.ID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		record := Completion{
			EnrollmentID:     e.ID,
			ProgramDayID:     day.ID,
			ProgramDayNumber: day.DayNumber,
			CompletionDate:   now,
			Status:           params.Status,
			Notes:            params.Notes,
		}
		if prev, ok := NewCompletions(records).Get(day.DayNumber); ok {
			record.CompletionDate = prev.CompletionDate
			record.SessionID = prev.SessionID
		}
		if params.Status == CompletionSkipped {
			record.SkipReason = params.Reason
		}

		replaced, err := repo.UpsertCompletion(ctx, &record)
		if err != nil {
			return err
		}
		applyRecordDelta(e, replaced, record.Status)
		records = replaceRecord(records, record)
		c.raiseLongestStreak(e, records)
		if err := repo.UpdateEnrollment(ctx, e); err != nil {
			return err
		}

		result = &DayResult{
			Enrollment: e,
			DayNumber:  day.DayNumber,
			DayState: ResolveDayState(DayContext{
				Day:         day,
				Enrollment:  e,
				Completions: NewCompletions(records),
				Today:       clock.DayWindow(now, c.clock.Location()),
			}),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.CounterDayActions.WithLabelValues("remark").Inc()
	c.notify(ctx, params.EnrollmentID)
	return result, nil
}

// SetDaySubstitution swaps an exercise of the given day's routine for this
// enrollment only. Both exercises must exist and target the same muscle
// group, and the day must not have passed yet.
func (c *Controller) SetDaySubstitution(ctx context.Context, params SubstitutionParams) (_ *DaySubstitution, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.set_substitution")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", params.EnrollmentID),
		attribute.Int("day_number", params.DayNumber),
		attribute.String("original", params.OriginalExerciseID),
		attribute.String("substitute", params.SubstituteExerciseID),
	)

	if params.OriginalExerciseID == "" || params.SubstituteExerciseID == "" {
		return nil, fmt.Errorf("original and substitute exercise ids are required: %w", ErrInvalidArgument)
	}
	if params.OriginalExerciseID == params.SubstituteExerciseID {
		return nil, fmt.Errorf("exercise %s cannot substitute itself: %w", params.OriginalExerciseID, ErrInvalidArgument)
	}
	if err := c.validateSubstitute(ctx, params); err != nil {
		return nil, err
	}

	var sub *DaySubstitution
	err = c.execForEnrollment(ctx, "set_substitution", params.EnrollmentID, func(ctx context.Context, repo Repo) error {
		e, err := repo.LockEnrollment(ctx, params.EnrollmentID)
		if err != nil {
			return err
		}
		switch e.Status {
		case StatusEnrolled, StatusActive, StatusPaused:
		default:
			return &InvalidStateError{Action: "substitute", EnrollmentID: e.ID, DayNumber: params.DayNumber, Status: e.Status}
		}
		if params.DayNumber < max(e.CurrentDay, 1) {
			return &InvalidStateError{
				Action:       "substitute",
				EnrollmentID: e.ID,
				DayNumber:    params.DayNumber,
				Reason:       "day already passed",
			}
		}

		days, err := repo.ListProgramDays(ctx, e.ProgramID)
		if err != nil {
			return err
		}
		day, ok := findDay(days, params.DayNumber)
		if !ok {
			return notFound("program day", params.DayNumber)
		}
		if day.RoutineID == nil {
			return &InvalidStateError{
				Action:       "substitute",
				EnrollmentID: e.ID,
				DayNumber:    day.DayNumber,
				Reason:       fmt.Sprintf("%s day has no routine", day.DayType),
			}
		}
		routine, err := repo.ListRoutineExercises(ctx, *day.RoutineID)
		if err != nil {
			return err
		}
		inRoutine := slices.ContainsFunc(routine, func(re RoutineExercise) bool {
			return re.ExerciseID == params.OriginalExerciseID
		})
		if !inRoutine {
			return fmt.Errorf(
				"exercise %s is not part of day %d: %w",
				params.OriginalExerciseID, day.DayNumber, ErrInvalidArgument,
			)
		}

		sub = &DaySubstitution{
			EnrollmentID:         e.ID,
			DayNumber:            day.DayNumber,
			OriginalExerciseID:   params.OriginalExerciseID,
			SubstituteExerciseID: params.SubstituteExerciseID,
			CreatedAt:            c.clock.Now(),
		}
		return repo.UpsertSubstitution(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.CounterSubstitutions.WithLabelValues("set").Inc()
	c.notify(ctx, params.EnrollmentID)
	return sub, nil
}

func (c *Controller) validateSubstitute(ctx context.Context, params SubstitutionParams) error {
	if c.catalog == nil {
		return nil
	}

	original, err := c.catalog.GetExerciseType(ctx, params.OriginalExerciseID)
	if err != nil {
		return catalogErr(params.OriginalExerciseID, err)
	}
	substitute, err := c.catalog.GetExerciseType(ctx, params.SubstituteExerciseID)
	if err != nil {
		return catalogErr(params.SubstituteExerciseID, err)
	}
	if !original.SameMuscleGroup(substitute) {
		return &InvalidStateError{
			Action:       "substitute",
			EnrollmentID: params.EnrollmentID,
			DayNumber:    params.DayNumber,
			Reason: fmt.Sprintf(
				"%s (%s) cannot replace %s (%s)",
				substitute.ID, substitute.MuscleGroup, original.ID, original.MuscleGroup,
			),
		}
	}
	return nil
}

func catalogErr(exerciseID string, err error) error {
	if errors.Is(err, catalog.ErrExerciseTypeNotFound) {
		return notFound("exercise", exerciseID)
	}
	return &StoreError{Op: "exercise catalog", Err: err}
}

// ClearDaySubstitution removes the override, if any. It reports whether
// something was removed.
func (c *Controller) ClearDaySubstitution(ctx context.Context, key SubstitutionKey) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.controller.clear_substitution")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("enrollment_id", key.EnrollmentID),
		attribute.Int("day_number", key.DayNumber),
		attribute.String("original", key.OriginalExerciseID),
	)

	var removed bool
	err = c.execForEnrollment(ctx, "clear_substitution", key.EnrollmentID, func(ctx context.Context, repo Repo) error {
		_, err := repo.LockEnrollment(ctx, key.EnrollmentID)
		if err != nil {
			return err
		}
		removed, err = repo.DeleteSubstitution(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}

	if removed {
		c.metrics.CounterSubstitutions.WithLabelValues("clear").Inc()
		c.notify(ctx, key.EnrollmentID)
	}
	return removed, nil
}

func (c *Controller) execForEnrollment(ctx context.Context, command string, enrollmentID int, fn txFunc) error {
	lock := func(ctx context.Context) (func(), error) {
		return c.enrollmentLocks.Lock(ctx, enrollmentID)
	}
	return c.exec(ctx, command, lock, fn)
}

// exec runs fn in a transaction under the given lock, bounded by the store
// timeout. Failures other than domain errors come back as a StoreError.
func (c *Controller) exec(
	ctx context.Context,
	command string,
	lock func(ctx context.Context) (func(), error),
	fn txFunc,
) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.HistogramCommandDuration.
			WithLabelValues(command, outcome(err)).
			Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := lock(ctx)
	if err != nil {
		return &StoreError{Op: command + ": wait for lock", Err: err}
	}
	defer unlock()

	if err := c.store.InTx(ctx, fn); err != nil {
		return wrapStoreErr(command, err)
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, enrollmentIDs ...int) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range c.listeners {
		for _, id := range enrollmentIDs {
			l.EnrollmentChanged(ctx, id)
		}
	}
}

func (c *Controller) raiseLongestStreak(e *Enrollment, records []Completion) {
	if streak := CurrentStreak(records, c.clock.Location()); streak > e.LongestStreak {
		e.LongestStreak = streak
	}
}

// estimateCompletion is the local calendar day that lies remainingDays after now.
func (c *Controller) estimateCompletion(now time.Time, remainingDays int) time.Time {
	return clock.StartOfDay(now, c.clock.Location()).AddDate(0, 0, max(remainingDays, 0))
}

func isSessionDay(day ProgramDay, e *Enrollment) bool {
	return day.DayType == DayTypeWorkout && day.DayNumber == e.CurrentDay && e.Status == StatusActive
}

// applyRecordDelta keeps the counters in line with the records when prev is
// replaced by a record of status next.
func applyRecordDelta(e *Enrollment, prev *Completion, next CompletionStatus) {
	if prev != nil {
		switch {
		case prev.Status.IsDone():
			e.TotalDaysCompleted = max(e.TotalDaysCompleted-1, 0)
		case prev.Status == CompletionSkipped:
			e.TotalDaysSkipped = max(e.TotalDaysSkipped-1, 0)
		}
	}
	switch {
	case next.IsDone():
		e.TotalDaysCompleted++
	case next == CompletionSkipped:
		e.TotalDaysSkipped++
	}
}

func replaceRecord(records []Completion, record Completion) []Completion {
	res := slices.DeleteFunc(slices.Clone(records), func(r Completion) bool {
		return r.ProgramDayNumber == record.ProgramDayNumber
	})
	return append(res, record)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case IsRetryable(err):
		return "timeout"
	default:
		return "store_error"
	}
}
