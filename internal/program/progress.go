package program

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/telemetry/metrics"
	"github.com/2beens/progression/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SummaryCache holds computed summaries per enrollment and timezone. Entries
// are stored under the enrollment's generation, which every committed change
// moves forward. A summary built from records read at generation g is only
// ever served to readers that observed g too.
type SummaryCache interface {
	// Generation must be read before the records the summary is built from.
	// ok is false when the generation is unknown, then nothing is cached.
	Generation(ctx context.Context, enrollmentID int) (generation int64, ok bool)
	GetSummary(ctx context.Context, enrollmentID int, generation int64, tz string) (*Summary, bool)
	SetSummary(ctx context.Context, enrollmentID int, generation int64, tz string, summary Summary)
}

type DayView struct {
	DayID      int      `json:"dayId"`
	DayNumber  int      `json:"dayNumber"`
	WeekNumber int      `json:"weekNumber"`
	DayOfWeek  int      `json:"dayOfWeek"`
	DayType    DayType  `json:"dayType"`
	State      DayState `json:"state"`
	CanStart   bool     `json:"canStart"`
	CanSkip    bool     `json:"canSkip"`
}

type Progress struct {
	Enrollment       *Enrollment `json:"enrollment"`
	Days             []DayView   `json:"days"`
	NextAvailableDay *int        `json:"nextAvailableDay"`
	Summary          Summary     `json:"summary"`
}

type ProgramDetails struct {
	Program *Program     `json:"program"`
	Days    []ProgramDay `json:"days"`
}

type QueryServiceParams struct {
	Repo         Repo
	Clock        clock.Clock
	Sessions     SessionLookup // optional
	Summaries    SummaryCache  // optional
	Metrics      *metrics.Manager
	StoreTimeout time.Duration
}

// QueryService is the read side: resolved day states, summaries and plain
// lookups. It never writes.
type QueryService struct {
	repo      Repo
	clock     clock.Clock
	sessions  SessionLookup
	summaries SummaryCache
	metrics   *metrics.Manager
	timeout   time.Duration
}

func NewQueryService(params QueryServiceParams) *QueryService {
	s := &QueryService{
		repo:      params.Repo,
		clock:     params.Clock,
		sessions:  params.Sessions,
		summaries: params.Summaries,
		metrics:   params.Metrics,
		timeout:   params.StoreTimeout,
	}
	if s.sessions == nil {
		s.sessions = noSessions{}
	}
	if s.timeout <= 0 {
		s.timeout = defaultStoreTimeout
	}
	return s
}

// Progress resolves every day of the enrollment's program. loc overrides the
// service clock's timezone for the "today" window and the streak calendar;
// nil keeps the clock's own.
func (s *QueryService) Progress(ctx context.Context, enrollmentID int, loc *time.Location) (_ *Progress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.query.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentID))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	clk := s.clock
	if loc != nil {
		clk = clock.In(s.clock, loc)
	}
	loc = clk.Location()
	today := clock.Today(clk)

	var (
		generation   int64
		generationOK bool
	)
	if s.summaries != nil {
		generation, generationOK = s.summaries.Generation(ctx, enrollmentID)
	}

	enrollment, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, wrapStoreErr("get enrollment", err)
	}
	days, err := s.repo.ListProgramDays(ctx, enrollment.ProgramID)
	if err != nil {
		return nil, wrapStoreErr("list program days", err)
	}
	records, err := s.repo.ListCompletions(ctx, enrollmentID)
	if err != nil {
		return nil, wrapStoreErr("list completions", err)
	}
	completions := NewCompletions(records)

	sessionDone := map[int]bool{}
	if current, ok := findDay(days, enrollment.CurrentDay); ok && isSessionDay(current, enrollment) {
		done, err := s.sessions.HasCompletedSessionToday(ctx, enrollmentID, current.ID, today)
		if err != nil {
			return nil, wrapStoreErr("session lookup", err)
		}
		sessionDone[current.ID] = done
	}

	progress := &Progress{
		Enrollment: enrollment,
		Days:       make([]DayView, 0, len(days)),
	}
	for _, day := range sortedDays(days) {
		dc := DayContext{
			Day:                   day,
			Enrollment:            enrollment,
			Completions:           completions,
			Today:                 today,
			SessionCompletedToday: sessionDone[day.ID],
		}
		state := ResolveDayState(dc)
		if IsAnomaly(dc, state) {
			s.reportAnomaly(span, enrollment, day)
		}
		progress.Days = append(progress.Days, DayView{
			DayID:      day.ID,
			DayNumber:  day.DayNumber,
			WeekNumber: day.WeekNumber(),
			DayOfWeek:  day.DayOfWeek,
			DayType:    day.DayType,
			State:      state,
			CanStart:   state.CanStart(),
			CanSkip:    state.CanSkip(),
		})
	}

	next, _, ok := NextAvailableDay(days, enrollment, completions, today, func(dayID int) bool {
		return sessionDone[dayID]
	})
	if ok {
		progress.NextAvailableDay = &next.DayNumber
	}

	if generationOK {
		progress.Summary = s.cachedSummary(ctx, generation, enrollment, records, loc)
	} else {
		progress.Summary = Summarize(enrollment, records, loc)
	}

	return progress, nil
}

func (s *QueryService) cachedSummary(ctx context.Context, generation int64, enrollment *Enrollment, records []Completion, loc *time.Location) Summary {
	if cached, ok := s.summaries.GetSummary(ctx, enrollment.ID, generation, loc.String()); ok {
		return *cached
	}
	summary := Summarize(enrollment, records, loc)
	s.summaries.SetSummary(ctx, enrollment.ID, generation, loc.String(), summary)
	return summary
}

// A past day without a record is reported, never coerced into a state.
func (s *QueryService) reportAnomaly(span trace.Span, enrollment *Enrollment, day ProgramDay) {
	log.Warnf(
		"day state anomaly: enrollment [%d] is at day %d, past day %d has no completion record",
		enrollment.ID, enrollment.CurrentDay, day.DayNumber,
	)
	s.metrics.CounterDayStateAnomalies.Inc()
	span.AddEvent("day_state_anomaly", trace.WithAttributes(
		attribute.Int("enrollment_id", enrollment.ID),
		attribute.Int("current_day", enrollment.CurrentDay),
		attribute.Int("day_number", day.DayNumber),
	))
}

func (s *QueryService) ListUserEnrollments(ctx context.Context, userID string) (_ []Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.query.user_enrollments")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	enrollments, err := s.repo.ListUserEnrollments(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr("list user enrollments", err)
	}
	if enrollments == nil {
		enrollments = []Enrollment{}
	}
	return enrollments, nil
}

func (s *QueryService) GetEnrollment(ctx context.Context, enrollmentID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.query.enrollment")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	enrollment, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, wrapStoreErr("get enrollment", err)
	}
	return enrollment, nil
}

func (s *QueryService) GetProgram(ctx context.Context, programID int) (_ *ProgramDetails, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.query.program")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		return nil, wrapStoreErr("get program", err)
	}
	days, err := s.repo.ListProgramDays(ctx, programID)
	if err != nil {
		return nil, wrapStoreErr("list program days", err)
	}
	return &ProgramDetails{
		Program: p,
		Days:    sortedDays(days),
	}, nil
}
