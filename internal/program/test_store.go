package program

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// TestStore is an in-memory Store used by tests of this and other packages.
// InTx works on a copy of the data that replaces the original only when fn
// succeeds, so a failed transaction leaves no trace.
type TestStore struct {
	mu      sync.Mutex
	data    *memData
	faults  map[string]error
	latency time.Duration
}

type memData struct {
	programs      map[int]Program
	days          map[int][]ProgramDay
	routines      map[int][]RoutineExercise
	enrollments   map[int]Enrollment
	completions   map[int]map[int]Completion
	substitutions map[SubstitutionKey]DaySubstitution
	enrollmentSeq int
	completionSeq int
	subSeq        int
}

func NewTestStore() *TestStore {
	return &TestStore{
		data: &memData{
			programs:      make(map[int]Program),
			days:          make(map[int][]ProgramDay),
			routines:      make(map[int][]RoutineExercise),
			enrollments:   make(map[int]Enrollment),
			completions:   make(map[int]map[int]Completion),
			substitutions: make(map[SubstitutionKey]DaySubstitution),
		},
		faults: make(map[string]error),
	}
}

// AddProgram seeds a program with its days.
func (s *TestStore) AddProgram(p Program, days []ProgramDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.programs[p.ID] = p
	for i := range days {
		days[i].ProgramID = p.ID
	}
	s.data.days[p.ID] = slices.Clone(days)
}

func (s *TestStore) AddRoutine(routineID int, exercises []RoutineExercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range exercises {
		exercises[i].RoutineID = routineID
	}
	s.data.routines[routineID] = slices.Clone(exercises)
}

// PutEnrollment stores e as is, bypassing every check. Used to set up
// states that the controller would not produce.
func (s *TestStore) PutEnrollment(e Enrollment) Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.data.enrollmentSeq++
		e.ID = s.data.enrollmentSeq
	} else if e.ID > s.data.enrollmentSeq {
		s.data.enrollmentSeq = e.ID
	}
	s.data.enrollments[e.ID] = e
	return e
}

// PutCompletion stores c as is, bypassing every check.
func (s *TestStore) PutCompletion(c Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.data.upsertCompletion(&c)
}

// FailOn makes every call of the named Repo method fail with err until
// cleared with a nil err.
func (s *TestStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// SetLatency delays every Repo call by d, or until the call's context is done.
func (s *TestStore) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

func (s *TestStore) InTx(ctx context.Context, fn func(ctx context.Context, repo Repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(ctx, &memRepo{data: working, store: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *TestStore) repo() (*memRepo, func()) {
	s.mu.Lock()
	return &memRepo{data: s.data, store: s}, s.mu.Unlock
}

func (s *TestStore) GetProgram(ctx context.Context, programID int) (*Program, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetProgram(ctx, programID)
}

func (s *TestStore) ListProgramDays(ctx context.Context, programID int) ([]ProgramDay, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListProgramDays(ctx, programID)
}

func (s *TestStore) ListRoutineExercises(ctx context.Context, routineID int) ([]RoutineExercise, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListRoutineExercises(ctx, routineID)
}

func (s *TestStore) GetEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.GetEnrollment(ctx, enrollmentID)
}

func (s *TestStore) LockEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.LockEnrollment(ctx, enrollmentID)
}

func (s *TestStore) LockActiveEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.LockActiveEnrollments(ctx, userID)
}

func (s *TestStore) ListUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListUserEnrollments(ctx, userID)
}

func (s *TestStore) CreateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	r, unlock := s.repo()
	defer unlock()
	return r.CreateEnrollment(ctx, enrollment)
}

func (s *TestStore) UpdateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	r, unlock := s.repo()
	defer unlock()
	return r.UpdateEnrollment(ctx, enrollment)
}

func (s *TestStore) UpsertCompletion(ctx context.Context, completion *Completion) (*Completion, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.UpsertCompletion(ctx, completion)
}

func (s *TestStore) ListCompletions(ctx context.Context, enrollmentID int) ([]Completion, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListCompletions(ctx, enrollmentID)
}

func (s *TestStore) UpsertSubstitution(ctx context.Context, sub *DaySubstitution) error {
	r, unlock := s.repo()
	defer unlock()
	return r.UpsertSubstitution(ctx, sub)
}

func (s *TestStore) DeleteSubstitution(ctx context.Context, key SubstitutionKey) (bool, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.DeleteSubstitution(ctx, key)
}

func (s *TestStore) ListSubstitutions(ctx context.Context, enrollmentID, dayNumber int) ([]DaySubstitution, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ListSubstitutions(ctx, enrollmentID, dayNumber)
}

func (s *TestStore) ClearSubstitutions(ctx context.Context, enrollmentID, dayNumber int) (int, error) {
	r, unlock := s.repo()
	defer unlock()
	return r.ClearSubstitutions(ctx, enrollmentID, dayNumber)
}

// memRepo is a Repo over one memData; the owning TestStore's mutex is held
// by whoever created it.
type memRepo struct {
	data  *memData
	store *TestStore
}

func (r *memRepo) check(ctx context.Context, method string) error {
	if r.store.latency > 0 {
		select {
		case <-time.After(r.store.latency):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := r.store.faults[method]; ok {
		return err
	}
	return nil
}

func (r *memRepo) GetProgram(ctx context.Context, programID int) (*Program, error) {
	if err := r.check(ctx, "GetProgram"); err != nil {
		return nil, err
	}
	p, ok := r.data.programs[programID]
	if !ok {
		return nil, notFound("program", programID)
	}
	return &p, nil
}

func (r *memRepo) ListProgramDays(ctx context.Context, programID int) ([]ProgramDay, error) {
	if err := r.check(ctx, "ListProgramDays"); err != nil {
		return nil, err
	}
	if _, ok := r.data.programs[programID]; !ok {
		return nil, notFound("program", programID)
	}
	return sortedDays(r.data.days[programID]), nil
}

func (r *memRepo) ListRoutineExercises(ctx context.Context, routineID int) ([]RoutineExercise, error) {
	if err := r.check(ctx, "ListRoutineExercises"); err != nil {
		return nil, err
	}
	exercises := slices.Clone(r.data.routines[routineID])
	slices.SortFunc(exercises, func(a, b RoutineExercise) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return exercises, nil
}

func (r *memRepo) GetEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error) {
	if err := r.check(ctx, "GetEnrollment"); err != nil {
		return nil, err
	}
	e, ok := r.data.enrollments[enrollmentID]
	if !ok {
		return nil, notFound("enrollment", enrollmentID)
	}
	return &e, nil
}

func (r *memRepo) LockEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error) {
	if err := r.check(ctx, "LockEnrollment"); err != nil {
		return nil, err
	}
	e, ok := r.data.enrollments[enrollmentID]
	if !ok {
		return nil, notFound("enrollment", enrollmentID)
	}
	return &e, nil
}

func (r *memRepo) LockActiveEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	if err := r.check(ctx, "LockActiveEnrollments"); err != nil {
		return nil, err
	}
	var active []Enrollment
	for _, e := range r.data.userEnrollments(userID) {
		if e.Status.HoldsActiveSlot() {
			active = append(active, e)
		}
	}
	return active, nil
}

func (r *memRepo) ListUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	if err := r.check(ctx, "ListUserEnrollments"); err != nil {
		return nil, err
	}
	return r.data.userEnrollments(userID), nil
}

func (r *memRepo) CreateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	if err := r.check(ctx, "CreateEnrollment"); err != nil {
		return err
	}
	if _, ok := r.data.programs[enrollment.ProgramID]; !ok {
		return notFound("program", enrollment.ProgramID)
	}
	if err := r.data.checkActiveSlot(*enrollment); err != nil {
		return err
	}
	r.data.enrollmentSeq++
	enrollment.ID = r.data.enrollmentSeq
	r.data.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *memRepo) UpdateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	if err := r.check(ctx, "UpdateEnrollment"); err != nil {
		return err
	}
	if _, ok := r.data.enrollments[enrollment.ID]; !ok {
		return notFound("enrollment", enrollment.ID)
	}
	if err := r.data.checkActiveSlot(*enrollment); err != nil {
		return err
	}
	r.data.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *memRepo) UpsertCompletion(ctx context.Context, completion *Completion) (*Completion, error) {
	if err := r.check(ctx, "UpsertCompletion"); err != nil {
		return nil, err
	}
	if _, ok := r.data.enrollments[completion.EnrollmentID]; !ok {
		return nil, notFound("enrollment", completion.EnrollmentID)
	}
	return r.data.upsertCompletion(completion)
}

func (r *memRepo) ListCompletions(ctx context.Context, enrollmentID int) ([]Completion, error) {
	if err := r.check(ctx, "ListCompletions"); err != nil {
		return nil, err
	}
	records := slices.Collect(maps.Values(r.data.completions[enrollmentID]))
	sortCompletionsByDay(records)
	return records, nil
}

func (r *memRepo) UpsertSubstitution(ctx context.Context, sub *DaySubstitution) error {
	if err := r.check(ctx, "UpsertSubstitution"); err != nil {
		return err
	}
	if existing, ok := r.data.substitutions[sub.Key()]; ok {
		sub.ID = existing.ID
	} else {
		r.data.subSeq++
		sub.ID = r.data.subSeq
	}
	r.data.substitutions[sub.Key()] = *sub
	return nil
}

func (r *memRepo) DeleteSubstitution(ctx context.Context, key SubstitutionKey) (bool, error) {
	if err := r.check(ctx, "DeleteSubstitution"); err != nil {
		return false, err
	}
	_, ok := r.data.substitutions[key]
	delete(r.data.substitutions, key)
	return ok, nil
}

func (r *memRepo) ListSubstitutions(ctx context.Context, enrollmentID, dayNumber int) ([]DaySubstitution, error) {
	if err := r.check(ctx, "ListSubstitutions"); err != nil {
		return nil, err
	}
	var subs []DaySubstitution
	for k, sub := range r.data.substitutions {
		if k.EnrollmentID == enrollmentID && k.DayNumber == dayNumber {
			subs = append(subs, sub)
		}
	}
	slices.SortFunc(subs, func(a, b DaySubstitution) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return subs, nil
}

func (r *memRepo) ClearSubstitutions(ctx context.Context, enrollmentID, dayNumber int) (int, error) {
	if err := r.check(ctx, "ClearSubstitutions"); err != nil {
		return 0, err
	}
	cleared := 0
	for k := range r.data.substitutions {
		if k.EnrollmentID == enrollmentID && k.DayNumber == dayNumber {
			delete(r.data.substitutions, k)
			cleared++
		}
	}
	return cleared, nil
}

func (d *memData) clone() *memData {
	c := &memData{
		programs:      maps.Clone(d.programs),
		days:          maps.Clone(d.days),
		routines:      maps.Clone(d.routines),
		enrollments:   maps.Clone(d.enrollments),
		completions:   make(map[int]map[int]Completion, len(d.completions)),
		substitutions: maps.Clone(d.substitutions),
		enrollmentSeq: d.enrollmentSeq,
		completionSeq: d.completionSeq,
		subSeq:        d.subSeq,
	}
	for id, records := range d.completions {
		c.completions[id] = maps.Clone(records)
	}
	return c
}

func (d *memData) userEnrollments(userID string) []Enrollment {
	var res []Enrollment
	for _, e := range d.enrollments {
		if e.UserID == userID {
			res = append(res, e)
		}
	}
	// newest first
	slices.SortFunc(res, func(a, b Enrollment) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return res
}

// checkActiveSlot mirrors the partial unique index on active enrollments.
func (d *memData) checkActiveSlot(e Enrollment) error {
	if !e.Status.HoldsActiveSlot() {
		return nil
	}
	for _, other := range d.enrollments {
		if other.ID != e.ID && other.UserID == e.UserID && other.Status.HoldsActiveSlot() {
			return &ConflictError{UserID: e.UserID, EnrollmentID: other.ID}
		}
	}
	return nil
}

func (d *memData) upsertCompletion(c *Completion) (*Completion, error) {
	if c.ProgramDayNumber < 1 {
		return nil, fmt.Errorf("completion day number %d: %w", c.ProgramDayNumber, ErrInvalidArgument)
	}
	records, ok := d.completions[c.EnrollmentID]
	if !ok {
		records = make(map[int]Completion)
		d.completions[c.EnrollmentID] = records
	}

	var replaced *Completion
	if prev, ok := records[c.ProgramDayNumber]; ok {
		replaced = &prev
		c.ID = prev.ID
	} else {
		d.completionSeq++
		c.ID = d.completionSeq
	}
	records[c.ProgramDayNumber] = *c
	return replaced, nil
}
