package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/progression/internal/clock"
)

// TestRepo is an in-memory session repo for tests of dependent packages.
type TestRepo struct {
	mu       sync.Mutex
	sessions map[int]Session
	lastID   int
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		sessions: make(map[int]Session),
	}
}

func (r *TestRepo) Start(_ context.Context, enrollmentID, programDayID int, startedAt time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enrollmentID <= 0 || programDayID <= 0 {
		return nil, ErrUnknownReference
	}
	r.lastID++
	s := Session{
		ID:           r.lastID,
		EnrollmentID: enrollmentID,
		ProgramDayID: programDayID,
		StartedAt:    startedAt,
	}
	r.sessions[s.ID] = s
	return &s, nil
}

func (r *TestRepo) Finish(_ context.Context, sessionID int, finishedAt time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.FinishedAt == nil {
		s.FinishedAt = &finishedAt
		r.sessions[sessionID] = s
	}
	return &s, nil
}

func (r *TestRepo) Get(_ context.Context, sessionID int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *TestRepo) HasCompletedSessionToday(_ context.Context, enrollmentID, programDayID int, today clock.Window) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.EnrollmentID == enrollmentID &&
			s.ProgramDayID == programDayID &&
			s.FinishedAt != nil &&
			today.Contains(*s.FinishedAt) {
			return true, nil
		}
	}
	return false, nil
}
