package weights

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// TestRepo keeps logs in memory. Add stands in for the set logging writer.
type TestRepo struct {
	mu     sync.Mutex
	logs   []Log
	lastID int
}

func NewTestRepo() *TestRepo {
	return &TestRepo{}
}

func (r *TestRepo) Add(_ context.Context, l Log) (*Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	l.ID = r.lastID
	r.logs = append(r.logs, l)
	return &l, nil
}

func (r *TestRepo) Recent(_ context.Context, userID, exerciseID string, limit int) ([]Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var logs []Log
	for _, l := range r.logs {
		if l.UserID == userID && l.ExerciseID == exerciseID {
			logs = append(logs, l)
		}
	}
	slices.SortFunc(logs, func(a, b Log) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
