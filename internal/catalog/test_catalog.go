package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// TestCatalog is an in-memory exercise catalog used by tests of this and
// other packages.
type TestCatalog struct {
	mu    sync.RWMutex
	types map[string]ExerciseType
}

func NewTestCatalog(exerciseTypes ...ExerciseType) *TestCatalog {
	c := &TestCatalog{
		types: make(map[string]ExerciseType),
	}
	for _, et := range exerciseTypes {
		c.types[et.ID] = et
	}
	return c
}

func (c *TestCatalog) GetExerciseType(_ context.Context, exerciseTypeID string) (ExerciseType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	et, ok := c.types[exerciseTypeID]
	if !ok {
		return ExerciseType{}, fmt.Errorf("exercise type %s: %w", exerciseTypeID, ErrExerciseTypeNotFound)
	}
	return et, nil
}

func (c *TestCatalog) ListExerciseTypes(_ context.Context, params ListParams) ([]ExerciseType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var res []ExerciseType
	for _, et := range c.types {
		if params.MuscleGroup != "" && !strings.EqualFold(et.MuscleGroup, params.MuscleGroup) {
			continue
		}
		if params.ExcludeID != "" && et.ID == params.ExcludeID {
			continue
		}
		res = append(res, et)
	}
	slices.SortFunc(res, func(a, b ExerciseType) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res, nil
}

func (c *TestCatalog) AddExerciseType(_ context.Context, exerciseType ExerciseType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[exerciseType.ID] = exerciseType
	return nil
}
