package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/progression/internal/program"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte = 1024 * 1024
	// program definitions are immutable, the expiry only bounds stale entries
	// after a manual fix in the database
	programCacheExpire = 60 * 60 * 6
)

var _ program.ProgramStore = (*ProgramCache)(nil)

// ProgramCache serves program definitions, days and routines from an
// in-process cache in front of another ProgramStore.
type ProgramCache struct {
	cache *freecache.Cache
	inner program.ProgramStore
}

func NewProgramCache(inner program.ProgramStore, sizeMB int) *ProgramCache {
	if sizeMB <= 0 {
		sizeMB = 16
	}
	return &ProgramCache{
		cache: freecache.NewCache(sizeMB * megabyte),
		inner: inner,
	}
}

func (c *ProgramCache) GetProgram(ctx context.Context, programID int) (*program.Program, error) {
	return cached(c, fmt.Sprintf("program::%d", programID), func() (*program.Program, error) {
		return c.inner.GetProgram(ctx, programID)
	})
}

func (c *ProgramCache) ListProgramDays(ctx context.Context, programID int) ([]program.ProgramDay, error) {
	return cached(c, fmt.Sprintf("days::%d", programID), func() ([]program.ProgramDay, error) {
		return c.inner.ListProgramDays(ctx, programID)
	})
}

func (c *ProgramCache) ListRoutineExercises(ctx context.Context, routineID int) ([]program.RoutineExercise, error) {
	return cached(c, fmt.Sprintf("routine::%d", routineID), func() ([]program.RoutineExercise, error) {
		return c.inner.ListRoutineExercises(ctx, routineID)
	})
}

// Clear drops everything, e.g. after programs were edited.
func (c *ProgramCache) Clear() {
	c.cache.Clear()
}

// cached returns the value stored under key or loads and stores it. Errors
// are never cached.
func cached[T any](c *ProgramCache, key string, load func() (T, error)) (T, error) {
	if raw, err := c.cache.Get([]byte(key)); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		} else {
			log.Errorf("program cache: unmarshal [%s]: %s", key, err)
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		log.Errorf("program cache: marshal [%s]: %s", key, err)
		return v, nil
	}
	if err := c.cache.Set([]byte(key), raw, programCacheExpire); err != nil {
		log.Errorf("program cache: set [%s]: %s", key, err)
	}
	return v, nil
}
