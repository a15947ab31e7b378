package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/progression/internal/program"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	summaryKeyPrefix    = "progression::summary::"
	generationKeyPrefix = "progression::summary-gen::"
)

var (
	_ program.SummaryCache   = (*SummaryCache)(nil)
	_ program.ChangeListener = (*SummaryCache)(nil)
)

// SummaryCache keeps computed progress summaries in redis, one hash per
// enrollment with a field per generation and timezone. Every committed
// mutation of the enrollment bumps its generation counter and drops the hash,
// so a summary computed from records read before the change is written under
// a generation nobody reads any more.
type SummaryCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewSummaryCache(redisClient *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func summaryKey(enrollmentID int) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, enrollmentID)
}

func generationKey(enrollmentID int) string {
	return fmt.Sprintf("%s%d", generationKeyPrefix, enrollmentID)
}

func summaryField(generation int64, tz string) string {
	return fmt.Sprintf("%d::%s", generation, tz)
}

// Generation of an enrollment never seen changing is 0. The counter has no
// ttl, it must outlive every hash written under it.
func (c *SummaryCache) Generation(ctx context.Context, enrollmentID int) (int64, bool) {
	generation, err := c.redisClient.Get(ctx, generationKey(enrollmentID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		log.Errorf("summary cache: generation [%d]: %s", enrollmentID, err)
		return 0, false
	}
	return generation, true
}

// GetSummary treats any redis failure as a miss.
func (c *SummaryCache) GetSummary(ctx context.Context, enrollmentID int, generation int64, tz string) (*program.Summary, bool) {
	raw, err := c.redisClient.HGet(ctx, summaryKey(enrollmentID), summaryField(generation, tz)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Errorf("summary cache: get [%d/%d/%s]: %s", enrollmentID, generation, tz, err)
		}
		return nil, false
	}

	var summary program.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		log.Errorf("summary cache: unmarshal [%d/%d/%s]: %s", enrollmentID, generation, tz, err)
		return nil, false
	}
	return &summary, true
}

func (c *SummaryCache) SetSummary(ctx context.Context, enrollmentID int, generation int64, tz string, summary program.Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("summary cache: marshal [%d]: %s", enrollmentID, err)
		return
	}

	key := summaryKey(enrollmentID)
	if err := c.redisClient.HSet(ctx, key, summaryField(generation, tz), raw).Err(); err != nil {
		log.Errorf("summary cache: set [%d/%d/%s]: %s", enrollmentID, generation, tz, err)
		return
	}
	if err := c.redisClient.Expire(ctx, key, c.ttl).Err(); err != nil {
		log.Errorf("summary cache: expire [%d]: %s", enrollmentID, err)
	}
}

// EnrollmentChanged moves the generation first. Once it has moved, entries
// written by readers still working on older records are unreachable, and the
// Del only reclaims memory.
func (c *SummaryCache) EnrollmentChanged(ctx context.Context, enrollmentID int) {
	if err := c.redisClient.Incr(ctx, generationKey(enrollmentID)).Err(); err != nil {
		// the entry outlives the change at most by the ttl
		log.Errorf("summary cache: bump generation [%d]: %s", enrollmentID, err)
	}
	if err := c.redisClient.Del(ctx, summaryKey(enrollmentID)).Err(); err != nil {
		log.Errorf("summary cache: invalidate [%d]: %s", enrollmentID, err)
	}
}
