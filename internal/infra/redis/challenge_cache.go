package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
)

// ChallengeCache fronts a ChallengeRepository with Redis.
// Challenges are stored as: SET challenge:{id} {json}
type ChallengeCache struct {
	client  *redis.Client
	backing app.ChallengeRepository
	ttl     time.Duration
	sf      singleflight.Group
	mu      sync.Mutex
	rnd     *rand.Rand
	log     *logrus.Entry
}

func NewChallengeCache(client *redis.Client, backing app.ChallengeRepository, ttl time.Duration) *ChallengeCache {
	return &ChallengeCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logrus.WithField("component", "challenge-cache"),
	}
}

func (c *ChallengeCache) Get(ctx context.Context, id string) (domain.DailyChallenge, error) {
	if ch, ok := c.lookup(ctx, id); ok {
		return ch, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if ch, ok := c.lookup(ctx, id); ok {
			return ch, nil
		}
		ch, err := c.backing.Get(ctx, id)
		if err != nil {
			return domain.DailyChallenge{}, err
		}
		c.store(ctx, ch)
		return ch, nil
	})
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	return result.(domain.DailyChallenge), nil
}

func (c *ChallengeCache) Create(ctx context.Context, ch domain.DailyChallenge) (domain.DailyChallenge, error) {
	stored, err := c.backing.Create(ctx, ch)
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	c.store(ctx, stored)
	return stored, nil
}

func (c *ChallengeCache) MarkCompleted(ctx context.Context, id string) (domain.DailyChallenge, error) {
	// drop first so a failed write never leaves a stale "open" copy behind
	c.invalidate(ctx, id)
	ch, err := c.backing.MarkCompleted(ctx, id)
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	c.store(ctx, ch)
	return ch, nil
}

func (c *ChallengeCache) Reopen(ctx context.Context, id string) error {
	c.invalidate(ctx, id)
	return c.backing.Reopen(ctx, id)
}

func (c *ChallengeCache) lookup(ctx context.Context, id string) (domain.DailyChallenge, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("cache read failed")
		}
		return domain.DailyChallenge{}, false
	}
	var ch domain.DailyChallenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		c.invalidate(ctx, id)
		return domain.DailyChallenge{}, false
	}
	return ch, true
}

func (c *ChallengeCache) store(ctx context.Context, ch domain.DailyChallenge) {
	raw, err := json.Marshal(ch)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(ch.ID), raw, c.ttlWithJitter()).Err(); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
}

func (c *ChallengeCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.WithError(err).Warn("cache invalidate failed")
	}
}

func (c *ChallengeCache) key(id string) string {
	return "challenge:" + id
}

func (c *ChallengeCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
