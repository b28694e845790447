package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "score:"

// Store is the slice of the Redis client the score cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedScorer wraps a Scorer with a Redis read-through cache. Scores are
// deterministic, so entries never go stale; the TTL only bounds the working
// set. Store failures fall through to a direct computation: the cache can
// slow a token down, never fail it.
type CachedScorer struct {
	inner   Scorer
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCachedScorer builds the read-through cache. metrics may be nil.
func NewCachedScorer(inner Scorer, store Store, ttl time.Duration, m *metrics.Metrics) *CachedScorer {
	return &CachedScorer{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		logger:  slog.Default().With("component", "score-cache"),
		metrics: m,
	}
}

func (c *CachedScorer) Score(ctx context.Context, word string) (Scores, error) {
	key := buildKey(word)
	if scores, ok := c.lookup(ctx, key); ok {
		c.recordHit()
		return scores, nil
	}
	c.recordMiss()
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if scores, ok := c.lookup(ctx, key); ok {
			return scores, nil
		}
		scores, err := c.inner.Score(ctx, word)
		if err != nil {
			return Scores{}, err
		}
		c.save(ctx, key, scores)
		return scores, nil
	})
	if err != nil {
		return Scores{}, err
	}
	return val.(Scores), nil
}

func (c *CachedScorer) lookup(ctx context.Context, key string) (Scores, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return Scores{}, false
	}
	var scores Scores
	if err := json.Unmarshal([]byte(data), &scores); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return Scores{}, false
	}
	return scores, true
}

func (c *CachedScorer) save(ctx context.Context, key string, scores Scores) {
	data, err := json.Marshal(scores)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *CachedScorer) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.ScoreCacheHits.Inc()
	}
}

func (c *CachedScorer) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.ScoreCacheMisses.Inc()
	}
}

// Stats returns cumulative cache hit and miss counts.
func (c *CachedScorer) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(word string) string {
	hash := sha256.Sum256([]byte(word))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
