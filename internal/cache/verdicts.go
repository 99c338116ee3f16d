package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
)

const (
	keyPrefix     = "linkvalidator:verdict:"
	scanBatchSize = 100
)

var errMissingStatus = errors.New("cached verdict has no status")

// Lookup results reported to metrics.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// entry is the stored form of a verdict. Scores are derived on read so a
// retuned score table applies to entries written before the change.
type entry struct {
	URL        string        `json:"url"`
	Status     domain.Status `json:"status"`
	ReasonCode string        `json:"reason_code"`
}

// Verdicts is a Redis-backed verdict cache keyed by URL hash.
type Verdicts struct {
	client  *redis.Client
	ttl     time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewVerdicts creates a verdict cache. A zero ttl uses DefaultTTL.
func NewVerdicts(client *redis.Client, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *Verdicts {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Verdicts{
		client:  client,
		ttl:     ttl,
		log:     log.With(logger.String("component", "verdict_cache")),
		metrics: m,
	}
}

// Key returns the Redis key for url.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached verdict for url, scored with scores. Redis errors and
// undecodable entries are logged and reported as a miss.
func (c *Verdicts) Get(ctx context.Context, url string, scores domain.Scores) (domain.Verdict, bool) {
	key := Key(url)

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.ObserveCacheLookup(resultMiss)
		return domain.Verdict{}, false
	}
	if err != nil {
		c.metrics.ObserveCacheLookup(resultError)
		c.log.Warn("Redis error reading verdict",
			logger.String("url", url),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return domain.Verdict{}, false
	}

	var e entry
	err = json.Unmarshal(raw, &e)
	if err == nil && e.Status == "" {
		err = errMissingStatus
	}
	if err != nil {
		c.metrics.ObserveCacheLookup(resultError)
		c.log.Warn("Discarding undecodable cached verdict",
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return domain.Verdict{}, false
	}

	c.metrics.ObserveCacheLookup(resultHit)
	return domain.NewVerdict(url, e.Status, e.ReasonCode, scores), true
}

// Set stores the status and reason of v under its URL.
func (c *Verdicts) Set(ctx context.Context, v domain.Verdict) error {
	payload, err := json.Marshal(entry{URL: v.URL, Status: v.Status, ReasonCode: v.ReasonCode})
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	if err = c.client.Set(ctx, Key(v.URL), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set verdict: %w", err)
	}
	return nil
}

// Delete removes the cached verdict for url.
func (c *Verdicts) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, Key(url)).Err(); err != nil {
		return fmt.Errorf("delete verdict: %w", err)
	}
	return nil
}

// Flush removes every cached verdict and returns how many keys were deleted.
func (c *Verdicts) Flush(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int

	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan keys: %w", err)
		}

		if len(keys) > 0 {
			n, delErr := c.client.Del(ctx, keys...).Result()
			if delErr != nil {
				return deleted, fmt.Errorf("delete keys: %w", delErr)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.log.Info("Flushed verdict cache", logger.Int("deleted_count", deleted))
	return deleted, nil
}

// Ping checks Redis connectivity.
func (c *Verdicts) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
