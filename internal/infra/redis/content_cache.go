package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

var errStaleContent = errors.New("quiz content changed during load")

// ContentCache keeps quiz content as JSON in Redis and falls back to a loader on cache miss.
// Content is stored as: SET quizmaster:quiz:{quizID}:content {json} EX ttl
// Invalidate bumps quizmaster:quiz:{quizID}:version; a load only writes back while the
// version it started from is still current.
type ContentCache struct {
	client *redis.Client
	loader app.ContentLoader
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewContentCache(client *redis.Client, loader app.ContentLoader, ttl time.Duration) *ContentCache {
	return &ContentCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: slog.Default(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ContentCache) GetQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := c.lookup(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.lookup(ctx, quizID); ok {
			return quiz, nil
		}

		version, err := c.version(ctx, quizID)
		if err != nil {
			// Without a version the write-back cannot be guarded, so serve uncached.
			c.logger.Warn("read quiz content version failed", "quiz_id", quizID, "error", err)
			return c.loader.LoadQuizContent(ctx, quizID)
		}

		quiz, err := c.loader.LoadQuizContent(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if err := c.store(ctx, quizID, version, quiz); err != nil &&
			!errors.Is(err, errStaleContent) && !errors.Is(err, redis.TxFailedErr) {
			c.logger.Warn("cache quiz content failed", "quiz_id", quizID, "error", err)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate deletes the cached content; the next read reloads it.
// Loads already in flight see the new version and skip their write-back.
func (c *ContentCache) Invalidate(ctx context.Context, quizID int64) error {
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(quizID))
		pipe.Del(ctx, contentKey(quizID))
		return nil
	})
	return err
}

func (c *ContentCache) version(ctx context.Context, quizID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// store writes the content only if the version is still the one the load started from.
func (c *ContentCache) store(ctx context.Context, quizID, version int64, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(quizID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleContent
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, contentKey(quizID), raw, c.ttlWithJitter())
			return nil
		})
		return err
	}, versionKey(quizID))
}

func (c *ContentCache) lookup(ctx context.Context, quizID int64) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, contentKey(quizID)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors fall through to the loader too.
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func contentKey(quizID int64) string {
	return "quizmaster:quiz:" + strconv.FormatInt(quizID, 10) + ":content"
}

func versionKey(quizID int64) string {
	return "quizmaster:quiz:" + strconv.FormatInt(quizID, 10) + ":version"
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
