package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

// RedisQueue is a Queue on a Redis list: producers LPUSH, the worker BRPOP.
// A single list plus blocking pop gives exactly-one-consumer delivery
// without any broker-side configuration.
type RedisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

func NewRedisQueue(log *logger.Logger) (*RedisQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_QUEUE_KEY"))
	if key == "" {
		key = "docugraph:documents"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisQueue{
		log: log.With("service", "RedisQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.key, raw).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Task, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		q.log.Warn("dropping malformed queue payload", "error", err)
		return nil, nil
	}
	return &task, nil
}

func (q *RedisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
