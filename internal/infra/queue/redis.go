package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

// RedisSummaryQueue реализует очередь задач на базе Redis lists.
type RedisSummaryQueue struct {
	client *redis.Client
	key    string
}

var _ domain.SummaryQueue = (*RedisSummaryQueue)(nil)

// NewRedisSummaryQueue создаёт очередь по указанному ключу.
func NewRedisSummaryQueue(client *redis.Client, key string) *RedisSummaryQueue {
	return &RedisSummaryQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisSummaryQueue) Enqueue(ctx context.Context, job domain.SummaryJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу. BRPOP уже удаляет элемент, поэтому подтверждение пустое.
func (q *RedisSummaryQueue) Receive(ctx context.Context) (domain.SummaryJob, domain.SummaryAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.SummaryJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.SummaryJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.SummaryJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.SummaryJob{}, nil, errors.New("redis queue: unexpected response")
		}
		var job domain.SummaryJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.SummaryJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		return job, func(bool) error { return nil }, nil
	}
}
