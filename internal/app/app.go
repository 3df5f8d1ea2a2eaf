// Package app собирает зависимости, общие для бинарников гейтвея и воркера.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"thread-summary-bot/internal/adapters/archive"
	"thread-summary-bot/internal/adapters/repo"
	"thread-summary-bot/internal/adapters/slackapi"
	"thread-summary-bot/internal/adapters/summarizer"
	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/bedrock"
	"thread-summary-bot/internal/infra/config"
	"thread-summary-bot/internal/infra/db"
	applog "thread-summary-bot/internal/infra/log"
	"thread-summary-bot/internal/infra/queue"
	"thread-summary-bot/internal/infra/s3store"
	"thread-summary-bot/internal/usecase/summary"
	"thread-summary-bot/internal/usecase/thread"
)

// Бэкенды очереди задач.
const (
	QueueMemory   = "memory"
	QueueRedis    = "redis"
	QueueRabbitMQ = "rabbitmq"
)

// memoryQueueSize ограничивает очередь в процессе гейтвея.
const memoryQueueSize = 256

// Resources хранит открытые соединения, которые нужно закрыть при остановке.
type Resources struct {
	Redis *redis.Client
	Pool  *pgxpool.Pool

	closers []func()
}

// Close освобождает соединения в обратном порядке.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// Open подключает Redis и Postgres, если они заданы в конфигурации.
func Open(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Resources, error) {
	res := &Resources{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		res.Redis = client
		res.closers = append(res.closers, func() { _ = client.Close() })
	}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.Pool = pool
		res.closers = append(res.closers, pool.Close)
	} else {
		logger.Info().Msg("app: PG_DSN не задан, история запусков не сохраняется")
	}
	return res, nil
}

// NewQueue создаёт очередь задач по QUEUE_BACKEND.
func NewQueue(cfg config.AppConfig, res *Resources) (domain.SummaryQueue, error) {
	switch strings.ToLower(cfg.Queues.Backend) {
	case QueueMemory:
		return queue.NewMemorySummaryQueue(memoryQueueSize), nil
	case QueueRedis:
		if res.Redis == nil {
			return nil, fmt.Errorf("redis queue requires REDIS_ADDR")
		}
		return queue.NewRedisSummaryQueue(res.Redis, cfg.Queues.Summary), nil
	case QueueRabbitMQ:
		q, err := queue.NewRabbitSummaryQueue(cfg.Queues.RabbitURL, cfg.Queues.Summary, cfg.Queues.Concurrency)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, func() { _ = q.Close() })
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queues.Backend)
	}
}

// NewArchive возвращает S3-архив или заглушку, если бакет не настроен.
func NewArchive(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*archive.Sink, error) {
	if cfg.AWS.S3Bucket == "" {
		logger.Warn().Msg("app: S3_BUCKET_NAME не задан, документы не архивируются")
		return archive.NewSink(archive.Unconfigured{}), nil
	}
	awsCfg, err := bedrock.LoadConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	store, err := s3store.New(awsCfg, cfg.AWS.S3Bucket, cfg.AWS.S3Prefix)
	if err != nil {
		return nil, err
	}
	return archive.NewSink(store), nil
}

// NewPipeline собирает пайплайн суммаризации.
func NewPipeline(ctx context.Context, cfg config.AppConfig, platform *slackapi.Client, generator domain.TextGenerator, res *Resources, logger zerolog.Logger) (*summary.Pipeline, error) {
	loc := cfg.Location()
	sink, err := NewArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	collector := thread.NewCollector(platform, cfg.Slack.TriggerKeyword, loc, applog.Component(logger, "collector"))
	llm := summarizer.NewLLM(generator, cfg.LLM.MaxTokens, cfg.LLM.SummaryTemperature)
	limiter := slackapi.Limiter{MaxRunes: cfg.Limits.NotifyMaxRunes, KeepRunes: cfg.Limits.NotifyKeepRunes}

	var opts []summary.Option
	if res.Pool != nil {
		runs := repo.NewPostgres(res.Pool)
		if err := runs.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		opts = append(opts, summary.WithRunRepo(runs))
	}
	return summary.NewPipeline(collector, llm, sink, platform, summary.NewFormatter(loc), limiter, applog.Component(logger, "pipeline"), opts...), nil
}
