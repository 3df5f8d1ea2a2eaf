package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"thread-summary-bot/internal/adapters/slackapi"
	"thread-summary-bot/internal/app"
	"thread-summary-bot/internal/infra/config"
	applog "thread-summary-bot/internal/infra/log"
	"thread-summary-bot/internal/infra/metrics"
	"thread-summary-bot/internal/infra/textgen"
	"thread-summary-bot/internal/usecase/summary"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("worker: некорректная конфигурация")
	}
	if strings.EqualFold(cfg.Queues.Backend, app.QueueMemory) {
		logger.Fatal().Msg("worker: очередь в памяти обслуживается гейтвеем, укажите QUEUE_BACKEND=redis или rabbitmq")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	platform := slackapi.NewClient(cfg.Slack.BotToken, applog.Component(logger, "slack"))
	authCtx, authCancel := context.WithTimeout(ctx, 10*time.Second)
	if _, err := platform.BotUserID(authCtx); err != nil {
		logger.Warn().Err(err).Msg("worker: проверка токена Slack не прошла")
	}
	authCancel()

	providers, err := textgen.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать LLM-клиента")
	}

	res, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось подключить хранилища")
	}
	defer res.Close()

	jobs, err := app.NewQueue(cfg, res)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь")
	}

	pipeline, err := app.NewPipeline(ctx, cfg, platform, providers.Generator, res, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось собрать пайплайн")
	}

	logger.Info().Str("backend", cfg.Queues.Backend).Int("concurrency", cfg.Queues.Concurrency).Msg("worker: запуск обработки очереди")
	summary.NewWorker(jobs, pipeline, cfg.Queues.Concurrency, applog.Component(logger, "worker")).Run(ctx)
	logger.Info().Msg("worker: остановлен")
}
