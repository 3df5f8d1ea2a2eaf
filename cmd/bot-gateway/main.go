package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"

	"thread-summary-bot/internal/adapters/bot"
	"thread-summary-bot/internal/adapters/search"
	"thread-summary-bot/internal/adapters/slackapi"
	"thread-summary-bot/internal/app"
	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/cache"
	"thread-summary-bot/internal/infra/config"
	httpserver "thread-summary-bot/internal/infra/http"
	applog "thread-summary-bot/internal/infra/log"
	"thread-summary-bot/internal/infra/metrics"
	"thread-summary-bot/internal/infra/textgen"
	"thread-summary-bot/internal/usecase/summary"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("gateway: некорректная конфигурация")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	var slackOpts []slack.Option
	if cfg.SocketMode() {
		slackOpts = append(slackOpts, slack.OptionAppLevelToken(cfg.Slack.SocketToken))
	}
	platform := slackapi.NewClient(cfg.Slack.BotToken, applog.Component(logger, "slack"), slackOpts...)
	botCtx, botCancel := context.WithTimeout(ctx, 10*time.Second)
	botUserID, err := platform.BotUserID(botCtx)
	botCancel()
	if err != nil {
		logger.Warn().Err(err).Msg("gateway: не удалось определить id бота, триггеры по упоминанию не фильтруются")
	}

	providers, err := textgen.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось создать LLM-клиента")
	}

	res, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось подключить хранилища")
	}
	defer res.Close()

	jobs, err := app.NewQueue(cfg, res)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: не удалось инициализировать очередь")
	}

	if strings.EqualFold(cfg.Queues.Backend, app.QueueMemory) {
		pipeline, err := app.NewPipeline(ctx, cfg, platform, providers.Generator, res, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway: не удалось собрать пайплайн")
		}
		worker := summary.NewWorker(jobs, pipeline, cfg.Queues.Concurrency, applog.Component(logger, "worker"))
		go worker.Run(ctx)
	}

	var locks domain.Cache
	if res.Redis != nil {
		locks = cache.NewRedis(res.Redis, "thread-summary")
	}

	handler := bot.NewHandler(
		jobs,
		locks,
		search.NewClient(providers.KnowledgeBase, cfg.AWS.KnowledgeBaseID, applog.Component(logger, "search")),
		providers.Generator,
		platform,
		bot.Options{
			ShortcutID:      cfg.Slack.ShortcutID,
			SearchCommand:   cfg.Slack.SearchCommand,
			ChatCommand:     cfg.Slack.ChatCommand,
			BotUserID:       botUserID,
			LockTTL:         cfg.Limits.TriggerLockTTL,
			ChatMaxTokens:   cfg.LLM.ChatMaxTokens,
			ChatTemperature: cfg.LLM.ChatTemperature,
			Limiter:         slackapi.Limiter{MaxRunes: cfg.Limits.NotifyMaxRunes, KeepRunes: cfg.Limits.NotifyKeepRunes},
		},
		applog.Component(logger, "bot"),
	)

	if cfg.SocketMode() {
		runner := bot.NewSocketRunner(platform.API(), handler, applog.Component(logger, "socket"))
		logger.Info().Msg("gateway: запуск в режиме Socket Mode")
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Fatal().Err(err).Msg("gateway: Socket Mode остановлен с ошибкой")
		}
		logger.Info().Msg("gateway: остановлен")
		return
	}

	srv := httpserver.NewServer(applog.Component(logger, "http"))
	srv.MountSlack(cfg.Slack.SigningSecret, bot.InteractionsHandler(handler, logger), bot.CommandsHandler(handler, logger))
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("gateway: HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("gateway: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
