package summary

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
)

type runner interface {
	Run(ctx context.Context, req Request) Outcome
}

// Worker читает задачи из очереди и запускает пайплайн.
// Каждая задача подтверждается ровно один раз, повторов нет.
type Worker struct {
	queue       domain.SummaryQueue
	pipeline    runner
	concurrency int
	log         zerolog.Logger
}

// NewWorker создаёт пул обработчиков очереди.
func NewWorker(queue domain.SummaryQueue, pipeline runner, concurrency int, log zerolog.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{queue: queue, pipeline: pipeline, concurrency: concurrency, log: log}
}

// Run блокируется до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, w.log.With().Int("worker", id).Logger())
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, log zerolog.Logger) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		jobLog := log.With().Str("job_id", job.ID).Str("channel", job.ChannelID).Str("thread", job.ThreadTS).Logger()
		out := w.pipeline.Run(ctx, RequestFromJob(job))
		jobLog.Debug().Str("status", string(out.Status)).Msg("worker: задача обработана")

		if err := ack(true); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
		}
	}
}
