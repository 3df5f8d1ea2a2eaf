package summary

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
)

type chanQueue struct {
	jobs chan domain.SummaryJob
	mu   sync.Mutex
	acks []bool
}

func (q *chanQueue) Enqueue(_ context.Context, job domain.SummaryJob) error {
	q.jobs <- job
	return nil
}

func (q *chanQueue) Receive(ctx context.Context) (domain.SummaryJob, domain.SummaryAckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.SummaryJob{}, nil, ctx.Err()
	case job := <-q.jobs:
		return job, func(success bool) error {
			q.mu.Lock()
			q.acks = append(q.acks, success)
			q.mu.Unlock()
			return nil
		}, nil
	}
}

type recordingRunner struct {
	mu   sync.Mutex
	reqs []Request
	done chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, req Request) Outcome {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	r.done <- struct{}{}
	return Outcome{Status: domain.OutcomeFailed, Kind: domain.KindCollection}
}

func TestWorkerAcksEveryJobOnce(t *testing.T) {
	queue := &chanQueue{jobs: make(chan domain.SummaryJob, 2)}
	runner := &recordingRunner{done: make(chan struct{}, 2)}
	worker := NewWorker(queue, runner, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(finished)
	}()

	_ = queue.Enqueue(ctx, domain.SummaryJob{ID: "a", ChannelID: "C1", ThreadTS: "1.1"})
	_ = queue.Enqueue(ctx, domain.SummaryJob{ID: "b", ChannelID: "C1", ThreadTS: "1.2"})
	for i := 0; i < 2; i++ {
		select {
		case <-runner.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("задачи не обработаны")
		}
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("воркер не остановился")
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.acks) != 2 || !queue.acks[0] || !queue.acks[1] {
		t.Fatalf("каждая задача подтверждается один раз, даже при ошибке: %v", queue.acks)
	}
}
