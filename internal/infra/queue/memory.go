package queue

import (
	"context"

	"thread-summary-bot/internal/domain"
)

// MemorySummaryQueue реализует очередь в памяти процесса для запуска без брокера.
type MemorySummaryQueue struct {
	jobs chan domain.SummaryJob
}

var _ domain.SummaryQueue = (*MemorySummaryQueue)(nil)

// NewMemorySummaryQueue создаёт очередь с буфером size.
func NewMemorySummaryQueue(size int) *MemorySummaryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemorySummaryQueue{jobs: make(chan domain.SummaryJob, size)}
}

// Enqueue кладёт задачу в буфер, ожидая свободного места.
func (q *MemorySummaryQueue) Enqueue(ctx context.Context, job domain.SummaryJob) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	}
}

// Receive ждёт следующую задачу.
func (q *MemorySummaryQueue) Receive(ctx context.Context) (domain.SummaryJob, domain.SummaryAckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.SummaryJob{}, nil, ctx.Err()
	case job := <-q.jobs:
		return job, func(bool) error { return nil }, nil
	}
}
