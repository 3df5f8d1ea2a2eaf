package domain

import (
	"context"
	"time"
)

// SummaryJob содержит всё, что нужно воркеру для одного запуска пайплайна.
type SummaryJob struct {
	ID            string    `json:"job_id"`
	ChannelID     string    `json:"channel_id"`
	ThreadTS      string    `json:"thread_ts"`
	RequesterID   string    `json:"requester_id"`
	RequesterName string    `json:"requester_name,omitempty"`
	BotUserID     string    `json:"bot_user_id,omitempty"`
	ResponseURL   string    `json:"response_url,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// SummaryQueue описывает очередь задач на суммаризацию.
type SummaryQueue interface {
	Enqueue(ctx context.Context, job SummaryJob) error
	Receive(ctx context.Context) (SummaryJob, SummaryAckFunc, error)
}

// SummaryAckFunc подтверждает обработку задачи. Повторной доставки пайплайн не требует,
// false используется только когда задачу нужно вернуть из-за остановки воркера.
type SummaryAckFunc func(success bool) error
