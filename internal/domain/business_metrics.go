package domain

import (
	"context"
	"time"
)

// RunOutcome задаёт итог одного запуска пайплайна.
type RunOutcome string

const (
	// OutcomeDelivered — саммари доставлено пользователю.
	OutcomeDelivered RunOutcome = "delivered"
	// OutcomeNoReplies — в треде нет ответов, модель не вызывалась.
	OutcomeNoReplies RunOutcome = "no_replies"
	// OutcomeFailed — пайплайн остановлен ошибкой стадии.
	OutcomeFailed RunOutcome = "failed"
)

// SummaryRun описывает запуск пайплайна для последующего анализа.
type SummaryRun struct {
	JobID        string
	ChannelID    string
	ThreadTS     string
	RequesterID  string
	Outcome      RunOutcome
	ErrorKind    ErrorKind
	MessageCount int
	Locator      string
	RequestedAt  time.Time
	FinishedAt   time.Time
}

// SummaryRunRepo сохраняет историю запусков.
type SummaryRunRepo interface {
	RecordSummaryRun(ctx context.Context, run SummaryRun) error
}
