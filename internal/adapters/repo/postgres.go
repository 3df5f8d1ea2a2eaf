package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

// Postgres хранит историю запусков пайплайна.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.SummaryRunRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS summary_runs (
	id            BIGSERIAL PRIMARY KEY,
	job_id        TEXT        NOT NULL,
	channel_id    TEXT        NOT NULL,
	thread_ts     TEXT        NOT NULL,
	requester_id  TEXT        NOT NULL,
	outcome       TEXT        NOT NULL,
	error_kind    TEXT,
	message_count INTEGER     NOT NULL DEFAULT 0,
	locator       TEXT,
	requested_at  TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS summary_runs_thread_idx ON summary_runs (channel_id, thread_ts);
`

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "summary_runs", start, err)
	return err
}

// RecordSummaryRun сохраняет итог запуска.
func (p *Postgres) RecordSummaryRun(ctx context.Context, run domain.SummaryRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO summary_runs (job_id, channel_id, thread_ts, requester_id, outcome, error_kind, message_count, locator, requested_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, run.JobID, run.ChannelID, run.ThreadTS, run.RequesterID, string(run.Outcome),
		nullableText(string(run.ErrorKind)), run.MessageCount, nullableText(run.Locator),
		run.RequestedAt.UTC(), run.FinishedAt.UTC())
	metrics.ObserveNetworkRequest("postgres", "summary_runs_insert", "summary_runs", start, err)
	return err
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
