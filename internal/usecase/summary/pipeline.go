package summary

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

// Сообщения пользователю по итогам стадий.
const (
	MsgInvalidRequest   = "❌ 메시지 정보를 가져올 수 없습니다."
	MsgNoReplies        = "📝 이 메시지에는 스레드 답글이 없습니다.\n\n스레드가 있는 메시지에서 시도해주세요."
	MsgCollectionFailed = "❌ 스레드 메시지를 수집하는 중 오류가 발생했습니다.\n\n잠시 후 다시 시도해주세요."
	MsgSummaryFailed    = "❌ AI 요약 생성 중 오류가 발생했습니다.\n\n잠시 후 다시 시도해주세요."
	MsgDeliveryFailed   = "❌ 요약 결과를 DM으로 전달하지 못했습니다.\n\n봇과의 DM이 허용되어 있는지 확인해주세요."
)

// Request содержит входные данные одного запуска.
type Request struct {
	JobID         string
	ChannelID     string
	ThreadTS      string
	RequesterID   string
	RequesterName string
	BotUserID     string
	ResponseURL   string
	RequestedAt   time.Time
}

// RequestFromJob собирает запрос из задачи очереди.
func RequestFromJob(job domain.SummaryJob) Request {
	return Request{
		JobID:         job.ID,
		ChannelID:     job.ChannelID,
		ThreadTS:      job.ThreadTS,
		RequesterID:   job.RequesterID,
		RequesterName: job.RequesterName,
		BotUserID:     job.BotUserID,
		ResponseURL:   job.ResponseURL,
		RequestedAt:   job.RequestedAt,
	}
}

// Outcome описывает итог запуска.
type Outcome struct {
	Status       domain.RunOutcome
	Kind         domain.ErrorKind
	Err          error
	MessageCount int
	Locator      string
}

type textLimiter interface {
	Apply(text string) string
}

// Pipeline последовательно проводит тред через сбор, суммаризацию, архив и доставку.
type Pipeline struct {
	collector  domain.ThreadCollector
	summarizer domain.Summarizer
	archive    domain.Archive
	platform   domain.ChatPlatform
	runs       domain.SummaryRunRepo
	formatter  Formatter
	limiter    textLimiter
	now        func() time.Time
	log        zerolog.Logger
}

// Option настраивает Pipeline.
type Option func(*Pipeline)

// WithRunRepo включает запись истории запусков.
func WithRunRepo(repo domain.SummaryRunRepo) Option {
	return func(p *Pipeline) { p.runs = repo }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline создаёт оркестратор.
func NewPipeline(
	collector domain.ThreadCollector,
	summarizer domain.Summarizer,
	archive domain.Archive,
	platform domain.ChatPlatform,
	formatter Formatter,
	limiter textLimiter,
	log zerolog.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		collector:  collector,
		summarizer: summarizer,
		archive:    archive,
		platform:   platform,
		formatter:  formatter,
		limiter:    limiter,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run выполняет один запуск и возвращает его итог. Ошибки стадий сообщаются пользователю,
// поэтому вызывающему коду достаточно залогировать Outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = p.now()
	}
	log := p.log.With().Str("job_id", req.JobID).Str("channel", req.ChannelID).Str("thread", req.ThreadTS).Logger()

	out := p.run(ctx, req, log)

	metrics.IncRun(string(out.Status), string(out.Kind))
	if out.Err != nil {
		log.Error().Err(out.Err).Str("kind", string(out.Kind)).Msg("pipeline: запуск завершился ошибкой")
	} else {
		log.Info().Str("status", string(out.Status)).Int("messages", out.MessageCount).Str("locator", out.Locator).Msg("pipeline: запуск завершён")
	}
	p.record(ctx, req, out, log)
	return out
}

func (p *Pipeline) run(ctx context.Context, req Request, log zerolog.Logger) Outcome {
	// Validating
	if req.ChannelID == "" || req.ThreadTS == "" {
		p.respond(ctx, req, MsgInvalidRequest, log)
		return failed(domain.NewStageError(domain.KindValidation, errors.New("нет канала или корня треда")))
	}

	// Collecting
	start := time.Now()
	set, err := p.collector.Collect(ctx, req.ChannelID, req.ThreadTS, req.BotUserID)
	metrics.ObserveStage("collect", start)
	if err != nil {
		p.respond(ctx, req, MsgCollectionFailed, log)
		return failed(asStage(domain.KindCollection, err))
	}
	metrics.ThreadMessagesCollected.Observe(float64(set.MessageCount))
	if set.Empty() {
		p.respond(ctx, req, MsgNoReplies, log)
		return Outcome{Status: domain.OutcomeNoReplies}
	}

	// Summarizing
	start = time.Now()
	summary, err := p.summarizer.Summarize(ctx, p.formatter.RenderForModel(set), set.Participants, set.MessageCount)
	metrics.ObserveStage("summarize", start)
	if err != nil {
		p.respond(ctx, req, MsgSummaryFailed, log)
		out := failed(asStage(domain.KindSummarization, err))
		out.MessageCount = set.MessageCount
		return out
	}

	// Publishing: archiving
	doc := domain.SummaryDocument{
		Thread:       set,
		AISummary:    summary,
		ChannelLabel: p.channelLabel(ctx, req.ChannelID, log),
		RequestedBy:  requestedBy(req),
		RequestedAt:  req.RequestedAt,
	}
	locator := p.publish(ctx, doc, log)

	// Publishing: notifying
	start = time.Now()
	err = p.notify(ctx, req.RequesterID, p.limiter.Apply(RenderNotification(summary, locator)))
	metrics.ObserveStage("notify", start)
	if err != nil {
		metrics.BotSendErrors.Inc()
		p.respond(ctx, req, MsgDeliveryFailed, log)
		return Outcome{
			Status:       domain.OutcomeFailed,
			Kind:         domain.KindDelivery,
			Err:          domain.NewStageError(domain.KindDelivery, err),
			MessageCount: set.MessageCount,
			Locator:      locator,
		}
	}

	return Outcome{Status: domain.OutcomeDelivered, MessageCount: set.MessageCount, Locator: locator}
}

func (p *Pipeline) publish(ctx context.Context, doc domain.SummaryDocument, log zerolog.Logger) string {
	start := time.Now()
	defer metrics.ObserveStage("archive", start)

	body, metadata := p.formatter.RenderDocument(doc)
	key := p.archive.Key(doc.Thread.ChannelID, doc.Thread.ThreadTS, p.now())
	locator, err := p.archive.Store(ctx, key, body, "text/markdown", metadata)
	if err != nil {
		metrics.ArchiveFailures.Inc()
		log.Warn().Err(err).Str("key", key).Msg("pipeline: документ не сохранён в архив")
		return ""
	}
	return locator
}

func (p *Pipeline) notify(ctx context.Context, userID, text string) error {
	channelID, err := p.platform.OpenDirectMessage(ctx, userID)
	if err != nil {
		return err
	}
	return p.platform.PostMessage(ctx, channelID, text)
}

func (p *Pipeline) channelLabel(ctx context.Context, channelID string, log zerolog.Logger) string {
	info, err := p.platform.FetchChannelInfo(ctx, channelID)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: не удалось получить имя канала")
		return channelID
	}
	if info.Name == "" {
		return channelID
	}
	return "#" + info.Name
}

func (p *Pipeline) respond(ctx context.Context, req Request, text string, log zerolog.Logger) {
	if req.ResponseURL == "" {
		log.Warn().Msg("pipeline: нет response_url для ответа пользователю")
		return
	}
	if err := p.platform.RespondEphemeral(ctx, req.ResponseURL, text); err != nil {
		metrics.BotSendErrors.Inc()
		log.Warn().Err(err).Msg("pipeline: не удалось ответить пользователю")
	}
}

func (p *Pipeline) record(ctx context.Context, req Request, out Outcome, log zerolog.Logger) {
	if p.runs == nil {
		return
	}
	run := domain.SummaryRun{
		JobID:        req.JobID,
		ChannelID:    req.ChannelID,
		ThreadTS:     req.ThreadTS,
		RequesterID:  req.RequesterID,
		Outcome:      out.Status,
		ErrorKind:    out.Kind,
		MessageCount: out.MessageCount,
		Locator:      out.Locator,
		RequestedAt:  req.RequestedAt,
		FinishedAt:   p.now(),
	}
	if err := p.runs.RecordSummaryRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("pipeline: не удалось записать историю запуска")
	}
}

func requestedBy(req Request) string {
	if req.RequesterName != "" {
		return req.RequesterName
	}
	return req.RequesterID
}

func failed(err error) Outcome {
	return Outcome{Status: domain.OutcomeFailed, Kind: domain.KindOf(err), Err: err}
}

// asStage гарантирует тег стадии у ошибки адаптера.
func asStage(kind domain.ErrorKind, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewStageError(kind, err)
}
