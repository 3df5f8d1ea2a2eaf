package bot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"thread-summary-bot/internal/adapters/slackapi"
	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

const (
	msgNotMessageAction = "❌ 메시지 액션이 아닙니다."
	msgSummarizing      = "⏳ 스레드를 요약하고 있습니다. 완료되면 DM으로 결과를 보내드릴게요."
	msgAlreadyRunning   = "⏳ 이미 이 스레드를 요약하고 있습니다. 잠시만 기다려주세요."
	msgEnqueueFailed    = "❌ 스레드 요약 중 오류가 발생했습니다.\n\n잠시 후 다시 시도해주세요."

	msgSearchUsage       = "❌ 검색어를 입력해주세요.\n\n사용법: `%s <검색어>`"
	msgSearching         = "🔍 \"%s\"를 검색하고 있습니다..."
	msgSearchUnavailable = "❌ 검색 기능을 사용할 수 없습니다.\n\n지식 베이스가 설정되지 않았거나 오류가 발생했습니다."
	msgSearchEmpty       = "🔍 \"%s\"에 대한 검색 결과가 없습니다.\n\n다른 검색어로 다시 시도해보세요."
	msgSearchFailed      = "❌ 검색 중 오류가 발생했습니다.\n\n%s"

	msgChatUsage      = "❌ 메시지를 입력해주세요.\n\n사용법: `%s <메시지>`"
	msgChatThinking   = "💭 메시지를 처리하고 있습니다..."
	msgChatFailed     = "❌ 채팅 중 오류가 발생했습니다.\n\n%s"
	chatTruncatedNote = "\n\n...(답변이 잘렸습니다)"

	chatSystemPrompt = "당신은 슬랙 스레드 요약 봇의 AI 어시스턴트입니다. 사용자의 질문에 한국어로 친절하고 정확하게 답변해주세요. 슬랙 사용법, 요약 기능, 검색 기능에 대한 질문이라면 더욱 상세히 설명해주세요."

	snippetRunes = 200
)

type ephemeralResponder interface {
	RespondEphemeral(ctx context.Context, responseURL, text string) error
}

// Options задаёт имена команд и параметры ответов.
type Options struct {
	ShortcutID      string
	SearchCommand   string
	ChatCommand     string
	BotUserID       string
	LockTTL         time.Duration
	ChatMaxTokens   int
	ChatTemperature float64
	Limiter         slackapi.Limiter
}

// Handler обрабатывает шорткаты и slash-команды Slack независимо от транспорта.
type Handler struct {
	jobs      domain.SummaryQueue
	locks     domain.Cache
	searcher  domain.Searcher
	chat      domain.TextGenerator
	responder ephemeralResponder
	opts      Options
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. locks может быть nil, тогда защита от повторов отключена.
func NewHandler(jobs domain.SummaryQueue, locks domain.Cache, searcher domain.Searcher, chat domain.TextGenerator, responder ephemeralResponder, opts Options, log zerolog.Logger) *Handler {
	if opts.ShortcutID == "" {
		opts.ShortcutID = "thread_summary"
	}
	if opts.SearchCommand == "" {
		opts.SearchCommand = "/search"
	}
	if opts.ChatCommand == "" {
		opts.ChatCommand = "/chat"
	}
	if opts.ChatMaxTokens <= 0 {
		opts.ChatMaxTokens = 2048
	}
	return &Handler{
		jobs:      jobs,
		locks:     locks,
		searcher:  searcher,
		chat:      chat,
		responder: responder,
		opts:      opts,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		log:       log,
	}
}

// HandleInteraction обрабатывает message shortcut и ставит задачу на суммаризацию.
func (h *Handler) HandleInteraction(ctx context.Context, cb slack.InteractionCallback) {
	if cb.CallbackID != h.opts.ShortcutID {
		h.log.Debug().Str("callback_id", cb.CallbackID).Msg("bot: неизвестный callback")
		return
	}
	metrics.IncTrigger("shortcut")
	if cb.Type != slack.InteractionTypeMessageAction {
		h.respond(ctx, cb.ResponseURL, msgNotMessageAction)
		return
	}

	job := JobFromShortcut(cb, h.opts.BotUserID, h.now())
	job.ID = h.newID()
	log := h.log.With().Str("job_id", job.ID).Str("channel", job.ChannelID).Str("thread", job.ThreadTS).Str("user", job.RequesterID).Logger()

	if job.ChannelID != "" && job.ThreadTS != "" {
		if !h.acquire(ctx, job, log) {
			h.respond(ctx, cb.ResponseURL, msgAlreadyRunning)
			return
		}
		h.respond(ctx, cb.ResponseURL, msgSummarizing)
	}

	if err := h.jobs.Enqueue(ctx, job); err != nil {
		log.Error().Err(err).Msg("bot: не удалось поставить задачу в очередь")
		h.release(ctx, job, log)
		h.respond(ctx, cb.ResponseURL, msgEnqueueFailed)
		return
	}
	log.Info().Msg("bot: задача на суммаризацию поставлена")
}

// JobFromShortcut собирает задачу из payload шортката. Корнем треда считается thread_ts
// сообщения, а для сообщения вне треда его собственный ts.
func JobFromShortcut(cb slack.InteractionCallback, botUserID string, now time.Time) domain.SummaryJob {
	root := cb.Message.ThreadTimestamp
	if root == "" {
		root = cb.Message.Timestamp
	}
	return domain.SummaryJob{
		ChannelID:     cb.Channel.ID,
		ThreadTS:      root,
		RequesterID:   cb.User.ID,
		RequesterName: cb.User.Name,
		BotUserID:     botUserID,
		ResponseURL:   cb.ResponseURL,
		RequestedAt:   now,
	}
}

func (h *Handler) acquire(ctx context.Context, job domain.SummaryJob, log zerolog.Logger) bool {
	if h.locks == nil {
		return true
	}
	ok, err := h.locks.Acquire(ctx, lockKey(job), h.opts.LockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("bot: блокировка недоступна, продолжаем без неё")
		return true
	}
	return ok
}

// release снимает блокировку, чтобы пользователь мог повторить запрос после ошибки постановки.
func (h *Handler) release(ctx context.Context, job domain.SummaryJob, log zerolog.Logger) {
	if h.locks == nil || job.ChannelID == "" || job.ThreadTS == "" {
		return
	}
	if err := h.locks.Release(ctx, lockKey(job)); err != nil {
		log.Warn().Err(err).Msg("bot: не удалось снять блокировку")
	}
}

func lockKey(job domain.SummaryJob) string {
	return fmt.Sprintf("summary:%s:%s:%s", job.ChannelID, job.ThreadTS, job.RequesterID)
}

// HandleSlashCommand обрабатывает /search и /chat.
func (h *Handler) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case h.opts.SearchCommand:
		metrics.IncTrigger("search")
		h.handleSearch(ctx, cmd)
	case h.opts.ChatCommand:
		metrics.IncTrigger("chat")
		h.handleChat(ctx, cmd)
	default:
		h.log.Debug().Str("command", cmd.Command).Msg("bot: неизвестная команда")
	}
}

func (h *Handler) handleSearch(ctx context.Context, cmd slack.SlashCommand) {
	query := strings.TrimSpace(cmd.Text)
	if query == "" {
		h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgSearchUsage, h.opts.SearchCommand))
		return
	}
	h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgSearching, query))

	result, err := h.searcher.Query(ctx, query)
	if err != nil {
		h.log.Error().Err(err).Str("user", cmd.UserID).Msg("bot: ошибка поиска")
		h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgSearchFailed, err.Error()))
		return
	}
	if !result.Available {
		h.respond(ctx, cmd.ResponseURL, msgSearchUnavailable)
		return
	}
	if result.Answer == "" {
		h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgSearchEmpty, query))
		return
	}
	h.respond(ctx, cmd.ResponseURL, h.opts.Limiter.Apply(FormatSearchResult(query, result)))
}

// FormatSearchResult собирает ответ на /search.
func FormatSearchResult(query string, result domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *검색 결과: \"%s\"*\n\n", query)
	fmt.Fprintf(&b, "📝 *답변:*\n%s\n\n", result.Answer)
	sources := make([]domain.SearchSource, 0, len(result.Sources))
	for _, src := range result.Sources {
		if src.Content != "" {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "📚 *참고 자료 (%d개):*\n", len(sources))
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. %s", i+1, snippet(src.Content))
		if src.Location != "" {
			fmt.Fprintf(&b, "\n   📍 위치: %s", src.Location)
		}
		if src.Score != nil {
			fmt.Fprintf(&b, "\n   🎯 관련도: %d%%", int(math.Round(*src.Score*100)))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func snippet(content string) string {
	if utf8.RuneCountInString(content) <= snippetRunes {
		return content
	}
	return string([]rune(content)[:snippetRunes]) + "..."
}

func (h *Handler) handleChat(ctx context.Context, cmd slack.SlashCommand) {
	message := strings.TrimSpace(cmd.Text)
	if message == "" {
		h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgChatUsage, h.opts.ChatCommand))
		return
	}
	h.respond(ctx, cmd.ResponseURL, msgChatThinking)

	answer, err := h.chat.Generate(ctx, message, domain.GenerateOptions{
		MaxTokens:         h.opts.ChatMaxTokens,
		Temperature:       h.opts.ChatTemperature,
		SystemInstruction: chatSystemPrompt,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user", cmd.UserID).Msg("bot: ошибка генерации ответа")
		h.respond(ctx, cmd.ResponseURL, fmt.Sprintf(msgChatFailed, err.Error()))
		return
	}
	h.respond(ctx, cmd.ResponseURL, h.opts.Limiter.ApplyWithSuffix(FormatChatAnswer(message, answer), chatTruncatedNote))
}

// FormatChatAnswer собирает ответ на /chat.
func FormatChatAnswer(question, answer string) string {
	return fmt.Sprintf("💬 *AI 채팅*\n\n*질문:* %s\n\n*답변:* %s", question, answer)
}

func (h *Handler) respond(ctx context.Context, responseURL, text string) {
	if responseURL == "" {
		h.log.Warn().Msg("bot: нет response_url для ответа")
		return
	}
	if err := h.responder.RespondEphemeral(ctx, responseURL, text); err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Warn().Err(err).Msg("bot: не удалось отправить ответ")
	}
}
