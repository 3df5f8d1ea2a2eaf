package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"thread-summary-bot/internal/adapters/slackapi"
	"thread-summary-bot/internal/domain"
)

type recordingQueue struct {
	jobs []domain.SummaryJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job domain.SummaryJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Receive(context.Context) (domain.SummaryJob, domain.SummaryAckFunc, error) {
	return domain.SummaryJob{}, nil, errors.New("not implemented")
}

type stubLocks struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *stubLocks) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *stubLocks) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type stubSearcher struct {
	result domain.SearchResult
	err    error
	query  string
}

func (s *stubSearcher) Query(_ context.Context, text string) (domain.SearchResult, error) {
	s.query = text
	return s.result, s.err
}

type stubChat struct {
	answer string
	err    error
	opts   domain.GenerateOptions
}

func (c *stubChat) Generate(_ context.Context, _ string, opts domain.GenerateOptions) (string, error) {
	c.opts = opts
	return c.answer, c.err
}

type recordingResponder struct {
	texts []string
}

func (r *recordingResponder) RespondEphemeral(_ context.Context, _ string, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingResponder) last() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type handlerDeps struct {
	queue     *recordingQueue
	locks     *stubLocks
	searcher  *stubSearcher
	chat      *stubChat
	responder *recordingResponder
}

func newTestHandler(deps *handlerDeps) *Handler {
	if deps.queue == nil {
		deps.queue = &recordingQueue{}
	}
	if deps.searcher == nil {
		deps.searcher = &stubSearcher{}
	}
	if deps.chat == nil {
		deps.chat = &stubChat{}
	}
	deps.responder = &recordingResponder{}
	var locks domain.Cache
	if deps.locks != nil {
		locks = deps.locks
	}
	h := NewHandler(deps.queue, locks, deps.searcher, deps.chat, deps.responder, Options{
		BotUserID:       "UBOT",
		LockTTL:         time.Minute,
		ChatTemperature: 0.7,
		Limiter:         slackapi.Limiter{MaxRunes: 3000, KeepRunes: 2900},
	}, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC) }
	h.newID = func() string { return "job-1" }
	return h
}

func shortcut(threadTS, ts string) slack.InteractionCallback {
	var cb slack.InteractionCallback
	cb.Type = slack.InteractionTypeMessageAction
	cb.CallbackID = "thread_summary"
	cb.ResponseURL = "https://hooks.slack.test/resp"
	cb.Channel.ID = "C1"
	cb.User.ID = "U1"
	cb.User.Name = "alice"
	cb.Message.Timestamp = ts
	cb.Message.ThreadTimestamp = threadTS
	return cb
}

func TestHandleInteractionEnqueuesThreadRoot(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("1700000000.000100", "1700000050.000200"))

	if len(deps.queue.jobs) != 1 {
		t.Fatalf("ожидали одну задачу, получили %d", len(deps.queue.jobs))
	}
	job := deps.queue.jobs[0]
	if job.ID != "job-1" || job.ThreadTS != "1700000000.000100" || job.ChannelID != "C1" {
		t.Fatalf("неожиданная задача: %+v", job)
	}
	if job.BotUserID != "UBOT" || job.RequesterID != "U1" || job.ResponseURL == "" {
		t.Fatalf("задача без данных запроса: %+v", job)
	}
	if deps.responder.last() != msgSummarizing {
		t.Fatalf("ожидали сообщение о начале, получили %q", deps.responder.last())
	}
}

func TestHandleInteractionUsesMessageTSOutsideThread(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("", "1700000050.000200"))

	if got := deps.queue.jobs[0].ThreadTS; got != "1700000050.000200" {
		t.Fatalf("ожидали ts сообщения, получили %q", got)
	}
}

func TestHandleInteractionRejectsOtherTypes(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)
	cb := shortcut("1.1", "1.1")
	cb.Type = slack.InteractionTypeShortcut

	h.HandleInteraction(context.Background(), cb)

	if len(deps.queue.jobs) != 0 {
		t.Fatalf("задача не должна ставиться")
	}
	if deps.responder.last() != msgNotMessageAction {
		t.Fatalf("неожиданный ответ %q", deps.responder.last())
	}
}

func TestHandleInteractionIgnoresUnknownCallback(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)
	cb := shortcut("1.1", "1.1")
	cb.CallbackID = "other"

	h.HandleInteraction(context.Background(), cb)

	if len(deps.queue.jobs) != 0 || len(deps.responder.texts) != 0 {
		t.Fatalf("чужой callback должен игнорироваться")
	}
}

func TestHandleInteractionMissingChannelStillEnqueues(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)
	cb := shortcut("", "")
	cb.Channel.ID = ""

	h.HandleInteraction(context.Background(), cb)

	if len(deps.queue.jobs) != 1 {
		t.Fatalf("задачу должен проверить пайплайн, ожидали постановку")
	}
	if len(deps.responder.texts) != 0 {
		t.Fatalf("без канала сообщение о начале не отправляется: %v", deps.responder.texts)
	}
}

func TestHandleInteractionDeduplicatesWithLock(t *testing.T) {
	deps := &handlerDeps{locks: &stubLocks{}}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("1.1", "1.2"))
	h.HandleInteraction(context.Background(), shortcut("1.1", "1.3"))

	if len(deps.queue.jobs) != 1 {
		t.Fatalf("повторный запрос не должен ставиться, задач: %d", len(deps.queue.jobs))
	}
	if deps.responder.last() != msgAlreadyRunning {
		t.Fatalf("ожидали сообщение о повторе, получили %q", deps.responder.last())
	}
}

func TestHandleInteractionLockErrorDoesNotBlock(t *testing.T) {
	deps := &handlerDeps{locks: &stubLocks{err: errors.New("redis down")}}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("1.1", "1.2"))

	if len(deps.queue.jobs) != 1 {
		t.Fatalf("ошибка блокировки не должна мешать постановке")
	}
}

func TestHandleInteractionEnqueueFailure(t *testing.T) {
	deps := &handlerDeps{queue: &recordingQueue{err: errors.New("queue full")}}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("1.1", "1.2"))

	if deps.responder.last() != msgEnqueueFailed {
		t.Fatalf("ожидали сообщение об ошибке, получили %q", deps.responder.last())
	}
}

func TestHandleInteractionReleasesLockWhenEnqueueFails(t *testing.T) {
	deps := &handlerDeps{queue: &recordingQueue{err: errors.New("queue down")}, locks: &stubLocks{}}
	h := newTestHandler(deps)

	h.HandleInteraction(context.Background(), shortcut("1.1", "1.2"))
	if deps.responder.last() != msgEnqueueFailed {
		t.Fatalf("ожидали сообщение об ошибке, получили %q", deps.responder.last())
	}

	deps.queue.err = nil
	h.HandleInteraction(context.Background(), shortcut("1.1", "1.2"))

	if len(deps.queue.jobs) != 1 {
		t.Fatalf("повтор после ошибки очереди должен ставить задачу, задач: %d", len(deps.queue.jobs))
	}
	if deps.responder.last() == msgAlreadyRunning {
		t.Fatalf("блокировка осталась после ошибки постановки")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/search", Text: "  ", ResponseURL: "https://r"})

	if !strings.Contains(deps.responder.last(), "사용법: `/search <검색어>`") {
		t.Fatalf("ожидали подсказку, получили %q", deps.responder.last())
	}
}

func TestSearchUnavailable(t *testing.T) {
	deps := &handlerDeps{searcher: &stubSearcher{result: domain.SearchResult{Available: false}}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/search", Text: "배포", ResponseURL: "https://r"})

	if len(deps.responder.texts) != 2 {
		t.Fatalf("ожидали прогресс и результат, получили %v", deps.responder.texts)
	}
	if deps.responder.texts[0] != "🔍 \"배포\"를 검색하고 있습니다..." {
		t.Fatalf("неожиданный прогресс %q", deps.responder.texts[0])
	}
	if deps.responder.last() != msgSearchUnavailable {
		t.Fatalf("неожиданный ответ %q", deps.responder.last())
	}
}

func TestSearchEmptyAnswer(t *testing.T) {
	deps := &handlerDeps{searcher: &stubSearcher{result: domain.SearchResult{Available: true}}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/search", Text: "배포", ResponseURL: "https://r"})

	if !strings.Contains(deps.responder.last(), "검색 결과가 없습니다") {
		t.Fatalf("неожиданный ответ %q", deps.responder.last())
	}
}

func TestSearchError(t *testing.T) {
	deps := &handlerDeps{searcher: &stubSearcher{err: errors.New("boom")}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/search", Text: "배포", ResponseURL: "https://r"})

	if deps.responder.last() != "❌ 검색 중 오류가 발생했습니다.\n\nboom" {
		t.Fatalf("неожиданный ответ %q", deps.responder.last())
	}
}

func TestFormatSearchResult(t *testing.T) {
	score := 0.876
	long := strings.Repeat("가", 250)
	result := domain.SearchResult{
		Available: true,
		Answer:    "배포는 금요일입니다.",
		Sources: []domain.SearchSource{
			{Content: long, Location: "s3://bucket/a.md", Score: &score},
			{Content: "짧은 내용"},
		},
	}

	got := FormatSearchResult("배포", result)

	for _, want := range []string{
		"🔍 *검색 결과: \"배포\"*",
		"📝 *답변:*\n배포는 금요일입니다.",
		"📚 *참고 자료 (2개):*",
		"1. " + strings.Repeat("가", 200) + "...",
		"📍 위치: s3://bucket/a.md",
		"🎯 관련도: 88%",
		"2. 짧은 내용",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("в ответе нет %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, strings.Repeat("가", 201)) {
		t.Fatalf("фрагмент источника не обрезан")
	}
}

func TestFormatSearchResultNumbersOnlyNonEmptySources(t *testing.T) {
	result := domain.SearchResult{
		Available: true,
		Answer:    "답변",
		Sources: []domain.SearchSource{
			{Content: "첫 번째"},
			{Content: ""},
			{Content: "세 번째"},
		},
	}

	got := FormatSearchResult("q", result)

	if !strings.Contains(got, "📚 *참고 자료 (2개):*") {
		t.Fatalf("счётчик источников должен учитывать только непустые:\n%s", got)
	}
	if !strings.Contains(got, "1. 첫 번째") || !strings.Contains(got, "2. 세 번째") {
		t.Fatalf("нумерация источников с пропусками:\n%s", got)
	}
	if strings.Contains(got, "3. ") {
		t.Fatalf("лишний номер источника:\n%s", got)
	}
}

func TestChatAnswer(t *testing.T) {
	deps := &handlerDeps{chat: &stubChat{answer: "안녕하세요"}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/chat", Text: "요약 기능?", ResponseURL: "https://r"})

	if deps.responder.texts[0] != msgChatThinking {
		t.Fatalf("ожидали прогресс, получили %q", deps.responder.texts[0])
	}
	want := "💬 *AI 채팅*\n\n*질문:* 요약 기능?\n\n*답변:* 안녕하세요"
	if deps.responder.last() != want {
		t.Fatalf("ожидали %q, получили %q", want, deps.responder.last())
	}
	if deps.chat.opts.SystemInstruction != chatSystemPrompt || deps.chat.opts.Temperature != 0.7 || deps.chat.opts.MaxTokens != 2048 {
		t.Fatalf("неверные параметры генерации: %+v", deps.chat.opts)
	}
}

func TestChatTruncatesLongAnswer(t *testing.T) {
	deps := &handlerDeps{chat: &stubChat{answer: strings.Repeat("a", 5000)}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/chat", Text: "q", ResponseURL: "https://r"})

	if !strings.HasSuffix(deps.responder.last(), chatTruncatedNote) {
		t.Fatalf("длинный ответ должен обрезаться")
	}
}

func TestChatRequiresMessage(t *testing.T) {
	deps := &handlerDeps{}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/chat", ResponseURL: "https://r"})

	if !strings.Contains(deps.responder.last(), "사용법: `/chat <메시지>`") {
		t.Fatalf("ожидали подсказку, получили %q", deps.responder.last())
	}
}

func TestChatError(t *testing.T) {
	deps := &handlerDeps{chat: &stubChat{err: errors.New("quota")}}
	h := newTestHandler(deps)

	h.HandleSlashCommand(context.Background(), slack.SlashCommand{Command: "/chat", Text: "q", ResponseURL: "https://r"})

	if deps.responder.last() != "❌ 채팅 중 오류가 발생했습니다.\n\nquota" {
		t.Fatalf("неожиданный ответ %q", deps.responder.last())
	}
}
