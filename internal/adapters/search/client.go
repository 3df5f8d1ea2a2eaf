package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
)

// QueryPrefix добавляется к запросу пользователя перед обращением к базе знаний.
const QueryPrefix = "슬랙 스레드 요약과 관련하여: "

// Client ищет по архиву саммари через retrieve-and-generate.
type Client struct {
	kb              domain.KnowledgeBase
	knowledgeBaseID string
	log             zerolog.Logger
}

var _ domain.Searcher = (*Client)(nil)

// NewClient создаёт поисковый клиент. Пустой knowledgeBaseID отключает поиск.
func NewClient(kb domain.KnowledgeBase, knowledgeBaseID string, log zerolog.Logger) *Client {
	return &Client{kb: kb, knowledgeBaseID: strings.TrimSpace(knowledgeBaseID), log: log}
}

// Query выполняет поиск. Без настроенной базы знаний возвращает Available=false без ошибки.
func (c *Client) Query(ctx context.Context, text string) (domain.SearchResult, error) {
	if c.knowledgeBaseID == "" || c.kb == nil {
		c.log.Warn().Msg("search: база знаний не настроена, поиск пропущен")
		return domain.SearchResult{}, nil
	}
	answer, err := c.kb.RetrieveAndGenerate(ctx, QueryPrefix+text, c.knowledgeBaseID)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("retrieve and generate: %w", err)
	}
	return domain.SearchResult{
		Available: true,
		Answer:    strings.TrimSpace(answer.Answer),
		Sources:   answer.Citations,
	}, nil
}
