package domain

import (
	"context"
	"time"
)

// ChatPlatform описывает возможности чат-платформы, нужные пайплайну.
type ChatPlatform interface {
	// FetchThreadReplies возвращает все сообщения треда вместе с корневым.
	// Nil-срез без ошибки означает, что платформа не вернула контейнер сообщений.
	FetchThreadReplies(ctx context.Context, channelID, rootTS string) ([]RawMessage, error)
	LookupUser(ctx context.Context, userID string) (UserProfile, error)
	OpenDirectMessage(ctx context.Context, userID string) (string, error)
	PostMessage(ctx context.Context, channelID, text string) error
	FetchChannelInfo(ctx context.Context, channelID string) (ChannelInfo, error)
	// RespondEphemeral отвечает через response_url исходного действия.
	RespondEphemeral(ctx context.Context, responseURL, text string) error
}

// GenerateOptions задаёт параметры генерации текста.
type GenerateOptions struct {
	MaxTokens         int
	Temperature       float64
	SystemInstruction string
}

// TextGenerator генерирует текст по промпту.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// KnowledgeBase выполняет retrieve-and-generate запрос.
type KnowledgeBase interface {
	RetrieveAndGenerate(ctx context.Context, query, knowledgeBaseID string) (RAGAnswer, error)
}

// ObjectStorage хранит документы по ключу.
type ObjectStorage interface {
	Put(ctx context.Context, key, body, contentType string, metadata map[string]string) (string, error)
	Get(ctx context.Context, key string) (string, error)
}

// ThreadCollector собирает нормализованные сообщения треда.
type ThreadCollector interface {
	Collect(ctx context.Context, channelID, threadTS, botUserID string) (ThreadMessageSet, error)
}

// Summarizer строит саммари треда.
type Summarizer interface {
	Summarize(ctx context.Context, renderedText string, participants []string, messageCount int) (string, error)
}

// Archive сохраняет опубликованный документ и возвращает локатор.
type Archive interface {
	// Key строит детерминированный ключ документа для треда.
	Key(channelID, threadTS string, at time.Time) string
	Store(ctx context.Context, key, content, contentType string, metadata map[string]string) (string, error)
}

// Searcher ищет по ранее сохранённым саммари.
type Searcher interface {
	Query(ctx context.Context, text string) (SearchResult, error)
}

// Cache используется для коротких блокировок между репликами гейтвея.
type Cache interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release снимает блокировку раньше TTL.
	Release(ctx context.Context, key string) error
}
