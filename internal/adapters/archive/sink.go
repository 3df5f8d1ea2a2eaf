package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"thread-summary-bot/internal/domain"
)

// ContentType документа саммари.
const ContentType = "text/markdown"

// SummaryKey строит ключ документа: summaries/<UTC-дата>/<канал>_<ts с "_" вместо ".">.md.
func SummaryKey(channelID, threadTS string, at time.Time) string {
	return fmt.Sprintf("summaries/%s/%s_%s.md", at.UTC().Format("2006-01-02"), channelID, strings.Replace(threadTS, ".", "_", 1))
}

// Sink сохраняет документы в объектное хранилище.
type Sink struct {
	storage domain.ObjectStorage
}

var _ domain.Archive = (*Sink)(nil)

// NewSink создаёт архив поверх хранилища.
func NewSink(storage domain.ObjectStorage) *Sink {
	return &Sink{storage: storage}
}

// Key возвращает ключ документа по схеме SummaryKey.
func (s *Sink) Key(channelID, threadTS string, at time.Time) string {
	return SummaryKey(channelID, threadTS, at)
}

// Store сохраняет документ и возвращает его локатор.
func (s *Sink) Store(ctx context.Context, key, content, contentType string, metadata map[string]string) (string, error) {
	if contentType == "" {
		contentType = ContentType
	}
	locator, err := s.storage.Put(ctx, key, content, contentType, metadata)
	if err != nil {
		return "", domain.NewStageError(domain.KindArchive, fmt.Errorf("сохранение %s: %w", key, err))
	}
	return locator, nil
}

// Fetch читает ранее сохранённый документ.
func (s *Sink) Fetch(ctx context.Context, key string) (string, error) {
	body, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("чтение %s: %w", key, err)
	}
	return body, nil
}
