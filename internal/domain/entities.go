package domain

import "time"

// ThreadMessage описывает одно сообщение треда после фильтрации.
type ThreadMessage struct {
	AuthorID     string
	DisplayName  string
	Text         string
	Timestamp    string
	RenderedTime string
}

// ThreadMessageSet содержит нормализованные сообщения одного треда.
type ThreadMessageSet struct {
	ChannelID    string
	ThreadTS     string
	Messages     []ThreadMessage
	MessageCount int
	Participants []string
}

// NewThreadMessageSet собирает набор сообщений и выводит из него счётчик и участников.
func NewThreadMessageSet(channelID, threadTS string, messages []ThreadMessage) ThreadMessageSet {
	participants := make([]string, 0)
	seen := make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		if _, ok := seen[msg.DisplayName]; ok {
			continue
		}
		seen[msg.DisplayName] = struct{}{}
		participants = append(participants, msg.DisplayName)
	}
	return ThreadMessageSet{
		ChannelID:    channelID,
		ThreadTS:     threadTS,
		Messages:     messages,
		MessageCount: len(messages),
		Participants: participants,
	}
}

// Empty сообщает, что в треде не осталось сообщений для суммаризации.
func (s ThreadMessageSet) Empty() bool {
	return s.MessageCount == 0
}

// SummaryDocument хранит итоговый артефакт одного запуска пайплайна.
type SummaryDocument struct {
	Thread       ThreadMessageSet
	AISummary    string
	ChannelLabel string
	RequestedBy  string
	RequestedAt  time.Time
}

// UserProfile содержит ответ платформы на запрос пользователя.
type UserProfile struct {
	RealName    string
	DisplayName string
}

// ChannelInfo содержит метаданные канала.
type ChannelInfo struct {
	ID   string
	Name string
}

// RawMessage хранит сообщение в том виде, в котором его вернула платформа.
type RawMessage struct {
	User    string
	Text    string
	TS      string
	SubType string
}

// SearchSource описывает один источник ответа базы знаний.
type SearchSource struct {
	Content  string
	Location string
	Score    *float64
}

// SearchResult содержит результат поиска по архиву саммари.
type SearchResult struct {
	Available bool
	Answer    string
	Sources   []SearchSource
}

// RAGAnswer хранит сырой ответ провайдера retrieve-and-generate.
type RAGAnswer struct {
	Answer    string
	Citations []SearchSource
}
