package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
)

// ErrNoMessageContainer возвращается, если платформа не отдала список сообщений.
var ErrNoMessageContainer = errors.New("платформа не вернула сообщения треда")

type threadSource interface {
	FetchThreadReplies(ctx context.Context, channelID, rootTS string) ([]domain.RawMessage, error)
	LookupUser(ctx context.Context, userID string) (domain.UserProfile, error)
}

// Collector собирает сообщения треда, отбрасывает служебные и резолвит имена авторов.
type Collector struct {
	source  threadSource
	trigger string
	loc     *time.Location
	log     zerolog.Logger
}

var _ domain.ThreadCollector = (*Collector)(nil)

// NewCollector создаёт сборщик треда.
func NewCollector(source threadSource, triggerKeyword string, loc *time.Location, log zerolog.Logger) *Collector {
	if loc == nil {
		loc = time.UTC
	}
	return &Collector{source: source, trigger: strings.TrimSpace(triggerKeyword), loc: loc, log: log}
}

// Collect возвращает нормализованный набор сообщений треда в порядке платформы.
func (c *Collector) Collect(ctx context.Context, channelID, threadTS, botUserID string) (domain.ThreadMessageSet, error) {
	raw, err := c.source.FetchThreadReplies(ctx, channelID, threadTS)
	if err != nil {
		return domain.ThreadMessageSet{}, domain.NewStageError(domain.KindCollection, fmt.Errorf("получение треда: %w", err))
	}
	if raw == nil {
		return domain.ThreadMessageSet{}, domain.NewStageError(domain.KindCollection, ErrNoMessageContainer)
	}

	directory := newUserDirectory(c.source.LookupUser, c.log)
	messages := make([]domain.ThreadMessage, 0, len(raw))
	for _, msg := range raw {
		if c.excluded(msg, botUserID) {
			continue
		}
		messages = append(messages, domain.ThreadMessage{
			AuthorID:     msg.User,
			DisplayName:  directory.Resolve(ctx, msg.User),
			Text:         msg.Text,
			Timestamp:    msg.TS,
			RenderedTime: RenderTS(msg.TS, c.loc),
		})
	}

	return domain.NewThreadMessageSet(channelID, threadTS, messages), nil
}

func (c *Collector) excluded(msg domain.RawMessage, botUserID string) bool {
	if msg.User == "" || msg.Text == "" || msg.SubType != "" {
		return true
	}
	if botUserID != "" && msg.User == botUserID {
		return true
	}
	return IsTriggerMessage(msg.Text, c.trigger, botUserID)
}

// IsTriggerMessage сообщает, что сообщение является командой вызова суммаризации:
// либо текст целиком равен ключевому слову, либо в нём есть упоминание бота вместе с ключевым словом.
func IsTriggerMessage(text, keyword, botUserID string) bool {
	if keyword == "" {
		return false
	}
	if strings.TrimSpace(text) == keyword {
		return true
	}
	if botUserID == "" || !strings.Contains(text, keyword) {
		return false
	}
	return strings.Contains(text, "<@"+botUserID+">") || strings.Contains(text, "<@"+botUserID+"|")
}
