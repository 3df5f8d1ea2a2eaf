package slackapi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

const repliesPageSize = 200

// Client реализует доступ к Slack Web API, нужный пайплайну.
type Client struct {
	api *slack.Client
	log zerolog.Logger
}

var _ domain.ChatPlatform = (*Client)(nil)

// NewClient создаёт клиента Slack с bot-токеном.
func NewClient(token string, log zerolog.Logger, opts ...slack.Option) *Client {
	return &Client{api: slack.New(token, opts...), log: log}
}

// API возвращает исходный slack-go клиент (нужен socket mode).
func (c *Client) API() *slack.Client {
	return c.api
}

// BotUserID возвращает идентификатор пользователя бота.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	start := time.Now()
	resp, err := c.api.AuthTestContext(ctx)
	metrics.ObserveNetworkRequest("slack", "auth_test", "", start, err)
	if err != nil {
		return "", fmt.Errorf("slack auth.test: %w", err)
	}
	return resp.UserID, nil
}

// FetchThreadReplies забирает все страницы conversations.replies, включая корневое сообщение.
func (c *Client) FetchThreadReplies(ctx context.Context, channelID, rootTS string) ([]domain.RawMessage, error) {
	var (
		out       []domain.RawMessage
		container bool
		cursor    string
	)
	for page := 1; ; page++ {
		start := time.Now()
		msgs, hasMore, next, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: rootTS,
			Inclusive: true,
			Limit:     repliesPageSize,
			Cursor:    cursor,
		})
		metrics.ObserveNetworkRequest("slack", "conversations_replies", channelID, start, err)
		if err != nil {
			return nil, fmt.Errorf("slack conversations.replies (страница %d): %w", page, err)
		}
		if msgs != nil {
			container = true
		}
		for _, msg := range msgs {
			out = append(out, domain.RawMessage{
				User:    msg.User,
				Text:    msg.Text,
				TS:      msg.Timestamp,
				SubType: msg.SubType,
			})
		}
		if !hasMore || next == "" {
			break
		}
		cursor = next
	}
	if !container {
		return nil, nil
	}
	if out == nil {
		out = []domain.RawMessage{}
	}
	c.log.Debug().Str("channel", channelID).Str("thread", rootTS).Int("messages", len(out)).Msg("slack: тред получен")
	return out, nil
}

// LookupUser возвращает имена пользователя.
func (c *Client) LookupUser(ctx context.Context, userID string) (domain.UserProfile, error) {
	start := time.Now()
	user, err := c.api.GetUserInfoContext(ctx, userID)
	metrics.ObserveNetworkRequest("slack", "users_info", "", start, err)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("slack users.info %s: %w", userID, err)
	}
	return domain.UserProfile{RealName: user.RealName, DisplayName: user.Profile.DisplayName}, nil
}

// OpenDirectMessage открывает личный канал с пользователем.
func (c *Client) OpenDirectMessage(ctx context.Context, userID string) (string, error) {
	start := time.Now()
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	metrics.ObserveNetworkRequest("slack", "conversations_open", "", start, err)
	if err != nil {
		return "", fmt.Errorf("slack conversations.open %s: %w", userID, err)
	}
	if channel == nil || channel.ID == "" {
		return "", fmt.Errorf("slack conversations.open %s: пустой канал", userID)
	}
	return channel.ID, nil
}

// PostMessage публикует сообщение в канал без разворачивания ссылок.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	start := time.Now()
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	)
	metrics.ObserveNetworkRequest("slack", "chat_post_message", "", start, err)
	if err != nil {
		return fmt.Errorf("slack chat.postMessage: %w", err)
	}
	return nil
}

// FetchChannelInfo возвращает метаданные канала.
func (c *Client) FetchChannelInfo(ctx context.Context, channelID string) (domain.ChannelInfo, error) {
	start := time.Now()
	channel, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	metrics.ObserveNetworkRequest("slack", "conversations_info", channelID, start, err)
	if err != nil {
		return domain.ChannelInfo{}, fmt.Errorf("slack conversations.info %s: %w", channelID, err)
	}
	return domain.ChannelInfo{ID: channel.ID, Name: channel.Name}, nil
}

// RespondEphemeral отвечает через response_url видимым только автору сообщением.
func (c *Client) RespondEphemeral(ctx context.Context, responseURL, text string) error {
	if responseURL == "" {
		return fmt.Errorf("slack respond: пустой response_url")
	}
	start := time.Now()
	err := slack.PostWebhookContext(ctx, responseURL, &slack.WebhookMessage{
		Text:         text,
		ResponseType: slack.ResponseTypeEphemeral,
	})
	metrics.ObserveNetworkRequest("slack", "response_url", "", start, err)
	if err != nil {
		return fmt.Errorf("slack respond: %w", err)
	}
	return nil
}
