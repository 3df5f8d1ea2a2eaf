package bot

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// SocketRunner принимает события Slack через Socket Mode.
type SocketRunner struct {
	client  *socketmode.Client
	handler *Handler
	log     zerolog.Logger
}

// NewSocketRunner создаёт раннер. api должен быть создан с slack.OptionAppLevelToken.
func NewSocketRunner(api *slack.Client, handler *Handler, log zerolog.Logger) *SocketRunner {
	return &SocketRunner{client: socketmode.New(api), handler: handler, log: log}
}

// Run блокируется до отмены контекста или обрыва соединения.
func (r *SocketRunner) Run(ctx context.Context) error {
	go r.dispatch(ctx)
	return r.client.RunContext(ctx)
}

func (r *SocketRunner) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.client.Events:
			if !ok {
				return
			}
			r.handle(ctx, evt)
		}
	}
}

func (r *SocketRunner) handle(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		r.log.Info().Msg("socket: подключение к Slack")
	case socketmode.EventTypeConnected:
		r.log.Info().Msg("socket: соединение установлено")
	case socketmode.EventTypeConnectionError:
		r.log.Warn().Msg("socket: ошибка соединения")
	case socketmode.EventTypeInteractive:
		cb, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			r.log.Warn().Msg("socket: неожиданный payload interactive")
			return
		}
		r.ack(evt)
		go r.handler.HandleInteraction(ctx, cb)
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			r.log.Warn().Msg("socket: неожиданный payload slash-команды")
			return
		}
		r.ack(evt)
		go r.handler.HandleSlashCommand(ctx, cmd)
	}
}

func (r *SocketRunner) ack(evt socketmode.Event) {
	if evt.Request == nil {
		return
	}
	r.client.Ack(*evt.Request)
}
