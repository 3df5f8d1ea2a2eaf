package bot

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// InteractionsHandler принимает payload шорткатов по HTTP. Slack ждёт ответ за 3 секунды,
// поэтому обработка идёт в фоне после 200.
func InteractionsHandler(h *Handler, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		var cb slack.InteractionCallback
		if err := json.Unmarshal([]byte(r.PostFormValue("payload")), &cb); err != nil {
			log.Warn().Err(err).Msg("http: не удалось разобрать payload")
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		go h.HandleInteraction(context.WithoutCancel(r.Context()), cb)
	}
}

// CommandsHandler принимает slash-команды по HTTP.
func CommandsHandler(h *Handler, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			log.Warn().Err(err).Msg("http: не удалось разобрать команду")
			http.Error(w, "bad command", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		go h.HandleSlashCommand(context.WithoutCancel(r.Context()), cmd)
	}
}
