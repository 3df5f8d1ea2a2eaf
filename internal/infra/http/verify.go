package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const maxSlackBody = 1 << 20

// SlackSignatureMiddleware проверяет подпись запроса Slack по signing secret.
// Тело запроса после проверки восстанавливается для следующего обработчика.
func SlackSignatureMiddleware(signingSecret string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				log.Warn().Err(err).Str("request_id", RequestID(r)).Msg("http: нет заголовков подписи")
				WriteError(w, http.StatusUnauthorized, err)
				return
			}
			var body bytes.Buffer
			if _, err := io.Copy(&body, io.TeeReader(io.LimitReader(r.Body, maxSlackBody), &verifier)); err != nil {
				WriteError(w, http.StatusBadRequest, err)
				return
			}
			if err := verifier.Ensure(); err != nil {
				log.Warn().Err(err).Str("request_id", RequestID(r)).Msg("http: подпись недействительна")
				WriteError(w, http.StatusUnauthorized, err)
				return
			}
			r.Body = io.NopCloser(&body)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
