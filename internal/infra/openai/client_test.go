package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thread-summary-bot/internal/domain"
)

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	var got ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("ожидали bearer-токен")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": " 요약 결과 "}}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	client := NewClient("sk-test", server.URL, "", time.Second)
	text, err := client.Generate(context.Background(), "대화", domain.GenerateOptions{MaxTokens: 4096, Temperature: 0.3, SystemInstruction: "요약해"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "요약 결과" {
		t.Fatalf("неожиданный текст: %q", text)
	}
	if got.Model != defaultModel || got.MaxTokens != 4096 || got.Temperature != 0.3 {
		t.Fatalf("неожиданный запрос: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem || got.Messages[1].Content != "대화" {
		t.Fatalf("неожиданные сообщения: %+v", got.Messages)
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	_, err := NewClient("sk-test", server.URL, "m", time.Second).Generate(context.Background(), "x", domain.GenerateOptions{})
	if err == nil || err.Error() != "openai: status 429: rate limit" {
		t.Fatalf("ожидали ошибку API, получили %v", err)
	}
}

func TestCreateChatCompletionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	resp, err := NewClient("sk-test", server.URL, "m", time.Second).CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil {
		t.Fatalf("ожидали ошибку для статуса 500, получили ответ %+v", resp)
	}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "500") {
		t.Fatalf("ошибка должна содержать статус и сообщение провайдера: %v", err)
	}
}

func TestCreateChatCompletionStatusWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient("sk-test", server.URL, "m", time.Second).CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || err.Error() != "openai: unexpected status 502" {
		t.Fatalf("ожидали ошибку статуса, получили %v", err)
	}
}

func TestGenerateRequiresKey(t *testing.T) {
	if _, err := NewClient("", "", "", 0).Generate(context.Background(), "x", domain.GenerateOptions{}); err == nil {
		t.Fatalf("ожидали ошибку без ключа")
	}
}
