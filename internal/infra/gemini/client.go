package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

// Client генерирует текст через Gemini API.
type Client struct {
	models *genai.Models
	model  string
}

var _ domain.TextGenerator = (*Client)(nil)

// NewClient создаёт клиента Gemini по API-ключу.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	if model == "" {
		return nil, errors.New("gemini: model is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

// Generate отправляет промпт и возвращает текст первого кандидата.
func (c *Client) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	metrics.ObserveNetworkRequest("gemini", "generate_content", c.model, start, err)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if usage := resp.UsageMetadata; usage != nil {
		metrics.ObserveLLMGeneration(c.model, time.Since(start), int(usage.PromptTokenCount), int(usage.CandidatesTokenCount), int(usage.TotalTokenCount))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: в ответе нет текста")
	}
	return text, nil
}
