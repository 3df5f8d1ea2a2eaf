package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"thread-summary-bot/internal/domain"
)

type fakeGenerator struct {
	text     string
	err      error
	prompt   string
	captured domain.GenerateOptions
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	f.prompt = prompt
	f.captured = opts
	return f.text, f.err
}

func TestSummarizePassesOptions(t *testing.T) {
	gen := &fakeGenerator{text: "핵심 요약"}
	got, err := NewLLM(gen, 4096, 0.3).Summarize(context.Background(), "[t] Alice: 안녕", []string{"Alice", "Bob"}, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "핵심 요약" {
		t.Fatalf("саммари должно возвращаться без изменений: %q", got)
	}
	if gen.captured.Temperature != 0.3 || gen.captured.MaxTokens != 4096 {
		t.Fatalf("неожиданные параметры генерации: %+v", gen.captured)
	}
	if !strings.Contains(gen.captured.SystemInstruction, "한국어로 답변해주세요") {
		t.Fatalf("системная инструкция должна требовать корейский язык")
	}
	if !strings.HasPrefix(gen.prompt, "참여자: Alice, Bob\n메시지 수: 2개\n\n대화 내용:\n[t] Alice: 안녕") {
		t.Fatalf("неожиданный промпт: %q", gen.prompt)
	}
}

func TestSummarizeErrors(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"ошибка провайдера": {err: errors.New("quota")},
		"пустой ответ":      {text: "  \n"},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLLM(gen, 0, 0.3).Summarize(context.Background(), "x", nil, 1)
			if domain.KindOf(err) != domain.KindSummarization {
				t.Fatalf("ожидали ошибку суммаризации, получили %v", err)
			}
		})
	}
}
