package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"thread-summary-bot/internal/domain"
)

// ErrEmptySummary возвращается, если модель ответила пустым текстом.
var ErrEmptySummary = errors.New("модель вернула пустое саммари")

const systemInstruction = `당신은 슬랙 스레드 대화를 요약하는 전문가입니다.
다음 가이드라인을 따라 요약해주세요:

1. 한국어로 답변해주세요
2. 주요 논점과 결론을 명확하게 정리해주세요
3. 참여자별 핵심 의견을 구분해서 정리해주세요
4. 결정사항이나 액션 아이템이 있다면 별도로 정리해주세요
5. 전체적인 대화의 맥락과 흐름을 파악할 수 있도록 요약해주세요`

// LLM реализует суммаризацию треда поверх генератора текста.
type LLM struct {
	generator   domain.TextGenerator
	maxTokens   int
	temperature float64
}

var _ domain.Summarizer = (*LLM)(nil)

// NewLLM создаёт клиента суммаризации.
func NewLLM(generator domain.TextGenerator, maxTokens int, temperature float64) *LLM {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &LLM{generator: generator, maxTokens: maxTokens, temperature: temperature}
}

// Summarize возвращает текст саммари без постобработки.
func (s *LLM) Summarize(ctx context.Context, renderedText string, participants []string, messageCount int) (string, error) {
	summary, err := s.generator.Generate(ctx, BuildPrompt(renderedText, participants, messageCount), domain.GenerateOptions{
		MaxTokens:         s.maxTokens,
		Temperature:       s.temperature,
		SystemInstruction: systemInstruction,
	})
	if err != nil {
		return "", domain.NewStageError(domain.KindSummarization, fmt.Errorf("генерация саммари: %w", err))
	}
	if strings.TrimSpace(summary) == "" {
		return "", domain.NewStageError(domain.KindSummarization, ErrEmptySummary)
	}
	return summary, nil
}

// BuildPrompt собирает пользовательское сообщение с данными треда.
func BuildPrompt(renderedText string, participants []string, messageCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "참여자: %s\n", strings.Join(participants, ", "))
	fmt.Fprintf(&b, "메시지 수: %d개\n\n", messageCount)
	b.WriteString("대화 내용:\n")
	b.WriteString(renderedText)
	return b.String()
}
