package summary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/usecase/thread"
)

// MetadataTimeLayout задаёт ISO-8601 в UTC с миллисекундами.
const MetadataTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Formatter строит текстовые представления треда и итогового документа.
// Не делает I/O и не читает часы: одинаковый вход даёт одинаковый выход.
type Formatter struct {
	loc *time.Location
}

// NewFormatter создаёт форматтер, который показывает время в зоне loc.
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{loc: loc}
}

// RenderForModel собирает текст треда для языковой модели.
func (f Formatter) RenderForModel(set domain.ThreadMessageSet) string {
	var b strings.Builder
	b.WriteString("스레드 요약 요청\n")
	fmt.Fprintf(&b, "참여자: %s\n", strings.Join(set.Participants, ", "))
	fmt.Fprintf(&b, "메시지 수: %d개\n\n", set.MessageCount)
	b.WriteString("대화 내용:\n")
	for _, msg := range set.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.RenderedTime, msg.DisplayName, msg.Text)
	}
	return b.String()
}

// RenderDocument собирает markdown-документ для архива и плоские метаданные к нему.
func (f Formatter) RenderDocument(doc domain.SummaryDocument) (string, map[string]string) {
	set := doc.Thread
	generatedAt := thread.RenderTime(doc.RequestedAt, f.loc)

	var b strings.Builder
	b.WriteString("# 스레드 요약\n\n")

	b.WriteString("## 📋 요약 정보\n\n")
	fmt.Fprintf(&b, "- **채널**: %s\n", doc.ChannelLabel)
	fmt.Fprintf(&b, "- **스레드 타임스탬프**: %s\n", set.ThreadTS)
	fmt.Fprintf(&b, "- **참여자**: %s\n", strings.Join(set.Participants, ", "))
	fmt.Fprintf(&b, "- **메시지 수**: %d개\n", set.MessageCount)
	fmt.Fprintf(&b, "- **요약 요청자**: %s\n", doc.RequestedBy)
	fmt.Fprintf(&b, "- **요약 생성 시각**: %s\n\n", generatedAt)

	b.WriteString("## 🤖 AI 요약\n\n")
	b.WriteString(doc.AISummary)
	b.WriteString("\n\n")

	b.WriteString("## 💬 원본 대화\n\n")
	for i, msg := range set.Messages {
		fmt.Fprintf(&b, "### %d. %s (%s)\n\n", i+1, msg.DisplayName, msg.RenderedTime)
		b.WriteString(Sanitize(msg.Text))
		b.WriteString("\n\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("*이 요약은 AI에 의해 자동 생성되었으며, 실제 대화 내용과 다를 수 있습니다.*\n")
	fmt.Fprintf(&b, "*생성 시각: %s*\n", generatedAt)

	return b.String(), Metadata(doc)
}

// Metadata возвращает теги документа для объектного хранилища.
func Metadata(doc domain.SummaryDocument) map[string]string {
	set := doc.Thread
	return map[string]string{
		"channelId":        set.ChannelID,
		"threadTimestamp":  set.ThreadTS,
		"participantCount": strconv.Itoa(len(set.Participants)),
		"messageCount":     strconv.Itoa(set.MessageCount),
		"participants":     strings.Join(set.Participants, ","),
		"requestedBy":      doc.RequestedBy,
		"requestedAt":      doc.RequestedAt.UTC().Format(MetadataTimeLayout),
	}
}

// RenderNotification собирает личное сообщение с результатом суммаризации.
func RenderNotification(summary, locator string) string {
	var b strings.Builder
	b.WriteString("🤖 *AI 스레드 요약*\n\n")
	b.WriteString(strings.TrimSpace(summary))
	if locator != "" {
		b.WriteString("\n\n📁 요약 문서: ")
		b.WriteString(locator)
	}
	return b.String()
}

var (
	codeSpanRe    = regexp.MustCompile("```[\\s\\S]*?```|`[^`\\n]+`")
	userMentionRe = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)
	namedChanRe   = regexp.MustCompile(`<#([A-Z0-9]+)\|([^>]+)>`)
	bareChanRe    = regexp.MustCompile(`<#([A-Z0-9]+)>`)
	labeledURLRe  = regexp.MustCompile(`<(https?://[^|>]+)\|([^>]+)>`)
	bareURLRe     = regexp.MustCompile(`<(https?://[^>]+)>`)
)

// Sanitize переводит разметку Slack в markdown. Содержимое блоков кода не меняется.
func Sanitize(text string) string {
	spans := codeSpanRe.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return sanitizePlain(text)
	}
	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(sanitizePlain(text[prev:span[0]]))
		b.WriteString(text[span[0]:span[1]])
		prev = span[1]
	}
	b.WriteString(sanitizePlain(text[prev:]))
	return b.String()
}

func sanitizePlain(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	s = userMentionRe.ReplaceAllString(s, "@사용자")
	s = namedChanRe.ReplaceAllString(s, "#$2")
	s = bareChanRe.ReplaceAllString(s, "#$1")
	s = labeledURLRe.ReplaceAllString(s, "[$2]($1)")
	return bareURLRe.ReplaceAllString(s, "$1")
}
