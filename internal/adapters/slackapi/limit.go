package slackapi

import "unicode/utf8"

// Лимиты текста ответа, которые Slack показывает без обрезки блоков.
const (
	DefaultMaxRunes  = 3000
	DefaultKeepRunes = 2900
	// TruncatedSuffix добавляется к обрезанному сообщению.
	TruncatedSuffix = "\n\n...(내용이 잘렸습니다)"
)

// Truncate обрезает текст длиннее maxRunes до keepRunes символов и добавляет suffix.
func Truncate(text string, maxRunes, keepRunes int, suffix string) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	if keepRunes <= 0 || keepRunes > maxRunes {
		keepRunes = maxRunes
	}
	runes := []rune(text)
	return string(runes[:keepRunes]) + suffix
}

// Limiter применяет настроенные лимиты к сообщениям.
type Limiter struct {
	MaxRunes  int
	KeepRunes int
}

// Apply обрезает сообщение со стандартным суффиксом.
func (l Limiter) Apply(text string) string {
	return l.ApplyWithSuffix(text, TruncatedSuffix)
}

// ApplyWithSuffix обрезает сообщение с указанным суффиксом.
func (l Limiter) ApplyWithSuffix(text, suffix string) string {
	maxRunes, keepRunes := l.MaxRunes, l.KeepRunes
	if maxRunes <= 0 {
		maxRunes, keepRunes = DefaultMaxRunes, DefaultKeepRunes
	}
	return Truncate(text, maxRunes, keepRunes, suffix)
}
