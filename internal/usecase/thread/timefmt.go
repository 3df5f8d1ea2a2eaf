package thread

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTS разбирает Slack timestamp вида "1700000000.000100" без потери точности.
func ParseTS(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(strings.TrimSpace(ts), ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ts %q: %w", ts, err)
	}
	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nsec, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse ts %q: %w", ts, err)
		}
	}
	return time.Unix(sec, nsec), nil
}

// RenderTime форматирует время так, как его показывает корейская локаль:
// "2024. 01. 15. 오후 03:04".
func RenderTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	period := "오전"
	if t.Hour() >= 12 {
		period = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%04d. %02d. %02d. %s %02d:%02d", t.Year(), int(t.Month()), t.Day(), period, hour, t.Minute())
}

// RenderTS форматирует Slack timestamp. Нечитаемый timestamp возвращается как есть.
func RenderTS(ts string, loc *time.Location) string {
	t, err := ParseTS(ts)
	if err != nil {
		return ts
	}
	return RenderTime(t, loc)
}
