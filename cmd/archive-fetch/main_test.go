package main

import (
	"strings"
	"testing"
)

func TestRenderHTML(t *testing.T) {
	html, err := renderHTML("# 스레드 요약\n\n## 🤖 AI 요약\n\n- 배포 일정 확정\n")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	got := string(html)
	for _, want := range []string{"<h1>스레드 요약</h1>", "<h2>🤖 AI 요약</h2>", "<li>배포 일정 확정</li>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("в HTML нет %q:\n%s", want, got)
		}
	}
}
