package gemini

import (
	"context"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "gemini-2.5-flash"); err == nil {
		t.Fatalf("ожидали ошибку без ключа")
	}
	if _, err := NewClient(context.Background(), "key", ""); err == nil {
		t.Fatalf("ожидали ошибку без модели")
	}
}
