package archive

import (
	"context"
	"errors"
)

// ErrNotConfigured возвращается, когда бакет архива не задан.
var ErrNotConfigured = errors.New("архив не настроен")

// Unconfigured используется как хранилище-заглушка для запуска без S3: каждое сохранение завершается ErrNotConfigured,
// и пайплайн доставляет саммари без ссылки на документ.
type Unconfigured struct{}

// Put всегда возвращает ErrNotConfigured.
func (Unconfigured) Put(context.Context, string, string, string, map[string]string) (string, error) {
	return "", ErrNotConfigured
}

// Get всегда возвращает ErrNotConfigured.
func (Unconfigured) Get(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
