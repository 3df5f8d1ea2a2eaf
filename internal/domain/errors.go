package domain

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует отказ стадии пайплайна.
type ErrorKind string

const (
	// KindValidation — не удалось определить тред, пользователь должен повторить действие.
	KindValidation ErrorKind = "validation"
	// KindCollection — платформа не отдала сообщения треда.
	KindCollection ErrorKind = "collection"
	// KindSummarization — модель упала или вернула непригодный ответ.
	KindSummarization ErrorKind = "summarization"
	// KindArchive — не удалось сохранить документ; не прерывает пайплайн.
	KindArchive ErrorKind = "archive"
	// KindDelivery — не удалось доставить итоговое сообщение.
	KindDelivery ErrorKind = "delivery"
)

// StageError описывает отказ конкретной стадии с тегом вида ошибки.
type StageError struct {
	Kind ErrorKind
	Err  error
}

// NewStageError оборачивает причину в ошибку стадии.
func NewStageError(kind ErrorKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf возвращает вид ошибки стадии или пустую строку для прочих ошибок.
func KindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}
