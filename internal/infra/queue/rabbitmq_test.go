package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"thread-summary-bot/internal/domain"
)

type recordingAcknowledger struct {
	acks, nacks, rejects int
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.acks++
	return nil
}

func (a *recordingAcknowledger) Nack(uint64, bool, bool) error {
	a.nacks++
	return nil
}

func (a *recordingAcknowledger) Reject(uint64, bool) error {
	a.rejects++
	return nil
}

func TestPrefetchCountFollowsConcurrency(t *testing.T) {
	if got := prefetchCount(4); got != 4 {
		t.Fatalf("ожидали prefetch 4, получили %d", got)
	}
	if got := prefetchCount(0); got != 1 {
		t.Fatalf("ожидали prefetch 1 по умолчанию, получили %d", got)
	}
}

func TestRabbitReceiveReopensConsumerAfterClose(t *testing.T) {
	closed := make(chan amqp.Delivery)
	close(closed)

	body, _ := json.Marshal(domain.SummaryJob{ID: "job-1", ChannelID: "C1"})
	acker := &recordingAcknowledger{}
	live := make(chan amqp.Delivery, 1)
	live <- amqp.Delivery{Acknowledger: acker, Body: body}

	opened := 0
	q := &RabbitSummaryQueue{queue: "summary_jobs"}
	q.openConsumer = func() (<-chan amqp.Delivery, error) {
		opened++
		if opened == 1 {
			return closed, nil
		}
		return live, nil
	}

	if _, _, err := q.Receive(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Fatalf("ожидали ErrConsumerClosed, получили %v", err)
	}

	job, ack, err := q.Receive(context.Background())
	if err != nil {
		t.Fatalf("после сброса потребитель должен переоткрыться: %v", err)
	}
	if opened != 2 || job.ID != "job-1" {
		t.Fatalf("неожиданное состояние: opened=%d job=%+v", opened, job)
	}
	if err := ack(true); err != nil || acker.acks != 1 {
		t.Fatalf("подтверждение не дошло до брокера: %v", err)
	}
}

func TestRabbitReceiveOpenError(t *testing.T) {
	q := &RabbitSummaryQueue{queue: "summary_jobs"}
	q.openConsumer = func() (<-chan amqp.Delivery, error) { return nil, errors.New("broker down") }

	if _, _, err := q.Receive(context.Background()); err == nil {
		t.Fatalf("ожидали ошибку открытия потребителя")
	}
	if q.deliveries != nil {
		t.Fatalf("неудачное открытие не должно запоминать канал")
	}
}

func TestRabbitReceiveRejectsBrokenPayload(t *testing.T) {
	acker := &recordingAcknowledger{}
	live := make(chan amqp.Delivery, 1)
	live <- amqp.Delivery{Acknowledger: acker, Body: []byte("not-json")}
	q := &RabbitSummaryQueue{queue: "summary_jobs"}
	q.openConsumer = func() (<-chan amqp.Delivery, error) { return live, nil }

	if _, _, err := q.Receive(context.Background()); err == nil {
		t.Fatalf("ожидали ошибку декодирования")
	}
	if acker.rejects != 1 {
		t.Fatalf("битое сообщение должно отклоняться")
	}
}
