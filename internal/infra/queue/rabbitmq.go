package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

// ErrConsumerClosed возвращается, когда брокер закрыл канал доставки. Следующий Receive
// переподключает потребителя.
var ErrConsumerClosed = errors.New("rabbitmq: канал доставки закрыт")

// RabbitSummaryQueue реализует очередь задач поверх AMQP.
type RabbitSummaryQueue struct {
	url      string
	queue    string
	prefetch int

	connMu sync.Mutex
	conn   *amqp.Connection

	pubMu sync.Mutex
	pub   *amqp.Channel

	consMu     sync.Mutex
	deliveries <-chan amqp.Delivery
	consumeCh  *amqp.Channel
	// openConsumer подменяется в тестах.
	openConsumer func() (<-chan amqp.Delivery, error)
}

var _ domain.SummaryQueue = (*RabbitSummaryQueue)(nil)

// NewRabbitSummaryQueue подключается к брокеру и объявляет durable-очередь.
// prefetch ограничивает число неподтверждённых задач и должен совпадать с числом обработчиков.
func NewRabbitSummaryQueue(amqpURL, queue string, prefetch int) (*RabbitSummaryQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	q := &RabbitSummaryQueue{url: amqpURL, queue: queue, prefetch: prefetchCount(prefetch)}
	q.openConsumer = q.consume
	conn, err := q.connection()
	if err != nil {
		return nil, err
	}
	ch, err := q.openChannel(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	q.pub = ch
	return q, nil
}

func prefetchCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// connection возвращает живое соединение, переподключаясь после обрыва.
func (q *RabbitSummaryQueue) connection() (*amqp.Connection, error) {
	q.connMu.Lock()
	defer q.connMu.Unlock()
	if q.conn != nil && !q.conn.IsClosed() {
		return q.conn, nil
	}
	start := time.Now()
	conn, err := amqp.Dial(q.url)
	metrics.ObserveNetworkRequest("rabbitmq", "dial", q.queue, start, err)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	q.conn = conn
	return conn, nil
}

func (q *RabbitSummaryQueue) openChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return ch, nil
}

// Enqueue публикует задачу как persistent-сообщение.
func (q *RabbitSummaryQueue) Enqueue(ctx context.Context, job domain.SummaryJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	if q.pub == nil || q.pub.IsClosed() {
		conn, err := q.connection()
		if err != nil {
			return err
		}
		if q.pub, err = q.openChannel(conn); err != nil {
			return err
		}
	}
	start := time.Now()
	err = q.pub.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive ждёт следующую задачу. Подтверждение с false отклоняет сообщение без возврата в очередь.
func (q *RabbitSummaryQueue) Receive(ctx context.Context) (domain.SummaryJob, domain.SummaryAckFunc, error) {
	deliveries, err := q.consumer()
	if err != nil {
		return domain.SummaryJob{}, nil, err
	}
	select {
	case <-ctx.Done():
		return domain.SummaryJob{}, nil, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			q.resetConsumer(deliveries)
			return domain.SummaryJob{}, nil, ErrConsumerClosed
		}
		var job domain.SummaryJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			_ = d.Reject(false)
			return domain.SummaryJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return d.Ack(false)
			}
			return d.Nack(false, false)
		}
		return job, ack, nil
	}
}

// consumer возвращает общий канал доставки, открывая его при первом вызове и после сброса.
func (q *RabbitSummaryQueue) consumer() (<-chan amqp.Delivery, error) {
	q.consMu.Lock()
	defer q.consMu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	deliveries, err := q.openConsumer()
	if err != nil {
		return nil, err
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// resetConsumer забывает закрытый канал. Сравнение защищает от сброса уже переоткрытого канала
// другим обработчиком.
func (q *RabbitSummaryQueue) resetConsumer(closed <-chan amqp.Delivery) {
	q.consMu.Lock()
	defer q.consMu.Unlock()
	if q.deliveries != closed {
		return
	}
	q.deliveries = nil
	if q.consumeCh != nil {
		_ = q.consumeCh.Close()
		q.consumeCh = nil
	}
}

func (q *RabbitSummaryQueue) consume() (<-chan amqp.Delivery, error) {
	conn, err := q.connection()
	if err != nil {
		return nil, err
	}
	ch, err := q.openChannel(conn)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.consumeCh = ch
	return deliveries, nil
}

// Close закрывает соединение с брокером.
func (q *RabbitSummaryQueue) Close() error {
	q.connMu.Lock()
	defer q.connMu.Unlock()
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}
