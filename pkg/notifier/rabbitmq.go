package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQNotifier publishes events as persistent JSON messages on a durable queue.
type RabbitMQNotifier struct {
	url   string
	queue string
	log   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitMQNotifier(url, queue string, log *zap.Logger) (*RabbitMQNotifier, error) {
	n := &RabbitMQNotifier{
		url:   url,
		queue: queue,
		log:   log.With(zap.String("component", "rabbitmq_notifier")),
	}

	ch, err := n.channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		n.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return n, nil
}

// channel opens a channel, redialing when the connection dropped.
func (n *RabbitMQNotifier) channel() (*amqp.Channel, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		n.conn = conn
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (n *RabbitMQNotifier) ReservationConfirmed(ctx context.Context, event ReservationConfirmed) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := n.channel()
	if err != nil {
		n.log.Error("Failed to open channel", zap.Error(err))
		return err
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.ReservationCode,
		Type:         "reservation.confirmed",
		Body:         body,
	})
	if err != nil {
		n.log.Error("Failed to publish reservation confirmed",
			zap.Error(err),
			zap.String("code", event.ReservationCode),
		)
		return fmt.Errorf("publish reservation confirmed: %w", err)
	}

	return nil
}

func (n *RabbitMQNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil && !n.conn.IsClosed() {
		return n.conn.Close()
	}
	return nil
}
