package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/model"
)

// Publisher publishes NotificationInserted events to the topic exchange.
// Each call dials its own connection; publishing is rare (one per inserted
// notification) so no connection is kept open between calls.
type Publisher struct {
	URL      string
	Exchange string
	Log      *zap.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url, exchange string, log *zap.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{URL: url, Exchange: exchange, Log: log}
}

// PublishNotification publishes n routed to its customer.  Messages are
// marked persistent.  Errors are logged and returned so the caller can
// decide whether a missed push matters.
func (p *Publisher) PublishNotification(ctx context.Context, n model.Notification) error {
	if n.CustomerID == "" {
		return fmt.Errorf("realtime: notification %s has no customer", n.ID)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq dial failed", zap.Error(err))
		return fmt.Errorf("realtime: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq channel open failed", zap.Error(err))
		return fmt.Errorf("realtime: channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, p.Exchange); err != nil {
		p.Log.Warn("rabbitmq exchange declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(newInserted(n))
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    n.ID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.Exchange, RoutingKey(n.CustomerID), false, false, pub); err != nil {
		p.Log.Warn("rabbitmq publish failed", zap.String("notification_id", n.ID), zap.Error(err))
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// declareExchange is idempotent; durable so bindings survive broker restarts.
func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("realtime: exchange declare: %w", err)
	}
	return nil
}
