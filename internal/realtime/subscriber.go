package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/model"
)

// Subscriber opens per-customer subscriptions on the notifications exchange.
// Every subscription owns an exclusive, auto-deleted queue bound with the
// customer's routing key, and reconnects with backoff until cancelled.
type Subscriber struct {
	URL      string
	Exchange string
	Log      *zap.Logger
	Buffer   int
}

// NewSubscriber returns a subscriber for the broker at url.
func NewSubscriber(url, exchange string, log *zap.Logger) *Subscriber {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Subscriber{URL: url, Exchange: exchange, Log: log, Buffer: 16}
}

// Subscribe dials the broker and starts delivering inserts for customerID.
// The initial dial happens synchronously so configuration errors surface to
// the caller; later disconnects are retried in the background.  The returned
// channel is closed once cancel has been called and the consumer stopped.
func (s *Subscriber) Subscribe(ctx context.Context, customerID string) (<-chan model.Notification, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	conn, err := amqp.Dial(s.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("realtime: dial: %w", err)
	}

	out := make(chan model.Notification, s.Buffer)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go s.run(conn, customerID, out, stop)
	return out, cancel, nil
}

func (s *Subscriber) run(conn *amqp.Connection, customerID string, out chan<- model.Notification, stop <-chan struct{}) {
	defer close(out)
	log := s.Log.With(zap.String("customer_id", customerID))

	backoff := time.Second
	for {
		if conn == nil {
			var err error
			conn, err = amqp.Dial(s.URL)
			if err != nil {
				log.Warn("notification subscriber: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
				select {
				case <-time.After(backoff):
				case <-stop:
					return
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
		}

		err := s.consume(conn, customerID, out, stop)
		_ = conn.Close()
		conn = nil
		if err == nil {
			return
		}
		log.Warn("notification subscriber: consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-time.After(2 * time.Second):
		case <-stop:
			return
		}
	}
}

// consume returns nil when stop is closed and an error when the broker side
// went away.
func (s *Subscriber) consume(conn *amqp.Connection, customerID string, out chan<- model.Notification, stop <-chan struct{}) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, s.Exchange); err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey(customerID), s.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "meit-"+uuid.NewString(), false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-stop:
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			n, err := decodeInserted(d.Body)
			if err != nil {
				s.Log.Warn("notification subscriber: bad message", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			if n.CustomerID != customerID {
				_ = d.Ack(false)
				continue
			}
			select {
			case out <- n:
				_ = d.Ack(false)
			case <-stop:
				_ = d.Nack(false, true)
				return nil
			}
		}
	}
}
