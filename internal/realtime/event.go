// Package realtime carries newly inserted notifications from the backend to
// subscribed clients.  Events travel over a RabbitMQ topic exchange in
// production and through an in-memory Hub in tests and the memory gateway.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meit-app/meit/internal/model"
)

// DefaultExchange is the topic exchange notification inserts are published on.
const DefaultExchange = "meit.notifications"

// RoutingKey returns the routing key that scopes events to one customer.
func RoutingKey(customerID string) string { return "customer." + customerID }

// NotificationInserted is published once per inserted notifications row.
// It carries the full row so subscribers never query the database.
type NotificationInserted struct {
	Notification model.Notification `json:"notification"`
	PublishedAt  string             `json:"published_at"`
}

func newInserted(n model.Notification) NotificationInserted {
	return NotificationInserted{Notification: n, PublishedAt: time.Now().UTC().Format(time.RFC3339)}
}

func decodeInserted(body []byte) (model.Notification, error) {
	var ev NotificationInserted
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.Notification{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Notification.ID == "" {
		return model.Notification{}, fmt.Errorf("event without notification id")
	}
	return ev.Notification, nil
}
