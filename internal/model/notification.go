package model

import (
	"fmt"
	"time"
)

// NotificationType enumerates the events the backend notifies customers about.
type NotificationType string

const (
	NotificationCheckIn           NotificationType = "checkin"
	NotificationGiftCardGenerated NotificationType = "gift_card_generated"
	NotificationGiftCardRedeemed  NotificationType = "gift_card_redeemed"
	NotificationPointsAssigned    NotificationType = "points_assigned"
	NotificationCustomerMilestone NotificationType = "customer_milestone"
	NotificationChallengeComplete NotificationType = "challenge_completed"
	NotificationNewCustomer       NotificationType = "new_customer"
)

// ParseNotificationType validates s against the fixed enumeration.
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationCheckIn, NotificationGiftCardGenerated, NotificationGiftCardRedeemed,
		NotificationPointsAssigned, NotificationCustomerMilestone, NotificationChallengeComplete,
		NotificationNewCustomer:
		return t, nil
	}
	return "", fmt.Errorf("unknown notification type %q", s)
}

// NotificationPriority orders notifications for display.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// ParseNotificationPriority validates s against the fixed priorities.
func ParseNotificationPriority(s string) (NotificationPriority, error) {
	switch p := NotificationPriority(s); p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("unknown notification priority %q", s)
}

// Notification mirrors a notifications row.  IsRead implies ReadAt != nil.
type Notification struct {
	ID         string               `json:"id"`
	LocationID int64                `json:"location_id"`
	CustomerID string               `json:"customer_id"`
	Type       NotificationType     `json:"type"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Metadata   map[string]any       `json:"metadata"`
	IsRead     bool                 `json:"is_read"`
	ReadAt     *time.Time           `json:"read_at,omitempty"`
	Priority   NotificationPriority `json:"priority"`
	CreatedAt  time.Time            `json:"created_at"`
}

// MarkRead sets the read flag and stamps ReadAt when it is missing.
func (n *Notification) MarkRead(at time.Time) {
	n.IsRead = true
	if n.ReadAt == nil {
		t := at
		n.ReadAt = &t
	}
}

// NotificationFilter narrows a notifications query.  Zero values mean no
// filtering; Limit defaults to 50.
type NotificationFilter struct {
	UnreadOnly bool
	Type       NotificationType
	Limit      int
}
