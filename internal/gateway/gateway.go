// Package gateway defines the contract of the remote data service the client
// core talks to.  The backend owns persistence, uniqueness constraints and
// transaction atomicity; the client consumes it through these interfaces.
//
// Implementations must map their native failures onto the sentinel errors
// below so callers can branch with errors.Is regardless of the transport.
package gateway

import (
	"context"
	"errors"

	"github.com/meit-app/meit/internal/model"
)

var (
	// ErrNotFound is returned when an entity lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrUniqueViolation is returned when an insert collides with a
	// uniqueness constraint, e.g. a second relation for the same
	// (customer, location) pair.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrValidation marks malformed input (QR payloads, profile forms).
	ErrValidation = errors.New("validation error")
	// ErrNetwork marks transient transport failures.
	ErrNetwork = errors.New("network error")
	// ErrAuth marks an invalid or expired session.
	ErrAuth = errors.New("auth error")
)

// KindOf names the error class of err for logs and API responses.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUniqueViolation):
		return "unique_violation"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNetwork):
		return "network"
	}
	return "internal"
}

// Auth exchanges credentials for sessions and invalidates them.
// RefreshSession rotates a refresh token: the old one is revoked and a new
// pair is issued.  Unknown, expired or revoked tokens fail with ErrAuth.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (model.RawSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (model.RawSession, error)
	SignOut(ctx context.Context, refreshToken string) error
}

// Customers reads and creates customer profiles.
type Customers interface {
	GetCustomerByIdentity(ctx context.Context, identityID string) (model.Customer, error)
	CreateCustomer(ctx context.Context, identityID, email string, in model.ProfileInput) (model.Customer, error)
}

// Merchants covers locations and customer relations.
type Merchants interface {
	GetMerchantRelations(ctx context.Context, customerID string) ([]model.Merchant, error)
	GetMerchantLocation(ctx context.Context, locationID int64) (model.Location, error)
	GetParentMerchantID(ctx context.Context, locationID int64) (int64, error)
	GetRelation(ctx context.Context, customerID string, locationID int64) (model.Relation, error)
	CreateRelation(ctx context.Context, r model.Relation) (model.Relation, error)
	UpdateRelationFavorite(ctx context.Context, relationID string, favorite bool) error
}

// Points reads balances and the points audit history.
type Points interface {
	GetGlobalPoints(ctx context.Context, customerID string) (model.PointsSummary, error)
	GetPointsByRelation(ctx context.Context, customerID string) ([]model.RelationPoints, error)
	GetPointsHistory(ctx context.Context, customerID string, limit int) ([]model.PointsTransaction, error)
}

// GiftCards reads a customer's gift cards.
type GiftCards interface {
	GetGiftCards(ctx context.Context, customerID string) ([]model.GiftCard, error)
}

// Challenges reads the challenges of the locations a customer joined.
type Challenges interface {
	GetChallenges(ctx context.Context, customerID string) ([]model.Challenge, error)
}

// Notifications reads and mutates notifications and opens the realtime feed.
//
// SubscribeNotificationInserts delivers newly inserted notifications for the
// customer on the returned channel until the cancel func is called.  ctx only
// bounds the setup of the subscription.
type Notifications interface {
	GetNotifications(ctx context.Context, customerID string, f model.NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, customerID string) error
	DeleteNotification(ctx context.Context, notificationID string) error
	SubscribeNotificationInserts(ctx context.Context, customerID string) (<-chan model.Notification, func(), error)
}

// Gateway is the full remote data service.
type Gateway interface {
	Auth
	Customers
	Merchants
	Points
	GiftCards
	Challenges
	Notifications
}
