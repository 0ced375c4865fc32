package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
	"github.com/meit-app/meit/internal/utils"
)

// Feed opens per-customer realtime subscriptions.  realtime.Subscriber
// satisfies it.
type Feed interface {
	Subscribe(ctx context.Context, customerID string) (<-chan model.Notification, func(), error)
}

// AuthConfig controls the sessions SignInWithPassword issues.
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Gateway composes the repos into a gateway.Gateway.
type Gateway struct {
	Users         *UserRepo
	Tokens        *TokenRepo
	Customers     *CustomerRepo
	Locations     *LocationRepo
	Relations     *RelationRepo
	Points        *PointsRepo
	GiftCards     *GiftCardRepo
	Challenges    *ChallengeRepo
	Notifications *NotificationRepo

	feed Feed
	auth AuthConfig
}

// NewGateway wires every repo over db.  feed may be nil, in which case
// realtime subscriptions fail with gateway.ErrNetwork.  log may be nil.
func NewGateway(db *sql.DB, feed Feed, auth AuthConfig, log *zap.Logger) *Gateway {
	return &Gateway{
		Users:         NewUserRepo(db),
		Tokens:        NewTokenRepo(db),
		Customers:     NewCustomerRepo(db),
		Locations:     NewLocationRepo(db),
		Relations:     NewRelationRepo(db),
		Points:        NewPointsRepo(db),
		GiftCards:     NewGiftCardRepo(db),
		Challenges:    NewChallengeRepo(db),
		Notifications: NewNotificationRepo(db, log),
		feed:          feed,
		auth:          auth,
	}
}

var _ gateway.Gateway = (*Gateway)(nil)

func (g *Gateway) SignInWithPassword(ctx context.Context, email, password string) (model.RawSession, error) {
	acc, err := g.Users.GetByEmail(ctx, email)
	if errors.Is(err, gateway.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return model.RawSession{}, fmt.Errorf("invalid credentials: %w", gateway.ErrAuth)
	}
	if err != nil {
		return model.RawSession{}, err
	}
	if !acc.IsActive || !utils.VerifyPassword(acc.PasswordHash, password) {
		return model.RawSession{}, fmt.Errorf("invalid credentials: %w", gateway.ErrAuth)
	}
	return g.issue(ctx, acc)
}

// RefreshSession validates the refresh token by hash, revokes it and issues
// a new pair.
func (g *Gateway) RefreshSession(ctx context.Context, refreshToken string) (model.RawSession, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(refreshToken))
	userID, err := g.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, gateway.ErrNotFound) {
		return model.RawSession{}, fmt.Errorf("invalid refresh token: %w", gateway.ErrAuth)
	}
	if err != nil {
		return model.RawSession{}, err
	}
	if err := g.Tokens.RevokeByHash(ctx, hash); err != nil {
		return model.RawSession{}, err
	}
	acc, err := g.Users.GetByID(ctx, userID)
	if errors.Is(err, gateway.ErrNotFound) || (err == nil && !acc.IsActive) {
		return model.RawSession{}, fmt.Errorf("refresh: account %s unavailable: %w", userID, gateway.ErrAuth)
	}
	if err != nil {
		return model.RawSession{}, err
	}
	return g.issue(ctx, acc)
}

// issue signs a new token pair for acc and stores the refresh hash.
func (g *Gateway) issue(ctx context.Context, acc Account) (model.RawSession, error) {
	access, err := utils.NewAccessToken(g.auth.JWTSecret, acc.ID, acc.Email, g.auth.AccessTTL)
	if err != nil {
		return model.RawSession{}, err
	}
	refresh, err := utils.NewRefreshToken(g.auth.RefreshTTL)
	if err != nil {
		return model.RawSession{}, err
	}
	if err := g.Tokens.StoreRefresh(ctx, acc.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return model.RawSession{}, err
	}
	return model.RawSession{
		IdentityID:   acc.ID,
		Email:        acc.Email,
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresAt:    access.Exp,
	}, nil
}

func (g *Gateway) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return g.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refreshToken))
}

func (g *Gateway) GetCustomerByIdentity(ctx context.Context, identityID string) (model.Customer, error) {
	return g.Customers.GetByIdentity(ctx, identityID)
}

func (g *Gateway) CreateCustomer(ctx context.Context, identityID, email string, in model.ProfileInput) (model.Customer, error) {
	return g.Customers.Create(ctx, identityID, email, in)
}

func (g *Gateway) GetMerchantRelations(ctx context.Context, customerID string) ([]model.Merchant, error) {
	return g.Relations.ListMerchants(ctx, customerID)
}

func (g *Gateway) GetMerchantLocation(ctx context.Context, locationID int64) (model.Location, error) {
	return g.Locations.Get(ctx, locationID)
}

func (g *Gateway) GetParentMerchantID(ctx context.Context, locationID int64) (int64, error) {
	return g.Locations.ParentMerchantID(ctx, locationID)
}

func (g *Gateway) GetRelation(ctx context.Context, customerID string, locationID int64) (model.Relation, error) {
	return g.Relations.GetByPair(ctx, customerID, locationID)
}

func (g *Gateway) CreateRelation(ctx context.Context, r model.Relation) (model.Relation, error) {
	return g.Relations.Create(ctx, r)
}

func (g *Gateway) UpdateRelationFavorite(ctx context.Context, relationID string, favorite bool) error {
	return g.Relations.UpdateFavorite(ctx, relationID, favorite)
}

func (g *Gateway) GetGlobalPoints(ctx context.Context, customerID string) (model.PointsSummary, error) {
	return g.Points.Global(ctx, customerID)
}

func (g *Gateway) GetPointsByRelation(ctx context.Context, customerID string) ([]model.RelationPoints, error) {
	return g.Points.ByRelation(ctx, customerID)
}

func (g *Gateway) GetPointsHistory(ctx context.Context, customerID string, limit int) ([]model.PointsTransaction, error) {
	return g.Points.History(ctx, customerID, limit)
}

func (g *Gateway) GetGiftCards(ctx context.Context, customerID string) ([]model.GiftCard, error) {
	return g.GiftCards.ListByCustomer(ctx, customerID)
}

func (g *Gateway) GetChallenges(ctx context.Context, customerID string) ([]model.Challenge, error) {
	return g.Challenges.ListForCustomer(ctx, customerID)
}

func (g *Gateway) GetNotifications(ctx context.Context, customerID string, f model.NotificationFilter) ([]model.Notification, error) {
	return g.Notifications.List(ctx, customerID, f)
}

func (g *Gateway) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return g.Notifications.MarkRead(ctx, notificationID)
}

func (g *Gateway) MarkAllRead(ctx context.Context, customerID string) error {
	return g.Notifications.MarkAllRead(ctx, customerID)
}

func (g *Gateway) DeleteNotification(ctx context.Context, notificationID string) error {
	return g.Notifications.Delete(ctx, notificationID)
}

func (g *Gateway) SubscribeNotificationInserts(ctx context.Context, customerID string) (<-chan model.Notification, func(), error) {
	if g.feed == nil {
		return nil, nil, fmt.Errorf("subscribe %s: realtime disabled: %w", customerID, gateway.ErrNetwork)
	}
	ch, cancel, err := g.feed.Subscribe(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w: %w", customerID, gateway.ErrNetwork, err)
	}
	return ch, cancel, nil
}
