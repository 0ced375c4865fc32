package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// ExpiringWindow is how far ahead ExpiringSoon looks.
const ExpiringWindow = 7 * 24 * time.Hour

// GiftCards caches the customer's gift cards.  Stored statuses are never
// rewritten; expiry is a read-time projection.
type GiftCards struct {
	*Collection[model.GiftCard]
	gw gateway.GiftCards
}

func NewGiftCards(gw gateway.GiftCards, log *zap.Logger) *GiftCards {
	return &GiftCards{Collection: newCollection[model.GiftCard]("gift_cards", log), gw: gw}
}

func (g *GiftCards) Load(ctx context.Context, customerID string) error {
	return g.run(ctx, customerID, func(ctx context.Context) ([]model.GiftCard, error) {
		return g.gw.GetGiftCards(ctx, customerID)
	}, nil)
}

func (g *GiftCards) Refresh(ctx context.Context, customerID string) error {
	return g.Load(ctx, customerID)
}

func (g *GiftCards) GetByID(id string) (model.GiftCard, bool) {
	return g.find(func(x model.GiftCard) bool { return x.ID == id })
}

// GetByMerchant returns the cards issued by a location.
func (g *GiftCards) GetByMerchant(locationID int64) []model.GiftCard {
	return g.filter(func(x model.GiftCard) bool { return x.LocationID == locationID })
}

// Active returns the cards that are active and not past their expiry at now.
func (g *GiftCards) Active(now time.Time) []model.GiftCard {
	return g.filter(func(x model.GiftCard) bool { return x.EffectiveStatus(now) == model.GiftCardActive })
}

// ExpiringSoon returns stored-active cards expiring within ExpiringWindow
// of now.  Cards whose expiry already passed are included.
func (g *GiftCards) ExpiringSoon(now time.Time) []model.GiftCard {
	limit := now.Add(ExpiringWindow)
	return g.filter(func(x model.GiftCard) bool {
		return x.Status == model.GiftCardActive && !x.ExpiresAt.After(limit)
	})
}
