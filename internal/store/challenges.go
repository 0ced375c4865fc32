package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// Challenges caches the challenges of the locations the customer joined.
type Challenges struct {
	*Collection[model.Challenge]
	gw gateway.Challenges
}

func NewChallenges(gw gateway.Challenges, log *zap.Logger) *Challenges {
	return &Challenges{Collection: newCollection[model.Challenge]("challenges", log), gw: gw}
}

func (c *Challenges) Load(ctx context.Context, customerID string) error {
	return c.run(ctx, customerID, func(ctx context.Context) ([]model.Challenge, error) {
		return c.gw.GetChallenges(ctx, customerID)
	}, nil)
}

func (c *Challenges) Refresh(ctx context.Context, customerID string) error {
	return c.Load(ctx, customerID)
}

func (c *Challenges) GetByID(id string) (model.Challenge, bool) {
	return c.find(func(x model.Challenge) bool { return x.ID == id })
}

func (c *Challenges) GetByMerchant(locationID int64) []model.Challenge {
	return c.filter(func(x model.Challenge) bool { return x.LocationID == locationID })
}

// Active returns running challenges: flagged active and not past EndDate.
func (c *Challenges) Active(now time.Time) []model.Challenge {
	return c.filter(func(x model.Challenge) bool { return x.IsActive && !x.Expired(now) })
}

// ForFavorites returns the running challenges of the given locations.
func (c *Challenges) ForFavorites(favoriteLocationIDs []int64, now time.Time) []model.Challenge {
	fav := make(map[int64]struct{}, len(favoriteLocationIDs))
	for _, id := range favoriteLocationIDs {
		fav[id] = struct{}{}
	}
	return c.filter(func(x model.Challenge) bool {
		_, ok := fav[x.LocationID]
		return ok && x.IsActive && !x.Expired(now)
	})
}
