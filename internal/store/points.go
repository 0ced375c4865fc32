package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// HistoryLimit is how many audit rows the points cache keeps.
const HistoryLimit = 20

// Points caches per-relation balances along with the customer-wide summary
// and the recent points history.  All three are replaced together.
type Points struct {
	*Collection[model.RelationPoints]
	gw gateway.Points

	summary model.PointsSummary       // guarded by Collection.mu
	history []model.PointsTransaction // guarded by Collection.mu
}

func NewPoints(gw gateway.Points, log *zap.Logger) *Points {
	p := &Points{
		Collection: newCollection[model.RelationPoints]("points", log),
		gw:         gw,
	}
	p.onReset = func() {
		p.summary = model.PointsSummary{}
		p.history = nil
	}
	return p
}

// Load fetches the summary, the per-relation balances and the history.  Any
// failure fails the whole load.
func (p *Points) Load(ctx context.Context, customerID string) error {
	var (
		summary model.PointsSummary
		history []model.PointsTransaction
	)
	fetch := func(ctx context.Context) ([]model.RelationPoints, error) {
		var err error
		if summary, err = p.gw.GetGlobalPoints(ctx, customerID); err != nil {
			return nil, err
		}
		byRelation, err := p.gw.GetPointsByRelation(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if history, err = p.gw.GetPointsHistory(ctx, customerID, HistoryLimit); err != nil {
			return nil, err
		}
		return byRelation, nil
	}
	return p.run(ctx, customerID, fetch, func(items []model.RelationPoints) []model.RelationPoints {
		p.summary = summary
		p.history = history
		return items
	})
}

// Refresh is Load.
func (p *Points) Refresh(ctx context.Context, customerID string) error {
	return p.Load(ctx, customerID)
}

// Summary returns the customer-wide totals.
func (p *Points) Summary() model.PointsSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

// History returns the cached points history, newest first.
func (p *Points) History() []model.PointsTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.PointsTransaction{}, p.history...)
}

// ByLocation returns the balance held at a location.
func (p *Points) ByLocation(locationID int64) (model.RelationPoints, bool) {
	return p.find(func(x model.RelationPoints) bool { return x.LocationID == locationID })
}

// TotalAvailable sums the per-relation available balances.
func (p *Points) TotalAvailable() int64 {
	var total int64
	p.view(func(items []model.RelationPoints) {
		for _, it := range items {
			total += it.Available
		}
	})
	return total
}
