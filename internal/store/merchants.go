package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// TogglePhase is the lifecycle of an optimistic favorite toggle.
type TogglePhase int

const (
	// ToggleApplied: the local flag is flipped, the remote update is pending.
	ToggleApplied TogglePhase = iota
	// ToggleConfirmed: the remote update succeeded.
	ToggleConfirmed
	// ToggleReverted: the remote update failed and the prior value is back.
	ToggleReverted
)

func (p TogglePhase) String() string {
	switch p {
	case ToggleApplied:
		return "applied"
	case ToggleConfirmed:
		return "confirmed"
	case ToggleReverted:
		return "reverted"
	}
	return fmt.Sprintf("TogglePhase(%d)", int(p))
}

// Toggle describes one favorite flip.
type Toggle struct {
	Seq        uint64
	RelationID string
	Prev       bool
	Want       bool
	Phase      TogglePhase
	Err        error
}

// Merchants caches the customer's relations joined with their locations.
type Merchants struct {
	*Collection[model.Merchant]
	gw gateway.Merchants

	seq     uint64
	pending map[uint64]Toggle // guarded by Collection.mu
}

func NewMerchants(gw gateway.Merchants, log *zap.Logger) *Merchants {
	m := &Merchants{
		Collection: newCollection[model.Merchant]("merchants", log),
		gw:         gw,
		pending:    make(map[uint64]Toggle),
	}
	m.onReset = func() { m.pending = make(map[uint64]Toggle) }
	return m
}

// Load replaces the merchant list with the customer's active relations.
func (m *Merchants) Load(ctx context.Context, customerID string) error {
	return m.run(ctx, customerID, func(ctx context.Context) ([]model.Merchant, error) {
		return m.gw.GetMerchantRelations(ctx, customerID)
	}, nil)
}

// Refresh is Load.
func (m *Merchants) Refresh(ctx context.Context, customerID string) error {
	return m.Load(ctx, customerID)
}

// GetByID returns the merchant whose relation id is id.
func (m *Merchants) GetByID(id string) (model.Merchant, bool) {
	return m.find(func(x model.Merchant) bool { return x.ID == id })
}

// GetByLocation returns the merchant for a location id.
func (m *Merchants) GetByLocation(locationID int64) (model.Merchant, bool) {
	return m.find(func(x model.Merchant) bool { return x.LocationID == locationID })
}

// Favorites returns the merchants flagged favorite.
func (m *Merchants) Favorites() []model.Merchant {
	return m.filter(func(x model.Merchant) bool { return x.IsFavorite })
}

// FavoriteLocationIDs returns the location ids of the favorites.
func (m *Merchants) FavoriteLocationIDs() []int64 {
	var ids []int64
	for _, f := range m.Favorites() {
		ids = append(ids, f.LocationID)
	}
	return ids
}

// BeginToggle flips the cached favorite flag of relationID and returns the
// applied toggle.  Nothing is sent to the gateway.
func (m *Merchants) BeginToggle(relationID string) (Toggle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID != relationID {
			continue
		}
		m.seq++
		t := Toggle{
			Seq:        m.seq,
			RelationID: relationID,
			Prev:       m.items[i].IsFavorite,
			Want:       !m.items[i].IsFavorite,
			Phase:      ToggleApplied,
		}
		m.items[i].IsFavorite = t.Want
		m.pending[t.Seq] = t
		return t, nil
	}
	return Toggle{}, fmt.Errorf("merchant %s: %w", relationID, gateway.ErrNotFound)
}

// Settle sends the applied toggle to the gateway.  On success the
// acknowledged value is written; on failure the prior value is restored and
// the error is recorded.  Whichever settle finishes last decides the flag.
func (m *Merchants) Settle(ctx context.Context, t Toggle) (Toggle, error) {
	err := m.gw.UpdateRelationFavorite(ctx, t.RelationID, t.Want)

	m.mu.Lock()
	_, live := m.pending[t.Seq]
	delete(m.pending, t.Seq)
	value := t.Want
	if err != nil {
		t.Phase, t.Err = ToggleReverted, err
		value = t.Prev
	} else {
		t.Phase = ToggleConfirmed
	}
	if live {
		for i := range m.items {
			if m.items[i].ID == t.RelationID {
				m.items[i].IsFavorite = value
				break
			}
		}
		if err != nil {
			m.err = err
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("favorite toggle reverted",
			zap.String("relation_id", t.RelationID),
			zap.Bool("favorite", t.Prev),
			zap.String("kind", gateway.KindOf(err)),
			zap.Error(err))
		return t, err
	}
	return t, nil
}

// ToggleFavorite is BeginToggle followed by Settle.
func (m *Merchants) ToggleFavorite(ctx context.Context, customerID, relationID string) (Toggle, error) {
	t, err := m.BeginToggle(relationID)
	if err != nil {
		return t, err
	}
	m.log.Debug("favorite toggled", zap.String("customer_id", customerID), zap.String("relation_id", relationID), zap.Bool("favorite", t.Want))
	return m.Settle(ctx, t)
}

// Pending returns the toggles applied locally but not yet settled.
func (m *Merchants) Pending() []Toggle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Toggle, 0, len(m.pending))
	for _, t := range m.pending {
		out = append(out, t)
	}
	return out
}
