// Package registration joins a customer to a merchant location exactly
// once.  The (customer, location) uniqueness constraint held by the backend
// backs the check-then-create sequence; a uniqueness violation is read as
// "already registered".
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// WelcomeBonus is granted once, when the relation is created.
const WelcomeBonus = 10

var (
	// ErrLocationNotFound: the scanned location does not exist.
	ErrLocationNotFound = errors.New("location not found")
	// ErrNoParentMerchant: the location has no parent merchant to bind the
	// relation to.
	ErrNoParentMerchant = errors.New("location has no parent merchant")
)

// Result of a registration.  IsNew is false when the relation already
// existed, including when a concurrent registration created it first.
type Result struct {
	Relation model.Relation `json:"relation"`
	IsNew    bool           `json:"is_new"`
}

// Refresher reloads the merchants cache after a new relation.
type Refresher interface {
	Refresh(ctx context.Context, customerID string) error
}

type Flow struct {
	gw        gateway.Merchants
	merchants Refresher
	log       *zap.Logger
	now       func() time.Time
}

// New returns a Flow.  merchants may be nil.
func New(gw gateway.Merchants, merchants Refresher, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		gw:        gw,
		merchants: merchants,
		log:       log.With(zap.String("component", "registration")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register joins customerID to locationID.
func (f *Flow) Register(ctx context.Context, customerID string, locationID int64) (Result, error) {
	if _, err := f.gw.GetMerchantLocation(ctx, locationID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return Result{}, fmt.Errorf("register location %d: %w: %w", locationID, ErrLocationNotFound, err)
		}
		return Result{}, fmt.Errorf("register location %d: %w", locationID, err)
	}

	existing, err := f.gw.GetRelation(ctx, customerID, locationID)
	switch {
	case err == nil:
		return Result{Relation: existing, IsNew: false}, nil
	case !errors.Is(err, gateway.ErrNotFound):
		return Result{}, fmt.Errorf("register location %d: %w", locationID, err)
	}

	parent, err := f.gw.GetParentMerchantID(ctx, locationID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return Result{}, fmt.Errorf("register location %d: %w: %w", locationID, ErrNoParentMerchant, err)
		}
		return Result{}, fmt.Errorf("register location %d: %w", locationID, err)
	}

	now := f.now()
	created, err := f.gw.CreateRelation(ctx, model.Relation{
		CustomerID:      customerID,
		MerchantID:      parent,
		LocationID:      locationID,
		AvailablePoints: WelcomeBonus,
		LifetimePoints:  WelcomeBonus,
		VisitsCount:     1,
		IsFavorite:      false,
		IsActive:        true,
		FirstVisitAt:    &now,
		LastVisitAt:     &now,
	})
	if errors.Is(err, gateway.ErrUniqueViolation) {
		f.log.Info("registration raced, using existing relation",
			zap.String("customer_id", customerID), zap.Int64("location_id", locationID))
		existing, err := f.gw.GetRelation(ctx, customerID, locationID)
		if err != nil {
			return Result{}, fmt.Errorf("register location %d: refetch: %w", locationID, err)
		}
		return Result{Relation: existing, IsNew: false}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("register location %d: %w", locationID, err)
	}

	f.log.Info("registered",
		zap.String("customer_id", customerID),
		zap.Int64("location_id", locationID),
		zap.String("relation_id", created.ID))
	if f.merchants != nil {
		if err := f.merchants.Refresh(ctx, customerID); err != nil {
			f.log.Warn("merchants refresh after registration failed", zap.Error(err))
		}
	}
	return Result{Relation: created, IsNew: true}, nil
}
