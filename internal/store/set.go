package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// Cache names used in Report.
const (
	CacheMerchants     = "merchants"
	CachePoints        = "points"
	CacheGiftCards     = "gift_cards"
	CacheChallenges    = "challenges"
	CacheNotifications = "notifications"
)

// Report maps a cache name to the error its load returned.  Caches that
// loaded cleanly are absent.
type Report map[string]error

// Err combines the failures, or returns nil.
func (r Report) Err() error {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	var err error
	for _, name := range names {
		err = multierr.Append(err, r[name])
	}
	return err
}

// Set groups the five caches of one identity.
type Set struct {
	Merchants     *Merchants
	Points        *Points
	GiftCards     *GiftCards
	Challenges    *Challenges
	Notifications *Notifications
}

func NewSet(gw gateway.Gateway, log *zap.Logger) *Set {
	return &Set{
		Merchants:     NewMerchants(gw, log),
		Points:        NewPoints(gw, log),
		GiftCards:     NewGiftCards(gw, log),
		Challenges:    NewChallenges(gw, log),
		Notifications: NewNotifications(gw, log),
	}
}

// LoadAll loads every cache concurrently.  A failing cache never stops its
// siblings.
func (s *Set) LoadAll(ctx context.Context, customerID string) Report {
	loads := map[string]func(context.Context, string) error{
		CacheMerchants:  s.Merchants.Load,
		CachePoints:     s.Points.Load,
		CacheGiftCards:  s.GiftCards.Load,
		CacheChallenges: s.Challenges.Load,
		CacheNotifications: func(ctx context.Context, id string) error {
			return s.Notifications.Load(ctx, id, model.NotificationFilter{})
		},
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report = Report{}
	)
	for name, load := range loads {
		wg.Add(1)
		go func(name string, load func(context.Context, string) error) {
			defer wg.Done()
			if err := load(ctx, customerID); err != nil {
				mu.Lock()
				report[name] = err
				mu.Unlock()
			}
		}(name, load)
	}
	wg.Wait()
	return report
}

// RefreshAll is LoadAll.
func (s *Set) RefreshAll(ctx context.Context, customerID string) Report {
	return s.LoadAll(ctx, customerID)
}

// Reset clears every cache and releases the realtime subscription.
func (s *Set) Reset() {
	s.Merchants.Reset()
	s.Points.Reset()
	s.GiftCards.Reset()
	s.Challenges.Reset()
	s.Notifications.Reset()
}
