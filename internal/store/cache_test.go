package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// gatedGiftCards blocks GetGiftCards until release is closed.
type gatedGiftCards struct {
	entered chan struct{}
	release chan struct{}
	cards   []model.GiftCard
	err     error
}

func (g *gatedGiftCards) GetGiftCards(ctx context.Context, customerID string) ([]model.GiftCard, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	return g.cards, g.err
}

func TestLoadReplacesItems(t *testing.T) {
	gw := &gatedGiftCards{cards: []model.GiftCard{{ID: "g1"}, {ID: "g2"}}}
	c := NewGiftCards(gw, nil)

	if st := c.Snapshot(); st.Initialized || len(st.Items) != 0 {
		t.Fatalf("fresh cache state %+v", st)
	}
	if err := c.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	gw.cards = []model.GiftCard{{ID: "g3"}}
	if err := c.Refresh(context.Background(), "c1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	st := c.Snapshot()
	if !st.Initialized || st.IsLoading || st.Err != nil {
		t.Fatalf("state after refresh %+v", st)
	}
	if len(st.Items) != 1 || st.Items[0].ID != "g3" {
		t.Fatalf("items not replaced wholesale: %+v", st.Items)
	}
}

func TestLoadFailureKeepsItems(t *testing.T) {
	gw := &gatedGiftCards{cards: []model.GiftCard{{ID: "g1"}}}
	c := NewGiftCards(gw, nil)
	if err := c.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gw.err = gateway.ErrNetwork
	err := c.Load(context.Background(), "c1")
	if !errors.Is(err, gateway.ErrNetwork) {
		t.Fatalf("got %v, want ErrNetwork", err)
	}
	st := c.Snapshot()
	if !errors.Is(st.Err, gateway.ErrNetwork) || st.IsLoading {
		t.Fatalf("error not captured: %+v", st)
	}
	if len(st.Items) != 1 || st.Items[0].ID != "g1" {
		t.Fatalf("stale items dropped: %+v", st.Items)
	}

	gw.err = nil
	if err := c.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st := c.Snapshot(); st.Err != nil {
		t.Fatalf("error not cleared by a good load: %v", st.Err)
	}
}

func TestResetDiscardsInFlightLoad(t *testing.T) {
	gw := &gatedGiftCards{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		cards:   []model.GiftCard{{ID: "late"}},
	}
	c := NewGiftCards(gw, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), "c1") }()
	<-gw.entered
	if !c.Snapshot().IsLoading {
		t.Fatal("IsLoading not set during load")
	}

	c.Reset()
	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("Load: %v", err)
	}

	st := c.Snapshot()
	if st.Initialized || len(st.Items) != 0 || st.IsLoading {
		t.Fatalf("load result leaked past reset: %+v", st)
	}
}

// Overlapping loads are not coalesced: whichever finishes last wins.
func TestOverlappingLoadsLastResponseWins(t *testing.T) {
	first := &gatedGiftCards{entered: make(chan struct{}, 1), release: make(chan struct{}), cards: []model.GiftCard{{ID: "first"}}}
	c := NewGiftCards(first, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), "c1") }()
	<-first.entered

	c.gw = &gatedGiftCards{cards: []model.GiftCard{{ID: "second"}}}
	if err := c.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !c.Snapshot().IsLoading {
		t.Fatal("first load still in flight but IsLoading is false")
	}

	close(first.release)
	if err := <-done; err != nil {
		t.Fatalf("first Load: %v", err)
	}
	st := c.Snapshot()
	if len(st.Items) != 1 || st.Items[0].ID != "first" {
		t.Fatalf("items = %+v, want the later response", st.Items)
	}
	if st.IsLoading {
		t.Fatal("IsLoading stuck after both loads finished")
	}
}

func TestGiftCardExpiryProjection(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gw := &gatedGiftCards{cards: []model.GiftCard{
		{ID: "past", Status: model.GiftCardActive, ExpiresAt: now.Add(-24 * time.Hour)},
		{ID: "soon", Status: model.GiftCardActive, ExpiresAt: now.Add(3 * 24 * time.Hour)},
		{ID: "later", Status: model.GiftCardActive, ExpiresAt: now.Add(30 * 24 * time.Hour)},
		{ID: "expired", Status: model.GiftCardExpired, ExpiresAt: now.Add(24 * time.Hour)},
		{ID: "redeemed", Status: model.GiftCardRedeemed, ExpiresAt: now.Add(24 * time.Hour)},
	}}
	c := NewGiftCards(gw, nil)

	if got := c.ExpiringSoon(now); len(got) != 0 {
		t.Fatalf("ExpiringSoon before load = %+v", got)
	}
	if err := c.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	past, _ := c.GetByID("past")
	if past.Status != model.GiftCardActive {
		t.Fatalf("stored status rewritten to %q", past.Status)
	}
	if past.EffectiveStatus(now) != model.GiftCardExpired {
		t.Fatalf("effective status = %q, want expired", past.EffectiveStatus(now))
	}

	soon := map[string]bool{}
	for _, g := range c.ExpiringSoon(now) {
		soon[g.ID] = true
	}
	if !soon["past"] || !soon["soon"] || soon["later"] || soon["expired"] || soon["redeemed"] {
		t.Fatalf("ExpiringSoon = %v", soon)
	}

	active := c.Active(now)
	if len(active) != 2 {
		t.Fatalf("Active = %+v, want soon and later", active)
	}
}
