package registration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
	"github.com/meit-app/meit/internal/store"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func newGateway() *gateway.Memory {
	gw := gateway.NewMemory(gateway.MemoryOptions{})
	gw.AddLocation(model.Location{ID: 42, Name: "Heladería"}, 420)
	gw.AddLocation(model.Location{ID: 43, Name: "Huérfana"}, 0)
	return gw
}

func TestRegisterTwiceIsIdempotent(t *testing.T) {
	gw := newGateway()
	ref := &countingRefresher{}
	f := New(gw, ref, nil)
	ctx := context.Background()

	first, err := f.Register(ctx, "c1", 42)
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if !first.IsNew {
		t.Fatal("first registration not new")
	}
	r := first.Relation
	if r.AvailablePoints != WelcomeBonus || r.LifetimePoints != WelcomeBonus || r.VisitsCount != 1 ||
		!r.IsActive || r.IsFavorite || r.MerchantID != 420 || r.FirstVisitAt == nil || r.LastVisitAt == nil {
		t.Fatalf("created relation = %+v", r)
	}

	second, err := f.Register(ctx, "c1", 42)
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if second.IsNew || second.Relation.ID != first.Relation.ID {
		t.Fatalf("second = %+v, want existing %s", second, first.Relation.ID)
	}
	if n := len(gw.RelationsFor("c1", 42)); n != 1 {
		t.Fatalf("%d relation rows, want 1", n)
	}
	if ref.calls != 1 {
		t.Fatalf("merchants refreshed %d times, want 1", ref.calls)
	}
}

func TestConcurrentRegistrationCreatesOneRelation(t *testing.T) {
	gw := newGateway()
	f := New(gw, nil, nil)
	ctx := context.Background()

	// both callers pass the existence check before either inserts
	var barrier sync.WaitGroup
	barrier.Add(2)
	gw.BeforeCreateRelation = func() {
		barrier.Done()
		barrier.Wait()
	}

	var (
		wg      sync.WaitGroup
		results [2]Result
		errs    [2]error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.Register(ctx, "c1", 42)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if results[0].IsNew == results[1].IsNew {
		t.Fatalf("IsNew = %v/%v, want exactly one new", results[0].IsNew, results[1].IsNew)
	}
	if results[0].Relation.ID != results[1].Relation.ID {
		t.Fatalf("callers saw different relations %s and %s", results[0].Relation.ID, results[1].Relation.ID)
	}
	rows := gw.RelationsFor("c1", 42)
	if len(rows) != 1 {
		t.Fatalf("%d relation rows, want 1", len(rows))
	}
	if rows[0].AvailablePoints != 10 || rows[0].LifetimePoints != 10 {
		t.Fatalf("welcome bonus = %d/%d", rows[0].AvailablePoints, rows[0].LifetimePoints)
	}
	if gw.Calls("CreateRelation") != 2 {
		t.Fatalf("CreateRelation called %d times, want 2", gw.Calls("CreateRelation"))
	}
}

func TestRegisterUnknownLocation(t *testing.T) {
	gw := newGateway()
	f := New(gw, nil, nil)

	_, err := f.Register(context.Background(), "c1", 999)
	if !errors.Is(err, ErrLocationNotFound) || !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("got %v, want ErrLocationNotFound", err)
	}
	if gw.Calls("GetRelation") != 0 || gw.Calls("CreateRelation") != 0 {
		t.Fatal("side effects after a missing location")
	}
}

func TestRegisterWithoutParentMerchant(t *testing.T) {
	gw := newGateway()
	f := New(gw, nil, nil)

	_, err := f.Register(context.Background(), "c1", 43)
	if !errors.Is(err, ErrNoParentMerchant) {
		t.Fatalf("got %v, want ErrNoParentMerchant", err)
	}
	if gw.Calls("CreateRelation") != 0 {
		t.Fatal("relation created without a parent merchant")
	}
}

func TestRegisterSurfacesOtherErrors(t *testing.T) {
	gw := newGateway()
	gw.Fail("CreateRelation", gateway.ErrNetwork)
	f := New(gw, nil, nil)

	if _, err := f.Register(context.Background(), "c1", 42); !errors.Is(err, gateway.ErrNetwork) {
		t.Fatalf("got %v, want ErrNetwork", err)
	}
}

func TestRegisterRefreshFailureStillSucceeds(t *testing.T) {
	gw := newGateway()
	ref := &countingRefresher{err: gateway.ErrNetwork}
	f := New(gw, ref, nil)

	res, err := f.Register(context.Background(), "c1", 42)
	if err != nil || !res.IsNew {
		t.Fatalf("Register = %+v, %v", res, err)
	}
}

func TestRegisterRefreshesMerchantsCache(t *testing.T) {
	gw := newGateway()
	merchants := store.NewMerchants(gw, nil)
	f := New(gw, merchants, nil)

	res, err := f.Register(context.Background(), "c1", 42)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := merchants.GetByID(res.Relation.ID); !ok {
		t.Fatal("new relation missing from merchants cache")
	}
}
