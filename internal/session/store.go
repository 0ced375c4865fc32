// Package session tracks the signed-in identity and its customer profile,
// and drives the entity caches through the session lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
	"github.com/meit-app/meit/internal/store"
)

// Status distinguishes signed-out, signed-in without a profile, and ready.
type Status int

const (
	StatusSignedOut Status = iota
	StatusProfilePending
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed_out"
	case StatusProfilePending:
		return "profile_pending"
	case StatusReady:
		return "ready"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Identity  *model.RawSession
	Profile   *model.Customer
	Status    Status
	IsLoading bool
}

// Gateway is the slice of the remote service the session needs.
type Gateway interface {
	gateway.Auth
	gateway.Customers
}

// Store is the session state container of one client.
type Store struct {
	gw     Gateway
	caches *store.Set
	log    *zap.Logger

	// OnPush, when set, is handed every realtime notification the
	// notifications cache accepts.
	OnPush func(model.Notification)

	mu      sync.RWMutex
	raw     *model.RawSession
	profile *model.Customer
	status  Status
	loading int
}

func New(gw Gateway, caches *store.Set, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{gw: gw, caches: caches, log: log.With(zap.String("component", "session"))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Status: s.status, IsLoading: s.loading > 0}
	if s.raw != nil {
		r := *s.raw
		snap.Identity = &r
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// CustomerID returns the loaded profile's id.
func (s *Store) CustomerID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return "", false
	}
	return s.profile.ID, true
}

// SetSession installs raw as the current session.  A nil raw signs out
// locally.  A missing profile leaves the session in StatusProfilePending;
// other lookup failures are logged and treated the same way, except auth
// failures, which clear everything and are returned.
func (s *Store) SetSession(ctx context.Context, raw *model.RawSession) error {
	if raw == nil {
		s.reset()
		return nil
	}

	s.mu.Lock()
	if s.raw != nil && s.raw.IdentityID != raw.IdentityID {
		s.mu.Unlock()
		s.reset()
		s.mu.Lock()
	}
	r := *raw
	s.raw = &r
	s.loading++
	s.mu.Unlock()
	defer s.doneLoading()

	c, err := s.gw.GetCustomerByIdentity(ctx, raw.IdentityID)
	switch {
	case err == nil:
		s.setProfile(raw.IdentityID, &c)
		s.cascade(ctx, c.ID)
		return nil
	case errors.Is(err, gateway.ErrAuth):
		s.log.Warn("session rejected", zap.String("identity_id", raw.IdentityID), zap.Error(err))
		s.reset()
		return err
	case errors.Is(err, gateway.ErrNotFound):
		s.log.Info("profile pending", zap.String("identity_id", raw.IdentityID))
	default:
		s.log.Warn("profile lookup failed", zap.String("identity_id", raw.IdentityID),
			zap.String("kind", gateway.KindOf(err)), zap.Error(err))
	}
	s.setProfile(raw.IdentityID, nil)
	return nil
}

// SignOut invalidates the remote session and clears local state.  The
// local reset happens even when the remote call fails.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.RLock()
	var refresh string
	if s.raw != nil {
		refresh = s.raw.RefreshToken
	}
	s.mu.RUnlock()

	var err error
	if refresh != "" {
		if err = s.gw.SignOut(ctx, refresh); err != nil {
			s.log.Warn("remote sign out failed", zap.String("kind", gateway.KindOf(err)), zap.Error(err))
		}
	}
	s.reset()
	return err
}

// RefreshProfile re-reads the profile.  On failure the previous profile is
// kept and the error returned.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.RLock()
	if s.raw == nil {
		s.mu.RUnlock()
		return fmt.Errorf("refresh profile: no session: %w", gateway.ErrAuth)
	}
	identity := s.raw.IdentityID
	s.mu.RUnlock()

	c, err := s.gw.GetCustomerByIdentity(ctx, identity)
	if err != nil {
		s.log.Warn("profile refresh failed", zap.String("identity_id", identity),
			zap.String("kind", gateway.KindOf(err)), zap.Error(err))
		return err
	}
	s.setProfile(identity, &c)
	return nil
}

// CompleteProfile creates the customer profile for a session in
// StatusProfilePending.  A profile that already exists is fetched and
// adopted instead.  On success the caches are loaded.
func (s *Store) CompleteProfile(ctx context.Context, in model.ProfileInput) (model.Customer, error) {
	in, err := ValidateProfile(in, time.Now().UTC())
	if err != nil {
		return model.Customer{}, err
	}

	s.mu.RLock()
	if s.raw == nil {
		s.mu.RUnlock()
		return model.Customer{}, fmt.Errorf("complete profile: no session: %w", gateway.ErrAuth)
	}
	identity, email := s.raw.IdentityID, s.raw.Email
	s.mu.RUnlock()

	c, err := s.gw.CreateCustomer(ctx, identity, email, in)
	if errors.Is(err, gateway.ErrUniqueViolation) {
		s.log.Info("profile already exists", zap.String("identity_id", identity))
		c, err = s.gw.GetCustomerByIdentity(ctx, identity)
	}
	if err != nil {
		return model.Customer{}, err
	}
	if !s.setProfile(identity, &c) {
		return model.Customer{}, fmt.Errorf("complete profile: session changed: %w", gateway.ErrAuth)
	}
	s.cascade(ctx, c.ID)
	return c, nil
}

// ValidateProfile trims and checks profile form input.
func ValidateProfile(in model.ProfileInput, now time.Time) (model.ProfileInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("name is required: %w", gateway.ErrValidation)
	}
	switch in.Gender {
	case "", "M", "F", "O":
	default:
		return in, fmt.Errorf("gender %q: %w", in.Gender, gateway.ErrValidation)
	}
	if in.BirthDate != nil {
		b := strings.TrimSpace(*in.BirthDate)
		if b == "" {
			in.BirthDate = nil
			return in, nil
		}
		d, err := time.Parse(time.DateOnly, b)
		if err != nil {
			return in, fmt.Errorf("birth date %q: %w", b, gateway.ErrValidation)
		}
		if d.After(now) {
			return in, fmt.Errorf("birth date %q is in the future: %w", b, gateway.ErrValidation)
		}
		in.BirthDate = &b
	}
	return in, nil
}

// setProfile installs c for identity.  It reports false when the session
// moved to another identity meanwhile.
func (s *Store) setProfile(identity string, c *model.Customer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil || s.raw.IdentityID != identity {
		return false
	}
	s.profile = c
	if c == nil {
		s.status = StatusProfilePending
	} else {
		s.status = StatusReady
	}
	return true
}

// cascade loads every cache and opens the realtime feed.  Failures are
// logged per cache; they never fail the session.
func (s *Store) cascade(ctx context.Context, customerID string) {
	report := s.caches.LoadAll(ctx, customerID)
	for name, err := range report {
		s.log.Warn("cache load failed", zap.String("cache", name), zap.String("customer_id", customerID), zap.Error(err))
	}
	if err := s.caches.Notifications.Subscribe(ctx, customerID, s.OnPush); err != nil {
		s.log.Warn("realtime subscribe failed", zap.String("customer_id", customerID), zap.Error(err))
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	s.raw = nil
	s.profile = nil
	s.status = StatusSignedOut
	s.mu.Unlock()
	s.caches.Reset()
}

func (s *Store) doneLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}
