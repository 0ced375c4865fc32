// Package app builds the per-identity dependency graph and keeps the live
// graphs in a registry.  Nothing here is process-global: each Client owns
// its session, caches, registration flow and scanner.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/registration"
	"github.com/meit-app/meit/internal/scanner"
	"github.com/meit-app/meit/internal/session"
	"github.com/meit-app/meit/internal/store"
)

// Client is the state container of one signed-in identity.
type Client struct {
	IdentityID   string
	Session      *session.Store
	Caches       *store.Set
	Registration *registration.Flow

	log *zap.Logger

	mu         sync.Mutex
	scanner    *scanner.Scanner
	scannerFor string
}

// NewClient wires a fresh graph over gw.
func NewClient(identityID string, gw gateway.Gateway, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("identity_id", identityID))
	caches := store.NewSet(gw, log)
	return &Client{
		IdentityID:   identityID,
		Session:      session.New(gw, caches, log),
		Caches:       caches,
		Registration: registration.New(gw, caches.Merchants, log),
		log:          log,
	}
}

// CustomerID returns the id of the loaded profile, or a gateway.ErrNotFound
// error while the profile is pending.
func (c *Client) CustomerID() (string, error) {
	id, ok := c.Session.CustomerID()
	if !ok {
		return "", fmt.Errorf("identity %s has no customer profile: %w", c.IdentityID, gateway.ErrNotFound)
	}
	return id, nil
}

// Register joins the current customer to a location.
func (c *Client) Register(ctx context.Context, locationID int64) (registration.Result, error) {
	id, err := c.CustomerID()
	if err != nil {
		return registration.Result{}, err
	}
	return c.Registration.Register(ctx, id, locationID)
}

// Scanner returns the client's scanner, creating it for the current
// customer.  A scanner bound to another customer is replaced.
func (c *Client) Scanner() (*scanner.Scanner, error) {
	id, err := c.CustomerID()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanner == nil || c.scannerFor != id {
		c.scanner = scanner.New(c.Registration, id, c.log)
		c.scannerFor = id
	}
	return c.scanner, nil
}

// Close drops local state without calling the backend.
func (c *Client) Close() {
	c.mu.Lock()
	if c.scanner != nil {
		c.scanner.Stop()
		c.scanner = nil
	}
	c.mu.Unlock()
	_ = c.Session.SetSession(context.Background(), nil)
}
