package app

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// Registry holds one Client per identity and evicts idle ones.
type Registry struct {
	gw      gateway.Gateway
	log     *zap.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*entry

	cron *cron.Cron
}

type entry struct {
	client   *Client
	lastSeen time.Time
	refresh  string
	setup    *setup
}

// setup tracks one SetSession run.  err is written before done closes.
type setup struct {
	done chan struct{}
	err  error
}

func newSetup() *setup { return &setup{done: make(chan struct{})} }

func (s *setup) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *setup) finished() bool {
	select {
	case <-s.done:
		return s.err == nil
	default:
		return false
	}
}

// NewRegistry returns an empty registry.  idleTTL <= 0 disables eviction.
func NewRegistry(gw gateway.Gateway, log *zap.Logger, idleTTL time.Duration) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		gw:      gw,
		log:     log.With(zap.String("component", "registry")),
		idleTTL: idleTTL,
		now:     time.Now,
		clients: make(map[string]*entry),
	}
}

// Open returns the client of raw's identity, creating it and running
// SetSession when needed.  A new refresh token for a live client (a fresh
// sign-in) reinstalls the session.  Callers that find a setup in flight
// wait for it to finish.
func (r *Registry) Open(ctx context.Context, raw model.RawSession) (*Client, error) {
	r.mu.Lock()
	e, ok := r.clients[raw.IdentityID]
	if ok {
		e.lastSeen = r.now()
		if raw.RefreshToken == "" || raw.RefreshToken == e.refresh {
			st := e.setup
			r.mu.Unlock()
			if err := st.wait(ctx); err != nil {
				return nil, err
			}
			return e.client, nil
		}
		e.refresh = raw.RefreshToken
	} else {
		e = &entry{
			client:   NewClient(raw.IdentityID, r.gw, r.log),
			lastSeen: r.now(),
			refresh:  raw.RefreshToken,
		}
		r.clients[raw.IdentityID] = e
	}
	st := newSetup()
	e.setup = st
	r.mu.Unlock()

	st.err = e.client.Session.SetSession(ctx, &raw)
	close(st.done)
	if st.err != nil {
		r.drop(raw.IdentityID, e)
		return nil, st.err
	}
	return e.client, nil
}

// Get returns a live client and marks it used.  A client whose setup is
// still running or failed is not returned.
func (r *Registry) Get(identityID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[identityID]
	if !ok || !e.setup.finished() {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.client, true
}

// SignOut signs the identity out remotely and removes its client.
func (r *Registry) SignOut(ctx context.Context, identityID string) error {
	r.mu.Lock()
	e, ok := r.clients[identityID]
	delete(r.clients, identityID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.client.Session.SignOut(ctx)
}

// Len reports the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep evicts clients idle for longer than the idle TTL and returns how
// many it removed.  Evicted clients are reset locally; their remote
// sessions stay valid.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var idle []*Client
	r.mu.Lock()
	for id, e := range r.clients {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.client)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
		r.log.Info("evicted idle client", zap.String("identity_id", c.IdentityID))
	}
	return len(idle)
}

// Start runs Sweep on the given cron spec, e.g. "@every 1m".
func (r *Registry) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Sweep() }); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.log.Info("idle sweep scheduled", zap.String("spec", spec), zap.Duration("idle_ttl", r.idleTTL))
	return nil
}

// Stop halts the sweep and closes every client.
func (r *Registry) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range clients {
		e.client.Close()
	}
}

func (r *Registry) drop(identityID string, e *entry) {
	r.mu.Lock()
	if cur, ok := r.clients[identityID]; ok && cur == e {
		delete(r.clients, identityID)
	}
	r.mu.Unlock()
	e.client.Close()
}
