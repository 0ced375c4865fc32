package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meit-app/meit/internal/model"
	"github.com/meit-app/meit/internal/realtime"
	"github.com/meit-app/meit/internal/utils"
)

// MemoryOptions configures the in-memory gateway.
type MemoryOptions struct {
	JWTSecret  string        // signs access tokens issued by SignInWithPassword
	AccessTTL  time.Duration // default 15m
	RefreshTTL time.Duration // default 30 days
	BcryptCost int           // default bcrypt.MinCost, keeps tests fast
	Hub        *realtime.Hub // optional shared hub; one is created when nil
}

// Memory is an in-process Gateway backed by maps.  It enforces the same
// uniqueness constraints as the MySQL schema (one customer per identity,
// one relation per customer and location) and publishes inserted
// notifications on its Hub.  Failures can be injected per operation.
type Memory struct {
	mu   sync.Mutex
	opts MemoryOptions
	hub  *realtime.Hub

	accounts   map[string]memAccount // by lower-cased email
	sessions   map[string]memSession // by refresh token hash
	customers  map[string]model.Customer
	locations  map[int64]model.Location
	parents    map[int64]int64
	relations  map[string]model.Relation
	history    map[string][]model.PointsTransaction
	giftCards  map[string]model.GiftCard
	challenges map[string]model.Challenge
	notifs     map[string]model.Notification

	failures map[string]error
	calls    map[string]int

	// BeforeCreateRelation, when set, runs before CreateRelation takes the
	// lock.  Tests use it to line up concurrent registrations.
	BeforeCreateRelation func()
	// BeforeUpdateFavorite, when set, runs before a favorite update is
	// applied; its error, if any, fails the update.
	BeforeUpdateFavorite func(relationID string, favorite bool) error
}

type memAccount struct {
	identityID   string
	email        string
	passwordHash string
}

type memSession struct {
	identityID string
	expiresAt  time.Time
	revoked    bool
}

// NewMemory returns an empty in-memory gateway.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}
	hub := opts.Hub
	if hub == nil {
		hub = realtime.NewHub(16)
	}
	return &Memory{
		opts:       opts,
		hub:        hub,
		accounts:   make(map[string]memAccount),
		sessions:   make(map[string]memSession),
		customers:  make(map[string]model.Customer),
		locations:  make(map[int64]model.Location),
		parents:    make(map[int64]int64),
		relations:  make(map[string]model.Relation),
		history:    make(map[string][]model.PointsTransaction),
		giftCards:  make(map[string]model.GiftCard),
		challenges: make(map[string]model.Challenge),
		notifs:     make(map[string]model.Notification),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// Hub exposes the hub inserted notifications are published on.
func (m *Memory) Hub() *realtime.Hub { return m.hub }

// Fail makes every later call of op return err; a nil err clears it.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls reports how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter records a call of op and returns its injected failure.  The caller
// must hold m.mu.
func (m *Memory) enter(op string) error {
	m.calls[op]++
	return m.failures[op]
}

// ----- seeding -----

// AddAccount registers credentials and returns the new identity id.
func (m *Memory) AddAccount(email, password string) (string, error) {
	hash, err := utils.HashPassword(password, m.opts.BcryptCost)
	if err != nil {
		return "", err
	}
	key := strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; ok {
		return "", fmt.Errorf("account %s: %w", key, ErrUniqueViolation)
	}
	id := uuid.NewString()
	m.accounts[key] = memAccount{identityID: id, email: key, passwordHash: hash}
	return id, nil
}

// AddCustomer stores c, assigning an id when empty.
func (m *Memory) AddCustomer(c model.Customer) model.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.customers[c.ID] = c
	return c
}

// AddLocation stores loc with its parent merchant id (0 for none).
func (m *Memory) AddLocation(loc model.Location, parentMerchantID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.ID] = loc
	if parentMerchantID != 0 {
		m.parents[loc.ID] = parentMerchantID
	}
}

// AddRelation stores r as-is, assigning an id when empty.
func (m *Memory) AddRelation(r model.Relation) model.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.relations[r.ID] = r
	return r
}

// AddPointsTransaction appends a points audit row for customerID.
func (m *Memory) AddPointsTransaction(customerID string, tx model.PointsTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	m.history[customerID] = append(m.history[customerID], tx)
}

// AddGiftCard stores g.
func (m *Memory) AddGiftCard(g model.GiftCard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.giftCards[g.ID] = g
}

// AddChallenge stores c.
func (m *Memory) AddChallenge(c model.Challenge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.ID] = c
}

// InsertNotification stores n as a backend insert would and publishes it
// on the hub.
func (m *Memory) InsertNotification(n model.Notification) model.Notification {
	m.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Priority == "" {
		n.Priority = model.PriorityNormal
	}
	m.notifs[n.ID] = n
	m.mu.Unlock()

	m.hub.Publish(n)
	return n
}

// RelationsFor returns every stored relation row of the pair, active or not.
func (m *Memory) RelationsFor(customerID string, locationID int64) []model.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Relation
	for _, r := range m.relations {
		if r.CustomerID == customerID && r.LocationID == locationID {
			out = append(out, r)
		}
	}
	return out
}

// Relation returns the stored relation with id.
func (m *Memory) Relation(id string) (model.Relation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.relations[id]
	return r, ok
}

// ----- Auth -----

func (m *Memory) SignInWithPassword(ctx context.Context, email, password string) (model.RawSession, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	if err := m.enter("SignInWithPassword"); err != nil {
		m.mu.Unlock()
		return model.RawSession{}, err
	}
	acc, ok := m.accounts[key]
	m.mu.Unlock()

	if !ok {
		utils.BurnPasswordCheck(password)
		return model.RawSession{}, fmt.Errorf("invalid credentials: %w", ErrAuth)
	}
	if !utils.VerifyPassword(acc.passwordHash, password) {
		return model.RawSession{}, fmt.Errorf("invalid credentials: %w", ErrAuth)
	}
	return m.issue(acc)
}

func (m *Memory) RefreshSession(ctx context.Context, refreshToken string) (model.RawSession, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(refreshToken))
	m.mu.Lock()
	if err := m.enter("RefreshSession"); err != nil {
		m.mu.Unlock()
		return model.RawSession{}, err
	}
	s, ok := m.sessions[hash]
	if !ok || s.revoked || time.Now().After(s.expiresAt) {
		m.mu.Unlock()
		return model.RawSession{}, fmt.Errorf("invalid refresh token: %w", ErrAuth)
	}
	s.revoked = true
	m.sessions[hash] = s
	var (
		acc   memAccount
		found bool
	)
	for _, a := range m.accounts {
		if a.identityID == s.identityID {
			acc, found = a, true
			break
		}
	}
	m.mu.Unlock()

	if !found {
		return model.RawSession{}, fmt.Errorf("refresh: identity %s gone: %w", s.identityID, ErrAuth)
	}
	return m.issue(acc)
}

// issue signs a new token pair for acc and records the refresh token.
func (m *Memory) issue(acc memAccount) (model.RawSession, error) {
	access, err := utils.NewAccessToken(m.opts.JWTSecret, acc.identityID, acc.email, m.opts.AccessTTL)
	if err != nil {
		return model.RawSession{}, err
	}
	refresh, err := utils.NewRefreshToken(m.opts.RefreshTTL)
	if err != nil {
		return model.RawSession{}, err
	}

	m.mu.Lock()
	m.sessions[utils.HashRefreshRaw(refresh.Raw)] = memSession{identityID: acc.identityID, expiresAt: refresh.Exp}
	m.mu.Unlock()

	return model.RawSession{
		IdentityID:   acc.identityID,
		Email:        acc.email,
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresAt:    access.Exp,
	}, nil
}

func (m *Memory) SignOut(ctx context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SignOut"); err != nil {
		return err
	}
	hash := utils.HashRefreshRaw(refreshToken)
	s, ok := m.sessions[hash]
	if !ok {
		return nil
	}
	s.revoked = true
	m.sessions[hash] = s
	return nil
}

// SessionRevoked reports whether the session behind refreshToken was
// signed out.  Unknown tokens read as revoked.
func (m *Memory) SessionRevoked(refreshToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[utils.HashRefreshRaw(refreshToken)]
	return !ok || s.revoked
}

// ----- Customers -----

func (m *Memory) GetCustomerByIdentity(ctx context.Context, identityID string) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetCustomerByIdentity"); err != nil {
		return model.Customer{}, err
	}
	for _, c := range m.customers {
		if c.IdentityID == identityID {
			return c, nil
		}
	}
	return model.Customer{}, fmt.Errorf("customer for identity %s: %w", identityID, ErrNotFound)
}

func (m *Memory) CreateCustomer(ctx context.Context, identityID, email string, in model.ProfileInput) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateCustomer"); err != nil {
		return model.Customer{}, err
	}
	for _, c := range m.customers {
		if c.IdentityID == identityID {
			return model.Customer{}, fmt.Errorf("customer for identity %s: %w", identityID, ErrUniqueViolation)
		}
	}
	now := time.Now().UTC()
	c := model.Customer{
		ID:             uuid.NewString(),
		IdentityID:     identityID,
		Email:          email,
		Name:           in.Name,
		BirthDate:      in.BirthDate,
		OptInMarketing: in.OptInMarketing,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Gender != "" {
		g := in.Gender
		c.Gender = &g
	}
	m.customers[c.ID] = c
	return c, nil
}

// ----- Merchants -----

func (m *Memory) GetMerchantRelations(ctx context.Context, customerID string) ([]model.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetMerchantRelations"); err != nil {
		return nil, err
	}
	out := []model.Merchant{}
	for _, r := range m.activeRelations(customerID) {
		out = append(out, model.MerchantFrom(r, m.locations[r.LocationID]))
	}
	return out, nil
}

// activeRelations returns the customer's active relations ordered by
// creation time.  The caller must hold m.mu.
func (m *Memory) activeRelations(customerID string) []model.Relation {
	var rs []model.Relation
	for _, r := range m.relations {
		if r.CustomerID == customerID && r.IsActive {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
	return rs
}

func (m *Memory) GetMerchantLocation(ctx context.Context, locationID int64) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetMerchantLocation"); err != nil {
		return model.Location{}, err
	}
	loc, ok := m.locations[locationID]
	if !ok {
		return model.Location{}, fmt.Errorf("location %d: %w", locationID, ErrNotFound)
	}
	return loc, nil
}

func (m *Memory) GetParentMerchantID(ctx context.Context, locationID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetParentMerchantID"); err != nil {
		return 0, err
	}
	id, ok := m.parents[locationID]
	if !ok {
		return 0, fmt.Errorf("parent merchant of location %d: %w", locationID, ErrNotFound)
	}
	return id, nil
}

func (m *Memory) GetRelation(ctx context.Context, customerID string, locationID int64) (model.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetRelation"); err != nil {
		return model.Relation{}, err
	}
	for _, r := range m.relations {
		if r.CustomerID == customerID && r.LocationID == locationID {
			return r, nil
		}
	}
	return model.Relation{}, fmt.Errorf("relation %s/%d: %w", customerID, locationID, ErrNotFound)
}

func (m *Memory) CreateRelation(ctx context.Context, r model.Relation) (model.Relation, error) {
	if hook := m.BeforeCreateRelation; hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateRelation"); err != nil {
		return model.Relation{}, err
	}
	for _, existing := range m.relations {
		if existing.CustomerID == r.CustomerID && existing.LocationID == r.LocationID {
			return model.Relation{}, fmt.Errorf("relation %s/%d: %w", r.CustomerID, r.LocationID, ErrUniqueViolation)
		}
	}
	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.relations[r.ID] = r
	return r, nil
}

func (m *Memory) UpdateRelationFavorite(ctx context.Context, relationID string, favorite bool) error {
	if hook := m.BeforeUpdateFavorite; hook != nil {
		if err := hook(relationID, favorite); err != nil {
			m.mu.Lock()
			m.calls["UpdateRelationFavorite"]++
			m.mu.Unlock()
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateRelationFavorite"); err != nil {
		return err
	}
	r, ok := m.relations[relationID]
	if !ok {
		return fmt.Errorf("relation %s: %w", relationID, ErrNotFound)
	}
	r.IsFavorite = favorite
	r.UpdatedAt = time.Now().UTC()
	m.relations[relationID] = r
	return nil
}

// ----- Points -----

func (m *Memory) GetGlobalPoints(ctx context.Context, customerID string) (model.PointsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetGlobalPoints"); err != nil {
		return model.PointsSummary{}, err
	}
	c, ok := m.customers[customerID]
	if !ok {
		return model.PointsSummary{}, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return model.PointsSummary{Available: c.TotalPoints, Lifetime: c.LifetimePoints}, nil
}

func (m *Memory) GetPointsByRelation(ctx context.Context, customerID string) ([]model.RelationPoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetPointsByRelation"); err != nil {
		return nil, err
	}
	out := []model.RelationPoints{}
	for _, r := range m.activeRelations(customerID) {
		name := m.locations[r.LocationID].Name
		if name == "" {
			name = "Sin nombre"
		}
		out = append(out, model.RelationPoints{
			RelationID: r.ID,
			LocationID: r.LocationID,
			BrandName:  name,
			Available:  r.AvailablePoints,
			Lifetime:   r.LifetimePoints,
		})
	}
	return out, nil
}

func (m *Memory) GetPointsHistory(ctx context.Context, customerID string, limit int) ([]model.PointsTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetPointsHistory"); err != nil {
		return nil, err
	}
	out := append([]model.PointsTransaction(nil), m.history[customerID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []model.PointsTransaction{}
	}
	return out, nil
}

// ----- GiftCards -----

func (m *Memory) GetGiftCards(ctx context.Context, customerID string) ([]model.GiftCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetGiftCards"); err != nil {
		return nil, err
	}
	out := []model.GiftCard{}
	for _, g := range m.giftCards {
		if g.CustomerID == customerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, nil
}

// ----- Challenges -----

func (m *Memory) GetChallenges(ctx context.Context, customerID string) ([]model.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetChallenges"); err != nil {
		return nil, err
	}
	joined := make(map[int64]bool)
	for _, r := range m.activeRelations(customerID) {
		joined[r.LocationID] = true
	}
	out := []model.Challenge{}
	for _, c := range m.challenges {
		if c.IsActive && joined[c.LocationID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- Notifications -----

func (m *Memory) GetNotifications(ctx context.Context, customerID string, f model.NotificationFilter) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetNotifications"); err != nil {
		return nil, err
	}
	out := []model.Notification{}
	for _, n := range m.notifs {
		if n.CustomerID != customerID {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("MarkNotificationRead"); err != nil {
		return err
	}
	if n, ok := m.notifs[notificationID]; ok {
		n.MarkRead(time.Now().UTC())
		m.notifs[notificationID] = n
	}
	return nil
}

func (m *Memory) MarkAllRead(ctx context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("MarkAllRead"); err != nil {
		return err
	}
	now := time.Now().UTC()
	for id, n := range m.notifs {
		if n.CustomerID == customerID && !n.IsRead {
			n.MarkRead(now)
			m.notifs[id] = n
		}
	}
	return nil
}

func (m *Memory) DeleteNotification(ctx context.Context, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteNotification"); err != nil {
		return err
	}
	delete(m.notifs, notificationID)
	return nil
}

func (m *Memory) SubscribeNotificationInserts(ctx context.Context, customerID string) (<-chan model.Notification, func(), error) {
	m.mu.Lock()
	err := m.enter("SubscribeNotificationInserts")
	m.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := m.hub.Subscribe(customerID)
	return ch, cancel, nil
}

var _ Gateway = (*Memory)(nil)
