package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

// Notifications caches the customer's notifications and drains the
// realtime feed into them.
//
// Duplicate policy: a pushed notification whose id is already cached is
// dropped.  Pushes that arrive while a load is in flight are merged into
// that load's result when the result lacks them.
type Notifications struct {
	*Collection[model.Notification]
	gw  gateway.Notifications
	now func() time.Time

	pushed []model.Notification // accepted during in-flight loads, guarded by Collection.mu

	subMu sync.Mutex
	sub   *subscription
}

type subscription struct {
	customerID string
	cancel     func()
	stop       chan struct{}
	done       chan struct{}
}

func (s *subscription) close() {
	close(s.stop)
	s.cancel()
	<-s.done
}

func NewNotifications(gw gateway.Notifications, log *zap.Logger) *Notifications {
	n := &Notifications{
		Collection: newCollection[model.Notification]("notifications", log),
		gw:         gw,
		now:        func() time.Time { return time.Now().UTC() },
	}
	n.onReset = func() { n.pushed = nil }
	return n
}

// Load replaces the cached notifications with the filtered remote list.
func (n *Notifications) Load(ctx context.Context, customerID string, f model.NotificationFilter) error {
	fetch := func(ctx context.Context) ([]model.Notification, error) {
		return n.gw.GetNotifications(ctx, customerID, f)
	}
	err := n.run(ctx, customerID, fetch, func(items []model.Notification) []model.Notification {
		items = n.mergePushed(items, f)
		if n.inflight == 0 {
			n.pushed = nil
		}
		return items
	})
	if err != nil {
		n.mu.Lock()
		if n.inflight == 0 {
			n.pushed = nil
		}
		n.mu.Unlock()
	}
	return err
}

// Refresh is Load.
func (n *Notifications) Refresh(ctx context.Context, customerID string, f model.NotificationFilter) error {
	return n.Load(ctx, customerID, f)
}

// mergePushed prepends pushes the result is missing.  Caller holds mu.
func (n *Notifications) mergePushed(items []model.Notification, f model.NotificationFilter) []model.Notification {
	if len(n.pushed) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}
	var missing []model.Notification
	for _, p := range n.pushed {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.UnreadOnly && p.IsRead {
			continue
		}
		missing = append(missing, p)
	}
	return append(missing, items...)
}

// accept applies one pushed notification.  It reports false for duplicates
// and for pushes that belong to a subscription older than the last Reset.
func (n *Notifications) accept(p model.Notification, epoch uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if epoch != n.epoch {
		return false
	}
	for _, it := range n.items {
		if it.ID == p.ID {
			return false
		}
	}
	n.items = append([]model.Notification{p}, n.items...)
	if n.inflight > 0 {
		n.pushed = append(n.pushed, p)
	}
	return true
}

// Subscribe starts draining the realtime feed for customerID.  At most one
// subscription is held: an existing one for the same customer is kept, one
// for a different customer is released first.  onNew, if set, is called
// from the drain goroutine for every accepted push.
func (n *Notifications) Subscribe(ctx context.Context, customerID string, onNew func(model.Notification)) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.sub != nil {
		if n.sub.customerID == customerID {
			return nil
		}
		n.sub.close()
		n.sub = nil
	}

	ch, cancel, err := n.gw.SubscribeNotificationInserts(ctx, customerID)
	if err != nil {
		n.record("subscribe", err)
		return err
	}
	n.mu.RLock()
	epoch := n.epoch
	n.mu.RUnlock()

	s := &subscription{
		customerID: customerID,
		cancel:     cancel,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	n.sub = s
	go n.drain(s, ch, epoch, onNew)
	n.log.Debug("subscribed", zap.String("customer_id", customerID))
	return nil
}

func (n *Notifications) drain(s *subscription, ch <-chan model.Notification, epoch uint64, onNew func(model.Notification)) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			if p.CustomerID != "" && p.CustomerID != s.customerID {
				continue
			}
			if !n.accept(p, epoch) {
				n.log.Debug("dropped push", zap.String("notification_id", p.ID))
				continue
			}
			if onNew != nil {
				onNew(p)
			}
		}
	}
}

// Subscribed reports the customer the feed is held for, if any.
func (n *Notifications) Subscribed() (string, bool) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.sub == nil {
		return "", false
	}
	return n.sub.customerID, true
}

// Unsubscribe releases the realtime subscription, if any.
func (n *Notifications) Unsubscribe() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.sub != nil {
		n.sub.close()
		n.sub = nil
	}
}

// Reset releases the subscription and clears the cache.
func (n *Notifications) Reset() {
	n.Unsubscribe()
	n.Collection.Reset()
}

// MarkRead marks one notification read remotely, then locally.
func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	if err := n.gw.MarkNotificationRead(ctx, id); err != nil {
		n.record("mark read", err)
		return err
	}
	at := n.now()
	n.mu.Lock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].MarkRead(at)
		}
	}
	n.mu.Unlock()
	return nil
}

// MarkAllRead marks every notification of the customer read.
func (n *Notifications) MarkAllRead(ctx context.Context, customerID string) error {
	if err := n.gw.MarkAllRead(ctx, customerID); err != nil {
		n.record("mark all read", err)
		return err
	}
	at := n.now()
	n.mu.Lock()
	for i := range n.items {
		n.items[i].MarkRead(at)
	}
	n.mu.Unlock()
	return nil
}

// Delete removes a notification remotely, then locally.
func (n *Notifications) Delete(ctx context.Context, id string) error {
	if err := n.gw.DeleteNotification(ctx, id); err != nil {
		n.record("delete", err)
		return err
	}
	n.mu.Lock()
	kept := n.items[:0]
	for _, it := range n.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	n.items = kept
	pushed := n.pushed[:0]
	for _, p := range n.pushed {
		if p.ID != id {
			pushed = append(pushed, p)
		}
	}
	n.pushed = pushed
	n.mu.Unlock()
	return nil
}

// GetByID returns a cached notification.
func (n *Notifications) GetByID(id string) (model.Notification, bool) {
	return n.find(func(x model.Notification) bool { return x.ID == id })
}

// UnreadCount counts cached unread notifications.
func (n *Notifications) UnreadCount() int {
	count := 0
	n.view(func(items []model.Notification) {
		for _, it := range items {
			if !it.IsRead {
				count++
			}
		}
	})
	return count
}

// ByType returns the cached notifications of type t.
func (n *Notifications) ByType(t model.NotificationType) []model.Notification {
	return n.filter(func(x model.Notification) bool { return x.Type == t })
}
