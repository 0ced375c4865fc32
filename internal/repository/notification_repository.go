package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/model"
)

// NotificationRepo manages the 'notifications' table.
type NotificationRepo struct {
	db  *sql.DB
	log *zap.Logger
}

// NewNotificationRepo returns a repo over db.  log may be nil.
func NewNotificationRepo(db *sql.DB, log *zap.Logger) *NotificationRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationRepo{db: db, log: log}
}

// List returns the customer's notifications, newest first, narrowed by f.
func (r *NotificationRepo) List(ctx context.Context, customerID string, f model.NotificationFilter) ([]model.Notification, error) {
	q := `SELECT id, business_settings_id, customer_id, type, title, message, metadata,
	             is_read, read_at, priority, created_at
	      FROM notifications WHERE customer_id = ?`
	args := []any{customerID}
	if f.UnreadOnly {
		q += " AND is_read = 0"
	}
	if f.Type != "" {
		q += " AND type = ?"
		args = append(args, string(f.Type))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "notifications of "+customerID)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n        model.Notification
			typ, pri string
			meta     []byte
			readAt   sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.LocationID, &n.CustomerID, &typ, &n.Title, &n.Message, &meta,
			&n.IsRead, &readAt, &pri, &n.CreatedAt); err != nil {
			return nil, mapErr(err, "notifications of "+customerID)
		}
		n.Type = model.NotificationType(typ)
		n.Priority = model.NotificationPriority(pri)
		n.ReadAt = nullTime(readAt)
		r.setMetadata(&n, meta)
		out = append(out, n)
	}
	return out, mapErr(rows.Err(), "notifications of "+customerID)
}

// setMetadata decodes raw into n.Metadata.  A malformed blob keeps the row
// with nil metadata and is logged.
func (r *NotificationRepo) setMetadata(n *model.Notification, raw []byte) {
	if len(raw) == 0 {
		return
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		r.log.Warn("malformed notification metadata",
			zap.String("notification_id", n.ID), zap.Int("bytes", len(raw)), zap.Error(err))
		return
	}
	n.Metadata = m
}

// Insert stores n, filling ID, Priority and CreatedAt when unset, and
// returns the stored value.
func (r *NotificationRepo) Insert(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = model.PriorityNormal
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	var meta []byte
	if n.Metadata != nil {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return model.Notification{}, err
		}
		meta = b
	}
	const q = `INSERT INTO notifications
	           (id, business_settings_id, customer_id, type, title, message, metadata, priority, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.LocationID, n.CustomerID, string(n.Type), n.Title,
		n.Message, meta, string(n.Priority), n.CreatedAt)
	if err != nil {
		return model.Notification{}, mapErr(err, "insert notification")
	}
	return n, nil
}

// MarkRead sets is_read and stamps read_at once.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ?",
		time.Now().UTC(), id)
	return mapErr(err, "mark notification "+id+" read")
}

// MarkAllRead marks every unread notification of the customer read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE customer_id = ? AND is_read = 0",
		time.Now().UTC(), customerID)
	return mapErr(err, "mark notifications of "+customerID+" read")
}

// Delete removes a notification; deleting a missing row is not an error.
func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	return mapErr(err, "delete notification "+id)
}
