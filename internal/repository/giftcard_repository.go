package repository

import (
	"context"
	"database/sql"

	"github.com/meit-app/meit/internal/model"
)

// GiftCardRepo reads 'gift_cards'.  Issuing and redeeming happen at the
// point of sale and are not exposed here.
type GiftCardRepo struct {
	db *sql.DB
}

func NewGiftCardRepo(db *sql.DB) *GiftCardRepo { return &GiftCardRepo{db: db} }

// ListByCustomer returns the customer's cards ordered by status then expiry.
func (r *GiftCardRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.GiftCard, error) {
	const q = `SELECT g.id, g.customer_id, g.business_settings_id, COALESCE(bs.name, ''), g.code,
	                  g.value, g.points_used, g.status, g.expires_at, g.redeemed_at, g.created_at
	           FROM gift_cards g
	           LEFT JOIN business_settings bs ON bs.id = g.business_settings_id
	           WHERE g.customer_id = ?
	           ORDER BY g.status, g.expires_at`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, mapErr(err, "gift cards of "+customerID)
	}
	defer rows.Close()

	out := []model.GiftCard{}
	for rows.Next() {
		var (
			g        model.GiftCard
			status   string
			redeemed sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.CustomerID, &g.LocationID, &g.BrandName, &g.Code,
			&g.Value, &g.PointsUsed, &status, &g.ExpiresAt, &redeemed, &g.CreatedAt); err != nil {
			return nil, mapErr(err, "gift cards of "+customerID)
		}
		g.Status = model.GiftCardStatus(status)
		g.RedeemedAt = nullTime(redeemed)
		out = append(out, g)
	}
	return out, mapErr(rows.Err(), "gift cards of "+customerID)
}
