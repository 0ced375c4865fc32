package repository

import (
	"context"
	"database/sql"

	"github.com/meit-app/meit/internal/model"
)

// PointsRepo reads balances from customers and customer_businesses and the
// audit trail from points_audit.
type PointsRepo struct {
	db *sql.DB
}

func NewPointsRepo(db *sql.DB) *PointsRepo { return &PointsRepo{db: db} }

// Global returns the customer-wide totals.
func (r *PointsRepo) Global(ctx context.Context, customerID string) (model.PointsSummary, error) {
	var s model.PointsSummary
	err := r.db.QueryRowContext(ctx,
		"SELECT total_points, lifetime_points FROM customers WHERE id = ?", customerID).
		Scan(&s.Available, &s.Lifetime)
	return s, mapErr(err, "points of "+customerID)
}

// ByRelation returns one balance per active relation.
func (r *PointsRepo) ByRelation(ctx context.Context, customerID string) ([]model.RelationPoints, error) {
	const q = `SELECT cb.id, cb.business_settings_id, COALESCE(bs.name, 'Sin nombre'),
	                  cb.total_points, cb.lifetime_points
	           FROM customer_businesses cb
	           LEFT JOIN business_settings bs ON bs.id = cb.business_settings_id
	           WHERE cb.customer_id = ? AND cb.is_active = 1
	           ORDER BY cb.created_at, cb.id`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, mapErr(err, "points by relation of "+customerID)
	}
	defer rows.Close()

	out := []model.RelationPoints{}
	for rows.Next() {
		var p model.RelationPoints
		if err := rows.Scan(&p.RelationID, &p.LocationID, &p.BrandName, &p.Available, &p.Lifetime); err != nil {
			return nil, mapErr(err, "points by relation of "+customerID)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err(), "points by relation of "+customerID)
}

// History returns the newest limit audit rows; limit <= 0 means 50.
func (r *PointsRepo) History(ctx context.Context, customerID string, limit int) ([]model.PointsTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT pa.id, pa.business_id, COALESCE(b.name, ''), pa.points_assigned,
	                  pa.challenge_id, pa.notes, pa.created_at
	           FROM points_audit pa
	           LEFT JOIN businesses b ON b.id = pa.business_id
	           WHERE pa.customer_id = ?
	           ORDER BY pa.created_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, mapErr(err, "points history of "+customerID)
	}
	defer rows.Close()

	out := []model.PointsTransaction{}
	for rows.Next() {
		var (
			tx                 model.PointsTransaction
			challengeID, notes sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.MerchantID, &tx.BrandName, &tx.PointsAssigned, &challengeID, &notes, &tx.CreatedAt); err != nil {
			return nil, mapErr(err, "points history of "+customerID)
		}
		tx.ChallengeID = nullStr(challengeID)
		tx.Notes = nullStr(notes)
		out = append(out, tx)
	}
	return out, mapErr(rows.Err(), "points history of "+customerID)
}
