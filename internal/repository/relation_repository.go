package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meit-app/meit/internal/model"
)

// RelationRepo manages 'customer_businesses', the customer-to-location
// relation.  The unique key (customer_id, business_settings_id) is what
// keeps registration exactly-once under races.
type RelationRepo struct {
	db *sql.DB
}

func NewRelationRepo(db *sql.DB) *RelationRepo { return &RelationRepo{db: db} }

const relationColumns = `cb.id, cb.customer_id, cb.business_id, cb.business_settings_id,
	cb.total_points, cb.lifetime_points, cb.visits_count, cb.is_favorite, cb.is_active,
	cb.first_visit_at, cb.last_visit_at, cb.created_at, cb.updated_at`

// ListMerchants returns the customer's active relations joined with their
// locations, oldest first.
func (r *RelationRepo) ListMerchants(ctx context.Context, customerID string) ([]model.Merchant, error) {
	q := `SELECT ` + relationColumns + `,
	             COALESCE(bs.name, ''), COALESCE(bt.name, ''), bs.address
	      FROM customer_businesses cb
	      LEFT JOIN business_settings bs ON bs.id = cb.business_settings_id
	      LEFT JOIN business_types bt ON bt.id = bs.business_type_id
	      WHERE cb.customer_id = ? AND cb.is_active = 1
	      ORDER BY cb.created_at, cb.id`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, mapErr(err, "merchant relations of "+customerID)
	}
	defer rows.Close()

	out := []model.Merchant{}
	for rows.Next() {
		var (
			loc     model.Location
			address sql.NullString
		)
		rel, err := scanRelation(rows, &loc.Name, &loc.Category, &address)
		if err != nil {
			return nil, mapErr(err, "merchant relations of "+customerID)
		}
		loc.ID = rel.LocationID
		loc.Address = nullStr(address)
		out = append(out, model.MerchantFrom(rel, loc))
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "merchant relations of "+customerID)
	}
	return out, nil
}

// GetByPair returns the relation of (customerID, locationID), active or not.
func (r *RelationRepo) GetByPair(ctx context.Context, customerID string, locationID int64) (model.Relation, error) {
	q := "SELECT " + relationColumns + " FROM customer_businesses cb WHERE cb.customer_id = ? AND cb.business_settings_id = ? LIMIT 1"
	rel, err := scanRelation(r.db.QueryRowContext(ctx, q, customerID, locationID))
	return rel, mapErr(err, fmt.Sprintf("relation %s/%d", customerID, locationID))
}

// GetByID returns a relation by primary key.
func (r *RelationRepo) GetByID(ctx context.Context, id string) (model.Relation, error) {
	q := "SELECT " + relationColumns + " FROM customer_businesses cb WHERE cb.id = ?"
	rel, err := scanRelation(r.db.QueryRowContext(ctx, q, id))
	return rel, mapErr(err, "relation "+id)
}

// Create inserts rel with a fresh uuid and returns the stored row.
func (r *RelationRepo) Create(ctx context.Context, rel model.Relation) (model.Relation, error) {
	rel.ID = uuid.NewString()
	const q = `INSERT INTO customer_businesses
	           (id, customer_id, business_id, business_settings_id, total_points, lifetime_points,
	            visits_count, is_favorite, is_active, first_visit_at, last_visit_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, rel.ID, rel.CustomerID, rel.MerchantID, rel.LocationID,
		rel.AvailablePoints, rel.LifetimePoints, rel.VisitsCount, rel.IsFavorite, rel.IsActive,
		rel.FirstVisitAt, rel.LastVisitAt)
	if err != nil {
		return model.Relation{}, mapErr(err, fmt.Sprintf("create relation %s/%d", rel.CustomerID, rel.LocationID))
	}
	return r.GetByID(ctx, rel.ID)
}

// UpdateFavorite sets is_favorite.  A missing relation is gateway.ErrNotFound.
func (r *RelationRepo) UpdateFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE customer_businesses SET is_favorite = ?, updated_at = ? WHERE id = ?",
		favorite, time.Now().UTC(), id)
	if err != nil {
		return mapErr(err, "favorite relation "+id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err, "favorite relation "+id)
	}
	if n == 0 {
		// unchanged rows report zero affected; tell them apart from misses
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM customer_businesses WHERE id = ?", id).Scan(&one)
		return mapErr(err, "favorite relation "+id)
	}
	return nil
}

// scanRelation scans relationColumns followed by extra destinations.
func scanRelation(row rowScanner, extra ...any) (model.Relation, error) {
	var (
		rel         model.Relation
		first, last sql.NullTime
	)
	dest := []any{&rel.ID, &rel.CustomerID, &rel.MerchantID, &rel.LocationID,
		&rel.AvailablePoints, &rel.LifetimePoints, &rel.VisitsCount, &rel.IsFavorite, &rel.IsActive,
		&first, &last, &rel.CreatedAt, &rel.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Relation{}, err
	}
	rel.FirstVisitAt = nullTime(first)
	rel.LastVisitAt = nullTime(last)
	return rel, nil
}
