package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meit-app/meit/internal/model"
)

// LocationRepo reads 'business_settings' rows joined with their type.
type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// Get returns the location with id.
func (r *LocationRepo) Get(ctx context.Context, id int64) (model.Location, error) {
	const q = `SELECT bs.id, bs.name, COALESCE(bt.name, ''), bs.address, bs.phone_code, bs.phone_number
	           FROM business_settings bs
	           LEFT JOIN business_types bt ON bt.id = bs.business_type_id
	           WHERE bs.id = ?`
	var (
		loc                   model.Location
		address, code, number sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&loc.ID, &loc.Name, &loc.Category, &address, &code, &number)
	if err != nil {
		return model.Location{}, mapErr(err, fmt.Sprintf("location %d", id))
	}
	if loc.Category == "" {
		loc.Category = "General"
	}
	loc.Address = nullStr(address)
	if number.Valid && number.String != "" {
		phone := number.String
		if code.Valid && code.String != "" {
			phone = code.String + " " + phone
		}
		loc.Phone = &phone
	}
	return loc, nil
}

// ParentMerchantID returns business_settings.business_id.  A location
// without a parent reads as gateway.ErrNotFound.
func (r *LocationRepo) ParentMerchantID(ctx context.Context, id int64) (int64, error) {
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT business_id FROM business_settings WHERE id = ?", id).Scan(&parent)
	if err == nil && !parent.Valid {
		err = sql.ErrNoRows
	}
	if err != nil {
		return 0, mapErr(err, fmt.Sprintf("parent merchant of location %d", id))
	}
	return parent.Int64, nil
}
