package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/meit-app/meit/internal/model"
)

// CustomerRepo reads and creates rows of the 'customers' table.
type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, auth_id, email, name, phone, birth_date, gender,
	total_points, lifetime_points, visits_count, opt_in_marketing, is_active, created_at, updated_at`

// GetByIdentity returns the customer owned by identityID.
func (r *CustomerRepo) GetByIdentity(ctx context.Context, identityID string) (model.Customer, error) {
	q := "SELECT " + customerColumns + " FROM customers WHERE auth_id = ? LIMIT 1"
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, identityID))
	return c, mapErr(err, "customer for identity "+identityID)
}

// GetByID returns a customer by primary key.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (model.Customer, error) {
	q := "SELECT " + customerColumns + " FROM customers WHERE id = ? LIMIT 1"
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, id))
	return c, mapErr(err, "customer "+id)
}

// Create inserts a profile for identityID.  The unique key on auth_id turns
// a second profile into gateway.ErrUniqueViolation.
func (r *CustomerRepo) Create(ctx context.Context, identityID, email string, in model.ProfileInput) (model.Customer, error) {
	id := uuid.NewString()
	var birth, gender any
	if in.BirthDate != nil && *in.BirthDate != "" {
		birth = *in.BirthDate
	}
	if in.Gender != "" {
		gender = in.Gender
	}
	const q = `INSERT INTO customers (id, auth_id, email, name, birth_date, gender, opt_in_marketing)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, id, identityID, email, in.Name, birth, gender, in.OptInMarketing); err != nil {
		return model.Customer{}, mapErr(err, "create customer for identity "+identityID)
	}
	return r.GetByID(ctx, id)
}

func scanCustomer(row rowScanner) (model.Customer, error) {
	var (
		c      model.Customer
		phone  sql.NullString
		birth  sql.NullTime
		gender sql.NullString
	)
	err := row.Scan(&c.ID, &c.IdentityID, &c.Email, &c.Name, &phone, &birth, &gender,
		&c.TotalPoints, &c.LifetimePoints, &c.VisitsCount, &c.OptInMarketing, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Customer{}, err
	}
	c.Phone = nullStr(phone)
	c.Gender = nullStr(gender)
	if birth.Valid {
		s := birth.Time.Format(time.DateOnly)
		c.BirthDate = &s
	}
	return c, nil
}
