package repository

import (
	"context"
	"database/sql"

	"github.com/meit-app/meit/internal/model"
)

// ChallengeRepo reads the challenges of locations a customer joined.
type ChallengeRepo struct {
	db *sql.DB
}

func NewChallengeRepo(db *sql.DB) *ChallengeRepo { return &ChallengeRepo{db: db} }

// ListForCustomer returns the active challenges of every location the
// customer holds an active relation with.
func (r *ChallengeRepo) ListForCustomer(ctx context.Context, customerID string) ([]model.Challenge, error) {
	const q = `SELECT c.id, c.business_settings_id, COALESCE(bs.name, ''), c.category, c.title,
	                  c.description, c.reward_points, c.challenge_type, c.target_value, c.is_repeatable,
	                  c.max_completions_per_day, c.max_completions_total, c.start_date, c.end_date, c.is_active
	           FROM challenges c
	           JOIN customer_businesses cb
	             ON cb.business_settings_id = c.business_settings_id AND cb.customer_id = ? AND cb.is_active = 1
	           LEFT JOIN business_settings bs ON bs.id = c.business_settings_id
	           WHERE c.is_active = 1
	           ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, mapErr(err, "challenges of "+customerID)
	}
	defer rows.Close()

	out := []model.Challenge{}
	for rows.Next() {
		var (
			c           model.Challenge
			perDay, tot sql.NullInt64
			start, end  sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.LocationID, &c.BrandName, &c.Category, &c.Title,
			&c.Description, &c.RewardPoints, &c.ChallengeType, &c.TargetValue, &c.IsRepeatable,
			&perDay, &tot, &start, &end, &c.IsActive); err != nil {
			return nil, mapErr(err, "challenges of "+customerID)
		}
		c.MaxCompletionsPerDay = nullInt(perDay)
		c.MaxCompletionsTotal = nullInt(tot)
		c.StartDate = nullTime(start)
		c.EndDate = nullTime(end)
		out = append(out, c)
	}
	return out, mapErr(rows.Err(), "challenges of "+customerID)
}
