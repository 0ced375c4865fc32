package model

import "time"

// Challenge is defined per location.  Progress is tracked server-side; the
// client only decides whether the challenge is still running.
type Challenge struct {
	ID                   string     `json:"id"`
	LocationID           int64      `json:"location_id"`
	BrandName            string     `json:"brand_name"`
	Category             string     `json:"category"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	RewardPoints         int64      `json:"reward_points"`
	ChallengeType        string     `json:"challenge_type"`
	TargetValue          int64      `json:"target_value"`
	IsRepeatable         bool       `json:"is_repeatable"`
	MaxCompletionsPerDay *int64     `json:"max_completions_per_day,omitempty"`
	MaxCompletionsTotal  *int64     `json:"max_completions_total,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	IsActive             bool       `json:"is_active"`
}

// Expired reports whether the challenge end date has passed.
func (c Challenge) Expired(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}
