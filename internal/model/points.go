package model

import "time"

// PointsSummary holds the customer-wide totals from the customers row.
type PointsSummary struct {
	Available int64 `json:"available"`
	Lifetime  int64 `json:"lifetime"`
}

// RelationPoints is the per-location balance of one relation.
type RelationPoints struct {
	RelationID string `json:"relation_id"`
	LocationID int64  `json:"location_id"`
	BrandName  string `json:"brand_name"`
	Available  int64  `json:"available"`
	Lifetime   int64  `json:"lifetime"`
}

// PointsTransaction mirrors a points_audit row.
type PointsTransaction struct {
	ID             string    `json:"id"`                     // points_audit.id
	MerchantID     int64     `json:"merchant_id"`            // points_audit.business_id
	BrandName      string    `json:"brand_name"`             // joined business_settings.name
	PointsAssigned int64     `json:"points_assigned"`        // points_audit.points_assigned
	ChallengeID    *string   `json:"challenge_id,omitempty"` // points_audit.challenge_id
	Notes          *string   `json:"notes,omitempty"`        // points_audit.notes
	CreatedAt      time.Time `json:"created_at"`
}
