package model

import "time"

// Location is a single registerable place of business (business_settings).
// Customers register against a location; the location proxies to a parent
// merchant (businesses) which owns challenges and points audit rows.
type Location struct {
	ID       int64   `json:"id"`                // business_settings.id
	Name     string  `json:"name"`              // business_settings.name
	Category string  `json:"category"`          // business_types.name, "General" when unset
	Address  *string `json:"address,omitempty"` // business_settings.address
	Phone    *string `json:"phone,omitempty"`   // phone_code + phone_number
}

// Relation mirrors a customer_businesses row.  There is at most one active
// relation per (CustomerID, LocationID) pair.
type Relation struct {
	ID              string     `json:"id"`                       // customer_businesses.id (uuid)
	CustomerID      string     `json:"customer_id"`              // customer_businesses.customer_id
	MerchantID      int64      `json:"merchant_id"`              // customer_businesses.business_id
	LocationID      int64      `json:"location_id"`              // customer_businesses.business_settings_id
	AvailablePoints int64      `json:"available_points"`         // customer_businesses.total_points
	LifetimePoints  int64      `json:"lifetime_points"`          // customer_businesses.lifetime_points
	VisitsCount     int64      `json:"visits_count"`             // customer_businesses.visits_count
	IsFavorite      bool       `json:"is_favorite"`              // customer_businesses.is_favorite
	IsActive        bool       `json:"is_active"`                // customer_businesses.is_active
	FirstVisitAt    *time.Time `json:"first_visit_at,omitempty"` // customer_businesses.first_visit_at
	LastVisitAt     *time.Time `json:"last_visit_at,omitempty"`  // customer_businesses.last_visit_at
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Merchant is the item held by the merchants cache: a relation joined with
// the location it points at.  ID is the relation id.
type Merchant struct {
	ID             string     `json:"id"`
	LocationID     int64      `json:"location_id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Address        *string    `json:"address,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Points         int64      `json:"points"`
	LifetimePoints int64      `json:"lifetime_points"`
	VisitsCount    int64      `json:"visits_count"`
	IsFavorite     bool       `json:"is_favorite"`
	IsActive       bool       `json:"is_active"`
	FirstVisitAt   *time.Time `json:"first_visit_at,omitempty"`
	LastVisitAt    *time.Time `json:"last_visit_at,omitempty"`
}

// MerchantFrom joins a relation with its location.  A zero Location yields
// the "Sin nombre"/"General" placeholders the app shows for broken joins.
func MerchantFrom(r Relation, loc Location) Merchant {
	name := loc.Name
	if name == "" {
		name = "Sin nombre"
	}
	category := loc.Category
	if category == "" {
		category = "General"
	}
	return Merchant{
		ID:             r.ID,
		LocationID:     r.LocationID,
		Name:           name,
		Category:       category,
		Address:        loc.Address,
		Phone:          loc.Phone,
		Points:         r.AvailablePoints,
		LifetimePoints: r.LifetimePoints,
		VisitsCount:    r.VisitsCount,
		IsFavorite:     r.IsFavorite,
		IsActive:       r.IsActive,
		FirstVisitAt:   r.FirstVisitAt,
		LastVisitAt:    r.LastVisitAt,
	}
}
