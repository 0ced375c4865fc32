package model

import "time"

// Customer is the profile row owned by one authenticated identity.  It is
// created once after sign-up confirmation and never deleted by the client;
// point and visit totals are maintained server-side.
type Customer struct {
	ID             string    `json:"id"`              // customers.id
	IdentityID     string    `json:"identity_id"`     // customers.auth_id
	Email          string    `json:"email"`           // customers.email
	Name           string    `json:"name"`            // customers.name
	Phone          *string   `json:"phone,omitempty"` // customers.phone (nullable)
	BirthDate      *string   `json:"birth_date,omitempty"`
	Gender         *string   `json:"gender,omitempty"` // M | F | O
	TotalPoints    int64     `json:"total_points"`     // customers.total_points (available)
	LifetimePoints int64     `json:"lifetime_points"`  // customers.lifetime_points
	VisitsCount    int64     `json:"visits_count"`     // customers.visits_count
	OptInMarketing bool      `json:"opt_in_marketing"` // customers.opt_in_marketing
	IsActive       bool      `json:"is_active"`        // customers.is_active
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileInput carries the fields a customer fills in on the
// profile-completion form.
type ProfileInput struct {
	Name           string  `json:"name"`
	BirthDate      *string `json:"birth_date,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	OptInMarketing bool    `json:"opt_in_marketing"`
}

// RawSession is the token bundle returned by the authentication backend.
// IdentityID is the subject of the access token.
type RawSession struct {
	IdentityID   string    `json:"identity_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
