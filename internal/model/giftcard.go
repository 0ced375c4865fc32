package model

import "time"

// GiftCardStatus is the authoritative status stored by the backend.
// Transitions are one-way: active -> redeemed | expired | cancelled.
type GiftCardStatus string

const (
	GiftCardActive    GiftCardStatus = "active"
	GiftCardRedeemed  GiftCardStatus = "redeemed"
	GiftCardExpired   GiftCardStatus = "expired"
	GiftCardCancelled GiftCardStatus = "cancelled"
)

// GiftCard mirrors a gift_cards row joined with its location name.
type GiftCard struct {
	ID         string         `json:"id"`          // gift_cards.id
	CustomerID string         `json:"customer_id"` // gift_cards.customer_id
	LocationID int64          `json:"location_id"` // gift_cards.business_settings_id
	BrandName  string         `json:"brand_name"`
	Code       string         `json:"code"`        // gift_cards.code (unique)
	Value      int64          `json:"value"`       // gift_cards.value
	PointsUsed int64          `json:"points_used"` // gift_cards.points_used
	Status     GiftCardStatus `json:"status"`      // gift_cards.status
	ExpiresAt  time.Time      `json:"expires_at"`
	RedeemedAt *time.Time     `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EffectiveStatus is the display status at now: an active card whose
// expiry has passed reads as expired.  Status itself is left untouched.
func (g GiftCard) EffectiveStatus(now time.Time) GiftCardStatus {
	if g.Status == GiftCardActive && g.ExpiresAt.Before(now) {
		return GiftCardExpired
	}
	return g.Status
}
