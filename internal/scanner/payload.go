// Package scanner parses QR payloads and runs the scan-to-action state
// machine behind the camera view.
package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meit-app/meit/internal/gateway"
)

// ErrInvalidCode is returned for payloads outside the QR grammar.
var ErrInvalidCode = fmt.Errorf("invalid code: %w", gateway.ErrValidation)

const (
	businessPrefix    = "meit://business/"
	merchantPrefix    = "merchant:"
	transactionPrefix = "transaction:"
)

// Kind tells the three payload formats apart.
type Kind int

const (
	KindBusiness    Kind = iota + 1 // meit://business/{locationId}
	KindMerchant                    // merchant:{id}, legacy
	KindTransaction                 // transaction:{merchantId}:{amount}
)

func (k Kind) String() string {
	switch k {
	case KindBusiness:
		return "business"
	case KindMerchant:
		return "merchant"
	case KindTransaction:
		return "transaction"
	}
	return "unknown"
}

// Payload is a parsed QR code.  LocationID is set for KindBusiness,
// MerchantID for the other two kinds, Amount for KindTransaction.
type Payload struct {
	Kind       Kind   `json:"kind"`
	LocationID int64  `json:"location_id,omitempty"`
	MerchantID string `json:"merchant_id,omitempty"`
	Amount     string `json:"amount,omitempty"`
}

// Parse classifies raw by prefix.  Matching is case-sensitive and nothing
// is unescaped.
func Parse(raw string) (Payload, error) {
	switch {
	case strings.HasPrefix(raw, businessPrefix):
		digits := strings.TrimPrefix(raw, businessPrefix)
		if digits == "" || digits[0] < '0' || digits[0] > '9' {
			return Payload{}, fmt.Errorf("%q: not a location id: %w", raw, ErrInvalidCode)
		}
		id, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || id <= 0 {
			return Payload{}, fmt.Errorf("%q: not a location id: %w", raw, ErrInvalidCode)
		}
		return Payload{Kind: KindBusiness, LocationID: id}, nil

	case strings.HasPrefix(raw, merchantPrefix):
		id := strings.TrimPrefix(raw, merchantPrefix)
		if id == "" {
			return Payload{}, fmt.Errorf("%q: empty merchant id: %w", raw, ErrInvalidCode)
		}
		return Payload{Kind: KindMerchant, MerchantID: id}, nil

	case strings.HasPrefix(raw, transactionPrefix):
		parts := strings.Split(strings.TrimPrefix(raw, transactionPrefix), ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Payload{}, fmt.Errorf("%q: want transaction:{merchant}:{amount}: %w", raw, ErrInvalidCode)
		}
		return Payload{Kind: KindTransaction, MerchantID: parts[0], Amount: parts[1]}, nil
	}
	return Payload{}, fmt.Errorf("%q: unrecognized format: %w", raw, ErrInvalidCode)
}
