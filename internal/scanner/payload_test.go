package scanner

import (
	"errors"
	"testing"

	"github.com/meit-app/meit/internal/gateway"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		want Payload
	}{
		{"meit://business/42", Payload{Kind: KindBusiness, LocationID: 42}},
		{"merchant:7", Payload{Kind: KindMerchant, MerchantID: "7"}},
		{"merchant:abc-9", Payload{Kind: KindMerchant, MerchantID: "abc-9"}},
		{"transaction:12:500", Payload{Kind: KindTransaction, MerchantID: "12", Amount: "500"}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{
		"meit://business/abc",
		"meit://business/",
		"meit://business/0",
		"meit://business/-3",
		"meit://business/+3",
		"meit://business/4 2",
		"meit://business/99999999999999999999",
		"MEIT://business/42",
		"merchant:",
		"transaction:12",
		"transaction::500",
		"transaction:12:",
		"transaction:12:500:1",
		"random text",
		"",
	} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("Parse(%q) = %v, want ErrInvalidCode", raw, err)
		}
		if !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("Parse(%q) error is not a validation error", raw)
		}
	}
}
