package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/meit-app/meit/internal/gateway"
)

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, gateway.ErrNotFound},
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, gateway.ErrUniqueViolation},
		{"wrapped duplicate", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), gateway.ErrUniqueViolation},
		{"foreign key", &mysql.MySQLError{Number: 1452}, gateway.ErrValidation},
		{"bad conn", driver.ErrBadConn, gateway.ErrNetwork},
		{"invalid conn", mysql.ErrInvalidConn, gateway.ErrNetwork},
		{"deadline", context.DeadlineExceeded, gateway.ErrNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapErr(tc.in, "op")
			if !errors.Is(got, tc.want) {
				t.Fatalf("mapErr(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapErrKeepsOtherErrors(t *testing.T) {
	if mapErr(nil, "op") != nil {
		t.Fatal("nil error should stay nil")
	}
	base := errors.New("boom")
	got := mapErr(base, "op")
	if !errors.Is(got, base) {
		t.Fatalf("lost original error: %v", got)
	}
	if gateway.KindOf(got) != "internal" {
		t.Fatalf("kind = %q, want internal", gateway.KindOf(got))
	}
	syntax := &mysql.MySQLError{Number: 1064}
	if k := gateway.KindOf(mapErr(syntax, "op")); k != "internal" {
		t.Fatalf("syntax error kind = %q, want internal", k)
	}
}
