// Package repository implements the gateway over MySQL.  Each repo owns one
// table group; every method maps driver failures onto the gateway sentinels
// so callers never see *mysql.MySQLError or sql.ErrNoRows directly.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/meit-app/meit/internal/gateway"
)

// MySQL server error numbers the repos branch on.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

// mapErr wraps err with what and the matching gateway sentinel.
//
//	sql.ErrNoRows           -> gateway.ErrNotFound
//	1062 duplicate entry    -> gateway.ErrUniqueViolation
//	1452 foreign key        -> gateway.ErrValidation
//	bad conn / net / ctx    -> gateway.ErrNetwork
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, gateway.ErrNotFound)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%s: %w: %w", what, gateway.ErrUniqueViolation, err)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%s: %w: %w", what, gateway.ErrValidation, err)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", what, gateway.ErrNetwork, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
