// Package database opens the MySQL pool behind the repository gateway.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Params locate the database.
type Params struct {
	User     string
	Password string // optional
	Host     string
	Port     string
	Name     string
}

// DSN renders p as a go-sql-driver DSN with parseTime and UTC locations.
func (p Params) DSN() string {
	c := mysql.NewConfig()
	c.User = p.User
	c.Passwd = p.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(p.Host, p.Port)
	c.DBName = p.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, p Params) (*sql.DB, error) {
	db, err := sql.Open("mysql", p.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
