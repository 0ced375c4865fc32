// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"
)

// Gateway modes.
const (
	GatewayMySQL  = "mysql"
	GatewayMemory = "memory"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV: dev, test, prod
	Port           string // APP_PORT
	Gateway        string // APP_GATEWAY: mysql (default) or memory
	LogDev         bool   // LOG_DEV: console logger with debug level
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // signs and verifies access tokens
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int
}

// Load reads the configuration.  Missing required variables are fatal.
// Database settings are required only in mysql mode.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		Gateway:        strings.ToLower(envStr("APP_GATEWAY", GatewayMySQL)),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),
	}
	cfg.LogDev = envBool("LOG_DEV", cfg.Env == "dev")
	switch cfg.Gateway {
	case GatewayMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case GatewayMemory:
	default:
		log.Fatalf("invalid APP_GATEWAY: %q", cfg.Gateway)
	}
	return cfg
}
