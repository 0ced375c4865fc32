package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/app"
	"github.com/meit-app/meit/internal/config"
	"github.com/meit-app/meit/internal/database"
	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/handler"
	"github.com/meit-app/meit/internal/logging"
	"github.com/meit-app/meit/internal/middleware"
	"github.com/meit-app/meit/internal/realtime"
	"github.com/meit-app/meit/internal/repository"
	"github.com/meit-app/meit/internal/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, db, err := openGateway(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("gateway", zap.String("mode", cfg.Gateway), zap.Error(err))
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	regCfg := config.LoadRegistryConfig()
	registry := app.NewRegistry(gw, logger, regCfg.IdleTTL)
	if err := registry.Start(regCfg.SweepSpec); err != nil {
		logger.Fatal("registry sweep", zap.String("spec", regCfg.SweepSpec), zap.Error(err))
	}
	defer registry.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger)

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterAuth(e, handler.NewAuthHandler(gw, registry, logger), cfg.JWTSecret, limit)
	router.RegisterClient(e, handler.NewClientHandler(registry, logger), cfg.JWTSecret, limit)
	router.RegisterPublic(e, &handler.PublicHandler{Merchants: gw}, limit, cache)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("gateway", cfg.Gateway))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// openGateway builds the gateway selected by APP_GATEWAY.  The returned
// *sql.DB is nil in memory mode.
func openGateway(ctx context.Context, cfg config.Config, logger *zap.Logger) (gateway.Gateway, *sql.DB, error) {
	auth := repository.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	}

	if cfg.Gateway == config.GatewayMemory {
		rt := config.LoadRealtimeConfig()
		mem := gateway.NewMemory(gateway.MemoryOptions{
			JWTSecret:  auth.JWTSecret,
			AccessTTL:  auth.AccessTTL,
			RefreshTTL: auth.RefreshTTL,
			BcryptCost: cfg.BcryptCost,
			Hub:        realtime.NewHub(rt.Buffer),
		})
		if err := seedDemo(mem); err != nil {
			return nil, nil, err
		}
		logger.Info("memory gateway seeded", zap.String("email", demoEmail))
		return mem, nil, nil
	}

	db, err := database.Open(ctx, database.Params{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return nil, nil, err
	}

	var feed repository.Feed
	if rt := config.LoadRealtimeConfig(); rt.Enabled {
		sub := realtime.NewSubscriber(rt.URL, rt.Exchange, logger)
		sub.Buffer = rt.Buffer
		feed = sub
	} else {
		logger.Warn("realtime disabled, notifications will not be pushed")
	}
	return repository.NewGateway(db, feed, auth, logger), db, nil
}
