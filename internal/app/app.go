// Package app assembles the service from configuration. It is shared by the
// API server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/expense-service/internal/auth"
	"github.com/Dan9191/expense-service/internal/cache"
	"github.com/Dan9191/expense-service/internal/config"
	"github.com/Dan9191/expense-service/internal/repository"
	"github.com/Dan9191/expense-service/internal/service"
)

// Store is a storage backend that can also prepare its schema
type Store interface {
	service.Store
	Migrate(ctx context.Context) error
}

// NewLogger returns a JSON logger at the configured level
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// OpenStore connects to the configured backend. The returned close func is
// always safe to call.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	if cfg.Storage == config.StorageMemory {
		return repository.NewMemory(), func() error { return nil }, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return repository.NewRepository(db), db.Close, nil
}

// OpenCache connects to Redis when REDIS_ADDR is set. A nil cache disables
// caching; a Redis that cannot be reached at startup is logged and skipped.
func OpenCache(ctx context.Context, cfg *config.Config, log *logrus.Logger) (cache.Cache, func() error) {
	noop := func() error { return nil }
	if cfg.RedisAddr == "" {
		log.Info("Cache disabled: REDIS_ADDR not set")
		return nil, noop
	}

	client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warnf("Cache disabled: %v", err)
		return nil, noop
	}
	log.WithField("addr", cfg.RedisAddr).Info("Cache enabled")
	return cache.NewRedis(client, cfg.CacheTTL), client.Close
}

// NewService wires the service layer over store and c
func NewService(cfg *config.Config, store service.Store, c cache.Cache, log *logrus.Logger) *service.Service {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	return service.NewService(store, c, tokens, log)
}
