package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dan9191/expense-service/internal/models"
)

// DefaultTTL bounds how stale an owner's snapshot may get
const DefaultTTL = 15 * time.Minute

// Cache holds per-owner snapshots of the visible transaction set
type Cache interface {
	Get(ctx context.Context, ownerID int64) ([]models.Transaction, bool, error)
	Set(ctx context.Context, ownerID int64, txs []models.Transaction) error
	Invalidate(ctx context.Context, ownerID int64) error
}

// Key returns the cache key of an owner's snapshot
func Key(ownerID int64) string {
	return fmt.Sprintf("expenses_user_%d", ownerID)
}

// Redis stores snapshots as JSON values with an expiry
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps a connected client
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Connect dials addr and checks the connection
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *Redis) Get(ctx context.Context, ownerID int64) ([]models.Transaction, bool, error) {
	raw, err := c.client.Get(ctx, Key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var txs []models.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return txs, true, nil
}

func (c *Redis) Set(ctx context.Context, ownerID int64, txs []models.Transaction) error {
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, Key(ownerID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, ownerID int64) error {
	if err := c.client.Del(ctx, Key(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
