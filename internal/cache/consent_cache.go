// internal/cache/consent_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ludora/ludora-backend/internal/config"
	"github.com/ludora/ludora-backend/internal/models"
)

// ErrMiss is returned when no cached value exists for the key.
var ErrMiss = errors.New("cache: miss")

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// ConsentStatusCache stores derived consent statuses keyed by student ID.
// Entries expire on their own; writes that change the underlying link or
// consent rows must also call Invalidate so the next read re-derives.
type ConsentStatusCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewConsentStatusCache(client *redis.Client, ttl time.Duration) *ConsentStatusCache {
	return &ConsentStatusCache{
		client: client,
		prefix: "ludora:consent-status:",
		ttl:    ttl,
	}
}

func (c *ConsentStatusCache) key(studentID uuid.UUID) string {
	return c.prefix + studentID.String()
}

func (c *ConsentStatusCache) Get(ctx context.Context, studentID uuid.UUID) (*models.ConsentStatus, error) {
	data, err := c.client.Get(ctx, c.key(studentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get consent status: %w", err)
	}

	var status models.ConsentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("cache: decode consent status: %w", err)
	}
	return &status, nil
}

func (c *ConsentStatusCache) Set(ctx context.Context, studentID uuid.UUID, status *models.ConsentStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("cache: encode consent status: %w", err)
	}

	if err := c.client.Set(ctx, c.key(studentID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set consent status: %w", err)
	}
	return nil
}

func (c *ConsentStatusCache) Invalidate(ctx context.Context, studentID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(studentID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate consent status: %w", err)
	}
	return nil
}
