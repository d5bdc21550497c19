package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const membershipKeyPrefix = "promo:catalog:memberships:"

// Cache stores product category memberships in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func membershipKey(productCode string) string {
	return membershipKeyPrefix + productCode
}

// GetMemberships returns cached memberships for the products that have them.
func (c *Cache) GetMemberships(ctx context.Context, productCodes []string) (map[string][]string, error) {
	found := make(map[string][]string, len(productCodes))
	if c == nil || c.client == nil || len(productCodes) == 0 {
		return found, nil
	}
	keys := make([]string, len(productCodes))
	for i, code := range productCodes {
		keys[i] = membershipKey(code)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return found, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			continue
		}
		found[productCodes[i]] = ids
	}
	return found, nil
}

// SetMemberships stores memberships with the configured TTL.
func (c *Cache) SetMemberships(ctx context.Context, memberships map[string][]string) error {
	if c == nil || c.client == nil || len(memberships) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for code, ids := range memberships {
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		pipe.Set(ctx, membershipKey(code), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate drops cached memberships for the products.
func (c *Cache) Invalidate(ctx context.Context, productCodes ...string) error {
	if c == nil || c.client == nil || len(productCodes) == 0 {
		return nil
	}
	keys := make([]string, len(productCodes))
	for i, code := range productCodes {
		keys[i] = membershipKey(code)
	}
	err := c.client.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
