package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-reconciler/internal/core/cache"
	"order-reconciler/internal/features/orders/domain"
)

const shippingMethodsCacheKey = "shipping_methods"

// ShippingCache stores shipping methods in the cache. Methods change rarely
// and the endpoint is hit on every checkout page load, so they get a TTL cache
// in front of the storefront API.
type ShippingCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewShippingCache creates a new ShippingCache with the given TTL.
func NewShippingCache(c cache.Cache, ttl time.Duration) *ShippingCache {
	return &ShippingCache{
		cache: c,
		ttl:   ttl,
	}
}

// Get retrieves the cached shipping methods. Returns (nil, nil) on a miss.
func (s *ShippingCache) Get(ctx context.Context) ([]domain.ShippingMethod, error) {
	data, err := s.cache.Get(ctx, shippingMethodsCacheKey)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shipping methods from cache: %w", err)
	}

	var methods []domain.ShippingMethod
	if err := json.Unmarshal(data, &methods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping methods: %w", err)
	}

	return methods, nil
}

// Save stores the shipping methods in the cache.
func (s *ShippingCache) Save(ctx context.Context, methods []domain.ShippingMethod) error {
	data, err := json.Marshal(methods)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping methods: %w", err)
	}

	if err := s.cache.Set(ctx, shippingMethodsCacheKey, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save shipping methods to cache: %w", err)
	}

	return nil
}
