package ports

import (
	"context"

	"order-reconciler/internal/features/orders/domain"
)

// ShippingMethodCache defines the cache interface for shipping methods.
type ShippingMethodCache interface {
	// Get retrieves the cached shipping methods. A miss returns (nil, nil).
	Get(ctx context.Context) ([]domain.ShippingMethod, error)

	// Save stores the shipping methods.
	Save(ctx context.Context, methods []domain.ShippingMethod) error
}
