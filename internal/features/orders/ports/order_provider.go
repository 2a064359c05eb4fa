package ports

import (
	"context"

	"order-reconciler/internal/features/orders/domain"
)

// OrderProvider defines the interface for order operations against the
// remote storefront API. This is a Secondary Port (Driven Port).
type OrderProvider interface {
	// CreateOrder places a new order for the user and returns the full snapshot.
	CreateOrder(ctx context.Context, userID int64, req domain.CreateOrderRequest) (*domain.Order, error)

	// GetOrder retrieves one order by its identifier.
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)

	// ListOrders retrieves a page of the user's order summaries, optionally
	// filtered by status.
	ListOrders(ctx context.Context, userID int64, page, size int, status string) (*domain.OrderPage, error)

	// CancelOrder cancels an order with a reason and returns the updated snapshot.
	CancelOrder(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error)

	// GetShippingMethods lists the available delivery options.
	GetShippingMethods(ctx context.Context) ([]domain.ShippingMethod, error)

	// EstimateShipping quotes the delivery fee for an address and method.
	EstimateShipping(ctx context.Context, addressID, methodID int64) (*domain.ShippingEstimate, error)
}
