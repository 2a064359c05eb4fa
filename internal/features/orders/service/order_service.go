package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"order-reconciler/internal/core/dedup"
	"order-reconciler/internal/core/logger"
	"order-reconciler/internal/features/orders/domain"
	"order-reconciler/internal/features/orders/ports"
	"order-reconciler/internal/features/orders/store"

	"go.uber.org/zap"
)

var (
	// ErrUserRequired is returned when the operation needs an authenticated user.
	ErrUserRequired = errors.New("authenticated user required")
	// ErrInvalidOrderID is returned when the order id is not a positive integer.
	ErrInvalidOrderID = errors.New("invalid order id")
	// ErrAddressRequired is returned when order creation lacks a delivery address.
	ErrAddressRequired = errors.New("delivery address required")
	// ErrEmptyReason is returned when cancellation lacks a reason.
	ErrEmptyReason = errors.New("cancellation reason required")
	// ErrTooFrequent signals a deduplicated request; callers treat it as
	// transient and retry after backoff or fall back to store state.
	ErrTooFrequent = errors.New("request too frequent or in progress")
	// ErrMalformedOrder is returned when the server response lacks an order identity.
	ErrMalformedOrder = errors.New("order payload missing identity")
)

// OrderService owns order-related network I/O, request dedup and store
// orchestration. It never stores a partial order: either the full validated
// snapshot is applied or the store keeps its previous state plus an error.
type OrderService struct {
	provider ports.OrderProvider
	shipping ports.ShippingMethodCache
	store    *store.Store
	guard    *dedup.Guard
}

// NewOrderService creates a new OrderService. The shipping cache may be nil,
// in which case every shipping-methods lookup hits the storefront API.
func NewOrderService(provider ports.OrderProvider, shipping ports.ShippingMethodCache, st *store.Store, guard *dedup.Guard) *OrderService {
	return &OrderService{
		provider: provider,
		shipping: shipping,
		store:    st,
		guard:    guard,
	}
}

// Store exposes the underlying state container for consumers to read.
func (s *OrderService) Store() *store.Store {
	return s.store
}

// CreateOrder places a new order and stores the returned snapshot as current.
// On any failure the store state is left unchanged apart from the error field.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req domain.CreateOrderRequest) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if req.AddressID <= 0 {
		return nil, ErrAddressRequired
	}

	s.store.StartLoading()

	order, err := s.provider.CreateOrder(ctx, userID, req)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if order == nil || order.OrderID <= 0 {
		s.store.SetError(ErrMalformedOrder.Error())
		return nil, ErrMalformedOrder
	}

	s.store.SetOrderSnapshot(order)
	s.store.SetOrderItems(order.Items)

	logger.Get().Info("Order created",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.OrderID),
	)

	return order, nil
}

// GetOrderByID fetches one order, deduplicating identical requests. A request
// suppressed by the guard returns the cached current order when its id
// matches, otherwise ErrTooFrequent, which callers must treat as non-fatal.
func (s *OrderService) GetOrderByID(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}

	key := dedup.Key("getOrder", userID, orderID)
	done, admitted := s.guard.Begin(key)
	if !admitted {
		if cached := s.store.CurrentOrder(); cached != nil && cached.OrderID == orderID {
			return cached, nil
		}
		return nil, ErrTooFrequent
	}
	defer done()

	s.store.StartLoading()

	order, err := s.provider.GetOrder(ctx, userID, orderID)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if order == nil || order.OrderID <= 0 {
		s.store.SetError(ErrMalformedOrder.Error())
		return nil, ErrMalformedOrder
	}

	s.store.SetOrderSnapshot(order)
	s.store.SetOrderItems(order.Items)

	return order, nil
}

// GetUserOrders fetches a page of order summaries. The store's status filter
// is updated only when it actually changes.
func (s *OrderService) GetUserOrders(ctx context.Context, userID int64, page, size int, statusFilter string) (*domain.OrderPage, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	if s.store.SetStatusFilter(statusFilter) {
		logger.Get().Debug("Order status filter changed", zap.String("filter", statusFilter))
	}

	s.store.StartLoading()

	result, err := s.provider.ListOrders(ctx, userID, page, size, statusFilter)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	s.store.SetOrderList(result)

	return result, nil
}

// CancelOrder cancels an order with a mandatory reason. There is no
// optimistic flip: the store is only touched after the server confirms, so a
// failed cancel can never appear to have succeeded.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrEmptyReason
	}

	order, err := s.provider.CancelOrder(ctx, userID, orderID, reason)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	if order == nil || order.OrderID <= 0 {
		s.store.SetError(ErrMalformedOrder.Error())
		return nil, ErrMalformedOrder
	}

	s.store.ApplyCancellation(order)
	// A follow-up fetch after cancellation should not be throttled.
	s.guard.Forget(dedup.Key("getOrder", userID, orderID))

	logger.Get().Info("Order cancelled",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", orderID),
		zap.String("reason", reason),
	)

	return order, nil
}

// GetShippingMethods lists delivery options, serving from the cache when warm.
func (s *OrderService) GetShippingMethods(ctx context.Context) ([]domain.ShippingMethod, error) {
	if s.shipping != nil {
		cached, err := s.shipping.Get(ctx)
		if err != nil {
			logger.Get().Warn("Shipping cache read failed", zap.Error(err))
		}
		if len(cached) > 0 {
			return cached, nil
		}
	}

	methods, err := s.provider.GetShippingMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shipping methods: %w", err)
	}

	if s.shipping != nil && len(methods) > 0 {
		if err := s.shipping.Save(ctx, methods); err != nil {
			logger.Get().Warn("Shipping cache write failed", zap.Error(err))
		}
	}

	return methods, nil
}

// EstimateShipping quotes the delivery fee for an address and method.
func (s *OrderService) EstimateShipping(ctx context.Context, addressID, methodID int64) (*domain.ShippingEstimate, error) {
	if addressID <= 0 {
		return nil, ErrAddressRequired
	}

	estimate, err := s.provider.EstimateShipping(ctx, addressID, methodID)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate shipping: %w", err)
	}

	return estimate, nil
}
