package store

import (
	"sync"
	"time"

	"order-reconciler/internal/features/orders/domain"
)

// Store is the authoritative in-process snapshot of order state. It performs
// no I/O; state only changes through its fixed set of mutation methods, and
// malformed payloads are recorded as an error string instead of being applied.
// Instances are constructor-injected so tests can run isolated copies.
type Store struct {
	mu sync.Mutex

	currentOrder  *domain.Order
	orderItems    []domain.OrderItem
	orderList     []domain.OrderSummary
	pagination    domain.Pagination
	statusFilter  string
	loading       bool
	lastError     string
	lastRequestAt time.Time

	// now is swappable in tests.
	now func() time.Time
}

// State is a read-only copy of the store contents.
type State struct {
	// CurrentOrder is the active order snapshot, nil when none.
	CurrentOrder *domain.Order
	// OrderItems is the active order's line items.
	OrderItems []domain.OrderItem
	// OrderList is the last fetched page of order summaries.
	OrderList []domain.OrderSummary
	// Pagination is the metadata for OrderList.
	Pagination domain.Pagination
	// StatusFilter is the active listing filter, empty for all.
	StatusFilter string
	// Loading reports whether a fetch is in progress.
	Loading bool
	// Error is the last recorded error message, empty when none.
	Error string
	// LastRequestAt is when the last fetch started.
	LastRequestAt time.Time
}

// New creates an empty order store.
func New() *Store {
	return &Store{now: time.Now}
}

// StartLoading sets the loading flag, clears the previous error and stamps
// the request time.
func (s *Store) StartLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastError = ""
	s.lastRequestAt = s.now()
}

// SetOrderSnapshot replaces the current order wholesale after validating the
// payload carries an order identity. Missing optional fields are defaulted
// (empty item list, zero shipping fee is the zero value already). An invalid
// payload records an error and leaves state untouched.
func (s *Store) SetOrderSnapshot(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if order == nil || order.OrderID <= 0 {
		s.lastError = "invalid order payload: missing order identity"
		return
	}

	applied := *order
	if applied.Items == nil {
		applied.Items = []domain.OrderItem{}
	}

	s.currentOrder = &applied
	s.lastError = ""
}

// SetOrderList replaces the order list and its pagination wholesale after
// validating the payload shape. An invalid payload records an error and
// leaves both untouched.
func (s *Store) SetOrderList(page *domain.OrderPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if page == nil || page.Orders == nil {
		s.lastError = "invalid order list payload"
		return
	}

	s.orderList = page.Orders
	s.pagination = page.Pagination
	s.lastError = ""
}

// SetOrderItems replaces the active order's line items.
func (s *Store) SetOrderItems(items []domain.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items == nil {
		items = []domain.OrderItem{}
	}
	s.orderItems = items
}

// SetStatusFilter updates the active listing filter only when it actually
// changes, and reports whether it did.
func (s *Store) SetStatusFilter(filter string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusFilter == filter {
		return false
	}
	s.statusFilter = filter
	return true
}

// ApplyCancellation applies a cancelled order snapshot like SetOrderSnapshot
// and additionally patches the matching order list entry's status in place.
// This is the only targeted partial mutation in the store.
func (s *Store) ApplyCancellation(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if order == nil || order.OrderID <= 0 {
		s.lastError = "invalid order payload: missing order identity"
		return
	}

	applied := *order
	if applied.Items == nil {
		applied.Items = []domain.OrderItem{}
	}
	s.currentOrder = &applied
	s.lastError = ""

	for i := range s.orderList {
		if s.orderList[i].OrderID == order.OrderID {
			s.orderList[i].Status = order.Status
			break
		}
	}
}

// SetOrderStatus patches the status of the current order and any matching
// order list entry. Used when a confirmed payment moves the order forward
// before the next full snapshot arrives.
func (s *Store) SetOrderStatus(orderID int64, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentOrder != nil && s.currentOrder.OrderID == orderID {
		s.currentOrder.Status = status
		s.currentOrder.CanCancel = status.CancelEligible()
	}
	for i := range s.orderList {
		if s.orderList[i].OrderID == orderID {
			s.orderList[i].Status = status
			break
		}
	}
}

// SetError records a fetch failure so consumers can render it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.lastError = msg
}

// ClearError clears the recorded error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// ResetCurrent clears the current order and its dependent items. The order
// list and filter survive so listings don't flash empty on navigation.
func (s *Store) ResetCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentOrder = nil
	s.orderItems = []domain.OrderItem{}
	s.loading = false
	s.lastError = ""
}

// ResetAll returns the store to its initial state.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentOrder = nil
	s.orderItems = []domain.OrderItem{}
	s.orderList = nil
	s.pagination = domain.Pagination{}
	s.statusFilter = ""
	s.loading = false
	s.lastError = ""
	s.lastRequestAt = time.Time{}
}

// Snapshot returns a copy of the current state. Slices are copied so callers
// cannot mutate store internals through the snapshot.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Pagination:    s.pagination,
		StatusFilter:  s.statusFilter,
		Loading:       s.loading,
		Error:         s.lastError,
		LastRequestAt: s.lastRequestAt,
	}

	if s.currentOrder != nil {
		order := *s.currentOrder
		order.Items = append([]domain.OrderItem(nil), s.currentOrder.Items...)
		st.CurrentOrder = &order
	}
	st.OrderItems = append([]domain.OrderItem(nil), s.orderItems...)
	st.OrderList = append([]domain.OrderSummary(nil), s.orderList...)

	return st
}

// CurrentOrder returns the current order snapshot, nil when none.
func (s *Store) CurrentOrder() *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentOrder == nil {
		return nil
	}
	order := *s.currentOrder
	order.Items = append([]domain.OrderItem(nil), s.currentOrder.Items...)
	return &order
}
