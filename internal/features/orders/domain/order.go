package domain

import (
	"time"
)

// OrderStatus represents the current state of an order.
// Statuses advance linearly PENDING → CONFIRMED → PROCESSING → SHIPPING →
// COMPLETED; CANCELLED is an escape reachable from PENDING or PROCESSING and
// is terminal. The server owns transitions, the client only mirrors and
// guards them.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed but not confirmed.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed indicates payment/stock checks passed.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipping indicates the order has been handed to the carrier.
	OrderStatusShipping OrderStatus = "SHIPPING"
	// OrderStatusCompleted indicates the order has been delivered and finalized.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled indicates the order was cancelled; terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// CancelEligible reports whether an order in this status may still be
// cancelled. This is the advisory client-side guard; a server-reported
// can_cancel value always wins over it.
func (s OrderStatus) CancelEligible() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderItem represents an individual line within an order. Items are created
// alongside the order and never mutated independently.
type OrderItem struct {
	// ProductID is the purchased product's identifier.
	ProductID int64 `json:"product_id"`
	// Name is the product name at time of purchase.
	Name string `json:"name"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// UnitPrice is the per-unit price at time of purchase.
	UnitPrice float64 `json:"unit_price"`
	// TotalPrice is UnitPrice * Quantity as reported by the server.
	TotalPrice float64 `json:"total_price"`
	// Size is the selected product size variant, if any.
	Size string `json:"size,omitempty"`
	// Color is the selected product color variant, if any.
	Color string `json:"color,omitempty"`
	// Picture is the URL to an image of the product.
	Picture string `json:"picture,omitempty"`
}

// ShippingMethod represents a delivery option offered by the storefront.
type ShippingMethod struct {
	// ID is the shipping method identifier.
	ID int64 `json:"id"`
	// Name is the display name of the method.
	Name string `json:"name"`
	// Fee is the delivery fee for this method.
	Fee float64 `json:"fee"`
	// EstimatedDays is the expected delivery time in days.
	EstimatedDays int `json:"estimated_days,omitempty"`
}

// Order represents one purchase transaction.
type Order struct {
	// OrderID is the unique identifier; immutable once assigned.
	OrderID int64 `json:"order_id"`
	// Status is the current order status.
	Status OrderStatus `json:"status"`
	// TotalAmount is the order total including shipping, server-authoritative.
	TotalAmount float64 `json:"total_amount"`
	// ShippingFee is the delivery fee portion of the total.
	ShippingFee float64 `json:"shipping_fee"`
	// CanCancel reports whether cancellation is still allowed. Server value
	// when provided, otherwise computed from Status.
	CanCancel bool `json:"can_cancel"`
	// Items contains the order's line items in order.
	Items []OrderItem `json:"items"`
	// ShippingMethod is the selected delivery option, if any.
	ShippingMethod *ShippingMethod `json:"shipping_method,omitempty"`
	// CreatedAt is when the order was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the order was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderSummary is the reduced representation returned in order listings.
type OrderSummary struct {
	// OrderID is the unique order identifier.
	OrderID int64 `json:"order_id"`
	// Status is the current order status.
	Status OrderStatus `json:"status"`
	// TotalAmount is the order total.
	TotalAmount float64 `json:"total_amount"`
	// ItemCount is the number of line items.
	ItemCount int `json:"item_count"`
	// CreatedAt is when the order was created.
	CreatedAt time.Time `json:"created_at"`
}

// Pagination holds listing page metadata.
type Pagination struct {
	// Page is the current page number (1-based).
	Page int `json:"page"`
	// Size is the page size.
	Size int `json:"size"`
	// TotalItems is the total number of orders matching the filter.
	TotalItems int `json:"total_items"`
	// TotalPages is the total number of pages.
	TotalPages int `json:"total_pages"`
}

// OrderPage is one page of order summaries plus its pagination metadata.
type OrderPage struct {
	// Orders is the page of order summaries.
	Orders []OrderSummary `json:"orders"`
	// Pagination is the page metadata.
	Pagination Pagination `json:"pagination"`
}

// CreateOrderRequest is the input for placing a new order.
type CreateOrderRequest struct {
	// AddressID references the delivery address; required.
	AddressID int64 `json:"address_id"`
	// ShippingMethodID references the chosen delivery option.
	ShippingMethodID int64 `json:"shipping_method_id"`
	// CartItemIDs selects which cart lines are being checked out.
	CartItemIDs []int64 `json:"cart_item_ids"`
	// Note is an optional customer note.
	Note string `json:"note,omitempty"`
}

// ShippingEstimate is the fee quote for delivering to an address.
type ShippingEstimate struct {
	// Fee is the quoted delivery fee.
	Fee float64 `json:"fee"`
	// EstimatedDays is the expected delivery time in days.
	EstimatedDays int `json:"estimated_days"`
}
