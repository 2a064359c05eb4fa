package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-reconciler/internal/core/config"
	"order-reconciler/internal/core/httpclient"
	"order-reconciler/internal/core/logger"
	"order-reconciler/internal/features/orders/domain"

	"go.uber.org/zap"
)

// userIDHeader authenticates requests against the storefront API.
const userIDHeader = "X-User-Id"

// StorefrontAdapter implements the OrderProvider interface using the
// storefront REST API.
type StorefrontAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the storefront connection details.
	config config.StorefrontConfig
}

// NewStorefrontAdapter creates a new instance of StorefrontAdapter.
func NewStorefrontAdapter(cfg config.StorefrontConfig) *StorefrontAdapter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &StorefrontAdapter{
		client: httpclient.NewClient(timeout),
		config: cfg,
	}
}

// CreateOrder places a new order and maps the response to the domain entity.
func (a *StorefrontAdapter) CreateOrder(ctx context.Context, userID int64, req domain.CreateOrderRequest) (*domain.Order, error) {
	var raw sfOrder
	endpoint := fmt.Sprintf("%s/orders/create", a.config.URL)
	if err := a.do(ctx, http.MethodPost, endpoint, userID, req, &raw); err != nil {
		return nil, err
	}
	return mapOrder(raw), nil
}

// GetOrder fetches an order by id and maps it to the domain entity.
func (a *StorefrontAdapter) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	var raw sfOrder
	endpoint := fmt.Sprintf("%s/orders/%d", a.config.URL, orderID)
	if err := a.do(ctx, http.MethodGet, endpoint, userID, nil, &raw); err != nil {
		return nil, err
	}
	return mapOrder(raw), nil
}

// ListOrders fetches a page of the user's orders, optionally filtered by status.
func (a *StorefrontAdapter) ListOrders(ctx context.Context, userID int64, page, size int, status string) (*domain.OrderPage, error) {
	endpoint := fmt.Sprintf("%s/orders", a.config.URL)
	if status != "" {
		endpoint = fmt.Sprintf("%s/orders/status/%s", a.config.URL, url.PathEscape(status))
	}
	endpoint = fmt.Sprintf("%s?page=%d&size=%d", endpoint, page, size)

	var raw sfOrderPage
	if err := a.do(ctx, http.MethodGet, endpoint, userID, nil, &raw); err != nil {
		return nil, err
	}
	return mapOrderPage(raw, page, size), nil
}

// CancelOrder cancels an order and returns the updated snapshot.
func (a *StorefrontAdapter) CancelOrder(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error) {
	var raw sfOrder
	endpoint := fmt.Sprintf("%s/orders/%d/cancel", a.config.URL, orderID)
	body := map[string]string{"reason": reason}
	if err := a.do(ctx, http.MethodPost, endpoint, userID, body, &raw); err != nil {
		return nil, err
	}
	return mapOrder(raw), nil
}

// GetShippingMethods lists the available delivery options. Unauthenticated.
func (a *StorefrontAdapter) GetShippingMethods(ctx context.Context) ([]domain.ShippingMethod, error) {
	var raw []sfShippingMethod
	endpoint := fmt.Sprintf("%s/orders/shipping-methods", a.config.URL)
	if err := a.do(ctx, http.MethodGet, endpoint, 0, nil, &raw); err != nil {
		return nil, err
	}

	methods := make([]domain.ShippingMethod, 0, len(raw))
	for _, m := range raw {
		methods = append(methods, domain.ShippingMethod{
			ID:            m.ID,
			Name:          m.Name,
			Fee:           m.Fee,
			EstimatedDays: m.EstimatedDays,
		})
	}
	return methods, nil
}

// EstimateShipping quotes the delivery fee for an address and method. Unauthenticated.
func (a *StorefrontAdapter) EstimateShipping(ctx context.Context, addressID, methodID int64) (*domain.ShippingEstimate, error) {
	var raw sfShippingEstimate
	endpoint := fmt.Sprintf("%s/orders/shipping-estimate?address_id=%d&shipping_method_id=%d", a.config.URL, addressID, methodID)
	if err := a.do(ctx, http.MethodGet, endpoint, 0, nil, &raw); err != nil {
		return nil, err
	}
	return &domain.ShippingEstimate{Fee: raw.Fee, EstimatedDays: raw.EstimatedDays}, nil
}

// HealthCheck verifies that the storefront API is reachable.
func (a *StorefrontAdapter) HealthCheck() error {
	endpoint := fmt.Sprintf("%s/orders/shipping-methods", a.config.URL)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("health check failed to create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// do executes one storefront API call and decodes the response into out.
// userID == 0 means the endpoint is unauthenticated and no header is sent.
func (a *StorefrontAdapter) do(ctx context.Context, method, endpoint string, userID int64, body, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set(userIDHeader, fmt.Sprintf("%d", userID))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx storefront response into an error, preferring
// the server-supplied message when one is present.
func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return fmt.Errorf("storefront API error (%d): %s", resp.StatusCode, payload.Message)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("storefront resource not found")
	}
	return fmt.Errorf("storefront API returned status: %d", resp.StatusCode)
}

// mapOrder converts a raw storefront order response into a domain Order,
// defaulting every optional field rather than trusting the wire schema.
func mapOrder(raw sfOrder) *domain.Order {
	order := &domain.Order{
		OrderID:     raw.OrderID,
		Status:      normalizeStatus(raw.Status),
		TotalAmount: raw.TotalAmount,
		ShippingFee: raw.ShippingFee,
		Items:       mapItems(raw.Items),
		CreatedAt:   time.Time(raw.CreatedAt),
		UpdatedAt:   time.Time(raw.UpdatedAt),
	}

	// Server-reported cancel eligibility wins; fall back to the local guard.
	if raw.CanCancel != nil {
		order.CanCancel = *raw.CanCancel
	} else {
		order.CanCancel = order.Status.CancelEligible()
	}

	if raw.ShippingMethod != nil {
		order.ShippingMethod = &domain.ShippingMethod{
			ID:            raw.ShippingMethod.ID,
			Name:          raw.ShippingMethod.Name,
			Fee:           raw.ShippingMethod.Fee,
			EstimatedDays: raw.ShippingMethod.EstimatedDays,
		}
	}

	return order
}

// normalizeStatus maps a raw status string onto the known status set.
func normalizeStatus(status string) domain.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED":
		return domain.OrderStatusConfirmed
	case "PROCESSING":
		return domain.OrderStatusProcessing
	case "SHIPPING", "SHIPPED":
		return domain.OrderStatusShipping
	case "COMPLETED", "DELIVERED":
		return domain.OrderStatusCompleted
	case "CANCELLED", "CANCELED":
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusPending
	}
}

// mapItems converts raw line items to domain OrderItems.
func mapItems(raw []sfOrderItem) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(raw))
	for _, it := range raw {
		total := it.TotalPrice
		if total == 0 {
			total = it.UnitPrice * float64(it.Quantity)
		}
		items = append(items, domain.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: total,
			Size:       it.Size,
			Color:      it.Color,
			Picture:    it.ImageURL,
		})
	}
	return items
}

// mapOrderPage converts a raw listing response, falling back to the request's
// own page/size when the server omits pagination metadata.
func mapOrderPage(raw sfOrderPage, page, size int) *domain.OrderPage {
	orders := make([]domain.OrderSummary, 0, len(raw.Orders))
	for _, o := range raw.Orders {
		orders = append(orders, domain.OrderSummary{
			OrderID:     o.OrderID,
			Status:      normalizeStatus(o.Status),
			TotalAmount: o.TotalAmount,
			ItemCount:   o.ItemCount,
			CreatedAt:   time.Time(o.CreatedAt),
		})
	}

	pagination := domain.Pagination{
		Page:       raw.Page,
		Size:       raw.Size,
		TotalItems: raw.TotalItems,
		TotalPages: raw.TotalPages,
	}
	if pagination.Page == 0 {
		pagination.Page = page
	}
	if pagination.Size == 0 {
		pagination.Size = size
	}

	return &domain.OrderPage{Orders: orders, Pagination: pagination}
}

// internal structs for mapping

// sfOrder represents the JSON structure of an order from the storefront API.
// Every field is optional on ingest; defaulting happens in mapOrder.
type sfOrder struct {
	// OrderID is the unique order ID.
	OrderID int64 `json:"order_id"`
	// Status is the raw order status string.
	Status string `json:"status"`
	// TotalAmount is the order total including shipping.
	TotalAmount float64 `json:"total_amount"`
	// ShippingFee is the delivery fee.
	ShippingFee float64 `json:"shipping_fee"`
	// CanCancel is the server's cancel-eligibility verdict, when provided.
	CanCancel *bool `json:"can_cancel"`
	// Items contains the order's line items.
	Items []sfOrderItem `json:"items"`
	// ShippingMethod is the selected delivery option.
	ShippingMethod *sfShippingMethod `json:"shipping_method"`
	// CreatedAt is the order creation timestamp.
	CreatedAt sfTime `json:"created_at"`
	// UpdatedAt is the last modification timestamp.
	UpdatedAt sfTime `json:"updated_at"`
}

// sfOrderItem represents a line item in the storefront order payload.
type sfOrderItem struct {
	// ProductID is the purchased product's identifier.
	ProductID int64 `json:"product_id"`
	// ProductName is the product name.
	ProductName string `json:"product_name"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
	// UnitPrice is the per-unit price.
	UnitPrice float64 `json:"unit_price"`
	// TotalPrice is the line total.
	TotalPrice float64 `json:"total_price"`
	// Size is the selected size variant.
	Size string `json:"size"`
	// Color is the selected color variant.
	Color string `json:"color"`
	// ImageURL is the product image URL.
	ImageURL string `json:"image_url"`
}

// sfShippingMethod represents a delivery option in the storefront payload.
type sfShippingMethod struct {
	// ID is the shipping method identifier.
	ID int64 `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Fee is the delivery fee.
	Fee float64 `json:"fee"`
	// EstimatedDays is the expected delivery time in days.
	EstimatedDays int `json:"estimated_days"`
}

// sfShippingEstimate represents a delivery fee quote.
type sfShippingEstimate struct {
	// Fee is the quoted delivery fee.
	Fee float64 `json:"fee"`
	// EstimatedDays is the expected delivery time in days.
	EstimatedDays int `json:"estimated_days"`
}

// sfOrderSummary represents one entry in the order listing payload.
type sfOrderSummary struct {
	// OrderID is the unique order ID.
	OrderID int64 `json:"order_id"`
	// Status is the raw order status string.
	Status string `json:"status"`
	// TotalAmount is the order total.
	TotalAmount float64 `json:"total_amount"`
	// ItemCount is the number of line items.
	ItemCount int `json:"item_count"`
	// CreatedAt is the order creation timestamp.
	CreatedAt sfTime `json:"created_at"`
}

// sfOrderPage represents the order listing response.
type sfOrderPage struct {
	// Orders is the page of order summaries.
	Orders []sfOrderSummary `json:"orders"`
	// Page is the current page number.
	Page int `json:"page"`
	// Size is the page size.
	Size int `json:"size"`
	// TotalItems is the total matching order count.
	TotalItems int `json:"total_items"`
	// TotalPages is the total page count.
	TotalPages int `json:"total_pages"`
}

// sfTime is a custom helper struct to handle the storefront's date formats.
type sfTime time.Time

// UnmarshalJSON parses the timestamp formats used by the storefront API.
func (t *sfTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		*t = sfTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		parsed, err = time.Parse("2006-01-02T15:04:05", s)
	}
	if err != nil {
		logger.Get().Warn("Failed to parse date", zap.String("date", s), zap.Error(err))
		return nil // Zero time; store-level defaulting handles the rest
	}
	*t = sfTime(parsed)
	return nil
}
