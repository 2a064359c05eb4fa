package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"order-reconciler/internal/core/logger"
	"order-reconciler/internal/features/orders/domain"
	"order-reconciler/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// service is the OrderService instance.
	service *service.OrderService
	// retryAttempts bounds the throttled-fetch retry loop.
	retryAttempts int
	// retryDelay is the fixed delay between throttled-fetch retries.
	retryDelay time.Duration
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s *service.OrderService, retryAttempts int, retryDelay time.Duration) *OrderHandler {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryDelay <= 0 {
		retryDelay = 1500 * time.Millisecond
	}
	return &OrderHandler{
		service:       s,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the user-facing error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// CreateOrder handles order placement.
// @Summary Create order
// @Description Place a new order from the selected cart lines.
// @Accept json
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param request body domain.CreateOrderRequest true "Order request"
// @Success 201 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	var req domain.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Dữ liệu đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), userID, req)
	if err != nil {
		return h.renderError(c, err, rayID, "create order")
	}

	return c.Status(http.StatusCreated).JSON(order)
}

// GetOrder handles order retrieval with the bounded throttled-fetch retry.
// @Summary Get order by ID
// @Description Fetch one order snapshot. Throttled fetches are retried before failing.
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	order, err := h.fetchWithRetry(c, userID, orderID)
	if err != nil {
		return h.renderError(c, err, rayID, "get order")
	}

	return c.Status(http.StatusOK).JSON(order)
}

// fetchWithRetry retries a throttled order fetch with a fixed delay, falling
// back to the store snapshot before giving up.
func (h *OrderHandler) fetchWithRetry(c *fiber.Ctx, userID, orderID int64) (*domain.Order, error) {
	ctx := c.UserContext()

	var lastErr error
	for attempt := 0; attempt <= h.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.retryDelay):
			}
		}

		order, err := h.service.GetOrderByID(ctx, userID, orderID)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if !errors.Is(err, service.ErrTooFrequent) {
			return nil, err
		}
	}

	// Fall back to whatever snapshot is already in the store.
	if cached := h.service.Store().CurrentOrder(); cached != nil && cached.OrderID == orderID {
		return cached, nil
	}
	return nil, lastErr
}

// ListOrders handles paginated order listing.
// @Summary List orders
// @Description Fetch a page of the user's order summaries, optionally filtered by status.
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Param status query string false "Status filter"
// @Success 200 {object} domain.OrderPage
// @Failure 401 {object} ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 10)
	status := c.Query("status")

	result, err := h.service.GetUserOrders(c.UserContext(), userID, page, size, status)
	if err != nil {
		return h.renderError(c, err, rayID, "list orders")
	}

	return c.Status(http.StatusOK).JSON(result)
}

// cancelRequest is the cancellation request body.
type cancelRequest struct {
	// Reason is the mandatory cancellation reason.
	Reason string `json:"reason"`
}

// CancelOrder handles order cancellation.
// @Summary Cancel order
// @Description Cancel an order with a mandatory reason. No optimistic flip: the response reflects the server verdict.
// @Accept json
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param id path int true "Order ID"
// @Param request body cancelRequest true "Cancellation reason"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Vui lòng nhập lý do hủy đơn",
			RayID:   rayID,
		})
	}

	order, err := h.service.CancelOrder(c.UserContext(), userID, orderID, req.Reason)
	if err != nil {
		return h.renderError(c, err, rayID, "cancel order")
	}

	return c.Status(http.StatusOK).JSON(order)
}

// GetShippingMethods handles listing delivery options.
// @Summary List shipping methods
// @Produce json
// @Success 200 {array} domain.ShippingMethod
// @Failure 500 {object} ErrorResponse
// @Router /shipping/methods [get]
func (h *OrderHandler) GetShippingMethods(c *fiber.Ctx) error {
	rayID := rayID(c)

	methods, err := h.service.GetShippingMethods(c.UserContext())
	if err != nil {
		return h.renderError(c, err, rayID, "shipping methods")
	}

	return c.Status(http.StatusOK).JSON(methods)
}

// EstimateShipping handles delivery fee quoting.
// @Summary Estimate shipping fee
// @Produce json
// @Param address_id query int true "Address ID"
// @Param shipping_method_id query int false "Shipping method ID"
// @Success 200 {object} domain.ShippingEstimate
// @Failure 400 {object} ErrorResponse
// @Router /shipping/estimate [get]
func (h *OrderHandler) EstimateShipping(c *fiber.Ctx) error {
	rayID := rayID(c)

	addressID := int64(c.QueryInt("address_id"))
	methodID := int64(c.QueryInt("shipping_method_id"))

	estimate, err := h.service.EstimateShipping(c.UserContext(), addressID, methodID)
	if err != nil {
		return h.renderError(c, err, rayID, "shipping estimate")
	}

	return c.Status(http.StatusOK).JSON(estimate)
}

// renderError maps service errors to HTTP statuses and user-facing messages.
func (h *OrderHandler) renderError(c *fiber.Ctx, err error, rayID, op string) error {
	logger.Get().Error("Order operation failed",
		zap.String("operation", op),
		zap.String("ray_id", rayID),
		zap.Error(err),
	)

	status := http.StatusInternalServerError
	msg := "Đã xảy ra lỗi, vui lòng thử lại sau"

	switch {
	case errors.Is(err, service.ErrUserRequired):
		status = http.StatusUnauthorized
		msg = "Vui lòng đăng nhập để tiếp tục"
	case errors.Is(err, service.ErrInvalidOrderID):
		status = http.StatusBadRequest
		msg = "Mã đơn hàng không hợp lệ"
	case errors.Is(err, service.ErrAddressRequired):
		status = http.StatusBadRequest
		msg = "Vui lòng chọn địa chỉ giao hàng"
	case errors.Is(err, service.ErrEmptyReason):
		status = http.StatusBadRequest
		msg = "Vui lòng nhập lý do hủy đơn"
	case errors.Is(err, service.ErrTooFrequent):
		status = http.StatusTooManyRequests
		msg = "Thao tác quá nhanh, vui lòng thử lại"
	case errors.Is(err, service.ErrMalformedOrder):
		status = http.StatusBadGateway
		msg = "Không thể tải thông tin đơn hàng"
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID,
	})
}

// rayID extracts the request id set by the requestid middleware.
func rayID(c *fiber.Ctx) string {
	id, ok := c.Locals("requestid").(string)
	if !ok {
		return "unknown"
	}
	return id
}

// userID extracts the authenticated user id from the X-User-Id header.
// Returns 0 when absent; services reject that with ErrUserRequired.
func userID(c *fiber.Ctx) int64 {
	id, err := strconv.ParseInt(c.Get("X-User-Id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
