package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"order-reconciler/internal/core/logger"
	"order-reconciler/internal/features/payments/domain"
	"order-reconciler/internal/features/payments/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles HTTP requests related to payments.
type PaymentHandler struct {
	// service is the PaymentService instance.
	service *service.PaymentService
	// retryAttempts bounds the throttled callback-confirmation retry loop.
	retryAttempts int
	// retryDelay is the fixed delay between retries.
	retryDelay time.Duration
}

// NewPaymentHandler creates a new instance of PaymentHandler.
func NewPaymentHandler(s *service.PaymentService, retryAttempts int, retryDelay time.Duration) *PaymentHandler {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryDelay <= 0 {
		retryDelay = 1500 * time.Millisecond
	}
	return &PaymentHandler{
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
	// GatewayCode is the raw gateway response code for declined payments.
	GatewayCode string `json:"gateway_code,omitempty"`
}

// CreatePayment handles payment initiation.
// @Summary Create payment
// @Description Initiate a payment attempt for an order.
// @Accept json
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param request body domain.CreatePaymentRequest true "Payment request"
// @Success 201 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	var req domain.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Dữ liệu thanh toán không hợp lệ",
			RayID:   rayID,
		})
	}

	payment, err := h.service.CreatePayment(c.UserContext(), userID, req)
	if err != nil {
		return h.renderError(c, err, rayID, "create payment")
	}

	return c.Status(http.StatusCreated).JSON(payment)
}

// GetPaymentByOrder handles fetching the latest payment for an order.
// @Summary Get payment by order
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param orderId path int true "Order ID"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Router /payments/order/{orderId} [get]
func (h *PaymentHandler) GetPaymentByOrder(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	orderID, err := strconv.ParseInt(c.Params("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	payment, err := h.service.GetPaymentByOrder(c.UserContext(), userID, orderID)
	if err != nil {
		return h.renderError(c, err, rayID, "get payment")
	}

	return c.Status(http.StatusOK).JSON(payment)
}

// PollPayment blocks until the order's payment reaches a terminal status or
// the polling deadline passes.
// @Summary Poll payment status
// @Description Poll until the payment completes or fails, or the deadline passes.
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param orderId path int true "Order ID"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /payments/order/{orderId}/poll [get]
func (h *PaymentHandler) PollPayment(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	orderID, err := strconv.ParseInt(c.Params("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	// Zero values fall back to the configured interval/timeout.
	payment, err := h.service.PollPaymentStatus(c.UserContext(), userID, orderID, 0, 0)
	if err != nil {
		return h.renderError(c, err, rayID, "poll payment")
	}

	return c.Status(http.StatusOK).JSON(payment)
}

// CancelPayment handles cancelling a pending payment attempt.
// @Summary Cancel payment
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param id path int true "Payment ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) CancelPayment(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	paymentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || paymentID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã thanh toán không hợp lệ",
			RayID:   rayID,
		})
	}

	if err := h.service.CancelPayment(c.UserContext(), userID, paymentID); err != nil {
		return h.renderError(c, err, rayID, "cancel payment")
	}

	return c.SendStatus(http.StatusNoContent)
}

// ConfirmCallback handles the gateway redirect after payment. All query
// parameters are passed through to the verification flow.
// @Summary Confirm gateway callback
// @Description Verify the gateway redirect parameters and finalize the payment.
// @Produce json
// @Success 200 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Router /payments/confirm [get]
func (h *PaymentHandler) ConfirmCallback(c *fiber.Ctx) error {
	rayID := rayID(c)

	params := make(map[string]string)
	for key, values := range c.Queries() {
		params[key] = values
	}

	payment, err := h.confirmWithRetry(c, params)
	if err != nil {
		return h.renderError(c, err, rayID, "confirm callback")
	}

	return c.Status(http.StatusOK).JSON(payment)
}

// confirmWithRetry retries a throttled callback confirmation with a fixed
// delay before giving up.
func (h *PaymentHandler) confirmWithRetry(c *fiber.Ctx, params map[string]string) (*domain.Payment, error) {
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

		payment, err := h.service.ConfirmCallback(ctx, params)
		if err == nil {
			return payment, nil
		}
		lastErr = err
		if !errors.Is(err, service.ErrTooFrequent) {
			return nil, err
		}
	}
	return nil, lastErr
}

// ConfirmDelivery handles the COD delivery OTP confirmation.
// @Summary Confirm delivery with OTP
// @Accept json
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param orderId path int true "Order ID"
// @Param request body otpRequest true "OTP"
// @Success 200 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Router /payments/confirm-delivery/{orderId} [post]
func (h *PaymentHandler) ConfirmDelivery(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	orderID, err := strconv.ParseInt(c.Params("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã đơn hàng không hợp lệ",
			RayID:   rayID,
		})
	}

	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã OTP phải gồm 6 chữ số",
			RayID:   rayID,
		})
	}

	payment, err := h.service.ConfirmDeliveryOTP(c.UserContext(), userID, orderID, req.OTP)
	if err != nil {
		return h.renderError(c, err, rayID, "confirm delivery")
	}

	return c.Status(http.StatusOK).JSON(payment)
}

// otpRequest is the delivery confirmation request body.
type otpRequest struct {
	// OTP is the 6-digit delivery confirmation code.
	OTP string `json:"otp"`
}

// GetHistory handles fetching a payment's status history.
// @Summary Get payment history
// @Produce json
// @Param X-User-Id header int true "User ID"
// @Param id path int true "Payment ID"
// @Success 200 {array} domain.HistoryEntry
// @Failure 400 {object} ErrorResponse
// @Router /payments/{id}/history [get]
func (h *PaymentHandler) GetHistory(c *fiber.Ctx) error {
	rayID := rayID(c)
	userID := userID(c)

	paymentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || paymentID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Mã thanh toán không hợp lệ",
			RayID:   rayID,
		})
	}

	entries, err := h.service.GetPaymentHistory(c.UserContext(), userID, paymentID)
	if err != nil {
		return h.renderError(c, err, rayID, "payment history")
	}

	return c.Status(http.StatusOK).JSON(entries)
}

// renderError maps service errors to HTTP statuses and user-facing messages.
func (h *PaymentHandler) renderError(c *fiber.Ctx, err error, rayID, op string) error {
	logger.Get().Error("Payment operation failed",
		zap.String("operation", op),
		zap.String("ray_id", rayID),
		zap.Error(err),
	)

	var gatewayErr *domain.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.Status(http.StatusPaymentRequired).JSON(ErrorResponse{
			Message:     gatewayErr.Message,
			RayID:       rayID,
			GatewayCode: gatewayErr.Code,
		})
	}

	status := http.StatusInternalServerError
	msg := "Đã xảy ra lỗi, vui lòng thử lại sau"

	switch {
	case errors.Is(err, service.ErrUserRequired):
		status = http.StatusUnauthorized
		msg = "Vui lòng đăng nhập để tiếp tục"
	case errors.Is(err, service.ErrInvalidOrderID):
		status = http.StatusBadRequest
		msg = "Mã đơn hàng không hợp lệ"
	case errors.Is(err, service.ErrInvalidPaymentID):
		status = http.StatusBadRequest
		msg = "Mã thanh toán không hợp lệ"
	case errors.Is(err, service.ErrInvalidAmount):
		status = http.StatusBadRequest
		msg = "Số tiền thanh toán không hợp lệ"
	case errors.Is(err, service.ErrInvalidMethod):
		status = http.StatusBadRequest
		msg = "Phương thức thanh toán không hợp lệ"
	case errors.Is(err, service.ErrInvalidOTP):
		status = http.StatusBadRequest
		msg = "Mã OTP phải gồm 6 chữ số"
	case errors.Is(err, service.ErrMissingResponseCode):
		status = http.StatusBadRequest
		msg = "Thiếu mã phản hồi từ cổng thanh toán"
	case errors.Is(err, service.ErrTooFrequent):
		status = http.StatusTooManyRequests
		msg = "Thao tác quá nhanh, vui lòng thử lại"
	case errors.Is(err, service.ErrPollTimeout):
		status = http.StatusGatewayTimeout
		msg = "Hết thời gian chờ thanh toán, vui lòng kiểm tra lại đơn hàng"
	case errors.Is(err, service.ErrContractViolation):
		status = http.StatusBadGateway
		msg = "Không thể tải thông tin thanh toán"
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
