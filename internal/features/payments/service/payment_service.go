package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"order-reconciler/internal/core/dedup"
	"order-reconciler/internal/core/logger"
	orderdomain "order-reconciler/internal/features/orders/domain"
	orderstore "order-reconciler/internal/features/orders/store"
	"order-reconciler/internal/features/payments/domain"
	"order-reconciler/internal/features/payments/ports"
	"order-reconciler/internal/features/payments/store"

	"go.uber.org/zap"
)

var (
	// ErrUserRequired is returned when the operation needs an authenticated user.
	ErrUserRequired = errors.New("authenticated user required")
	// ErrInvalidOrderID is returned when the order id is not a positive integer.
	ErrInvalidOrderID = errors.New("invalid order id")
	// ErrInvalidPaymentID is returned when the payment id is not a positive integer.
	ErrInvalidPaymentID = errors.New("invalid payment id")
	// ErrInvalidAmount is returned when the payment amount is not positive.
	ErrInvalidAmount = errors.New("payment amount must be positive")
	// ErrInvalidMethod is returned when the payment method id is missing.
	ErrInvalidMethod = errors.New("invalid payment method")
	// ErrInvalidOTP is returned when the delivery OTP is not 6 numeric digits.
	ErrInvalidOTP = errors.New("OTP must be 6 digits")
	// ErrMissingResponseCode is returned when the gateway callback lacks a
	// response code parameter.
	ErrMissingResponseCode = errors.New("gateway callback missing response code")
	// ErrContractViolation is returned when the server response lacks a
	// payment identity. Such a payload is never stored.
	ErrContractViolation = errors.New("payment payload missing identity")
	// ErrTooFrequent signals a deduplicated callback confirmation; callers
	// retry after backoff.
	ErrTooFrequent = errors.New("request too frequent or in progress")
	// ErrPollTimeout is returned when polling exhausts its deadline without
	// the payment reaching a terminal status.
	ErrPollTimeout = errors.New("payment status polling timed out")
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// OrderRefresher refreshes the order snapshot after a payment-driven
// transition. Implemented by the order service.
type OrderRefresher interface {
	GetOrderByID(ctx context.Context, userID, orderID int64) (*orderdomain.Order, error)
}

// PaymentService owns payment-related network I/O and cross-store
// orchestration: a confirmed payment also moves the order forward in the
// order store.
type PaymentService struct {
	provider ports.PaymentProvider
	store    *store.Store
	orders   *orderstore.Store
	refresh  OrderRefresher
	guard    *dedup.Guard

	successCode  string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Options tunes gateway verification and polling.
type Options struct {
	// SuccessCode is the gateway response code meaning success.
	SuccessCode string
	// PollInterval is the default payment status polling interval.
	PollInterval time.Duration
	// PollTimeout is the default overall polling deadline.
	PollTimeout time.Duration
}

// NewPaymentService creates a new PaymentService. The refresher may be nil,
// in which case delivery confirmation skips the order snapshot refresh.
func NewPaymentService(provider ports.PaymentProvider, st *store.Store, orders *orderstore.Store, refresh OrderRefresher, guard *dedup.Guard, opts Options) *PaymentService {
	if opts.SuccessCode == "" {
		opts.SuccessCode = "00"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	return &PaymentService{
		provider:     provider,
		store:        st,
		orders:       orders,
		refresh:      refresh,
		guard:        guard,
		successCode:  opts.SuccessCode,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
	}
}

// Store exposes the underlying state container for consumers to read.
func (s *PaymentService) Store() *store.Store {
	return s.store
}

// CreatePayment initiates a payment attempt and appends it to the store. A
// response without a payment identity is a service-contract violation and is
// never stored.
func (s *PaymentService) CreatePayment(ctx context.Context, userID int64, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if req.OrderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if req.MethodID <= 0 {
		return nil, ErrInvalidMethod
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	s.store.StartLoading()

	payment, err := s.provider.CreatePayment(ctx, userID, req)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	if payment == nil || payment.PaymentID <= 0 {
		s.store.SetError(ErrContractViolation.Error())
		return nil, ErrContractViolation
	}

	s.store.AppendPayment(payment)

	logger.Get().Info("Payment created",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", req.OrderID),
		zap.Int64("payment_id", payment.PaymentID),
		zap.String("method", payment.MethodCode),
	)

	return s.store.CurrentPayment(), nil
}

// GetPaymentByOrder fetches the latest payment attempt for an order and sets
// it as current.
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, userID, orderID int64) (*domain.Payment, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}

	s.store.StartLoading()

	payment, err := s.provider.GetPaymentByOrder(ctx, userID, orderID)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to fetch payment for order %d: %w", orderID, err)
	}
	if payment == nil || payment.PaymentID <= 0 {
		s.store.SetError(ErrContractViolation.Error())
		return nil, ErrContractViolation
	}

	s.store.SetCurrentPayment(payment)

	return s.store.CurrentPayment(), nil
}

// CancelPayment cancels a pending attempt. The store models cancellation as
// FAILED, matching the gateway semantics.
func (s *PaymentService) CancelPayment(ctx context.Context, userID, paymentID int64) error {
	if userID <= 0 {
		return ErrUserRequired
	}
	if paymentID <= 0 {
		return ErrInvalidPaymentID
	}

	if err := s.provider.CancelPayment(ctx, userID, paymentID); err != nil {
		s.store.SetError(err.Error())
		return fmt.Errorf("failed to cancel payment %d: %w", paymentID, err)
	}

	s.store.MarkCancelled(paymentID)

	logger.Get().Info("Payment cancelled",
		zap.Int64("user_id", userID),
		zap.Int64("payment_id", paymentID),
	)

	return nil
}

// ConfirmCallback verifies a gateway redirect in two phases: the response
// code is inspected locally first, and only a locally-successful callback is
// forwarded to the server for final confirmation. A declined code maps to a
// user-facing message and performs zero confirm calls, leaving the store
// untouched. On success the order moves to CONFIRMED in the order store.
func (s *PaymentService) ConfirmCallback(ctx context.Context, params map[string]string) (*domain.Payment, error) {
	code, ok := params[domain.GatewayResponseCodeParam]
	if !ok || code == "" {
		return nil, ErrMissingResponseCode
	}

	if code != s.successCode {
		logger.Get().Warn("Gateway declined payment",
			zap.String("response_code", code),
			zap.String("txn_ref", params[domain.GatewayTxnRefParam]),
		)
		return nil, domain.NewGatewayError(code)
	}

	key := dedup.Key("confirmCallback", params[domain.GatewayTxnRefParam])
	done, admitted := s.guard.Begin(key)
	if !admitted {
		return nil, ErrTooFrequent
	}
	defer done()

	s.store.StartLoading()

	payment, err := s.provider.ConfirmCallback(ctx, params)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to confirm payment callback: %w", err)
	}
	if payment == nil || payment.PaymentID <= 0 {
		s.store.SetError(ErrContractViolation.Error())
		return nil, ErrContractViolation
	}

	s.store.SetCurrentPayment(payment)
	if payment.OrderID > 0 {
		s.orders.SetOrderStatus(payment.OrderID, orderdomain.OrderStatusConfirmed)
	}

	logger.Get().Info("Payment confirmed",
		zap.Int64("payment_id", payment.PaymentID),
		zap.Int64("order_id", payment.OrderID),
	)

	return s.store.CurrentPayment(), nil
}

// PollPaymentStatus repeatedly fetches the payment for an order until it
// reaches a terminal status or the deadline passes. The context cancels
// polling early, so a consumer navigating away can stop the loop. Zero
// interval/timeout fall back to the configured defaults.
func (s *PaymentService) PollPaymentStatus(ctx context.Context, userID, orderID int64, interval, timeout time.Duration) (*domain.Payment, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if interval <= 0 {
		interval = s.pollInterval
	}
	if timeout <= 0 {
		timeout = s.pollTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.store.SetError(ErrPollTimeout.Error())
				return nil, ErrPollTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
			payment, err := s.provider.GetPaymentByOrder(ctx, userID, orderID)
			if err != nil {
				// Transient fetch failures don't abort the poll.
				logger.Get().Warn("Payment poll fetch failed",
					zap.Int64("order_id", orderID),
					zap.Error(err),
				)
				continue
			}
			if payment == nil || payment.PaymentID <= 0 {
				continue
			}

			s.store.SetCurrentPayment(payment)

			if payment.Status.Terminal() {
				logger.Get().Info("Payment reached terminal status",
					zap.Int64("payment_id", payment.PaymentID),
					zap.String("status", string(payment.Status)),
				)
				return s.store.CurrentPayment(), nil
			}
		}
	}
}

// ConfirmDeliveryOTP verifies the 6-digit delivery OTP for a cash-on-delivery
// order in SHIPPING state, then refreshes the order snapshot.
func (s *PaymentService) ConfirmDeliveryOTP(ctx context.Context, userID, orderID int64, otp string) (*domain.Payment, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if orderID <= 0 {
		return nil, ErrInvalidOrderID
	}
	if !otpPattern.MatchString(otp) {
		return nil, ErrInvalidOTP
	}

	s.store.StartLoading()

	payment, err := s.provider.ConfirmDelivery(ctx, userID, orderID, otp)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to confirm delivery for order %d: %w", orderID, err)
	}
	if payment == nil || payment.PaymentID <= 0 {
		s.store.SetError(ErrContractViolation.Error())
		return nil, ErrContractViolation
	}

	s.store.SetCurrentPayment(payment)

	if s.refresh != nil {
		if _, err := s.refresh.GetOrderByID(ctx, userID, orderID); err != nil {
			// The payment is confirmed either way; a throttled refresh just
			// means the order snapshot catches up on the next fetch.
			logger.Get().Debug("Order refresh after delivery confirmation skipped",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	return s.store.CurrentPayment(), nil
}

// GetPaymentHistory fetches the status history of a payment attempt.
func (s *PaymentService) GetPaymentHistory(ctx context.Context, userID, paymentID int64) ([]domain.HistoryEntry, error) {
	if userID <= 0 {
		return nil, ErrUserRequired
	}
	if paymentID <= 0 {
		return nil, ErrInvalidPaymentID
	}

	entries, err := s.provider.GetPaymentHistory(ctx, userID, paymentID)
	if err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to fetch payment history: %w", err)
	}

	s.store.SetHistory(entries)

	return entries, nil
}
