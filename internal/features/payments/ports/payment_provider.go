package ports

import (
	"context"

	"order-reconciler/internal/features/payments/domain"
)

// PaymentProvider defines the interface for payment operations against the
// remote storefront API. This is a Secondary Port (Driven Port).
type PaymentProvider interface {
	// CreatePayment initiates a payment attempt for an order.
	CreatePayment(ctx context.Context, userID int64, req domain.CreatePaymentRequest) (*domain.Payment, error)

	// GetPaymentByOrder retrieves the latest payment attempt for an order.
	GetPaymentByOrder(ctx context.Context, userID, orderID int64) (*domain.Payment, error)

	// CancelPayment cancels a pending payment attempt.
	CancelPayment(ctx context.Context, userID, paymentID int64) error

	// ConfirmCallback forwards the gateway redirect parameters to the server
	// for final verification and returns the confirmed payment.
	ConfirmCallback(ctx context.Context, params map[string]string) (*domain.Payment, error)

	// ConfirmDelivery verifies the delivery OTP for a cash-on-delivery order
	// and returns the completed payment.
	ConfirmDelivery(ctx context.Context, userID, orderID int64, otp string) (*domain.Payment, error)

	// GetPaymentHistory retrieves the status history of a payment attempt.
	GetPaymentHistory(ctx context.Context, userID, paymentID int64) ([]domain.HistoryEntry, error)
}
