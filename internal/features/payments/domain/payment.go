package domain

import (
	"time"
)

// PaymentStatus represents the state of one payment attempt.
// COMPLETED and FAILED are terminal for the attempt; a new attempt gets a new
// payment id.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the payment is awaiting completion.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusCompleted indicates the payment succeeded; terminal.
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	// PaymentStatusFailed indicates the payment failed or was cancelled; terminal.
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusRefunded indicates the completed payment was refunded.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Terminal reports whether this attempt can no longer change state.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment method codes as reported by the storefront API.
const (
	MethodCOD          = "COD"
	MethodVNPay        = "VNPAY"
	MethodBankTransfer = "BANK_TRANSFER"
)

// Payment represents one payment attempt tied to exactly one order.
type Payment struct {
	// PaymentID is the unique payment identifier.
	PaymentID int64 `json:"payment_id"`
	// OrderID is the order this payment belongs to.
	OrderID int64 `json:"order_id"`
	// Status is the current payment status.
	Status PaymentStatus `json:"payment_status"`
	// Amount is the payment amount.
	Amount float64 `json:"amount"`
	// TransactionCode is the external gateway reference, empty until assigned.
	TransactionCode string `json:"transaction_code"`
	// PaymentURL is the gateway redirect URL for redirect-based methods.
	PaymentURL string `json:"payment_url,omitempty"`
	// MethodCode identifies the payment method (COD, VNPAY, BANK_TRANSFER, ...).
	MethodCode string `json:"payment_method_code"`
	// CreatedAt is when the payment attempt was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the payment was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// Defaulted lists fields whose values were fabricated on ingest because
	// the server omitted them, so consumers can tell a real timestamp from a
	// placeholder.
	Defaulted []string `json:"defaulted_fields,omitempty"`
}

// HistoryEntry is one status snapshot in a payment's append-only history.
// History is fetched on demand and never mutated client-side.
type HistoryEntry struct {
	// Status is the payment status at this point.
	Status PaymentStatus `json:"status"`
	// Note is an optional human-readable annotation.
	Note string `json:"note,omitempty"`
	// RecordedAt is when the snapshot was taken.
	RecordedAt time.Time `json:"recorded_at"`
}

// CreatePaymentRequest is the input for initiating a payment attempt.
type CreatePaymentRequest struct {
	// OrderID is the order being paid; required.
	OrderID int64 `json:"order_id"`
	// MethodID references the chosen payment method; required.
	MethodID int64 `json:"method_id"`
	// Amount is the amount to charge; must be positive.
	Amount float64 `json:"amount"`
	// ReturnURL is where the gateway redirects after payment.
	ReturnURL string `json:"return_url,omitempty"`
}
