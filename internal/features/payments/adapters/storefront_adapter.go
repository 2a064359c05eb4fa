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
	"order-reconciler/internal/features/payments/domain"

	"go.uber.org/zap"
)

// userIDHeader authenticates requests against the storefront API.
const userIDHeader = "X-User-Id"

// StorefrontAdapter implements the PaymentProvider interface using the
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

// CreatePayment initiates a payment attempt for an order.
func (a *StorefrontAdapter) CreatePayment(ctx context.Context, userID int64, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	var raw sfPayment
	endpoint := fmt.Sprintf("%s/payment/create", a.config.URL)
	if err := a.do(ctx, http.MethodPost, endpoint, userID, req, &raw); err != nil {
		return nil, err
	}
	return mapPayment(raw), nil
}

// GetPaymentByOrder retrieves the latest payment attempt for an order.
func (a *StorefrontAdapter) GetPaymentByOrder(ctx context.Context, userID, orderID int64) (*domain.Payment, error) {
	var raw sfPayment
	endpoint := fmt.Sprintf("%s/payment/order/%d", a.config.URL, orderID)
	if err := a.do(ctx, http.MethodGet, endpoint, userID, nil, &raw); err != nil {
		return nil, err
	}
	return mapPayment(raw), nil
}

// CancelPayment cancels a pending payment attempt.
func (a *StorefrontAdapter) CancelPayment(ctx context.Context, userID, paymentID int64) error {
	endpoint := fmt.Sprintf("%s/payment/%d/cancel", a.config.URL, paymentID)
	return a.do(ctx, http.MethodPost, endpoint, userID, nil, nil)
}

// ConfirmCallback forwards the gateway redirect parameters for final server
// verification. Unauthenticated: the gateway, not the user, drives this call.
func (a *StorefrontAdapter) ConfirmCallback(ctx context.Context, params map[string]string) (*domain.Payment, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	var raw sfPayment
	endpoint := fmt.Sprintf("%s/payment/confirm?%s", a.config.URL, query.Encode())
	if err := a.do(ctx, http.MethodGet, endpoint, 0, nil, &raw); err != nil {
		return nil, err
	}
	return mapPayment(raw), nil
}

// ConfirmDelivery verifies the delivery OTP for a cash-on-delivery order.
func (a *StorefrontAdapter) ConfirmDelivery(ctx context.Context, userID, orderID int64, otp string) (*domain.Payment, error) {
	var raw sfPayment
	endpoint := fmt.Sprintf("%s/payment/confirm-delivery/%d", a.config.URL, orderID)
	body := map[string]string{"otp": otp}
	if err := a.do(ctx, http.MethodPost, endpoint, userID, body, &raw); err != nil {
		return nil, err
	}
	return mapPayment(raw), nil
}

// GetPaymentHistory retrieves the status history of a payment attempt.
func (a *StorefrontAdapter) GetPaymentHistory(ctx context.Context, userID, paymentID int64) ([]domain.HistoryEntry, error) {
	var raw []sfHistoryEntry
	endpoint := fmt.Sprintf("%s/payment/%d/history", a.config.URL, paymentID)
	if err := a.do(ctx, http.MethodGet, endpoint, userID, nil, &raw); err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, domain.HistoryEntry{
			Status:     normalizeStatus(e.Status),
			Note:       e.Note,
			RecordedAt: time.Time(e.RecordedAt),
		})
	}
	return entries, nil
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
		return fmt.Errorf("payment not found")
	}
	return fmt.Errorf("storefront API returned status: %d", resp.StatusCode)
}

// mapPayment converts a raw storefront payment response into a domain
// Payment. Status and timestamp defaulting happens in the store on ingest.
func mapPayment(raw sfPayment) *domain.Payment {
	return &domain.Payment{
		PaymentID:       raw.PaymentID,
		OrderID:         raw.OrderID,
		Status:          normalizeStatus(raw.Status),
		Amount:          raw.Amount,
		TransactionCode: raw.TransactionCode,
		PaymentURL:      raw.PaymentURL,
		MethodCode:      strings.ToUpper(raw.MethodCode),
		CreatedAt:       time.Time(raw.CreatedAt),
		UpdatedAt:       time.Time(raw.UpdatedAt),
	}
}

// normalizeStatus maps a raw payment status string onto the known status set.
// Unknown and empty values stay empty so the store records them as defaulted.
func normalizeStatus(status string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PENDING":
		return domain.PaymentStatusPending
	case "COMPLETED", "SUCCESS", "PAID":
		return domain.PaymentStatusCompleted
	case "FAILED", "CANCELLED", "CANCELED":
		return domain.PaymentStatusFailed
	case "REFUNDED":
		return domain.PaymentStatusRefunded
	default:
		return ""
	}
}

// internal structs for mapping

// sfPayment represents the JSON structure of a payment from the storefront API.
// Every field is optional on ingest.
type sfPayment struct {
	// PaymentID is the unique payment ID.
	PaymentID int64 `json:"payment_id"`
	// OrderID is the order this payment belongs to.
	OrderID int64 `json:"order_id"`
	// Status is the raw payment status string.
	Status string `json:"payment_status"`
	// Amount is the payment amount.
	Amount float64 `json:"amount"`
	// TransactionCode is the external gateway reference.
	TransactionCode string `json:"transaction_code"`
	// PaymentURL is the gateway redirect URL for redirect-based methods.
	PaymentURL string `json:"payment_url"`
	// MethodCode identifies the payment method.
	MethodCode string `json:"payment_method_code"`
	// CreatedAt is the payment creation timestamp.
	CreatedAt sfTime `json:"created_at"`
	// UpdatedAt is the last modification timestamp.
	UpdatedAt sfTime `json:"updated_at"`
}

// sfHistoryEntry represents one payment history record.
type sfHistoryEntry struct {
	// Status is the raw payment status string.
	Status string `json:"status"`
	// Note is an optional annotation.
	Note string `json:"note"`
	// RecordedAt is when the snapshot was taken.
	RecordedAt sfTime `json:"recorded_at"`
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
