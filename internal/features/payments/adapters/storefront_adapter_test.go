package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"order-reconciler/internal/core/config"
	"order-reconciler/internal/features/payments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(serverURL string) *StorefrontAdapter {
	return NewStorefrontAdapter(config.StorefrontConfig{
		URL:            serverURL,
		TimeoutSeconds: 5,
	})
}

// TestCreatePayment verifies the request path, auth header and field mapping.
func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment/create", r.URL.Path)
		assert.Equal(t, "42", r.Header.Get("X-User-Id"))

		var req domain.CreatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(501), req.OrderID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"payment_id": 9001,
			"order_id": 501,
			"payment_status": "pending",
			"amount": 500000,
			"transaction_code": "TXN-123",
			"payment_url": "https://gateway.test/pay/9001",
			"payment_method_code": "vnpay",
			"created_at": "2026-03-15T10:30:00Z"
		}`))
	}))
	defer server.Close()

	payment, err := newAdapter(server.URL).CreatePayment(context.Background(), 42, domain.CreatePaymentRequest{
		OrderID:  501,
		MethodID: 2,
		Amount:   500000,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9001), payment.PaymentID)
	assert.Equal(t, int64(501), payment.OrderID)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "https://gateway.test/pay/9001", payment.PaymentURL)
	assert.Equal(t, "VNPAY", payment.MethodCode)
	assert.Equal(t, 2026, payment.CreatedAt.Year())
}

// TestConfirmCallback verifies the gateway parameters pass through as query
// values and the call carries no user header.
func TestConfirmCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/confirm", r.URL.Path)
		assert.Equal(t, "00", r.URL.Query().Get("vnp_ResponseCode"))
		assert.Equal(t, "TXN-123", r.URL.Query().Get("vnp_TxnRef"))
		assert.Empty(t, r.Header.Get("X-User-Id"))

		w.Write([]byte(`{"payment_id": 9001, "order_id": 501, "payment_status": "COMPLETED"}`))
	}))
	defer server.Close()

	payment, err := newAdapter(server.URL).ConfirmCallback(context.Background(), map[string]string{
		"vnp_ResponseCode": "00",
		"vnp_TxnRef":       "TXN-123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
}

// TestConfirmDelivery verifies the OTP travels in the request body.
func TestConfirmDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/confirm-delivery/501", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123456", body["otp"])

		w.Write([]byte(`{"payment_id": 9001, "order_id": 501, "payment_status": "PAID"}`))
	}))
	defer server.Close()

	payment, err := newAdapter(server.URL).ConfirmDelivery(context.Background(), 42, 501, "123456")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
}

// TestCancelPayment verifies the cancel endpoint and error propagation.
func TestCancelPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/9001/cancel", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newAdapter(server.URL).CancelPayment(context.Background(), 42, 9001)
	assert.NoError(t, err)
}

// TestServerErrorMessage verifies the server-supplied message is preferred.
func TestServerErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "payment already completed"}`))
	}))
	defer server.Close()

	err := newAdapter(server.URL).CancelPayment(context.Background(), 42, 9001)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment already completed")
}

func TestPaymentNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newAdapter(server.URL).GetPaymentByOrder(context.Background(), 42, 501)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment not found")
}

// TestGetPaymentHistory verifies the history endpoint and entry mapping.
func TestGetPaymentHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/9001/history", r.URL.Path)
		w.Write([]byte(`[
			{"status": "PENDING", "note": "attempt created", "recorded_at": "2026-03-15T10:30:00Z"},
			{"status": "SUCCESS", "recorded_at": "2026-03-15T10:32:00Z"}
		]`))
	}))
	defer server.Close()

	entries, err := newAdapter(server.URL).GetPaymentHistory(context.Background(), 42, 9001)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.PaymentStatusPending, entries[0].Status)
	assert.Equal(t, "attempt created", entries[0].Note)
	assert.Equal(t, domain.PaymentStatusCompleted, entries[1].Status)
}

// TestNormalizeStatus covers the tolerant status mapping, including the
// unknown case left empty for store-level defaulting.
func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.PaymentStatus{
		"pending":   domain.PaymentStatusPending,
		"COMPLETED": domain.PaymentStatusCompleted,
		"SUCCESS":   domain.PaymentStatusCompleted,
		"paid":      domain.PaymentStatusCompleted,
		"FAILED":    domain.PaymentStatusFailed,
		"CANCELLED": domain.PaymentStatusFailed,
		"canceled":  domain.PaymentStatusFailed,
		"REFUNDED":  domain.PaymentStatusRefunded,
		"WEIRD":     "",
		"":          "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeStatus(raw), "raw %q", raw)
	}
}

// TestTimestampFallbackFormat verifies the secondary timestamp layout parses.
func TestTimestampFallbackFormat(t *testing.T) {
	var ts sfTime
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2026-03-15T10:30:00"`)))
	assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), time.Time(ts))

	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, time.Time(ts).IsZero())
}
