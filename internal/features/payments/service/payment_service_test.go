package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-reconciler/internal/core/dedup"
	orderdomain "order-reconciler/internal/features/orders/domain"
	orderstore "order-reconciler/internal/features/orders/store"
	"order-reconciler/internal/features/payments/domain"
	"order-reconciler/internal/features/payments/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPaymentProvider is a mock implementation of PaymentProvider for testing.
type mockPaymentProvider struct {
	returnPayment *domain.Payment
	returnHistory []domain.HistoryEntry
	returnErr     error

	// pollResponses, when set, is returned by GetPaymentByOrder one entry
	// per call, repeating the last entry once exhausted.
	pollResponses []*domain.Payment

	createCalls   int
	fetchCalls    int
	cancelCalls   int
	confirmCalls  int
	deliveryCalls int
	historyCalls  int
	lastOTP       string
	lastParams    map[string]string
}

func (m *mockPaymentProvider) CreatePayment(ctx context.Context, userID int64, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	m.createCalls++
	return m.returnPayment, m.returnErr
}

func (m *mockPaymentProvider) GetPaymentByOrder(ctx context.Context, userID, orderID int64) (*domain.Payment, error) {
	m.fetchCalls++
	if len(m.pollResponses) > 0 {
		idx := m.fetchCalls - 1
		if idx >= len(m.pollResponses) {
			idx = len(m.pollResponses) - 1
		}
		return m.pollResponses[idx], m.returnErr
	}
	return m.returnPayment, m.returnErr
}

func (m *mockPaymentProvider) CancelPayment(ctx context.Context, userID, paymentID int64) error {
	m.cancelCalls++
	return m.returnErr
}

func (m *mockPaymentProvider) ConfirmCallback(ctx context.Context, params map[string]string) (*domain.Payment, error) {
	m.confirmCalls++
	m.lastParams = params
	return m.returnPayment, m.returnErr
}

func (m *mockPaymentProvider) ConfirmDelivery(ctx context.Context, userID, orderID int64, otp string) (*domain.Payment, error) {
	m.deliveryCalls++
	m.lastOTP = otp
	return m.returnPayment, m.returnErr
}

func (m *mockPaymentProvider) GetPaymentHistory(ctx context.Context, userID, paymentID int64) ([]domain.HistoryEntry, error) {
	m.historyCalls++
	return m.returnHistory, m.returnErr
}

// mockRefresher records order refresh calls after a delivery confirmation.
type mockRefresher struct {
	calls       int
	lastOrderID int64
	returnErr   error
}

func (m *mockRefresher) GetOrderByID(ctx context.Context, userID, orderID int64) (*orderdomain.Order, error) {
	m.calls++
	m.lastOrderID = orderID
	return nil, m.returnErr
}

func pendingPayment(id, orderID int64) *domain.Payment {
	return &domain.Payment{
		PaymentID:       id,
		OrderID:         orderID,
		Status:          domain.PaymentStatusPending,
		Amount:          500000,
		TransactionCode: "TXN-123",
		MethodCode:      domain.MethodVNPay,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newTestService(provider *mockPaymentProvider, opts Options) (*PaymentService, *store.Store, *orderstore.Store) {
	st := store.New()
	orders := orderstore.New()
	guard := dedup.NewGuard(2 * time.Second)
	return NewPaymentService(provider, st, orders, nil, guard, opts), st, orders
}

func TestCreatePayment_Success(t *testing.T) {
	provider := &mockPaymentProvider{returnPayment: pendingPayment(9001, 501)}
	svc, st, _ := newTestService(provider, Options{})

	payment, err := svc.CreatePayment(context.Background(), 42, domain.CreatePaymentRequest{
		OrderID:  501,
		MethodID: 2,
		Amount:   500000,
	})

	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, int64(9001), payment.PaymentID)
	assert.Equal(t, 1, provider.createCalls)

	state := st.Snapshot()
	require.NotNil(t, state.CurrentPayment)
	assert.Len(t, state.Payments, 1)
}

func TestCreatePayment_Validation(t *testing.T) {
	provider := &mockPaymentProvider{returnPayment: pendingPayment(9001, 501)}
	svc, _, _ := newTestService(provider, Options{})
	ctx := context.Background()

	_, err := svc.CreatePayment(ctx, 0, domain.CreatePaymentRequest{OrderID: 501, MethodID: 2, Amount: 1000})
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = svc.CreatePayment(ctx, 42, domain.CreatePaymentRequest{OrderID: 0, MethodID: 2, Amount: 1000})
	assert.ErrorIs(t, err, ErrInvalidOrderID)

	_, err = svc.CreatePayment(ctx, 42, domain.CreatePaymentRequest{OrderID: 501, MethodID: 0, Amount: 1000})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = svc.CreatePayment(ctx, 42, domain.CreatePaymentRequest{OrderID: 501, MethodID: 2, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, 0, provider.createCalls)
}

// TestCreatePayment_ContractViolation verifies a response without a payment
// identity is surfaced as an error and never stored.
func TestCreatePayment_ContractViolation(t *testing.T) {
	provider := &mockPaymentProvider{returnPayment: &domain.Payment{PaymentID: 0, OrderID: 501}}
	svc, st, _ := newTestService(provider, Options{})

	payment, err := svc.CreatePayment(context.Background(), 42, domain.CreatePaymentRequest{
		OrderID:  501,
		MethodID: 2,
		Amount:   500000,
	})

	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Nil(t, payment)

	state := st.Snapshot()
	assert.Nil(t, state.CurrentPayment)
	assert.Empty(t, state.Payments)
	assert.NotEmpty(t, state.Error)
}

func TestCancelPayment_MapsToFailed(t *testing.T) {
	provider := &mockPaymentProvider{returnPayment: pendingPayment(9001, 501)}
	svc, st, _ := newTestService(provider, Options{})

	_, err := svc.CreatePayment(context.Background(), 42, domain.CreatePaymentRequest{
		OrderID: 501, MethodID: 2, Amount: 500000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelPayment(context.Background(), 42, 9001))

	state := st.Snapshot()
	assert.Equal(t, domain.PaymentStatusFailed, state.CurrentPayment.Status)
	assert.Equal(t, domain.PaymentStatusFailed, state.Payments[0].Status)
	assert.Equal(t, 1, provider.cancelCalls)
}

// TestConfirmCallback_Declined verifies a declined response code is rejected
// locally: the user gets the gateway message and the server confirm endpoint
// is never called.
func TestConfirmCallback_Declined(t *testing.T) {
	provider := &mockPaymentProvider{}
	svc, st, _ := newTestService(provider, Options{})

	payment, err := svc.ConfirmCallback(context.Background(), map[string]string{
		domain.GatewayResponseCodeParam: "51",
		domain.GatewayTxnRefParam:       "TXN-123",
	})

	require.Error(t, err)
	assert.Nil(t, payment)

	var gwErr *domain.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "51", gwErr.Code)
	assert.Contains(t, gwErr.Message, "số dư")

	assert.Equal(t, 0, provider.confirmCalls)
	assert.Nil(t, st.Snapshot().CurrentPayment)
}

func TestConfirmCallback_MissingResponseCode(t *testing.T) {
	provider := &mockPaymentProvider{}
	svc, _, _ := newTestService(provider, Options{})

	_, err := svc.ConfirmCallback(context.Background(), map[string]string{
		domain.GatewayTxnRefParam: "TXN-123",
	})

	assert.ErrorIs(t, err, ErrMissingResponseCode)
	assert.Equal(t, 0, provider.confirmCalls)
}

// TestConfirmCallback_Success verifies the confirmed payment lands in the
// payment store and the order moves to CONFIRMED in the order store.
func TestConfirmCallback_Success(t *testing.T) {
	confirmed := pendingPayment(9001, 501)
	confirmed.Status = domain.PaymentStatusCompleted
	provider := &mockPaymentProvider{returnPayment: confirmed}
	svc, st, orders := newTestService(provider, Options{})

	orders.SetOrderSnapshot(&orderdomain.Order{
		OrderID: 501,
		Status:  orderdomain.OrderStatusPending,
	})

	payment, err := svc.ConfirmCallback(context.Background(), map[string]string{
		domain.GatewayResponseCodeParam: "00",
		domain.GatewayTxnRefParam:       "TXN-123",
	})

	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 1, provider.confirmCalls)

	require.NotNil(t, st.Snapshot().CurrentPayment)

	orderState := orders.Snapshot()
	require.NotNil(t, orderState.CurrentOrder)
	assert.Equal(t, orderdomain.OrderStatusConfirmed, orderState.CurrentOrder.Status)
	assert.False(t, orderState.CurrentOrder.CanCancel)
}

// TestConfirmCallback_Deduplicated verifies a repeated callback for the same
// transaction reference within the window performs a single confirm call.
func TestConfirmCallback_Deduplicated(t *testing.T) {
	confirmed := pendingPayment(9001, 501)
	confirmed.Status = domain.PaymentStatusCompleted
	provider := &mockPaymentProvider{returnPayment: confirmed}
	svc, _, _ := newTestService(provider, Options{})

	params := map[string]string{
		domain.GatewayResponseCodeParam: "00",
		domain.GatewayTxnRefParam:       "TXN-123",
	}

	_, err := svc.ConfirmCallback(context.Background(), params)
	require.NoError(t, err)

	_, err = svc.ConfirmCallback(context.Background(), params)
	assert.ErrorIs(t, err, ErrTooFrequent)
	assert.Equal(t, 1, provider.confirmCalls)
}

// TestPollPaymentStatus_TerminalOnSecondPoll verifies the loop fetches once
// per interval and stops at the first terminal status.
func TestPollPaymentStatus_TerminalOnSecondPoll(t *testing.T) {
	completed := pendingPayment(9001, 501)
	completed.Status = domain.PaymentStatusCompleted
	provider := &mockPaymentProvider{
		pollResponses: []*domain.Payment{pendingPayment(9001, 501), completed},
	}
	svc, st, _ := newTestService(provider, Options{})

	payment, err := svc.PollPaymentStatus(context.Background(), 42, 501, 10*time.Millisecond, time.Second)

	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 2, provider.fetchCalls)
	assert.Equal(t, domain.PaymentStatusCompleted, st.Snapshot().CurrentPayment.Status)
}

// TestPollPaymentStatus_Timeout verifies the poll gives up at the deadline
// after roughly timeout/interval fetches.
func TestPollPaymentStatus_Timeout(t *testing.T) {
	provider := &mockPaymentProvider{
		pollResponses: []*domain.Payment{pendingPayment(9001, 501)},
	}
	svc, st, _ := newTestService(provider, Options{})

	payment, err := svc.PollPaymentStatus(context.Background(), 42, 501, 10*time.Millisecond, 105*time.Millisecond)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Nil(t, payment)
	assert.GreaterOrEqual(t, provider.fetchCalls, 8)
	assert.LessOrEqual(t, provider.fetchCalls, 11)
	assert.Contains(t, st.Snapshot().Error, "timed out")
}

// TestPollPaymentStatus_CallerCancellation verifies cancelling the context
// stops the loop without reporting a timeout.
func TestPollPaymentStatus_CallerCancellation(t *testing.T) {
	provider := &mockPaymentProvider{
		pollResponses: []*domain.Payment{pendingPayment(9001, 501)},
	}
	svc, _, _ := newTestService(provider, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(35 * time.Millisecond)
		cancel()
	}()

	_, err := svc.PollPaymentStatus(ctx, 42, 501, 10*time.Millisecond, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}

// TestPollPaymentStatus_TransientErrorsContinue verifies a failed fetch does
// not abort the loop.
func TestPollPaymentStatus_TransientErrorsContinue(t *testing.T) {
	provider := &mockPaymentProvider{
		pollResponses: []*domain.Payment{pendingPayment(9001, 501)},
		returnErr:     errors.New("connection reset"),
	}
	svc, _, _ := newTestService(provider, Options{})

	_, err := svc.PollPaymentStatus(context.Background(), 42, 501, 10*time.Millisecond, 55*time.Millisecond)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Greater(t, provider.fetchCalls, 1)
}

func TestConfirmDeliveryOTP_InvalidOTP(t *testing.T) {
	provider := &mockPaymentProvider{}
	svc, _, _ := newTestService(provider, Options{})
	ctx := context.Background()

	for _, otp := range []string{"", "12345", "1234567", "12a456", "abcdef"} {
		_, err := svc.ConfirmDeliveryOTP(ctx, 42, 501, otp)
		assert.ErrorIs(t, err, ErrInvalidOTP, "otp %q", otp)
	}
	assert.Equal(t, 0, provider.deliveryCalls)
}

// TestConfirmDeliveryOTP_Success verifies the completed payment is stored and
// the order snapshot refresh is triggered.
func TestConfirmDeliveryOTP_Success(t *testing.T) {
	completed := pendingPayment(9001, 501)
	completed.Status = domain.PaymentStatusCompleted
	completed.MethodCode = domain.MethodCOD
	provider := &mockPaymentProvider{returnPayment: completed}

	st := store.New()
	orders := orderstore.New()
	refresher := &mockRefresher{}
	svc := NewPaymentService(provider, st, orders, refresher, dedup.NewGuard(2*time.Second), Options{})

	payment, err := svc.ConfirmDeliveryOTP(context.Background(), 42, 501, "123456")

	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "123456", provider.lastOTP)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, int64(501), refresher.lastOrderID)
}

// TestConfirmDeliveryOTP_RefreshFailureIgnored verifies a throttled refresh
// does not fail the confirmation.
func TestConfirmDeliveryOTP_RefreshFailureIgnored(t *testing.T) {
	completed := pendingPayment(9001, 501)
	completed.Status = domain.PaymentStatusCompleted
	provider := &mockPaymentProvider{returnPayment: completed}

	refresher := &mockRefresher{returnErr: errors.New("request too frequent")}
	svc := NewPaymentService(provider, store.New(), orderstore.New(), refresher, dedup.NewGuard(2*time.Second), Options{})

	payment, err := svc.ConfirmDeliveryOTP(context.Background(), 42, 501, "123456")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 1, refresher.calls)
}

func TestGetPaymentHistory(t *testing.T) {
	provider := &mockPaymentProvider{
		returnHistory: []domain.HistoryEntry{
			{Status: domain.PaymentStatusPending},
			{Status: domain.PaymentStatusCompleted},
		},
	}
	svc, st, _ := newTestService(provider, Options{})

	entries, err := svc.GetPaymentHistory(context.Background(), 42, 9001)

	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, st.Snapshot().History, 2)

	_, err = svc.GetPaymentHistory(context.Background(), 42, 0)
	assert.ErrorIs(t, err, ErrInvalidPaymentID)
}

// TestCheckoutFlow walks the full happy path: an order snapshot lands in the
// order store, a payment attempt is created, the gateway redirects with a
// success code, and the confirmation moves both stores forward.
func TestCheckoutFlow(t *testing.T) {
	created := pendingPayment(9001, 501)
	provider := &mockPaymentProvider{returnPayment: created}
	svc, st, orders := newTestService(provider, Options{})

	orders.SetOrderSnapshot(&orderdomain.Order{
		OrderID:     501,
		Status:      orderdomain.OrderStatusPending,
		TotalAmount: 500000,
		CanCancel:   true,
	})
	orders.SetOrderList(&orderdomain.OrderPage{
		Orders: []orderdomain.OrderSummary{
			{OrderID: 501, Status: orderdomain.OrderStatusPending, TotalAmount: 500000},
		},
		Pagination: orderdomain.Pagination{Page: 1, Size: 10, TotalItems: 1},
	})

	payment, err := svc.CreatePayment(context.Background(), 42, domain.CreatePaymentRequest{
		OrderID:  501,
		MethodID: 2,
		Amount:   500000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	confirmed := pendingPayment(9001, 501)
	confirmed.Status = domain.PaymentStatusCompleted
	provider.returnPayment = confirmed

	payment, err = svc.ConfirmCallback(context.Background(), map[string]string{
		domain.GatewayResponseCodeParam: "00",
		domain.GatewayTxnRefParam:       "TXN-123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)

	paymentState := st.Snapshot()
	assert.Equal(t, domain.PaymentStatusCompleted, paymentState.CurrentPayment.Status)

	orderState := orders.Snapshot()
	assert.Equal(t, orderdomain.OrderStatusConfirmed, orderState.CurrentOrder.Status)
	require.Len(t, orderState.OrderList, 1)
	assert.Equal(t, orderdomain.OrderStatusConfirmed, orderState.OrderList[0].Status)
}
