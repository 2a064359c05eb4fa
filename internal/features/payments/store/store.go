package store

import (
	"sync"
	"time"

	"order-reconciler/internal/features/payments/domain"
)

// Store is the in-process snapshot of payment state, mirroring the current
// payment attempt, the retained attempt list and the on-demand history. Pure
// state, no I/O; constructor-injected so tests run isolated instances.
type Store struct {
	mu sync.Mutex

	currentPayment *domain.Payment
	payments       []domain.Payment
	history        []domain.HistoryEntry
	loading        bool
	lastError      string
	lastRequestAt  time.Time

	// now is swappable in tests.
	now func() time.Time
}

// State is a read-only copy of the store contents.
type State struct {
	// CurrentPayment is the active payment attempt, nil when none.
	CurrentPayment *domain.Payment
	// Payments is the retained list of attempts, oldest first.
	Payments []domain.Payment
	// History is the last fetched payment history.
	History []domain.HistoryEntry
	// Loading reports whether a fetch is in progress.
	Loading bool
	// Error is the last recorded error message, empty when none.
	Error string
	// LastRequestAt is when the last fetch started.
	LastRequestAt time.Time
}

// New creates an empty payment store.
func New() *Store {
	return &Store{now: time.Now}
}

// StartLoading sets the loading flag, clears the previous error and stamps
// the request time.
func (s *Store) StartLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastError = ""
	s.lastRequestAt = s.now()
}

// SetCurrentPayment replaces the current payment after ingest defaulting.
// A payload without a payment identity records an error and is not applied.
func (s *Store) SetCurrentPayment(payment *domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if payment == nil || payment.PaymentID <= 0 {
		s.lastError = "invalid payment payload: missing payment identity"
		return
	}

	applied := s.applyDefaults(*payment)
	s.currentPayment = &applied
	s.lastError = ""
}

// AppendPayment records a newly created attempt: adds it to the retained list
// and sets it as current.
func (s *Store) AppendPayment(payment *domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if payment == nil || payment.PaymentID <= 0 {
		s.lastError = "invalid payment payload: missing payment identity"
		return
	}

	applied := s.applyDefaults(*payment)
	s.payments = append(s.payments, applied)
	s.currentPayment = &applied
	s.lastError = ""
}

// MarkCancelled finds the attempt by id and sets its status to FAILED.
// Cancelling a pending payment is modeled as a failure, matching the external
// gateway semantics, not a distinct terminal state.
func (s *Store) MarkCancelled(paymentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.payments {
		if s.payments[i].PaymentID == paymentID {
			s.payments[i].Status = domain.PaymentStatusFailed
			break
		}
	}
	if s.currentPayment != nil && s.currentPayment.PaymentID == paymentID {
		s.currentPayment.Status = domain.PaymentStatusFailed
	}
}

// SetHistory replaces the fetched payment history.
func (s *Store) SetHistory(entries []domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	s.history = entries
}

// SetError records a fetch failure so consumers can render it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.lastError = msg
}

// ClearError clears the recorded error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// ResetCurrent clears the current payment and history, keeping the retained
// attempt list.
func (s *Store) ResetCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPayment = nil
	s.history = []domain.HistoryEntry{}
	s.loading = false
	s.lastError = ""
}

// ResetAll returns the store to its initial state.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPayment = nil
	s.payments = nil
	s.history = nil
	s.loading = false
	s.lastError = ""
	s.lastRequestAt = time.Time{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Loading:       s.loading,
		Error:         s.lastError,
		LastRequestAt: s.lastRequestAt,
	}
	if s.currentPayment != nil {
		payment := *s.currentPayment
		st.CurrentPayment = &payment
	}
	st.Payments = append([]domain.Payment(nil), s.payments...)
	st.History = append([]domain.HistoryEntry(nil), s.history...)

	return st
}

// CurrentPayment returns the current payment attempt, nil when none.
func (s *Store) CurrentPayment() *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPayment == nil {
		return nil
	}
	payment := *s.currentPayment
	return &payment
}

// applyDefaults fills missing optional fields so downstream render code needs
// no null checks, recording each fabricated field in Defaulted. Fabricating a
// plausible-but-wrong timestamp is a deliberate trade-off; the Defaulted list
// keeps the distinction visible.
func (s *Store) applyDefaults(p domain.Payment) domain.Payment {
	var defaulted []string

	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
		defaulted = append(defaulted, "payment_status")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		defaulted = append(defaulted, "created_at")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
		defaulted = append(defaulted, "updated_at")
	}

	p.Defaulted = defaulted
	return p
}
