package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

// stubAccountRepo is an in-memory account store mimicking the SQL semantics of
// the real repository, including the single-statement lockout mutations.
type stubAccountRepo struct {
	accounts map[string]*domain.Account
	history  []domain.PasswordHistoryEntry
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	for _, existing := range r.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	r.accounts[account.ID] = &account
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := r.accounts[id]; ok {
		copy := *account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if account.Username == username {
			copy := *account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLogin = &at
	return nil
}

func (r *stubAccountRepo) RecordLoginFailure(_ context.Context, id string, threshold int, lockUntil time.Time) (port.FailedAttemptResult, error) {
	account, ok := r.accounts[id]
	if !ok {
		return port.FailedAttemptResult{}, repository.ErrNotFound
	}
	account.FailedAttempts++
	if account.FailedAttempts >= threshold {
		until := lockUntil
		account.LockedUntil = &until
	}
	return port.FailedAttemptResult{
		FailedAttempts: account.FailedAttempts,
		LockedUntil:    account.LockedUntil,
	}, nil
}

func (r *stubAccountRepo) ClearLock(_ context.Context, id string) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	return nil
}

func (r *stubAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.LastPasswordChange = changedAt
	return nil
}

func (r *stubAccountRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry) error {
	r.history = append(r.history, entry)
	return nil
}

func (r *stubAccountRepo) ListPasswordHistory(_ context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	var entries []domain.PasswordHistoryEntry
	for i := len(r.history) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.history[i].AccountID == accountID {
			entries = append(entries, r.history[i])
		}
	}
	return entries, nil
}

// stubEventRepo mirrors the conditional seat-counter statements in memory.
type stubEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.Event
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{events: make(map[string]*domain.Event)}
}

func (r *stubEventRepo) Create(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = &event
	return nil
}

func (r *stubEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := r.events[id]; ok {
		copy := *event
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubEventRepo) Update(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok {
		return repository.ErrNotFound
	}
	event.TotalSeats = stored.TotalSeats
	event.AvailableSeats = stored.AvailableSeats
	r.events[event.ID] = &event
	return nil
}

func (r *stubEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *stubEventRepo) List(_ context.Context, filter port.EventFilter) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []domain.Event
	for _, event := range r.events {
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}
		if filter.After != nil && event.StartsAt.Before(*filter.After) {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *stubEventRepo) ReserveSeats(_ context.Context, id string, count int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if event.AvailableSeats < count {
		return 0, repository.ErrInsufficientSeats
	}
	event.AvailableSeats -= count
	return event.AvailableSeats, nil
}

func (r *stubEventRepo) ReleaseSeats(_ context.Context, id string, count int) (port.ReleaseResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return port.ReleaseResult{}, repository.ErrNotFound
	}
	clamped := event.AvailableSeats+count > event.TotalSeats
	event.AvailableSeats += count
	if clamped {
		event.AvailableSeats = event.TotalSeats
	}
	return port.ReleaseResult{AvailableSeats: event.AvailableSeats, Clamped: clamped}, nil
}

func (r *stubEventRepo) Resize(_ context.Context, id string, newTotal int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	booked := event.TotalSeats - event.AvailableSeats
	event.TotalSeats = newTotal
	event.AvailableSeats = newTotal - booked
	return event.AvailableSeats, nil
}

// stubBookingRepo couples booking rows with the stub event counters the way
// the transactional repository does.
type stubBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
	events   *stubEventRepo
	now      time.Time
}

func newStubBookingRepo(events *stubEventRepo) *stubBookingRepo {
	return &stubBookingRepo{
		bookings: make(map[string]*domain.Booking),
		events:   events,
		now:      time.Now().UTC(),
	}
}

func (r *stubBookingRepo) CreateWithReservation(ctx context.Context, booking domain.Booking) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.Reference == booking.Reference {
			return 0, repository.ErrDuplicate
		}
	}
	available, err := r.events.ReserveSeats(ctx, booking.EventID, booking.SeatsBooked)
	if err != nil {
		return 0, err
	}
	r.bookings[booking.ID] = &booking
	return available, nil
}

func (r *stubBookingRepo) CancelWithRelease(ctx context.Context, id string) (port.CancelResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return port.CancelResult{}, repository.ErrNotFound
	}
	if booking.Status == domain.BookingStatusCancelled {
		return port.CancelResult{}, repository.ErrAlreadyCancelled
	}
	booking.Status = domain.BookingStatusCancelled
	booking.UpdatedAt = r.now

	released, err := r.events.ReleaseSeats(ctx, booking.EventID, booking.SeatsBooked)
	if err != nil {
		return port.CancelResult{}, err
	}
	return port.CancelResult{
		Booking:        *booking,
		SeatsReleased:  booking.SeatsBooked,
		AvailableSeats: released.AvailableSeats,
		Clamped:        released.Clamped,
	}, nil
}

func (r *stubBookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if booking, ok := r.bookings[id]; ok {
		copy := *booking
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubBookingRepo) GetByPaymentIntent(_ context.Context, intentID string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.PaymentIntentID != nil && *booking.PaymentIntentID == intentID {
			copy := *booking
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubBookingRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var bookings []domain.Booking
	for _, booking := range r.bookings {
		if booking.AccountID == accountID {
			bookings = append(bookings, *booking)
		}
	}
	return bookings, nil
}

func (r *stubBookingRepo) List(_ context.Context) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var bookings []domain.Booking
	for _, booking := range r.bookings {
		bookings = append(bookings, *booking)
	}
	return bookings, nil
}

func (r *stubBookingRepo) SetPaymentIntent(_ context.Context, id string, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	booking.PaymentIntentID = &intentID
	return nil
}

func (r *stubBookingRepo) ConfirmByPaymentIntent(_ context.Context, intentID string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.PaymentIntentID == nil || *booking.PaymentIntentID != intentID {
			continue
		}
		if booking.Status == domain.BookingStatusPending {
			booking.Status = domain.BookingStatusConfirmed
			booking.UpdatedAt = r.now
		}
		copy := *booking
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

// recordingAuditSink captures audit entries for assertions.
type recordingAuditSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	fail    error
}

func (s *recordingAuditSink) Record(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingAuditSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (s *recordingAuditSink) hasAction(action string) bool {
	for _, got := range s.actions() {
		if got == action {
			return true
		}
	}
	return false
}

// stubPaymentProvider returns canned intents and records the calls.
type stubPaymentProvider struct {
	intent       port.PaymentIntent
	lastAmount   int64
	lastCurrency string
	lastMeta     map[string]string
	retrieveErr  error
}

func (p *stubPaymentProvider) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string) (*port.PaymentIntent, error) {
	p.lastAmount = amountMinor
	p.lastCurrency = currency
	p.lastMeta = metadata
	intent := p.intent
	if intent.ID == "" {
		intent = port.PaymentIntent{ID: "pi_stub", ClientSecret: "pi_stub_secret", Status: "requires_payment_method"}
	}
	return &intent, nil
}

func (p *stubPaymentProvider) RetrieveIntent(_ context.Context, id string) (*port.PaymentIntent, error) {
	if p.retrieveErr != nil {
		return nil, p.retrieveErr
	}
	intent := p.intent
	if intent.ID == "" {
		intent.ID = id
		intent.Status = "succeeded"
	}
	return &intent, nil
}

// stubWebhookVerifier hands back a canned event, skipping real signature math.
type stubWebhookVerifier struct {
	event *port.WebhookEvent
	err   error
}

func (v *stubWebhookVerifier) VerifyWebhook([]byte, string) (*port.WebhookEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}
