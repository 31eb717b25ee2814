package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/infra/security"
)

func newTestAccountService(t *testing.T, accounts *stubAccountRepo, sink *recordingAuditSink) *AccountService {
	t.Helper()

	logger := zaptest.NewLogger(t)
	audit := NewAuditRecorder(sink, nil, logger)

	return NewAccountService(testSecuritySettings(), accounts, security.DefaultPasswordValidator(), audit, logger)
}

func TestAccountService_Register(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAccountService(t, accounts, sink)

	account, err := svc.Register(context.Background(), RegisterInput{
		Username:  "alice",
		Email:     "Alice@Example.com",
		FirstName: "Alice",
		LastName:  "Ley",
		Password:  "Tr1cky&Unguessable",
	}, RequestMeta{IP: "198.51.100.7"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.Role != domain.RoleCustomer {
		t.Fatalf("expected customer role, got %s", account.Role)
	}
	if account.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", account.Email)
	}
	if account.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}

	stored := accounts.accounts[account.ID]
	if stored == nil {
		t.Fatal("account was not persisted")
	}
	ok, err := security.VerifyPassword("Tr1cky&Unguessable", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
	if !sink.hasAction(domain.AuditAccountRegistered) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditAccountRegistered, sink.actions())
	}
}

func TestAccountService_Register_DuplicateUsername(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	input := RegisterInput{Username: "alice", Email: "alice@example.com", Password: "Tr1cky&Unguessable"}
	if _, err := svc.Register(context.Background(), input, RequestMeta{}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	if _, err := svc.Register(context.Background(), input, RequestMeta{}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAccountService_Register_WeakPassword(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	}, RequestMeta{})

	var validation *security.PasswordValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAccountService(t, accounts, sink)

	account := seedAccount(t, accounts, "alice", "Tr1cky&Unguessable")
	oldHash := account.PasswordHash

	if err := svc.ChangePassword(context.Background(), account.ID, "Tr1cky&Unguessable", "N3w&EvenBetterOne", RequestMeta{}); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	stored := accounts.accounts[account.ID]
	ok, err := security.VerifyPassword("N3w&EvenBetterOne", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new password does not verify: ok=%v err=%v", ok, err)
	}

	if len(accounts.history) != 1 || accounts.history[0].PasswordHash != oldHash {
		t.Fatal("retired hash was not appended to history")
	}
	if !sink.hasAction(domain.AuditPasswordChanged) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditPasswordChanged, sink.actions())
	}
}

func TestAccountService_ChangePassword_WrongOld(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	account := seedAccount(t, accounts, "alice", "Tr1cky&Unguessable")

	err := svc.ChangePassword(context.Background(), account.ID, "not-the-password", "N3w&EvenBetterOne", RequestMeta{})
	if !errors.Is(err, ErrWrongOldPassword) {
		t.Fatalf("expected ErrWrongOldPassword, got %v", err)
	}
}

func TestAccountService_ChangePassword_RejectsCurrentPassword(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	account := seedAccount(t, accounts, "alice", "Tr1cky&Unguessable")

	err := svc.ChangePassword(context.Background(), account.ID, "Tr1cky&Unguessable", "Tr1cky&Unguessable", RequestMeta{})
	if !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}
}

func TestAccountService_ChangePassword_RejectsHistoricalPassword(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	account := seedAccount(t, accounts, "alice", "Tr1cky&Unguessable")

	if err := svc.ChangePassword(context.Background(), account.ID, "Tr1cky&Unguessable", "N3w&EvenBetterOne", RequestMeta{}); err != nil {
		t.Fatalf("first ChangePassword returned error: %v", err)
	}

	// Rotating back to the original must hit the history check.
	err := svc.ChangePassword(context.Background(), account.ID, "N3w&EvenBetterOne", "Tr1cky&Unguessable", RequestMeta{})
	if !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for historical password, got %v", err)
	}
}

func TestAccountService_ChangePassword_ReuseWindowAges(t *testing.T) {
	accounts := newStubAccountRepo()
	svc := newTestAccountService(t, accounts, &recordingAuditSink{})

	rotation := []string{
		"Tr1cky&Unguessable",
		"B1zarre&Mosaic!Fox",
		"Qu1lted&Ember!Lynx",
		"V3lvet&Orbit!Crane",
		"M4rble&Tundra!Wren",
		"C0balt&Prairie!Ibis",
	}

	account := seedAccount(t, accounts, "alice", rotation[0])
	for i := 1; i < len(rotation); i++ {
		if err := svc.ChangePassword(context.Background(), account.ID, rotation[i-1], rotation[i], RequestMeta{}); err != nil {
			t.Fatalf("rotation %d returned error: %v", i, err)
		}
	}

	// Five passwords back is still inside the window.
	current := rotation[len(rotation)-1]
	err := svc.ChangePassword(context.Background(), account.ID, current, rotation[1], RequestMeta{})
	if !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for password inside the window, got %v", err)
	}

	// Six passwords back has aged out and is acceptable again.
	if err := svc.ChangePassword(context.Background(), account.ID, current, rotation[0], RequestMeta{}); err != nil {
		t.Fatalf("expected aged-out password to be accepted, got %v", err)
	}
}

func TestAccountService_PasswordStrength(t *testing.T) {
	svc := newTestAccountService(t, newStubAccountRepo(), &recordingAuditSink{})

	weak := svc.PasswordStrength("password")
	strong := svc.PasswordStrength("d8#kQz!mN4@pL7&x")

	if weak.Score >= strong.Score {
		t.Fatalf("expected strength ordering, got weak=%d strong=%d", weak.Score, strong.Score)
	}
}
