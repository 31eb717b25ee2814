package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/infra/security"
)

func testSecuritySettings() config.SecuritySettings {
	return config.SecuritySettings{
		LockThreshold:        5,
		LockDuration:         30 * time.Minute,
		PasswordHistoryDepth: 5,
	}
}

func newTestAuthService(t *testing.T, accounts *stubAccountRepo, sink *recordingAuditSink) *AuthService {
	t.Helper()

	tokens, err := security.NewTokenManager("test-secret", "securticket-test", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	logger := zaptest.NewLogger(t)
	audit := NewAuditRecorder(sink, nil, logger)

	return NewAuthService(testSecuritySettings(), accounts, tokens, audit, logger)
}

func seedAccount(t *testing.T, accounts *stubAccountRepo, username, password string) *domain.Account {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	account := &domain.Account{
		ID:           "acct-" + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    time.Now().UTC(),
	}
	accounts.accounts[account.ID] = account
	return account
}

func TestAuthService_Login_Success(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAuthService(t, accounts, sink)

	seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	result, err := svc.Login(context.Background(), "alice", "Str0ng-Passw0rd!", RequestMeta{IP: "198.51.100.7"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token")
	}
	if accounts.accounts["acct-alice"].LastLogin == nil {
		t.Fatal("expected last login to be stamped")
	}
	if !sink.hasAction(domain.AuditLoginSuccess) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditLoginSuccess, sink.actions())
	}
}

func TestAuthService_Login_UnknownUsernameIndistinguishable(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAuthService(t, accounts, sink)

	seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	_, unknownErr := svc.Login(context.Background(), "ghost", "whatever-pass-1", RequestMeta{})
	_, wrongErr := svc.Login(context.Background(), "alice", "wrong-pass-1", RequestMeta{})

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown username, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown-username and wrong-password errors must match: %q vs %q", unknownErr, wrongErr)
	}
	if !sink.hasAction(domain.AuditLoginUnknownUsername) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditLoginUnknownUsername, sink.actions())
	}
}

func TestAuthService_Login_LocksAtThreshold(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAuthService(t, accounts, sink)

	seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	for i := 0; i < 4; i++ {
		if _, err := svc.Login(context.Background(), "alice", "wrong-pass-1", RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, err := svc.Login(context.Background(), "alice", "wrong-pass-1", RequestMeta{})
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError on fifth failure, got %v", err)
	}
	if locked.Remaining <= 0 || locked.Remaining > 30*time.Minute {
		t.Fatalf("unexpected lock remaining: %v", locked.Remaining)
	}
	if !sink.hasAction(domain.AuditAccountLocked) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditAccountLocked, sink.actions())
	}

	// The locking attempt records account_locked instead of login_failed, so
	// only the four below-threshold failures show up as login_failed.
	failed := 0
	for _, action := range sink.actions() {
		if action == domain.AuditLoginFailed {
			failed++
		}
	}
	if failed != 4 {
		t.Fatalf("expected 4 %s entries, got %d", domain.AuditLoginFailed, failed)
	}

	// Correct password while locked must still be rejected, without advancing
	// the counter.
	attemptsBefore := accounts.accounts["acct-alice"].FailedAttempts
	if _, err := svc.Login(context.Background(), "alice", "Str0ng-Passw0rd!", RequestMeta{}); !errors.As(err, &locked) {
		t.Fatalf("expected AccountLockedError for correct password while locked, got %v", err)
	}
	if got := accounts.accounts["acct-alice"].FailedAttempts; got != attemptsBefore {
		t.Fatalf("locked attempt advanced the counter: %d -> %d", attemptsBefore, got)
	}
	if !sink.hasAction(domain.AuditLoginAttemptLocked) {
		t.Fatalf("expected %s audit entry, got %v", domain.AuditLoginAttemptLocked, sink.actions())
	}
}

func TestAuthService_Login_LazyLockExpiry(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAuthService(t, accounts, sink)

	account := seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	past := time.Now().UTC().Add(-time.Minute)
	account.FailedAttempts = 5
	account.LockedUntil = &past

	result, err := svc.Login(context.Background(), "alice", "Str0ng-Passw0rd!", RequestMeta{})
	if err != nil {
		t.Fatalf("Login after lock expiry returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token")
	}

	stored := accounts.accounts["acct-alice"]
	if stored.FailedAttempts != 0 || stored.LockedUntil != nil {
		t.Fatalf("expected counters reset after expiry, got attempts=%d locked=%v", stored.FailedAttempts, stored.LockedUntil)
	}
}

func TestAuthService_Login_FailureCounterResetsOnSuccess(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{}
	svc := newTestAuthService(t, accounts, sink)

	seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(context.Background(), "alice", "wrong-pass-1", RequestMeta{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if _, err := svc.Login(context.Background(), "alice", "Str0ng-Passw0rd!", RequestMeta{}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if got := accounts.accounts["acct-alice"].FailedAttempts; got != 0 {
		t.Fatalf("expected counter reset on success, got %d", got)
	}
}

func TestAuthService_Login_AuditFailureDoesNotBlockLogin(t *testing.T) {
	accounts := newStubAccountRepo()
	sink := &recordingAuditSink{fail: errors.New("audit store down")}
	svc := newTestAuthService(t, accounts, sink)

	seedAccount(t, accounts, "alice", "Str0ng-Passw0rd!")

	if _, err := svc.Login(context.Background(), "alice", "Str0ng-Passw0rd!", RequestMeta{}); err != nil {
		t.Fatalf("Login must succeed despite audit failure, got %v", err)
	}
}
