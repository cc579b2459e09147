package eduAuth

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/eduAuth/accounts"
)

func TestRegisterValidation(t *testing.T) {
	et := newEngineTest(t, nil)
	ctx := context.Background()

	if _, err := et.engine.Register(ctx, "not-an-email", testPassword); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := et.engine.Register(ctx, "short@example.com", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	et.register(t, "dup@example.com")
	if _, err := et.engine.Register(ctx, "DUP@example.com", testPassword); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	snap := et.engine.MetricsSnapshot()
	if snap.Counters[MetricAccountCreationSuccess] != 1 || snap.Counters[MetricAccountCreationDuplicate] != 1 {
		t.Fatalf("unexpected account metrics %+v", snap.Counters)
	}
}

func TestChangePasswordRejectsOutstandingTokens(t *testing.T) {
	et := newEngineTest(t, nil)
	id := et.register(t, "change@example.com")
	ctx := context.Background()

	pair := et.login(t, "change@example.com", testPassword)
	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := et.engine.ChangePassword(ctx, id.Subject, "wrong-current", "new-password-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := et.engine.ChangePassword(ctx, id.Subject, testPassword, "new-password-123"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected old access token rejected, got %v", err)
	}
	if _, err := et.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected old refresh token rejected, got %v", err)
	}
	if _, err := et.engine.Login(ctx, "change@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}

	fresh := et.login(t, "change@example.com", "new-password-123")
	if _, err := et.engine.Authenticate(ctx, fresh.AccessToken); err != nil {
		t.Fatalf("new token: %v", err)
	}

	snap := et.engine.MetricsSnapshot()
	if snap.Counters[MetricPasswordChangeSuccess] != 1 || snap.Counters[MetricPasswordChangeInvalidOld] != 1 {
		t.Fatalf("unexpected password metrics %+v", snap.Counters)
	}
}

func TestChangeRoleTakesEffectImmediately(t *testing.T) {
	et := newEngineTest(t, nil)
	id := et.register(t, "promote@example.com")
	ctx := context.Background()

	pair := et.login(t, "promote@example.com", testPassword)
	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := et.engine.ChangeRole(ctx, id.Subject, "SUPERUSER"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := et.engine.ChangeRole(ctx, id.Subject, RoleInstructor); err != nil {
		t.Fatalf("change role: %v", err)
	}

	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected token with old role rejected, got %v", err)
	}

	fresh := et.login(t, "promote@example.com", testPassword)
	got, err := et.engine.Authenticate(ctx, fresh.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.Role != RoleInstructor {
		t.Fatalf("expected INSTRUCTOR, got %q", got.Role)
	}
}

func TestDeleteAndRestoreAccount(t *testing.T) {
	et := newEngineTest(t, nil)
	id := et.register(t, "delete@example.com")
	ctx := context.Background()

	pair := et.login(t, "delete@example.com", testPassword)
	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := et.engine.DeleteAccount(ctx, id.Subject); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected deleted account rejected, got %v", err)
	}
	if _, err := et.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh rejected, got %v", err)
	}

	if err := et.engine.RestoreAccount(ctx, id.Subject); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := et.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pre-delete token must stay dead after restore, got %v", err)
	}
	fresh := et.login(t, "delete@example.com", testPassword)
	if _, err := et.engine.Authenticate(ctx, fresh.AccessToken); err != nil {
		t.Fatalf("authenticate after restore: %v", err)
	}
}

func TestMutationsOnUnknownAccount(t *testing.T) {
	et := newEngineTest(t, nil)
	ctx := context.Background()
	const missing = "00000000-0000-0000-0000-000000000000"

	if err := et.engine.ChangeRole(ctx, missing, RoleAdmin); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("change role: %v", err)
	}
	if err := et.engine.DeleteAccount(ctx, missing); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("delete: %v", err)
	}
	if err := et.engine.ChangePassword(ctx, missing, testPassword, "another-password"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("change password: %v", err)
	}
}

func TestInvalidateIdentityFailure(t *testing.T) {
	et := newEngineTest(t, nil)
	id := et.register(t, "inval@example.com")
	et.mr.Close()

	err := et.engine.InvalidateIdentity(context.Background(), id.Subject)
	if !errors.Is(err, ErrIdentityInvalidationFailed) {
		t.Fatalf("expected ErrIdentityInvalidationFailed, got %v", err)
	}
}

// frozenVersionStore models a store whose role update forgets to bump the version.
type frozenVersionStore struct {
	*accounts.Memory
}

func (s frozenVersionStore) UpdateRole(ctx context.Context, id, role string) (accounts.Account, error) {
	before, err := s.Memory.GetByID(ctx, id)
	if err != nil {
		return accounts.Account{}, err
	}
	after, err := s.Memory.UpdateRole(ctx, id, role)
	if err != nil {
		return accounts.Account{}, err
	}
	after.Version = before.Version
	return after, nil
}

func TestMutationWithoutVersionAdvanceFails(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := frozenVersionStore{Memory: accounts.NewMemory()}
	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).WithAccountStore(store).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	id, err := engine.Register(context.Background(), "frozen@example.com", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.ChangeRole(context.Background(), id.Subject, RoleAdmin); !errors.Is(err, ErrAccountVersionNotAdvanced) {
		t.Fatalf("expected ErrAccountVersionNotAdvanced, got %v", err)
	}
}
