package eduAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/password"
)

const maxEmailLength = 254

// Register creates a USER account. The new subject has no session; the caller
// logs in separately.
func (e *Engine) Register(ctx context.Context, email, plain string) (*Identity, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	email = accounts.NormalizeEmail(email)
	if at := strings.IndexByte(email, '@'); at < 1 || at == len(email)-1 || len(email) > maxEmailLength {
		return nil, ErrInvalidEmail
	}
	encoded, err := e.hashNewPassword(plain)
	if err != nil {
		return nil, err
	}

	acct, err := e.accounts.Create(ctx, accounts.NewAccount{
		Email:        email,
		PasswordHash: encoded,
		Role:         RoleUser,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			e.metricInc(MetricAccountCreationDuplicate)
		}
		err = mapAccountError(err)
		e.emitAudit(ctx, auditEventAccountCreated, false, "", err, nil)
		return nil, err
	}

	// A negative lookup is never cached, but an earlier deleted account may have
	// left a generation behind for this id.
	if err := e.InvalidateIdentity(ctx, acct.ID); err != nil {
		return nil, err
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreated, true, acct.ID, nil, nil)
	return identityFromAccount(acct), nil
}

// ChangePassword replaces the password after checking the current one. Every
// access and refresh token held by the subject stops working.
func (e *Engine) ChangePassword(ctx context.Context, subject, current, next string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	acct, err := e.accounts.GetByID(ctx, subject)
	if err != nil {
		return mapAccountError(err)
	}
	if acct.Deleted {
		return ErrAccountNotFound
	}

	ok, _, err := e.hasher.Verify(current, acct.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChanged, false, subject, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	encoded, err := e.hashNewPassword(next)
	if err != nil {
		return err
	}

	if _, err := e.mutateAccount(ctx, acct, true, func(ctx context.Context) (accounts.Account, error) {
		return e.accounts.UpdatePassword(ctx, subject, encoded)
	}); err != nil {
		e.emitAudit(ctx, auditEventPasswordChanged, false, subject, err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, subject, nil, nil)
	return nil
}

// ChangeRole assigns role to subject. Outstanding tokens carry the old role and
// are rejected.
func (e *Engine) ChangeRole(ctx context.Context, subject, role string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if !accounts.ValidRole(role) {
		return ErrInvalidRole
	}

	acct, err := e.accounts.GetByID(ctx, subject)
	if err != nil {
		return mapAccountError(err)
	}

	if _, err := e.mutateAccount(ctx, acct, true, func(ctx context.Context) (accounts.Account, error) {
		return e.accounts.UpdateRole(ctx, subject, role)
	}); err != nil {
		e.emitAudit(ctx, auditEventRoleChanged, false, subject, err, nil)
		return err
	}

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChanged, true, subject, nil, func() map[string]string {
		return map[string]string{"from": acct.Role, "to": role}
	})
	return nil
}

// DeleteAccount soft-deletes subject and ends its session.
func (e *Engine) DeleteAccount(ctx context.Context, subject string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	acct, err := e.accounts.GetByID(ctx, subject)
	if err != nil {
		return mapAccountError(err)
	}

	if _, err := e.mutateAccount(ctx, acct, true, func(ctx context.Context) (accounts.Account, error) {
		return e.accounts.SetDeleted(ctx, subject, true)
	}); err != nil {
		e.emitAudit(ctx, auditEventAccountDeleted, false, subject, err, nil)
		return err
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, subject, nil, nil)
	return nil
}

// RestoreAccount reverses DeleteAccount. The subject must log in again.
func (e *Engine) RestoreAccount(ctx context.Context, subject string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	acct, err := e.accounts.GetByID(ctx, subject)
	if err != nil {
		return mapAccountError(err)
	}

	if _, err := e.mutateAccount(ctx, acct, false, func(ctx context.Context) (accounts.Account, error) {
		return e.accounts.SetDeleted(ctx, subject, false)
	}); err != nil {
		e.emitAudit(ctx, auditEventAccountRestored, false, subject, err, nil)
		return err
	}

	e.metricInc(MetricAccountRestored)
	e.emitAudit(ctx, auditEventAccountRestored, true, subject, nil, nil)
	return nil
}

// InvalidateIdentity drops the cached identity for subject. Any component that
// mutates an account outside the engine must call it after the write commits.
func (e *Engine) InvalidateIdentity(ctx context.Context, subject string) error {
	if e == nil || e.identities == nil {
		return ErrEngineNotReady
	}
	if err := e.identities.Invalidate(ctx, subject); err != nil {
		e.logger.Error(ctx, "identity invalidation failed", "subject", subject, "error", err)
		e.emitAudit(ctx, auditEventIdentityInvalidated, false, subject, ErrIdentityInvalidationFailed, nil)
		return fmt.Errorf("%w: %v", ErrIdentityInvalidationFailed, err)
	}

	e.metricInc(MetricIdentityInvalidated)
	e.emitAudit(ctx, auditEventIdentityInvalidated, true, subject, nil, nil)
	return nil
}

// mutateAccount runs mutate, checks that the version advanced, invalidates the
// cached identity and, when revoke is set, ends the subject's session.
func (e *Engine) mutateAccount(ctx context.Context, before accounts.Account, revoke bool, mutate func(context.Context) (accounts.Account, error)) (accounts.Account, error) {
	after, err := mutate(ctx)
	if err != nil {
		return accounts.Account{}, mapAccountError(err)
	}
	if after.Version <= before.Version {
		e.logger.Error(ctx, "account mutation did not advance version",
			"subject", before.ID, "before", before.Version, "after", after.Version)
		return accounts.Account{}, ErrAccountVersionNotAdvanced
	}

	if err := e.InvalidateIdentity(ctx, after.ID); err != nil {
		return accounts.Account{}, err
	}

	if revoke {
		if err := e.sessions.Revoke(ctx, after.ID); err != nil {
			e.logger.Error(ctx, "session revoke after mutation failed", "subject", after.ID, "error", err)
			return accounts.Account{}, mapSessionError(err)
		}
	}
	return after, nil
}

func (e *Engine) hashNewPassword(plain string) (string, error) {
	if err := e.hasher.CheckPolicy(plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	encoded, err := e.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return "", fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return encoded, nil
}

func mapAccountError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, accounts.ErrDuplicateEmail):
		return ErrAccountExists
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func identityFromAccount(acct accounts.Account) *Identity {
	return &Identity{
		Subject: acct.ID,
		Email:   acct.Email,
		Role:    acct.Role,
		Version: acct.Version,
	}
}
