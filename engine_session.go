package eduAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/identity"
	"github.com/MrEthical07/eduAuth/session"
)

// Login checks email and password and opens a session. Unknown emails, wrong
// passwords and deleted accounts all return ErrInvalidCredentials after the same
// amount of hashing work.
func (e *Engine) Login(ctx context.Context, email, plain string) (TokenPair, error) {
	if e == nil || e.sessions == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	acct, err := e.accounts.GetByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			_, _, _ = e.hasher.Verify(plain, e.dummyHash)
			return TokenPair{}, e.loginFailed(ctx, "", "unknown_email", ErrInvalidCredentials)
		}
		e.logger.Error(ctx, "account lookup failed", "error", err)
		return TokenPair{}, e.loginFailed(ctx, "", "store", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	ok, needsRehash, err := e.hasher.Verify(plain, acct.PasswordHash)
	if err != nil {
		e.logger.Error(ctx, "stored password hash unreadable", "subject", acct.ID, "error", err)
		return TokenPair{}, e.loginFailed(ctx, acct.ID, "malformed_hash", ErrInvalidCredentials)
	}
	if !ok {
		return TokenPair{}, e.loginFailed(ctx, acct.ID, "wrong_password", ErrInvalidCredentials)
	}
	if acct.Deleted {
		return TokenPair{}, e.loginFailed(ctx, acct.ID, "deleted", ErrInvalidCredentials)
	}

	if needsRehash {
		acct, err = e.upgradePasswordHash(ctx, acct, plain)
		if err != nil {
			return TokenPair{}, e.loginFailed(ctx, acct.ID, "rehash", err)
		}
	}

	pair, err := e.sessions.Login(ctx, acct.ID, acct.Role, acct.Version)
	if err != nil {
		e.logger.Error(ctx, "session creation failed", "subject", acct.ID, "error", err)
		return TokenPair{}, e.loginFailed(ctx, acct.ID, "session", mapSessionError(err))
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, nil, nil)
	return pair, nil
}

func (e *Engine) loginFailed(ctx context.Context, subject, reason string, err error) error {
	e.metricInc(MetricLoginFailure)
	e.logger.Info(ctx, "login rejected", "reason", reason, "subject", subject)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// upgradePasswordHash replaces a legacy hash after a successful verification. The
// returned account carries the advanced version.
func (e *Engine) upgradePasswordHash(ctx context.Context, acct accounts.Account, plain string) (accounts.Account, error) {
	encoded, err := e.hasher.Hash(plain)
	if err != nil {
		return acct, fmt.Errorf("rehash password: %w", err)
	}

	updated, err := e.mutateAccount(ctx, acct, false, func(ctx context.Context) (accounts.Account, error) {
		return e.accounts.UpdatePassword(ctx, acct.ID, encoded)
	})
	if err != nil {
		e.logger.Error(ctx, "password rehash failed", "subject", acct.ID, "error", err)
		return acct, err
	}

	e.metricInc(MetricPasswordRehash)
	e.emitAudit(ctx, auditEventPasswordRehashed, true, acct.ID, nil, nil)
	return updated, nil
}

// Refresh rotates the presented refresh token and mints an access token for the
// subject's live role and version. Deleted or unknown subjects cannot refresh.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.sessions == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	subject, _ := session.SubjectOf(refreshToken)
	pair, err := e.sessions.Refresh(ctx, refreshToken, e.reissue)
	if err == nil {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, subject, nil, nil)
		return pair, nil
	}

	e.metricInc(MetricRefreshFailure)
	switch {
	case errors.Is(err, session.ErrRefreshReuse):
		e.metricInc(MetricRefreshReuseDetected)
		e.logger.Warn(ctx, "stale refresh token presented, session revoked", "subject", subject)
		err = errors.Join(ErrInvalidRefreshToken, ErrRefreshReuse)
		e.emitAudit(ctx, auditEventRefreshReuse, false, subject, err, nil)
		return TokenPair{}, err
	case errors.Is(err, session.ErrInvalidRefreshToken):
		e.logger.Info(ctx, "refresh rejected", "subject", subject)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, subject, ErrInvalidRefreshToken, nil)
		return TokenPair{}, ErrInvalidRefreshToken
	default:
		e.logger.Error(ctx, "refresh failed", "subject", subject, "error", err)
		err = mapSessionError(err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, subject, err, nil)
		return TokenPair{}, err
	}
}

// reissue resolves the role and version a refreshed access token carries.
func (e *Engine) reissue(ctx context.Context, subject string) (string, uint32, error) {
	rec, err := e.identities.Lookup(ctx, subject)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return "", 0, session.ErrInvalidRefreshToken
	case err != nil:
		return "", 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case rec.Deleted:
		return "", 0, session.ErrInvalidRefreshToken
	}
	return rec.Role, rec.Version, nil
}

// Logout revokes the subject's refresh token. Access tokens already issued stay
// valid until they expire.
func (e *Engine) Logout(ctx context.Context, subject string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if err := e.sessions.Revoke(ctx, subject); err != nil {
		e.logger.Error(ctx, "logout failed", "subject", subject, "error", err)
		err = mapSessionError(err)
		e.emitAudit(ctx, auditEventLogout, false, subject, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, subject, nil, nil)
	return nil
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, session.ErrStoreUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
