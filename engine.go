package goShare

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goShare/jwt"
	"github.com/MrEthical07/goShare/password"
	"github.com/MrEthical07/goShare/session"
)

var timeNow = time.Now

// hasher is satisfied by *password.Bcrypt.
type hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
}

// Engine defines a public type used by goShare APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	store        CredentialStore
	ledger       session.Ledger
	otpStore     OTPStore
	passwordHash hasher
	otpHash      hasher
	jwtManager   *jwt.Manager
	audit        *auditDispatcher
	metrics      *Metrics
	logger       Logger

	// rotation serializes refresh rotation per presented token; accounts
	// serializes lockout accounting per username.
	rotation *keyedMutex
	accounts *keyedMutex

	newOTP func(digits int) (string, error)

	dummyOnce sync.Once
	dummyHash string

	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close flushes queued audit events and stops the dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Unknown users and wrong passwords both yield ErrInvalidCredentials. A
// disabled account yields ErrAccountDisabled; an active lockout yields a
// *LockedError. The failure that reaches Lockout.Threshold sets the lock.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" || password == "" {
		return nil, userError(ErrValidation, "Username and password required")
	}

	unlock := e.accounts.Lock(username)
	defer unlock()

	user, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.equalizeTiming(password)
			e.metricInc(MetricLoginFailure)
			e.logger.Info(ctx, "login rejected", "reason", "unknown_user")
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"identifier": username,
					"reason":     "unknown_user",
				}
			})
			return nil, ErrInvalidCredentials
		}
		return nil, e.internal(ctx, "login: find user", err)
	}

	now := e.now()

	if !user.IsActive {
		e.metricInc(MetricLoginDisabledRejected)
		e.logger.Info(ctx, "login rejected", "reason", "disabled", "user_id", user.ID)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrAccountDisabled, func() map[string]string {
			return map[string]string{"reason": "disabled"}
		})
		return nil, ErrAccountDisabled
	}

	if user.IsLocked(now) {
		until := *user.LockedUntil
		e.metricInc(MetricLoginLockedRejected)
		e.logger.Info(ctx, "login rejected", "reason", "locked", "user_id", user.ID, "locked_until", until)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"reason":       "locked",
				"locked_until": until.UTC().Format(time.RFC3339),
			}
		})
		return nil, &LockedError{Until: until}
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, e.internal(ctx, "login: verify password", err)
	}
	if !ok {
		return nil, e.recordLoginFailure(ctx, user, now)
	}

	if user.FailedLoginAttempts != 0 || user.LockedUntil != nil {
		zero := 0
		if err := e.store.Update(ctx, user.ID, UserUpdate{FailedLoginAttempts: &zero, ClearLock: true}); err != nil {
			return nil, e.internal(ctx, "login: reset failure counter", err)
		}
	}

	result, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return result, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, user *User, now time.Time) error {
	attempts := user.FailedLoginAttempts + 1
	lapsed := user.LockedUntil != nil && !now.Before(*user.LockedUntil)
	if lapsed {
		// A lapsed lock starts a fresh window.
		attempts = 1
	}

	update := UserUpdate{FailedLoginAttempts: &attempts, ClearLock: lapsed}
	locked := attempts >= e.config.Lockout.Threshold
	var until time.Time
	if locked {
		until = now.Add(e.config.Lockout.Duration)
		update.LockedUntil = &until
		update.ClearLock = false
	}

	if err := e.store.Update(ctx, user.ID, update); err != nil {
		return e.internal(ctx, "login: record failure", err)
	}

	e.metricInc(MetricLoginFailure)
	e.logger.Info(ctx, "login rejected", "reason", "bad_password", "user_id", user.ID, "attempts", attempts)
	e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": "bad_password"}
	})

	if locked {
		e.metricInc(MetricAccountLocked)
		e.logger.Warn(ctx, "account locked", "user_id", user.ID, "locked_until", until)
		e.emitAudit(ctx, auditEventAccountLocked, true, user.ID, nil, func() map[string]string {
			return map[string]string{"locked_until": until.UTC().Format(time.RFC3339)}
		})
	}

	return ErrInvalidCredentials
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh verifies the token, checks the ledger, re-reads the user and
// rotates. The replacement is recorded before the presented token is
// revoked, so a failure never leaves the caller without a usable token.
// Exactly one of several concurrent calls with the same token succeeds; the
// others get ErrUnauthorized.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, userError(ErrUnauthorized, "Refresh token required")
	}

	claims, err := e.jwtManager.Verify(jwt.KindRefresh, refreshToken)
	if err != nil {
		e.rejectRefresh(ctx, "", "invalid_token", err)
		return nil, ErrUnauthorized
	}

	hash := session.TokenHash(refreshToken)
	unlock := e.rotation.Lock(hex.EncodeToString(hash[:]))
	defer unlock()

	valid, err := e.ledger.IsValid(ctx, refreshToken, claims.UID)
	if err != nil {
		return nil, e.internal(ctx, "refresh: ledger lookup", err)
	}
	if !valid {
		e.reuseDetected(ctx, claims.UID)
		return nil, ErrUnauthorized
	}

	user, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.rejectRefresh(ctx, claims.UID, "user_missing", err)
			return nil, ErrUnauthorized
		}
		return nil, e.internal(ctx, "refresh: find user", err)
	}
	if !user.IsActive {
		e.rejectRefresh(ctx, user.ID, "disabled", ErrAccountDisabled)
		return nil, ErrUnauthorized
	}

	result, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	removed, err := e.ledger.Revoke(ctx, refreshToken)
	if err != nil {
		e.revokeQuietly(ctx, result.RefreshToken)
		return nil, e.internal(ctx, "refresh: revoke presented token", err)
	}
	if !removed {
		// Another process rotated the same token between IsValid and Revoke.
		e.revokeQuietly(ctx, result.RefreshToken)
		e.reuseDetected(ctx, user.ID)
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, nil, nil)

	return result, nil
}

func (e *Engine) rejectRefresh(ctx context.Context, userID, reason string, cause error) {
	e.metricInc(MetricRefreshFailure)
	e.logger.Info(ctx, "refresh rejected", "reason", reason, "user_id", userID, "error", cause)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, ErrUnauthorized, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func (e *Engine) reuseDetected(ctx context.Context, userID string) {
	e.metricInc(MetricRefreshFailure)
	e.metricInc(MetricRefreshReuseDetected)
	e.logger.Warn(ctx, "refresh token not in ledger", "user_id", userID)
	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, ErrUnauthorized, nil)
}

func (e *Engine) revokeQuietly(ctx context.Context, token string) {
	if _, err := e.ledger.Revoke(ctx, token); err != nil {
		e.logger.Error(ctx, "revoke replacement refresh token", "error", err)
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout always succeeds from the caller's point of view. A present token is
// revoked; ledger failures are logged and swallowed.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	if e == nil {
		return
	}

	var userID string
	if refreshToken != "" && e.ledger != nil {
		if claims, err := e.jwtManager.Verify(jwt.KindRefresh, refreshToken); err == nil {
			userID = claims.UID
		}
		if _, err := e.ledger.Revoke(ctx, refreshToken); err != nil {
			e.logger.Error(ctx, "logout: revoke refresh token", "error", err)
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
}

// AuthenticateRequest describes the authenticaterequest operation and its observable behavior.
//
// AuthenticateRequest verifies an access token and re-reads the user, so a
// user disabled after issuance is rejected immediately. The returned role is
// the stored one. Every token or user failure is ErrUnauthorized.
func (e *Engine) AuthenticateRequest(ctx context.Context, bearerToken string) (*Identity, error) {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if bearerToken == "" {
		return nil, userError(ErrUnauthorized, "Authentication required")
	}

	claims, err := e.jwtManager.Verify(jwt.KindAccess, bearerToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	user, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricAuthenticateFailure)
			return nil, ErrUnauthorized
		}
		return nil, e.internal(ctx, "authenticate: find user", err)
	}
	if !user.IsActive {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	return &Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// VerifyAccessToken checks an access token's signature, expiry and kind
// without touching the credential store. It backs the event gateway's
// connection handshake.
func (e *Engine) VerifyAccessToken(token string) (*Identity, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.Verify(jwt.KindAccess, token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return &Identity{UserID: claims.UID, Username: claims.Username, Role: Role(claims.Role)}, nil
}

func (e *Engine) issueSession(ctx context.Context, user *User) (*LoginResult, error) {
	sub := jwt.Subject{UserID: user.ID, Username: user.Username, Role: string(user.Role)}

	access, err := e.jwtManager.IssueAccess(sub)
	if err != nil {
		return nil, e.internal(ctx, "issue access token", err)
	}
	refresh, expiresAt, err := e.jwtManager.IssueRefresh(sub)
	if err != nil {
		return nil, e.internal(ctx, "issue refresh token", err)
	}

	if err := e.ledger.Record(ctx, refresh, user.ID, e.jwtManager.TTL(jwt.KindRefresh)); err != nil {
		return nil, e.internal(ctx, "record refresh token", err)
	}

	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
		User:             summarize(user),
	}, nil
}

// equalizeTiming runs one bcrypt comparison for unknown usernames so their
// latency matches a wrong password.
func (e *Engine) equalizeTiming(plaintext string) {
	e.dummyOnce.Do(func() {
		h, err := e.passwordHash.Hash("goshare-timing-equalizer")
		if err == nil {
			e.dummyHash = h
		}
	})
	if e.dummyHash != "" {
		_, _ = e.passwordHash.Verify(plaintext, e.dummyHash)
	}
}

// hashPassword maps the plaintext limits of the hasher to a validation
// error. Any other hashing failure is internal.
func (e *Engine) hashPassword(ctx context.Context, op, plaintext string) (string, error) {
	hash, err := e.passwordHash.Hash(plaintext)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, password.ErrPasswordEmpty), errors.Is(err, password.ErrPasswordTooLong):
		return "", userError(ErrValidation, "Password must be between 1 and 72 bytes")
	default:
		return "", e.internal(ctx, op, err)
	}
}

func (e *Engine) internal(ctx context.Context, op string, cause error) error {
	e.metricInc(MetricInternalError)
	e.logger.Error(ctx, "operation failed", "op", op, "error", cause)
	return internalError(op, cause)
}
