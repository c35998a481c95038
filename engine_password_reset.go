package goShare

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goShare/internal"
	"github.com/MrEthical07/goShare/internal/stores"
	"github.com/MrEthical07/goShare/jwt"
)

// RequestReset describes the requestreset operation and its observable behavior.
//
// RequestReset issues a fresh OTP challenge for email, superseding any
// earlier one, and returns a masked confirmation such as
// "OTP sent to jo***@example.com". Unknown emails yield ErrNotFound.
func (e *Engine) RequestReset(ctx context.Context, email string) (string, error) {
	if e == nil || e.store == nil || e.otpStore == nil || e.otpHash == nil {
		return "", ErrEngineNotReady
	}
	if email == "" {
		return "", userError(ErrValidation, "Email required")
	}

	user, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.logger.Info(ctx, "password reset rejected", "reason", "unknown_email")
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", ErrNotFound, nil)
			return "", userError(ErrNotFound, "No account found with that email")
		}
		return "", e.internal(ctx, "request reset: find user", err)
	}

	code, err := e.newOTP(e.config.OTP.Digits)
	if err != nil {
		return "", e.internal(ctx, "request reset: generate otp", err)
	}
	codeHash, err := e.otpHash.Hash(code)
	if err != nil {
		return "", e.internal(ctx, "request reset: hash otp", err)
	}
	if err := e.otpStore.Put(ctx, user.Email, codeHash, e.config.OTP.TTL); err != nil {
		return "", e.internal(ctx, "request reset: store challenge", err)
	}

	if e.config.OTP.DevLogCodes {
		e.logger.Warn(ctx, "password reset otp", "email", user.Email, "otp", code)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, nil, nil)

	return "OTP sent to " + maskEmail(user.Email), nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP consumes the challenge for email and returns a reset token. A
// wrong code against a live challenge wraps ErrOTPIncorrect; a missing,
// expired, already used or exhausted challenge is ErrOTPInvalid.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if e == nil || e.otpStore == nil || e.otpHash == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if email == "" || code == "" {
		return "", userError(ErrValidation, "Email and OTP required")
	}

	if len(code) != e.config.OTP.Digits || !internal.IsNumeric(code) {
		return "", e.otpFailure(ctx, email, "malformed", ErrOTPIncorrect)
	}

	err := e.otpStore.Consume(ctx, email, e.config.OTP.MaxAttempts, func(codeHash string) (bool, error) {
		return e.otpHash.Verify(code, codeHash)
	})
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrChallengeMismatch):
		return "", e.otpFailure(ctx, email, "mismatch", ErrOTPIncorrect)
	case errors.Is(err, stores.ErrChallengeNotFound):
		return "", e.otpFailure(ctx, email, "not_found", ErrOTPInvalid)
	case errors.Is(err, stores.ErrChallengeExpired):
		return "", e.otpFailure(ctx, email, "expired", ErrOTPInvalid)
	case errors.Is(err, stores.ErrChallengeAttemptsExceeded):
		return "", e.otpFailure(ctx, email, "attempts_exceeded", ErrOTPInvalid)
	default:
		return "", e.internal(ctx, "verify otp: consume challenge", err)
	}

	token, err := e.jwtManager.IssueReset(email)
	if err != nil {
		return "", e.internal(ctx, "verify otp: issue reset token", err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, "", nil, nil)

	return token, nil
}

func (e *Engine) otpFailure(ctx context.Context, email, reason string, err error) error {
	e.metricInc(MetricOTPVerifyFailure)
	e.logger.Info(ctx, "otp rejected", "reason", reason, "email", maskEmail(email))
	e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// A successful reset also clears the failure counter and any lockout.
// Outstanding refresh tokens are left in place.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.store == nil || e.passwordHash == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if resetToken == "" || newPassword == "" {
		return userError(ErrValidation, "Reset token and new password required")
	}

	claims, err := e.jwtManager.Verify(jwt.KindReset, resetToken)
	if err != nil || claims.Email == "" {
		return ErrUnauthorized
	}

	user, err := e.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUnauthorized
		}
		return e.internal(ctx, "reset password: find user", err)
	}

	hash, err := e.hashPassword(ctx, "reset password: hash password", newPassword)
	if err != nil {
		return err
	}

	unlock := e.accounts.Lock(user.Username)
	defer unlock()

	zero := 0
	if err := e.store.Update(ctx, user.ID, UserUpdate{
		PasswordHash:        &hash,
		FailedLoginAttempts: &zero,
		ClearLock:           true,
	}); err != nil {
		return e.internal(ctx, "reset password: update user", err)
	}

	e.metricInc(MetricPasswordResetConfirm)
	e.logger.Info(ctx, "password reset", "user_id", user.ID)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, nil, nil)

	return nil
}

// maskEmail keeps the first two characters of the local part and the
// domain: "jo***@example.com". Inputs without an "@" are masked entirely.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return "***"
	}
	local, domain := email[:at], email[at+1:]
	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	return local[:keep] + "***@" + domain
}
