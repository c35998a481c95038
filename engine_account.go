package goShare

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// namePolicy strips every tag from user supplied display names.
var namePolicy = bluemonday.StrictPolicy()

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// The new account has role user, is active, and is not logged in.
func (e *Engine) Register(ctx context.Context, in RegisterInput) error {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if in.Username == "" || in.Password == "" || in.Email == "" {
		return userError(ErrValidation, "Username, password and email are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return userError(ErrValidation, "Invalid email address")
	}

	if _, err := e.store.FindByUsername(ctx, in.Username); err == nil {
		return e.registerDuplicate(ctx, "username", userError(ErrConflict, "Username already taken"))
	} else if !errors.Is(err, ErrUserNotFound) {
		return e.internal(ctx, "register: find username", err)
	}
	if _, err := e.store.FindByEmail(ctx, in.Email); err == nil {
		return e.registerDuplicate(ctx, "email", userError(ErrConflict, "Email already registered"))
	} else if !errors.Is(err, ErrUserNotFound) {
		return e.internal(ctx, "register: find email", err)
	}

	hash, err := e.hashPassword(ctx, "register: hash password", in.Password)
	if err != nil {
		return err
	}

	fullName := strings.TrimSpace(namePolicy.Sanitize(in.FullName))
	if fullName == "" {
		fullName = in.Username
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		FullName:     fullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    e.now().UTC(),
	}

	if err := e.store.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return e.registerDuplicate(ctx, "constraint", userError(ErrConflict, "Username or email already exists"))
		}
		return e.internal(ctx, "register: insert", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.Info(ctx, "user registered", "user_id", user.ID)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, nil)

	return nil
}

func (e *Engine) registerDuplicate(ctx context.Context, field string, err error) error {
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", err, func() map[string]string {
		return map[string]string{"field": field}
	})
	return err
}
