package goShare

import (
	"context"
	"errors"
	"sort"
)

const userSearchLimit = 10

// ListUsers describes the listusers operation and its observable behavior.
//
// Users are returned newest first.
func (e *Engine) ListUsers(ctx context.Context) ([]AdminUserSummary, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	users, err := e.store.List(ctx)
	if err != nil {
		return nil, e.internal(ctx, "list users", err)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	out := make([]AdminUserSummary, 0, len(users))
	for i := range users {
		out = append(out, adminSummarize(&users[i]))
	}
	return out, nil
}

// ToggleActive flips the active flag of userID and returns the new value.
// A disabled user is refused at login, at refresh and on every
// authenticated request.
func (e *Engine) ToggleActive(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	user, err := e.findForAdmin(ctx, userID)
	if err != nil {
		return false, err
	}

	unlock := e.accounts.Lock(user.Username)
	defer unlock()

	active := !user.IsActive
	if err := e.store.Update(ctx, user.ID, UserUpdate{IsActive: &active}); err != nil {
		return false, e.internal(ctx, "toggle active", err)
	}

	e.metricInc(MetricAccountStatusChange)
	e.logger.Info(ctx, "account status changed", "user_id", user.ID, "active", active)
	e.emitAudit(ctx, auditEventAccountStatusChange, true, user.ID, nil, func() map[string]string {
		if active {
			return map[string]string{"status": "active"}
		}
		return map[string]string{"status": "disabled"}
	})

	return active, nil
}

// Unlock describes the unlock operation and its observable behavior.
//
// Unlock clears the lockout and the failure counter of userID.
func (e *Engine) Unlock(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	user, err := e.findForAdmin(ctx, userID)
	if err != nil {
		return err
	}

	unlock := e.accounts.Lock(user.Username)
	defer unlock()

	zero := 0
	if err := e.store.Update(ctx, user.ID, UserUpdate{FailedLoginAttempts: &zero, ClearLock: true}); err != nil {
		return e.internal(ctx, "unlock", err)
	}

	e.metricInc(MetricAccountUnlock)
	e.logger.Info(ctx, "account unlocked", "user_id", user.ID)
	e.emitAudit(ctx, auditEventAccountUnlock, true, user.ID, nil, nil)

	return nil
}

// SearchUsers returns up to ten users whose username contains query,
// ignoring case, leaving out excludeID.
func (e *Engine) SearchUsers(ctx context.Context, query, excludeID string) ([]UserSummary, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if query == "" {
		return []UserSummary{}, nil
	}

	users, err := e.store.SearchByUsername(ctx, query, excludeID, userSearchLimit)
	if err != nil {
		return nil, e.internal(ctx, "search users", err)
	}

	out := make([]UserSummary, 0, len(users))
	for i := range users {
		if users[i].ID == excludeID {
			continue
		}
		out = append(out, summarize(&users[i]))
		if len(out) == userSearchLimit {
			break
		}
	}
	return out, nil
}

func (e *Engine) findForAdmin(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, userError(ErrValidation, "User id required")
	}
	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, userError(ErrNotFound, "User not found")
		}
		return nil, e.internal(ctx, "find user", err)
	}
	return user, nil
}
