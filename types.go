package goShare

import (
	"context"
	"time"
)

// Role is the authorization class of a user.
type Role string

const (
	// RoleUser is an exported constant or variable used by the session engine.
	RoleUser Role = "user"
	// RoleAdmin is an exported constant or variable used by the session engine.
	RoleAdmin Role = "admin"
)

// User is the identity record the engine reads from and writes to the
// CredentialStore.
type User struct {
	ID                  string
	Username            string
	FullName            string
	Email               string
	PasswordHash        string
	Role                Role
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
}

// IsLocked reports whether a lockout is in force at now.
func (u *User) IsLocked(now time.Time) bool {
	return u != nil && u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// UserUpdate is a partial update of the mutable user fields. Nil fields are
// left unchanged. ClearLock sets LockedUntil to NULL and wins over LockedUntil.
type UserUpdate struct {
	PasswordHash        *string
	IsActive            *bool
	FailedLoginAttempts *int
	LockedUntil         *time.Time
	ClearLock           bool
}

// CredentialStore is the datastore contract the engine requires. Lookups are
// case-sensitive exact matches. Absent rows return ErrUserNotFound; unique
// violations on Insert return ErrDuplicateUser.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, update UserUpdate) error
	List(ctx context.Context) ([]User, error)
	SearchByUsername(ctx context.Context, query, excludeID string, limit int) ([]User, error)
}

// RegisterInput carries the fields accepted at registration. FullName is
// optional and defaults to Username.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
}

// UserSummary is the public projection of a user returned with tokens.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// AdminUserSummary is the projection listed on the admin surface.
type AdminUserSummary struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	LockedUntil *time.Time `json:"locked_until"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh].
type LoginResult struct {
	AccessToken      string      `json:"accessToken"`
	RefreshToken     string      `json:"refreshToken"`
	RefreshExpiresAt time.Time   `json:"-"`
	User             UserSummary `json:"user"`
}

// Identity is the authenticated caller established by
// [Engine.AuthenticateRequest].
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin describes the isadmin operation and its observable behavior.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

func summarize(u *User) UserSummary {
	fullName := u.FullName
	if fullName == "" {
		fullName = u.Username
	}
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: fullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

func adminSummarize(u *User) AdminUserSummary {
	s := summarize(u)
	return AdminUserSummary{
		ID:          s.ID,
		Username:    s.Username,
		FullName:    s.FullName,
		Email:       s.Email,
		Role:        s.Role,
		IsActive:    u.IsActive,
		LockedUntil: u.LockedUntil,
		CreatedAt:   u.CreatedAt,
	}
}
