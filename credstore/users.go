package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goShare "github.com/MrEthical07/goShare"
	"gorm.io/gorm"
)

// Store implements goShare.CredentialStore and files.Repository on one
// *gorm.DB.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) findUser(ctx context.Context, column, value string) (*goShare.User, error) {
	var m UserModel
	err := s.db.WithContext(ctx).Where(column+" = ?", value).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goShare.ErrUserNotFound
		}
		return nil, fmt.Errorf("credstore: find user by %s: %w", column, err)
	}
	return toUser(&m), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*goShare.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *Store) FindByID(ctx context.Context, id string) (*goShare.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*goShare.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *Store) Insert(ctx context.Context, user *goShare.User) error {
	m := fromUser(user)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return goShare.ErrDuplicateUser
		}
		return fmt.Errorf("credstore: insert user: %w", err)
	}
	user.CreatedAt = m.CreatedAt
	return nil
}

// Update applies the non-nil fields of update. An unknown id returns
// goShare.ErrUserNotFound.
func (s *Store) Update(ctx context.Context, id string, update goShare.UserUpdate) error {
	fields := map[string]any{}
	if update.PasswordHash != nil {
		fields["password_hash"] = *update.PasswordHash
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}
	if update.FailedLoginAttempts != nil {
		fields["failed_login_attempts"] = *update.FailedLoginAttempts
	}
	switch {
	case update.ClearLock:
		fields["locked_until"] = nil
	case update.LockedUntil != nil:
		fields["locked_until"] = *update.LockedUntil
	}

	if len(fields) == 0 {
		_, err := s.FindByID(ctx, id)
		return err
	}

	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("credstore: update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return goShare.ErrUserNotFound
	}
	return nil
}

// List returns every user, newest first.
func (s *Store) List(ctx context.Context) ([]goShare.User, error) {
	var rows []UserModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("credstore: list users: %w", err)
	}
	return toUsers(rows), nil
}

// SearchByUsername matches query as a case-insensitive substring of the
// username. LIKE wildcards in query are matched literally.
func (s *Store) SearchByUsername(ctx context.Context, query, excludeID string, limit int) ([]goShare.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	q := s.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern).
		Order("username")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []UserModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("credstore: search users: %w", err)
	}
	return toUsers(rows), nil
}

// SetRole changes the role of username.
func (s *Store) SetRole(ctx context.Context, username string, role goShare.Role) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("username = ?", username).Update("role", string(role))
	if res.Error != nil {
		return fmt.Errorf("credstore: set role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return goShare.ErrUserNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toUser(m *UserModel) *goShare.User {
	return &goShare.User{
		ID:                  m.ID,
		Username:            m.Username,
		FullName:            m.FullName,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Role:                goShare.Role(m.Role),
		IsActive:            m.IsActive,
		FailedLoginAttempts: m.FailedLoginAttempts,
		LockedUntil:         m.LockedUntil,
		CreatedAt:           m.CreatedAt,
	}
}

func toUsers(rows []UserModel) []goShare.User {
	out := make([]goShare.User, 0, len(rows))
	for i := range rows {
		out = append(out, *toUser(&rows[i]))
	}
	return out
}

func fromUser(u *goShare.User) *UserModel {
	role := string(u.Role)
	if role == "" {
		role = string(goShare.RoleUser)
	}
	return &UserModel{
		ID:                  u.ID,
		Username:            u.Username,
		FullName:            u.FullName,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Role:                role,
		IsActive:            u.IsActive,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		CreatedAt:           u.CreatedAt,
	}
}
