package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the purpose a token was minted for.
type Kind string

const (
	// KindAccess marks short-lived API credentials.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived credentials exchanged for a new pair.
	KindRefresh Kind = "refresh"
	// KindReset marks password-reset credentials produced after OTP verification.
	KindReset Kind = "reset"
)

// ErrInvalidOrExpired is returned for every verification failure. Signature,
// expiry, kind and shape failures are deliberately not distinguished.
var ErrInvalidOrExpired = errors.New("token invalid or expired")

// Config defines a public type used by goShare APIs.
//
// AccessSecret signs access and reset tokens; RefreshSecret signs refresh
// tokens. The kind claim keeps reset tokens from being accepted as access
// tokens even though they share a key.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Manager defines a public type used by goShare APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// Claims is the claim set carried by every token kind. Access and refresh
// tokens fill UID, Username and Role; reset tokens fill Email.
type Claims struct {
	UID      string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Subject is the identity embedded in access and refresh tokens.
type Subject struct {
	UserID   string
	Username string
	Role     string
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the lifetime configured for kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return m.config.AccessTTL
	case KindRefresh:
		return m.config.RefreshTTL
	case KindReset:
		return m.config.ResetTTL
	default:
		return 0
	}
}

// IssueAccess mints an access token for sub.
func (m *Manager) IssueAccess(sub Subject) (string, error) {
	return m.Issue(KindAccess, Claims{UID: sub.UserID, Username: sub.Username, Role: sub.Role})
}

// IssueRefresh mints a refresh token for sub and returns its expiry.
func (m *Manager) IssueRefresh(sub Subject) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.config.RefreshTTL)
	token, err := m.issueAt(KindRefresh, Claims{UID: sub.UserID, Username: sub.Username, Role: sub.Role}, expiresAt)
	return token, expiresAt, err
}

// IssueReset mints a reset token bound to email.
func (m *Manager) IssueReset(email string) (string, error) {
	return m.Issue(KindReset, Claims{Email: email})
}

// Issue describes the issue operation and its observable behavior.
//
// Issue stamps kind, a random jti, iat and exp over claims and signs with the key for kind.
func (m *Manager) Issue(kind Kind, claims Claims) (string, error) {
	ttl := m.TTL(kind)
	if ttl <= 0 {
		return "", fmt.Errorf("unsupported token kind %q", kind)
	}
	return m.issueAt(kind, claims, time.Now().Add(ttl))
}

func (m *Manager) issueAt(kind Kind, claims Claims, expiresAt time.Time) (string, error) {
	key, err := m.key(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims.Kind = kind
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    m.config.Issuer,
	}
	if claims.UID != "" {
		claims.Subject = claims.UID
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Verify describes the verify operation and its observable behavior.
//
// Verify checks signature, expiry and kind in one step. Every failure wraps
// ErrInvalidOrExpired; the wrapped detail is for server-side logs only.
func (m *Manager) Verify(kind Kind, tokenStr string) (*Claims, error) {
	key, err := m.key(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidOrExpired
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: kind %q presented as %q", ErrInvalidOrExpired, claims.Kind, kind)
	}
	switch kind {
	case KindAccess, KindRefresh:
		if claims.UID == "" {
			return nil, fmt.Errorf("%w: missing subject", ErrInvalidOrExpired)
		}
	case KindReset:
		if claims.Email == "" {
			return nil, fmt.Errorf("%w: missing email", ErrInvalidOrExpired)
		}
	}

	return claims, nil
}

func (m *Manager) key(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess, KindReset:
		return m.config.AccessSecret, nil
	case KindRefresh:
		return m.config.RefreshSecret, nil
	default:
		return nil, fmt.Errorf("unsupported token kind %q", kind)
	}
}
