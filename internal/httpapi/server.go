// Package httpapi exposes the goShare operations as a JSON HTTP API.
//
// Errors are always {"message": "..."} with the status derived from the
// error class. Routes under /api/auth are rate limited per client IP.
package httpapi

import (
	"context"
	"net/http"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/files"
	"github.com/MrEthical07/goShare/internal/logging"
	"github.com/MrEthical07/goShare/internal/rate"
	"github.com/MrEthical07/goShare/middleware"
)

// Auth is the session engine surface the API calls. *goShare.Engine
// satisfies it.
type Auth interface {
	middleware.Authenticator

	Register(ctx context.Context, in goShare.RegisterInput) error
	Login(ctx context.Context, username, password string) (*goShare.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*goShare.LoginResult, error)
	Logout(ctx context.Context, refreshToken string)
	RequestReset(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error

	ListUsers(ctx context.Context) ([]goShare.AdminUserSummary, error)
	ToggleActive(ctx context.Context, userID string) (bool, error)
	Unlock(ctx context.Context, userID string) error
	SearchUsers(ctx context.Context, query, excludeID string) ([]goShare.UserSummary, error)
}

// Deps bundles what the API serves. Gateway and Metrics are optional.
type Deps struct {
	Auth           Auth
	Files          *files.Service
	Gateway        http.Handler
	Metrics        http.Handler
	Limiter        *rate.Limiter
	Logger         logging.Logger
	MaxUploadBytes int64
}

type api struct {
	auth      Auth
	files     *files.Service
	limiter   *rate.Limiter
	logger    logging.Logger
	maxUpload int64
}

const defaultMaxUpload = 50 << 20

// NewHandler builds the routed handler with request logging and panic
// recovery around every route.
func NewHandler(d Deps) http.Handler {
	a := &api{
		auth:      d.Auth,
		files:     d.Files,
		limiter:   d.Limiter,
		logger:    d.Logger,
		maxUpload: d.MaxUploadBytes,
	}
	if a.logger == nil {
		a.logger = logging.Nop{}
	}
	if a.maxUpload <= 0 {
		a.maxUpload = defaultMaxUpload
	}

	requireAuth := middleware.RequireAuth(d.Auth)
	user := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return requireAuth(middleware.RequireAdmin(h)) }

	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/register", a.limited("register", a.register))
	mux.Handle("POST /api/auth/login", a.limited("login", a.login))
	mux.Handle("POST /api/auth/refresh", a.limited("refresh", a.refresh))
	mux.HandleFunc("POST /api/auth/logout", a.logout)
	mux.Handle("POST /api/auth/check-username", a.limited("reset", a.requestReset))
	mux.Handle("POST /api/auth/verify-otp", a.limited("otp", a.verifyOTP))
	mux.Handle("POST /api/auth/reset-password", a.limited("reset_confirm", a.resetPassword))

	mux.Handle("GET /api/user/me", user(a.me))
	mux.Handle("GET /api/user/files", user(a.listFiles))
	mux.Handle("POST /api/user/files/upload", user(a.upload))
	mux.Handle("GET /api/user/files/{id}/download", user(a.download))
	mux.Handle("GET /api/user/files/{id}/preview", user(a.preview))
	mux.Handle("DELETE /api/user/files/{id}", user(a.deleteFile))
	mux.Handle("GET /api/user/files/{id}/shares", user(a.shares))
	mux.Handle("POST /api/user/files/{id}/share", user(a.share))
	mux.Handle("POST /api/user/files/{id}/unshare", user(a.unshare))
	mux.Handle("GET /api/user/users", user(a.searchUsers))

	mux.Handle("GET /api/admin/users", admin(a.adminUsers))
	mux.Handle("PATCH /api/admin/users/{id}/toggle", admin(a.adminToggle))
	mux.Handle("PATCH /api/admin/users/{id}/unlock", admin(a.adminUnlock))
	mux.Handle("DELETE /api/admin/users/{id}", admin(a.adminDeleteUser))
	mux.Handle("GET /api/admin/files", admin(a.adminFiles))
	mux.Handle("GET /api/admin/files/{id}/download", admin(a.download))
	mux.Handle("GET /api/admin/files/{id}/preview", admin(a.preview))
	mux.Handle("DELETE /api/admin/files/{id}", admin(a.adminDeleteFile))

	if d.Gateway != nil {
		mux.Handle("GET /ws", d.Gateway)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return a.recoverer(a.requestContext(mux))
}
