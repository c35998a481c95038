package httpapi

import (
	"net/http"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/middleware"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	err := a.auth.Register(r.Context(), goShare.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Registration successful. You can now log in.")
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// logout always succeeds so a stale client can clear its state.
func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decode(r, &req)
	a.auth.Logout(r.Context(), req.RefreshToken)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (a *api) requestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	msg, err := a.auth.RequestReset(r.Context(), req.Email)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

func (a *api) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	token, err := a.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

func (a *api) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": id})
}

func (a *api) searchUsers(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	users, err := a.auth.SearchUsers(r.Context(), r.URL.Query().Get("q"), id.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	type match struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	out := make([]match, 0, len(users))
	for _, u := range users {
		out = append(out, match{ID: u.ID, Username: u.Username})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}
