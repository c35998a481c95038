package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/files"
	"github.com/MrEthical07/goShare/internal/rate"
)

const maxJSONBody = 1 << 20

var errBadBody = errors.New("invalid request body")

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// statusOf maps an error from the engine, the file service or the limiter
// to its HTTP status and user facing message.
func statusOf(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, rate.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, please try again later"

	case errors.Is(err, files.ErrNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, files.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, files.ErrNoFile):
		return http.StatusBadRequest, "No file uploaded"
	case errors.Is(err, files.ErrUsernameRequired):
		return http.StatusBadRequest, "username required"
	case errors.Is(err, files.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, files.ErrInternal):
		return http.StatusInternalServerError, "Internal server error"
	}

	msg := goShare.Message(err)
	switch goShare.Kind(err) {
	case "validation":
		return http.StatusBadRequest, msg
	case "conflict":
		return http.StatusConflict, msg
	case "invalid_credentials", "unauthorized":
		return http.StatusUnauthorized, msg
	case "account_disabled", "account_locked":
		return http.StatusForbidden, msg
	case "not_found":
		return http.StatusNotFound, msg
	case "otp_invalid":
		return http.StatusBadRequest, msg
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeMessage(w, status, msg)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}
