package httpapi

import (
	"net/http"

	"github.com/MrEthical07/goShare/middleware"
)

func (a *api) adminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *api) adminToggle(w http.ResponseWriter, r *http.Request) {
	active, err := a.auth.ToggleActive(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	msg := "User disabled"
	if active {
		msg = "User enabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "is_active": active})
}

func (a *api) adminUnlock(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Unlock(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User unlocked")
}

func (a *api) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	if err := a.files.DeleteUser(r.Context(), caller, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted")
}

func (a *api) adminFiles(w http.ResponseWriter, r *http.Request) {
	views, err := a.files.AdminList(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": views})
}

func (a *api) adminDeleteFile(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.files.AdminDelete(r.Context(), caller, id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "File deleted successfully")
}
