package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/goShare/files"
	"github.com/MrEthical07/goShare/middleware"
)

const multipartMemory = 8 << 20

type shareRequest struct {
	Usernames []string `json:"usernames"`
}

type unshareRequest struct {
	Username string `json:"username"`
}

// fileID parses the {id} path segment. Anything that is not a positive
// integer cannot name a file.
func fileID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, files.ErrNotFound
	}
	return id, nil
}

func (a *api) listFiles(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	views, err := a.files.List(r.Context(), caller)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": views})
}

func (a *api) upload(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			a.fail(w, r, &http.MaxBytesError{Limit: a.maxUpload})
			return
		}
		a.fail(w, r, files.ErrNoFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile("file")
	if err != nil {
		a.fail(w, r, files.ErrNoFile)
		return
	}
	defer part.Close()

	view, err := a.files.Upload(r.Context(), caller, header.Filename, part, header.Size)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File uploaded successfully",
		"file":    view,
	})
}

func (a *api) download(w http.ResponseWriter, r *http.Request) {
	a.serveContent(w, r, "attachment")
}

func (a *api) preview(w http.ResponseWriter, r *http.Request) {
	a.serveContent(w, r, "inline")
}

func (a *api) serveContent(w http.ResponseWriter, r *http.Request, disposition string) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	content, err := a.files.Open(r.Context(), caller, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer content.Body.Close()

	h := w.Header()
	h.Set("Content-Type", content.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": content.File.Name}))
	h.Set("X-Content-Type-Options", "nosniff")
	if disposition == "inline" {
		h.Set("Content-Security-Policy", "sandbox")
	}
	if content.File.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(content.File.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Body); err != nil {
		a.logger.Warn(r.Context(), "file stream interrupted", "file_id", id, "error", err)
	}
}

func (a *api) deleteFile(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.files.Delete(r.Context(), caller, id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "File deleted successfully")
}

func (a *api) shares(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	names, err := a.files.Shares(r.Context(), caller, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	type share struct {
		Username string `json:"username"`
	}
	out := make([]share, 0, len(names))
	for _, n := range names {
		out = append(out, share{Username: n})
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": out})
}

func (a *api) share(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req shareRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.files.Share(r.Context(), caller, id, req.Usernames)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) unshare(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFromContext(r.Context())
	id, err := fileID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req unshareRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.files.Unshare(r.Context(), caller, id, req.Username); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Unshared")
}
