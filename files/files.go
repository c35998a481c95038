// Package files implements the private file store: upload, listing,
// download and preview with owner/share/admin access checks, soft delete,
// and per-user sharing. Every change is pushed to connected clients through
// the event gateway.
package files

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/gateway"
)

// Status is the lifecycle state of a stored file.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

var (
	ErrNotFound         = errors.New("file not found")
	ErrForbidden        = errors.New("access denied")
	ErrNoFile           = errors.New("no file uploaded")
	ErrUsernameRequired = errors.New("username required")
	ErrUserNotFound     = errors.New("user not found")
	ErrInternal         = errors.New("internal error")
)

// File is the stored metadata of one upload.
type File struct {
	ID            int64
	OwnerID       string
	OwnerUsername string
	Name          string
	StorageKey    string
	Size          int64
	Status        Status
	CreatedAt     time.Time
}

// View is the JSON projection returned to clients. IsMine is omitted on
// the admin listing.
type View struct {
	ID           int64      `json:"id"`
	OriginalName string     `json:"original_name"`
	MimeType     string     `json:"mimetype"`
	Size         int64      `json:"size"`
	CreatedAt    *time.Time `json:"created_at"`
	FileURL      string     `json:"file_url"`
	IsMine       *bool      `json:"is_mine,omitempty"`
	Owner        string     `json:"owner"`
}

// ShareResult reports which requested usernames received access.
type ShareResult struct {
	Shared   []string `json:"shared"`
	NotFound []string `json:"notFound"`
}

// Content is an open file body returned by Open.
type Content struct {
	File        *File
	ContentType string
	Body        io.ReadCloser
}

// Repository is the metadata store. Lookups that find no active row
// return ErrNotFound.
type Repository interface {
	CreateFile(ctx context.Context, f *File) error
	FindActiveFile(ctx context.Context, id int64) (*File, error)
	ListOwned(ctx context.Context, ownerID string) ([]File, error)
	ListSharedWith(ctx context.Context, userID string) ([]File, error)
	ListAllActive(ctx context.Context) ([]File, error)
	// MarkDeleted reports whether an active row was changed.
	MarkDeleted(ctx context.Context, id int64) (bool, error)

	HasShare(ctx context.Context, fileID int64, userID string) (bool, error)
	AddShares(ctx context.Context, fileID int64, ownerID string, userIDs []string) error
	RemoveShare(ctx context.Context, fileID int64, userID string) error
	ShareUsernames(ctx context.Context, fileID int64) ([]string, error)

	// ResolveUsernames maps each existing username to its user id.
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error)

	// DeleteUser removes the user together with every file row they own,
	// deleted ones included, and every share touching them. It returns the
	// removed files, or ErrUserNotFound for an unknown id.
	DeleteUser(ctx context.Context, userID string) ([]File, error)
}

// Broadcaster delivers a payload to the connections matching a predicate.
// *gateway.Gateway satisfies it.
type Broadcaster interface {
	Broadcast(payload any, match func(gateway.Peer) bool) (int, error)
}

// Event types pushed to clients.
const (
	EventFileUploaded = "file_uploaded"
	EventFileDeleted  = "file_deleted"
)

// UploadedEvent is sent to the owner and to every admin.
type UploadedEvent struct {
	Type   string `json:"type"`
	File   View   `json:"file"`
	UserID string `json:"userId"`
}

// DeletedEvent is sent to every connection.
type DeletedEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

var mimeByExt = map[string]string{
	"jpg": "image/jpeg", "jpeg": "image/jpeg", "png": "image/png",
	"gif": "image/gif", "webp": "image/webp", "svg": "image/svg+xml",
	"bmp": "image/bmp", "ico": "image/x-icon",

	"mp4": "video/mp4", "webm": "video/webm", "ogg": "video/ogg",
	"mov": "video/quicktime", "avi": "video/x-msvideo", "mkv": "video/x-matroska",

	"mp3": "audio/mpeg", "wav": "audio/wav", "flac": "audio/flac", "aac": "audio/aac",

	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	"zip": "application/zip", "rar": "application/x-rar-compressed",
	"7z": "application/x-7z-compressed", "tar": "application/x-tar",

	"txt": "text/plain", "csv": "text/csv", "json": "application/json",
	"xml": "application/xml", "html": "text/html", "css": "text/css",
	"js": "text/javascript",
}

// MimeType derives the content type from the file extension, defaulting to
// application/octet-stream.
func MimeType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return "application/octet-stream"
	}
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

func canAdminister(caller *goShare.Identity) bool {
	return caller != nil && caller.IsAdmin()
}
