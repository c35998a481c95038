package files

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/blob"
	"github.com/MrEthical07/goShare/gateway"
	"github.com/MrEthical07/goShare/internal/logging"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.StrictPolicy()

// Deps bundles the collaborators of a Service.
type Deps struct {
	Repo   Repository
	Blobs  blob.Store
	Events Broadcaster
	Logger logging.Logger
	Now    func() time.Time
}

// Service implements the file operations for an authenticated caller.
type Service struct {
	repo   Repository
	blobs  blob.Store
	events Broadcaster
	logger logging.Logger
	now    func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:   d.Repo,
		blobs:  d.Blobs,
		events: d.Events,
		logger: d.Logger,
		now:    d.Now,
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

/*
====================================
UPLOAD / LIST
====================================
*/

// Upload stores r under a fresh key and records it for caller. The owner
// and every admin are told through a file_uploaded event.
func (s *Service) Upload(ctx context.Context, caller *goShare.Identity, name string, r io.Reader, size int64) (*View, error) {
	if r == nil || strings.TrimSpace(name) == "" {
		return nil, ErrNoFile
	}
	name = cleanName(name)
	if name == "" {
		return nil, ErrNoFile
	}

	key := fmt.Sprintf("%s/%d-%s%s", caller.UserID, s.now().UnixMilli(), uuid.NewString()[:8], path.Ext(name))
	mime := MimeType(name)
	if err := s.blobs.Put(ctx, key, mime, r, size); err != nil {
		return nil, s.internal(ctx, "upload: store blob", err)
	}

	f := &File{
		OwnerID:       caller.UserID,
		OwnerUsername: caller.Username,
		Name:          name,
		StorageKey:    key,
		Size:          size,
		Status:        StatusActive,
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn(ctx, "orphaned blob", "key", key, "error", derr)
		}
		return nil, s.internal(ctx, "upload: record file", err)
	}

	view := s.view(f, caller.Username, true)
	s.publish(ctx, UploadedEvent{Type: EventFileUploaded, File: view, UserID: caller.UserID}, func(p gateway.Peer) bool {
		return p.IsAdmin() || p.UserID == caller.UserID
	})
	s.logger.Info(ctx, "file uploaded", "user_id", caller.UserID, "file_id", f.ID, "size", size)
	return &view, nil
}

// List returns the caller's active files, newest first, followed by the
// active files shared with the caller.
func (s *Service) List(ctx context.Context, caller *goShare.Identity) ([]View, error) {
	own, err := s.repo.ListOwned(ctx, caller.UserID)
	if err != nil {
		return nil, s.internal(ctx, "list: owned", err)
	}
	shared, err := s.repo.ListSharedWith(ctx, caller.UserID)
	if err != nil {
		return nil, s.internal(ctx, "list: shared", err)
	}

	out := make([]View, 0, len(own)+len(shared))
	for i := range own {
		out = append(out, s.view(&own[i], caller.Username, true))
	}
	for i := range shared {
		owner := shared[i].OwnerUsername
		if owner == "" {
			owner = "?"
		}
		out = append(out, s.view(&shared[i], owner, false))
	}
	return out, nil
}

// AdminList returns every active file with its owner, newest first.
func (s *Service) AdminList(ctx context.Context) ([]View, error) {
	all, err := s.repo.ListAllActive(ctx)
	if err != nil {
		return nil, s.internal(ctx, "admin list", err)
	}
	out := make([]View, 0, len(all))
	for i := range all {
		owner := all[i].OwnerUsername
		if owner == "" {
			owner = "anonymous"
		}
		v := s.view(&all[i], owner, false)
		v.IsMine = nil
		out = append(out, v)
	}
	return out, nil
}

/*
====================================
OPEN / DELETE
====================================
*/

// Open returns the body of an active file. The owner, admins and users the
// file is shared with may open it.
func (s *Service) Open(ctx context.Context, caller *goShare.Identity, id int64) (*Content, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != caller.UserID && !canAdminister(caller) {
		ok, err := s.repo.HasShare(ctx, id, caller.UserID)
		if err != nil {
			return nil, s.internal(ctx, "open: check share", err)
		}
		if !ok {
			return nil, ErrForbidden
		}
	}

	body, contentType, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		return nil, s.internal(ctx, "open: fetch blob", err)
	}
	if contentType == "" {
		contentType = MimeType(f.Name)
	}
	return &Content{File: f, ContentType: contentType, Body: body}, nil
}

// Delete soft deletes an active file owned by caller, or any active file
// when caller is an admin, and broadcasts file_deleted to everyone.
func (s *Service) Delete(ctx context.Context, caller *goShare.Identity, id int64) error {
	f, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if f.OwnerID != caller.UserID && !canAdminister(caller) {
		return ErrForbidden
	}
	return s.markDeleted(ctx, caller, id)
}

// AdminDelete soft deletes any active file.
func (s *Service) AdminDelete(ctx context.Context, caller *goShare.Identity, id int64) error {
	return s.markDeleted(ctx, caller, id)
}

func (s *Service) markDeleted(ctx context.Context, caller *goShare.Identity, id int64) error {
	changed, err := s.repo.MarkDeleted(ctx, id)
	if err != nil {
		return s.internal(ctx, "delete", err)
	}
	if !changed {
		return ErrNotFound
	}
	s.publish(ctx, DeletedEvent{Type: EventFileDeleted, ID: strconv.FormatInt(id, 10)}, nil)
	s.logger.Info(ctx, "file deleted", "user_id", caller.UserID, "file_id", id)
	return nil
}

// DeleteUser hard deletes an account and everything it owns. Stored blobs
// are removed afterwards and every connection is told about each file that
// was still active. An admin cannot delete their own account.
func (s *Service) DeleteUser(ctx context.Context, caller *goShare.Identity, userID string) error {
	if userID == "" {
		return ErrUserNotFound
	}
	if caller == nil || caller.UserID == userID {
		return ErrForbidden
	}

	removed, err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return s.internal(ctx, "delete user", err)
	}

	for i := range removed {
		f := &removed[i]
		if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
			s.logger.Warn(ctx, "orphaned blob", "key", f.StorageKey, "error", err)
		}
		if f.Status == StatusActive {
			s.publish(ctx, DeletedEvent{Type: EventFileDeleted, ID: strconv.FormatInt(f.ID, 10)}, nil)
		}
	}
	s.logger.Info(ctx, "user deleted", "user_id", caller.UserID, "deleted_user_id", userID, "files", len(removed))
	return nil
}

/*
====================================
SHARING
====================================
*/

// Shares lists the usernames a file is shared with. Owner only.
func (s *Service) Shares(ctx context.Context, caller *goShare.Identity, id int64) ([]string, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	names, err := s.repo.ShareUsernames(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "shares", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Share grants access to each existing username. Unknown names are
// reported back; the owner's own name is skipped. Repeated shares are
// no-ops.
func (s *Service) Share(ctx context.Context, caller *goShare.Identity, id int64, usernames []string) (*ShareResult, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}

	wanted := dedupe(usernames)
	res := &ShareResult{Shared: []string{}, NotFound: []string{}}
	if len(wanted) == 0 {
		return res, nil
	}

	found, err := s.repo.ResolveUsernames(ctx, wanted)
	if err != nil {
		return nil, s.internal(ctx, "share: resolve usernames", err)
	}

	var ids []string
	for _, name := range wanted {
		uid, ok := found[name]
		if !ok {
			res.NotFound = append(res.NotFound, name)
			continue
		}
		if uid == caller.UserID {
			continue
		}
		ids = append(ids, uid)
		res.Shared = append(res.Shared, name)
	}

	if len(ids) > 0 {
		if err := s.repo.AddShares(ctx, id, caller.UserID, ids); err != nil {
			return nil, s.internal(ctx, "share: add", err)
		}
	}
	s.logger.Info(ctx, "file shared", "user_id", caller.UserID, "file_id", id, "shared", len(ids), "not_found", len(res.NotFound))
	return res, nil
}

// Unshare revokes access of one username. Owner only.
func (s *Service) Unshare(ctx context.Context, caller *goShare.Identity, id int64, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}

	found, err := s.repo.ResolveUsernames(ctx, []string{username})
	if err != nil {
		return s.internal(ctx, "unshare: resolve username", err)
	}
	uid, ok := found[username]
	if !ok {
		return ErrUserNotFound
	}
	if err := s.repo.RemoveShare(ctx, id, uid); err != nil {
		return s.internal(ctx, "unshare", err)
	}
	return nil
}

/*
====================================
HELPERS
====================================
*/

func (s *Service) find(ctx context.Context, id int64) (*File, error) {
	f, err := s.repo.FindActiveFile(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.internal(ctx, "find file", err)
	}
	return f, nil
}

// owned loads an active file and requires caller to own it. Missing files
// are reported as forbidden so ids of other users' files are not probed.
func (s *Service) owned(ctx context.Context, caller *goShare.Identity, id int64) (*File, error) {
	f, err := s.find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if f.OwnerID != caller.UserID {
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *Service) view(f *File, owner string, mine bool) View {
	var created *time.Time
	if !f.CreatedAt.IsZero() {
		t := f.CreatedAt
		created = &t
	}
	return View{
		ID:           f.ID,
		OriginalName: f.Name,
		MimeType:     MimeType(f.Name),
		Size:         f.Size,
		CreatedAt:    created,
		FileURL:      "/api/user/files/" + strconv.FormatInt(f.ID, 10) + "/preview",
		IsMine:       &mine,
		Owner:        owner,
	}
}

func (s *Service) publish(ctx context.Context, payload any, match func(gateway.Peer) bool) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Broadcast(payload, match); err != nil {
		s.logger.Warn(ctx, "event broadcast failed", "error", err)
	}
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "file operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// cleanName strips markup, path components and control characters from a
// client supplied file name.
func cleanName(name string) string {
	name = html.UnescapeString(namePolicy.Sanitize(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '<' || r == '>' || r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
