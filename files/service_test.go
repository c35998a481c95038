package files

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/blob"
	"github.com/MrEthical07/goShare/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	files     map[int64]*File
	shares    map[int64]map[string]bool
	usernames map[string]string
	createErr error
}

func newMemRepo(users ...string) *memRepo {
	r := &memRepo{
		files:     map[int64]*File{},
		shares:    map[int64]map[string]bool{},
		usernames: map[string]string{},
	}
	for _, u := range users {
		r.usernames[u] = "id-" + u
	}
	return r
}

func (r *memRepo) nameOf(id string) string {
	for name, uid := range r.usernames {
		if uid == id {
			return name
		}
	}
	return ""
}

func (r *memRepo) CreateFile(_ context.Context, f *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Unix(1700000000+r.nextID, 0).UTC()
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *memRepo) FindActiveFile(_ context.Context, id int64) (*File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.Status != StatusActive {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memRepo) collect(keep func(*File) bool) []File {
	var out []File
	for _, f := range r.files {
		if f.Status == StatusActive && keep(f) {
			cp := *f
			cp.OwnerUsername = r.nameOf(f.OwnerID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memRepo) ListOwned(_ context.Context, ownerID string) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(f *File) bool { return f.OwnerID == ownerID }), nil
}

func (r *memRepo) ListSharedWith(_ context.Context, userID string) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(f *File) bool { return r.shares[f.ID][userID] }), nil
}

func (r *memRepo) ListAllActive(context.Context) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(*File) bool { return true }), nil
}

func (r *memRepo) MarkDeleted(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.Status != StatusActive {
		return false, nil
	}
	f.Status = StatusDeleted
	return true, nil
}

func (r *memRepo) HasShare(_ context.Context, fileID int64, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shares[fileID][userID], nil
}

func (r *memRepo) AddShares(_ context.Context, fileID int64, _ string, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shares[fileID] == nil {
		r.shares[fileID] = map[string]bool{}
	}
	for _, id := range userIDs {
		r.shares[fileID][id] = true
	}
	return nil
}

func (r *memRepo) RemoveShare(_ context.Context, fileID int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shares[fileID], userID)
	return nil
}

func (r *memRepo) ShareUsernames(_ context.Context, fileID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.shares[fileID] {
		out = append(out, r.nameOf(id))
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) ResolveUsernames(_ context.Context, names []string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for _, n := range names {
		if id, ok := r.usernames[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (r *memRepo) DeleteUser(_ context.Context, userID string) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.nameOf(userID)
	if name == "" {
		return nil, ErrUserNotFound
	}
	var out []File
	for id, f := range r.files {
		if f.OwnerID == userID {
			out = append(out, *f)
			delete(r.files, id)
			delete(r.shares, id)
		}
	}
	for _, granted := range r.shares {
		delete(granted, userID)
	}
	delete(r.usernames, name)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type sentEvent struct {
	payload any
	match   func(gateway.Peer) bool
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) Broadcast(payload any, match func(gateway.Peer) bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{payload: payload, match: match})
	return 1, nil
}

func (b *recordingBroadcaster) last(t *testing.T) sentEvent {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.events)
	return b.events[len(b.events)-1]
}

func identity(name string, role goShare.Role) *goShare.Identity {
	return &goShare.Identity{UserID: "id-" + name, Username: name, Role: role}
}

var (
	alice = identity("alice", goShare.RoleUser)
	bob   = identity("bob", goShare.RoleUser)
	carol = identity("carol", goShare.RoleUser)
	root  = identity("root", goShare.RoleAdmin)
)

type fixture struct {
	svc    *Service
	repo   *memRepo
	blobs  *blob.MemoryStore
	events *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newMemRepo("alice", "bob", "carol", "root"),
		blobs:  blob.NewMemoryStore(),
		events: &recordingBroadcaster{},
	}
	f.svc = NewService(Deps{
		Repo:   f.repo,
		Blobs:  f.blobs,
		Events: f.events,
		Now:    func() time.Time { return time.UnixMilli(1700000000123) },
	})
	return f
}

func (f *fixture) upload(t *testing.T, who *goShare.Identity, name, body string) *View {
	t.Helper()
	v, err := f.svc.Upload(context.Background(), who, name, strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	return v
}

func TestUploadStoresAndBroadcasts(t *testing.T) {
	f := newFixture(t)

	v := f.upload(t, alice, "report.pdf", "%PDF")
	assert.Equal(t, "report.pdf", v.OriginalName)
	assert.Equal(t, "application/pdf", v.MimeType)
	assert.Equal(t, int64(4), v.Size)
	assert.Equal(t, "alice", v.Owner)
	require.NotNil(t, v.IsMine)
	assert.True(t, *v.IsMine)
	assert.Equal(t, 1, f.blobs.Len())

	stored, err := f.repo.FindActiveFile(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.StorageKey, "id-alice/1700000000123-"), stored.StorageKey)
	assert.True(t, strings.HasSuffix(stored.StorageKey, ".pdf"), stored.StorageKey)

	ev := f.events.last(t)
	up, ok := ev.payload.(UploadedEvent)
	require.True(t, ok)
	assert.Equal(t, EventFileUploaded, up.Type)
	assert.Equal(t, "id-alice", up.UserID)
	assert.True(t, ev.match(gateway.Peer{UserID: "id-alice"}))
	assert.True(t, ev.match(gateway.Peer{UserID: "id-root", Role: goShare.RoleAdmin}))
	assert.False(t, ev.match(gateway.Peer{UserID: "id-bob"}))
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), alice, "", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrNoFile)
	_, err = f.svc.Upload(context.Background(), alice, "a.txt", nil, 0)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestUploadRemovesBlobWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), alice, "a.txt", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 0, f.blobs.Len())
	assert.Empty(t, f.events.events)
}

func TestUploadCleansName(t *testing.T) {
	f := newFixture(t)

	v := f.upload(t, alice, "<b>Tom & Jerry</b>.mp4", "x")
	assert.Equal(t, "Tom & Jerry.mp4", v.OriginalName)

	v = f.upload(t, alice, "../../etc/passwd", "x")
	assert.NotContains(t, v.OriginalName, "/")
}

func TestListOwnThenShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.upload(t, alice, "one.txt", "1")
	second := f.upload(t, alice, "two.txt", "2")
	fromBob := f.upload(t, bob, "bob.png", "b")

	_, err := f.svc.Share(ctx, bob, fromBob.ID, []string{"alice"})
	require.NoError(t, err)

	views, err := f.svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)
	assert.Equal(t, fromBob.ID, views[2].ID)
	assert.False(t, *views[2].IsMine)
	assert.Equal(t, "bob", views[2].Owner)
}

func TestOpenAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, alice, "notes.txt", "secret")

	for _, who := range []*goShare.Identity{alice, root} {
		c, err := f.svc.Open(ctx, who, v.ID)
		require.NoError(t, err, who.Username)
		body, _ := io.ReadAll(c.Body)
		_ = c.Body.Close()
		assert.Equal(t, "secret", string(body))
		assert.Equal(t, "text/plain", c.ContentType)
	}

	_, err := f.svc.Open(ctx, bob, v.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Share(ctx, alice, v.ID, []string{"bob"})
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, bob, v.ID)
	assert.NoError(t, err)

	_, err = f.svc.Open(ctx, alice, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, alice, "a.txt", "a")

	assert.ErrorIs(t, f.svc.Delete(ctx, bob, v.ID), ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, alice, v.ID))
	ev := f.events.last(t)
	del, ok := ev.payload.(DeletedEvent)
	require.True(t, ok)
	assert.Equal(t, DeletedEvent{Type: EventFileDeleted, ID: "1"}, del)
	assert.Nil(t, ev.match)

	assert.ErrorIs(t, f.svc.Delete(ctx, alice, v.ID), ErrNotFound)
	_, err := f.svc.Open(ctx, alice, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	views, err := f.svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestAdminListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.upload(t, alice, "a.txt", "a")
	f.upload(t, bob, "b.txt", "b")

	views, err := f.svc.AdminList(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "bob", views[0].Owner)
	assert.Nil(t, views[0].IsMine)

	require.NoError(t, f.svc.AdminDelete(ctx, root, a.ID))
	assert.ErrorIs(t, f.svc.AdminDelete(ctx, root, a.ID), ErrNotFound)

	views, err = f.svc.AdminList(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := f.upload(t, alice, "a.txt", "a")
	gone := f.upload(t, alice, "b.txt", "b")
	bobs := f.upload(t, bob, "c.txt", "c")
	require.NoError(t, f.svc.Delete(ctx, alice, gone.ID))
	_, err := f.svc.Share(ctx, bob, bobs.ID, []string{"alice"})
	require.NoError(t, err)
	before := len(f.events.events)

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, root, "id-root"), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, root, "id-ghost"), ErrUserNotFound)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, root, ""), ErrUserNotFound)

	require.NoError(t, f.svc.DeleteUser(ctx, root, "id-alice"))
	assert.Equal(t, 1, f.blobs.Len())
	require.Len(t, f.events.events, before+1)
	assert.Equal(t, DeletedEvent{Type: EventFileDeleted, ID: "1"}, f.events.last(t).payload)
	assert.Equal(t, kept.ID, int64(1))

	views, err := f.svc.AdminList(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "bob", views[0].Owner)

	names, err := f.svc.Shares(ctx, bob, bobs.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, root, "id-alice"), ErrUserNotFound)
}

func TestSharing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, alice, "a.txt", "a")

	res, err := f.svc.Share(ctx, alice, v.ID, []string{"bob", "ghost", "bob", "alice", "carol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, res.Shared)
	assert.Equal(t, []string{"ghost"}, res.NotFound)

	_, err = f.svc.Share(ctx, alice, v.ID, []string{"bob"})
	require.NoError(t, err)

	names, err := f.svc.Shares(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, names)

	_, err = f.svc.Shares(ctx, bob, v.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Share(ctx, bob, v.ID, []string{"carol"})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.Unshare(ctx, alice, v.ID, "bob"))
	names, err = f.svc.Shares(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names)

	assert.ErrorIs(t, f.svc.Unshare(ctx, alice, v.ID, ""), ErrUsernameRequired)
	assert.ErrorIs(t, f.svc.Unshare(ctx, alice, v.ID, "ghost"), ErrUserNotFound)
	assert.ErrorIs(t, f.svc.Unshare(ctx, bob, v.ID, "carol"), ErrForbidden)
}

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":   "image/jpeg",
		"movie.mkv":   "video/x-matroska",
		"deck.pptx":   "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"archive.7z":  "application/x-7z-compressed",
		"noext":       "application/octet-stream",
		"weird.xyz":   "application/octet-stream",
		"script.js":   "text/javascript",
		"a.tar.gz":    "application/octet-stream",
		"":            "application/octet-stream",
		"README.json": "application/json",
	}
	for name, want := range tests {
		assert.Equal(t, want, MimeType(name), name)
	}
}
