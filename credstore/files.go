package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goShare/files"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fileRow struct {
	ID            int64
	UserID        string
	Filename      string
	StorageKey    string
	FileSize      int64
	Status        string
	UploadedAt    time.Time
	OwnerUsername string
}

func (r *fileRow) toFile() files.File {
	return files.File{
		ID:            r.ID,
		OwnerID:       r.UserID,
		OwnerUsername: r.OwnerUsername,
		Name:          r.Filename,
		StorageKey:    r.StorageKey,
		Size:          r.FileSize,
		Status:        files.Status(r.Status),
		CreatedAt:     r.UploadedAt,
	}
}

// activeFiles selects active files with their owner's username, newest
// first.
func (s *Store) activeFiles(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("files").
		Select("files.id, files.user_id, files.filename, files.storage_key, files.file_size, files.status, files.uploaded_at, users.username AS owner_username").
		Joins("LEFT JOIN users ON users.id = files.user_id").
		Where("files.status = ?", string(files.StatusActive)).
		Order("files.id DESC")
}

func scanFiles(q *gorm.DB, op string) ([]files.File, error) {
	var rows []fileRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("credstore: %s: %w", op, err)
	}
	out := make([]files.File, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toFile())
	}
	return out, nil
}

func (s *Store) CreateFile(ctx context.Context, f *files.File) error {
	status := f.Status
	if status == "" {
		status = files.StatusActive
	}
	m := FileModel{
		UserID:     f.OwnerID,
		Filename:   f.Name,
		StorageKey: f.StorageKey,
		FileSize:   f.Size,
		Status:     string(status),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("credstore: create file: %w", err)
	}
	f.ID = m.ID
	f.Status = status
	f.CreatedAt = m.UploadedAt
	return nil
}

func (s *Store) FindActiveFile(ctx context.Context, id int64) (*files.File, error) {
	var m FileModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(files.StatusActive)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, files.ErrNotFound
		}
		return nil, fmt.Errorf("credstore: find file: %w", err)
	}
	row := fileRow{
		ID:         m.ID,
		UserID:     m.UserID,
		Filename:   m.Filename,
		StorageKey: m.StorageKey,
		FileSize:   m.FileSize,
		Status:     m.Status,
		UploadedAt: m.UploadedAt,
	}
	f := row.toFile()
	return &f, nil
}

func (s *Store) ListOwned(ctx context.Context, ownerID string) ([]files.File, error) {
	return scanFiles(s.activeFiles(ctx).Where("files.user_id = ?", ownerID), "list owned files")
}

func (s *Store) ListSharedWith(ctx context.Context, userID string) ([]files.File, error) {
	q := s.activeFiles(ctx).
		Joins("JOIN file_shares ON file_shares.file_id = files.id").
		Where("file_shares.shared_with_id = ?", userID)
	return scanFiles(q, "list shared files")
}

func (s *Store) ListAllActive(ctx context.Context) ([]files.File, error) {
	return scanFiles(s.activeFiles(ctx), "list files")
}

func (s *Store) MarkDeleted(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&FileModel{}).
		Where("id = ? AND status = ?", id, string(files.StatusActive)).
		Update("status", string(files.StatusDeleted))
	if res.Error != nil {
		return false, fmt.Errorf("credstore: mark deleted: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

/*
====================================
SHARES
====================================
*/

func (s *Store) HasShare(ctx context.Context, fileID int64, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&FileShareModel{}).
		Where("file_id = ? AND shared_with_id = ?", fileID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("credstore: check share: %w", err)
	}
	return n > 0, nil
}

// AddShares inserts one row per user. Existing pairs are left untouched.
func (s *Store) AddShares(ctx context.Context, fileID int64, ownerID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]FileShareModel, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, FileShareModel{FileID: fileID, OwnerID: ownerID, SharedWithID: uid})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}, {Name: "shared_with_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("credstore: add shares: %w", err)
	}
	return nil
}

func (s *Store) RemoveShare(ctx context.Context, fileID int64, userID string) error {
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND shared_with_id = ?", fileID, userID).
		Delete(&FileShareModel{}).Error
	if err != nil {
		return fmt.Errorf("credstore: remove share: %w", err)
	}
	return nil
}

// ShareUsernames lists the usernames a file is shared with, sorted.
func (s *Store) ShareUsernames(ctx context.Context, fileID int64) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Table("file_shares").
		Joins("JOIN users ON users.id = file_shares.shared_with_id").
		Where("file_shares.file_id = ?", fileID).
		Order("users.username").
		Pluck("users.username", &names).Error
	if err != nil {
		return nil, fmt.Errorf("credstore: list shares: %w", err)
	}
	return names, nil
}

func (s *Store) ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	out := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return out, nil
	}
	var rows []UserModel
	err := s.db.WithContext(ctx).
		Select("id", "username").
		Where("username IN ?", usernames).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("credstore: resolve usernames: %w", err)
	}
	for _, r := range rows {
		out[r.Username] = r.ID
	}
	return out, nil
}

/*
====================================
ACCOUNT REMOVAL
====================================
*/

// DeleteUser hard deletes userID with their files and every share row that
// references them, in one transaction.
func (s *Store) DeleteUser(ctx context.Context, userID string) ([]files.File, error) {
	var removed []files.File
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user UserModel
		if err := tx.Select("id").Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return files.ErrUserNotFound
			}
			return err
		}

		var owned []FileModel
		if err := tx.Where("user_id = ?", userID).Order("id").Find(&owned).Error; err != nil {
			return err
		}
		ids := make([]int64, 0, len(owned))
		for i := range owned {
			ids = append(ids, owned[i].ID)
		}

		if len(ids) > 0 {
			if err := tx.Where("file_id IN ?", ids).Delete(&FileShareModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("shared_with_id = ? OR owner_id = ?", userID, userID).Delete(&FileShareModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&FileModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", userID).Delete(&UserModel{}).Error; err != nil {
			return err
		}

		removed = make([]files.File, 0, len(owned))
		for i := range owned {
			m := &owned[i]
			row := fileRow{
				ID:         m.ID,
				UserID:     m.UserID,
				Filename:   m.Filename,
				StorageKey: m.StorageKey,
				FileSize:   m.FileSize,
				Status:     m.Status,
				UploadedAt: m.UploadedAt,
			}
			removed = append(removed, row.toFile())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, files.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("credstore: delete user: %w", err)
	}
	return removed, nil
}
