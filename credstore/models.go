package credstore

import (
	"time"

	"gorm.io/datatypes"
)

// UserModel is the users table.
type UserModel struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	Username            string     `gorm:"size:100;uniqueIndex;not null"`
	FullName            string     `gorm:"size:200"`
	Email               string     `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash        string     `gorm:"size:255;not null"`
	Role                string     `gorm:"size:20;not null"`
	IsActive            bool       `gorm:"not null"`
	FailedLoginAttempts int        `gorm:"not null"`
	LockedUntil         *time.Time
	CreatedAt           time.Time  `gorm:"index"`
	UpdatedAt           time.Time
}

func (UserModel) TableName() string { return "users" }

// FileModel is the files table. Rows are never removed; deletion sets
// Status to "deleted".
type FileModel struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	UserID     string     `gorm:"size:36;index;not null"`
	Owner      *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Filename   string     `gorm:"size:500;not null"`
	StorageKey string     `gorm:"size:500;not null"`
	FileSize   int64      `gorm:"not null"`
	Status     string     `gorm:"size:20;index;not null"`
	UploadedAt time.Time  `gorm:"autoCreateTime"`
}

func (FileModel) TableName() string { return "files" }

// FileShareModel grants SharedWithID read access to FileID. A pair is
// stored at most once.
type FileShareModel struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	FileID       int64      `gorm:"not null;uniqueIndex:idx_file_shares_pair"`
	File         *FileModel `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
	OwnerID      string     `gorm:"size:36;not null"`
	SharedWithID string     `gorm:"size:36;not null;uniqueIndex:idx_file_shares_pair;index"`
	SharedWith   *UserModel `gorm:"foreignKey:SharedWithID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
}

func (FileShareModel) TableName() string { return "file_shares" }

// AuditRecord is one persisted audit event.
type AuditRecord struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time      `gorm:"index;not null"`
	EventType string         `gorm:"size:64;index;not null"`
	UserID    string         `gorm:"size:36;index"`
	RequestID string         `gorm:"size:64"`
	IP        string         `gorm:"size:64"`
	Success   bool           `gorm:"not null"`
	Error     string         `gorm:"size:64"`
	Metadata  datatypes.JSON
}

func (AuditRecord) TableName() string { return "audit_events" }
