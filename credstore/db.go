// Package credstore is the relational persistence layer of goShare on GORM:
// users, file metadata, shares and the audit trail. It implements
// goShare.CredentialStore, files.Repository and goShare.AuditSink.
package credstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Open connects to dsn. A DSN starting with "sqlite:" opens the embedded
// SQLite driver on the remainder ("sqlite::memory:" for a throwaway
// database); anything else is handed to the PostgreSQL driver.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("credstore: open: %w", err)
	}

	if strings.HasPrefix(dsn, sqlitePrefix) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("credstore: open: %w", err)
		}
		// each SQLite connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table the store uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&UserModel{},
		&FileModel{},
		&FileShareModel{},
		&AuditRecord{},
	); err != nil {
		return fmt.Errorf("credstore: migrate: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
