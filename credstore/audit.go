package credstore

import (
	"context"
	"encoding/json"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/internal/logging"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditSink persists audit events to the audit_events table. Write
// failures are logged and the event is discarded.
type AuditSink struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewAuditSink(db *gorm.DB, logger logging.Logger) *AuditSink {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &AuditSink{db: db, logger: logger}
}

func (s *AuditSink) Emit(ctx context.Context, event goShare.AuditEvent) {
	rec := AuditRecord{
		Timestamp: event.Timestamp,
		EventType: event.EventType,
		UserID:    event.UserID,
		RequestID: event.RequestID,
		IP:        event.IP,
		Success:   event.Success,
		Error:     event.Error,
	}
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err == nil {
			rec.Metadata = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.logger.Warn(ctx, "audit write failed", "event_type", event.EventType, "error", err)
	}
}

// Recent returns up to limit events, newest first.
func (s *AuditSink) Recent(ctx context.Context, limit int) ([]AuditRecord, error) {
	var rows []AuditRecord
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
