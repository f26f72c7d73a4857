package audit

import (
	"encoding/json"
	"fmt"
	"log"

	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uuid.UUID
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
	IPAddress   string
}

// Write stores an audit entry through db. Pass the surrounding transaction when the
// entry must commit or roll back together with the change it describes.
func Write(db *gorm.DB, opts LogOptions) error {
	// jsonb columns need "null", not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
		IPAddress:   opts.IPAddress,
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

// WriteLog is the best-effort variant used by plain CRUD handlers: a failed audit
// write is logged and otherwise ignored.
func WriteLog(opts LogOptions) {
	if err := Write(database.DB, opts); err != nil {
		log.Printf("[Audit] %v", err)
	}
}
