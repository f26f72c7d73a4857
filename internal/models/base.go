package models

import (
	"github.com/google/uuid"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every entity handled by AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Customer{},
		&Supplier{},
		&Shift{},
		&InvoiceCounter{},
		&Invoice{},
		&InvoiceItem{},
		&InventoryMovement{},
		&AuditLog{},
	}
}
