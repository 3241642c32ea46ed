package domain

import (
	"context"
	"encoding/json"
	"time"

	"adminkit/internal/core/id"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const (
	AuditActionSave   AuditAction = "save"
	AuditActionDelete AuditAction = "delete"
)

// AuditEntry is one recorded write with the instance state it left behind.
type AuditEntry struct {
	ID        id.ID           `db:"id" json:"id"`
	EntityKey string          `db:"entity_key" json:"entityKey"`
	EntityID  string          `db:"entity_id" json:"entityId"`
	Action    AuditAction     `db:"action" json:"action"`
	RequestID string          `db:"request_id" json:"requestId,omitempty"`
	Snapshot  json.RawMessage `db:"snapshot" json:"snapshot,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// AuditReader returns the latest entries for one instance, newest first.
type AuditReader interface {
	History(ctx context.Context, entityKey, entityID string, limit int) ([]AuditEntry, error)
}
