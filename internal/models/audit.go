package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the kind of dashboard mutation being recorded
type AuditAction string

const (
	AuditActionCreate          AuditAction = "create"
	AuditActionUpdate          AuditAction = "update"
	AuditActionMutationFailed  AuditAction = "mutation_failed"
	AuditActionReconcileFailed AuditAction = "reconcile_failed"
	AuditActionSnapshotLoaded  AuditAction = "snapshot_loaded"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = make(JSON)
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// AuditEntry is one row of the dashboard mutation trail
type AuditEntry struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primary_key"`
	SessionID  string      `json:"sessionId" gorm:"index"`
	Action     AuditAction `json:"action" gorm:"not null;index"`
	ProductID  string      `json:"productId,omitempty" gorm:"index"`
	Title      string      `json:"title,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	Message    string      `json:"message,omitempty"`
	Payload    JSON        `json:"payload,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time   `json:"createdAt" gorm:"index"`
}

// BeforeCreate hook to assign the ID and timestamp when unset
func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "dashboard_audit_entries"
}

type AuditListResponse struct {
	Success bool         `json:"success"`
	Data    []AuditEntry `json:"data"`
}
