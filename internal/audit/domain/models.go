package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// AuditLog is one append-only record of a ledger mutation.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null;index:idx_audit_logs_target" json:"target_type"`
	TargetID   snowflake.ID      `gorm:"not null;index:idx_audit_logs_target" json:"target_id"`
	Severity   Severity          `gorm:"type:varchar(8);not null" json:"severity"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	RequestID  string            `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
