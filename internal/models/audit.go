// internal/models/audit.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLog struct {
	BaseModel
	RequestID    string `json:"request_id" gorm:"size:64;index"`
	Operator     string `json:"operator,omitempty" gorm:"size:100;index"`
	Action       string `json:"action" gorm:"size:100;not null;index"`
	ResourceType string `json:"resource_type" gorm:"size:50;not null;index"`
	StatusCode   int    `json:"status_code"`
	DurationMs   int64  `json:"duration_ms"`
	NewValues    JSONB  `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string `json:"ip_address" gorm:"size:45"`
	UserAgent    string `json:"user_agent" gorm:"type:text"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
