// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source %T", value)
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type ParticipantRole string

const (
	ParticipantRoleFarmer   ParticipantRole = "farmer"
	ParticipantRoleConsumer ParticipantRole = "consumer"
)

type LedgerStatus string

const (
	LedgerStatusConfirmed LedgerStatus = "confirmed"
	LedgerStatusReverted  LedgerStatus = "reverted"
	LedgerStatusRejected  LedgerStatus = "rejected"
	LedgerStatusNetwork   LedgerStatus = "network_error"
	LedgerStatusTimeout   LedgerStatus = "timeout"
)
