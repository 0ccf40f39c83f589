// internal/models/transaction.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerTransaction is the local record of one gateway submission. The ledger
// stays the system of record; rows only help operators trace requests.
type LedgerTransaction struct {
	BaseModel
	RequestID   string       `json:"request_id" gorm:"size:64;index"`
	Method      string       `json:"method" gorm:"size:64;not null;index"`
	TxHash      string       `json:"transaction_hash" gorm:"size:66;index"`
	Nonce       *uint64      `json:"nonce"`
	BlockNumber *uint64      `json:"block_number"`
	Status      LedgerStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Reason      string       `json:"reason,omitempty" gorm:"type:text"`
	ValueWei    string       `json:"value_wei,omitempty" gorm:"size:80"`
	Arguments   JSONB        `json:"arguments" gorm:"type:jsonb"`
}

func (t *LedgerTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
