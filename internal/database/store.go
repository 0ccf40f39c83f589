// internal/database/store.go
package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/farmchain/farmchain-backend/internal/models"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

var ErrRecordNotFound = errors.New("record not found")

// Store persists ledger submission records and audit rows.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

type TransactionFilter struct {
	Method    string
	Status    models.LedgerStatus
	RequestID string
}

var transactionSortFields = []string{"created_at", "nonce", "block_number"}

func (s *Store) RecordSubmission(ctx context.Context, rec *models.LedgerTransaction) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to record %s submission: %w", rec.Method, err)
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter TransactionFilter, params utils.PaginationParams) ([]models.LedgerTransaction, int64, error) {
	var total int64
	if err := transactionQuery(s.db.WithContext(ctx), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txs []models.LedgerTransaction
	query := transactionQuery(s.db.WithContext(ctx), filter)
	query = utils.ApplySort(query, params, transactionSortFields, "created_at")
	if err := utils.ApplyPagination(query, params).Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

// FindTransactionByHash returns the latest record for a transaction hash.
func (s *Store) FindTransactionByHash(ctx context.Context, hash string) (*models.LedgerTransaction, error) {
	var tx models.LedgerTransaction
	err := s.db.WithContext(ctx).Where("tx_hash = ?", hash).Order("created_at desc").First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", hash, err)
	}
	return &tx, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func transactionQuery(db *gorm.DB, filter TransactionFilter) *gorm.DB {
	query := db.Model(&models.LedgerTransaction{})
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestID != "" {
		query = query.Where("request_id = ?", filter.RequestID)
	}
	return query
}
