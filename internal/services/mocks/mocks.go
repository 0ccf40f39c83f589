// Package mocks holds testify mocks for the service dependencies.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/models"
)

type Submitter struct {
	mock.Mock
}

func (m *Submitter) Submit(ctx context.Context, call blockchain.ContractCall) (*blockchain.Receipt, error) {
	args := m.Called(ctx, call)
	if receipt := args.Get(0); receipt != nil {
		return receipt.(*blockchain.Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}

type Recorder struct {
	mock.Mock
}

func (m *Recorder) RecordSubmission(ctx context.Context, rec *models.LedgerTransaction) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
