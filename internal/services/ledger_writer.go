// internal/services/ledger_writer.go
package services

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/models"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

// Recorder keeps a local trace of ledger submissions.
type Recorder interface {
	RecordSubmission(ctx context.Context, rec *models.LedgerTransaction) error
}

// ledgerWriter is shared by the services that write to the ledger.
type ledgerWriter struct {
	submitter blockchain.Submitter
	recorder  Recorder
	log       *logrus.Entry
}

func newLedgerWriter(submitter blockchain.Submitter, recorder Recorder, logger *logrus.Logger, component string) ledgerWriter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return ledgerWriter{
		submitter: submitter,
		recorder:  recorder,
		log:       logger.WithField("component", component),
	}
}

func (w *ledgerWriter) submit(ctx context.Context, call blockchain.ContractCall, args models.JSONB) (*blockchain.Receipt, error) {
	w.log.WithFields(logrus.Fields{
		"method":     call.Method,
		"request_id": utils.RequestIDFromContext(ctx),
	}).Debug("Submitting ledger call")

	receipt, err := w.submitter.Submit(ctx, call)
	w.record(ctx, call, args, receipt, err)
	return receipt, err
}

func (w *ledgerWriter) record(ctx context.Context, call blockchain.ContractCall, args models.JSONB, receipt *blockchain.Receipt, err error) {
	if w.recorder == nil {
		return
	}
	// The caller stopped waiting, so the outcome is not known here.
	if err != nil && blockchain.KindOf(err) == "" && ctx.Err() != nil {
		return
	}

	rec := &models.LedgerTransaction{
		RequestID: utils.RequestIDFromContext(ctx),
		Method:    call.Method,
		Arguments: args,
		Status:    ledgerStatus(err),
	}
	if call.Value != nil {
		rec.ValueWei = call.Value.String()
	}
	if receipt != nil {
		rec.TxHash = receipt.TxHash.Hex()
		nonce, block := receipt.Nonce, receipt.BlockNumber
		rec.Nonce, rec.BlockNumber = &nonce, &block
	}

	var gwErr *blockchain.Error
	if errors.As(err, &gwErr) {
		rec.Reason = gwErr.Reason
		if receipt == nil && gwErr.TxHash != (common.Hash{}) {
			rec.TxHash = gwErr.TxHash.Hex()
			nonce := gwErr.Nonce
			rec.Nonce = &nonce
		}
	} else if err != nil {
		rec.Reason = err.Error()
	}

	if rerr := w.recorder.RecordSubmission(context.WithoutCancel(ctx), rec); rerr != nil {
		w.log.WithError(rerr).WithField("method", call.Method).Warn("Failed to record ledger submission")
	}
}

func ledgerStatus(err error) models.LedgerStatus {
	switch blockchain.KindOf(err) {
	case "":
		if err != nil {
			return models.LedgerStatusNetwork
		}
		return models.LedgerStatusConfirmed
	case blockchain.KindReverted:
		return models.LedgerStatusReverted
	case blockchain.KindRejected:
		return models.LedgerStatusRejected
	case blockchain.KindTimeout:
		return models.LedgerStatusTimeout
	default:
		return models.LedgerStatusNetwork
	}
}
