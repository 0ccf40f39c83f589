// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/services"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

var ledgerStatus = map[blockchain.Kind]int{
	blockchain.KindNetwork:  http.StatusBadGateway,
	blockchain.KindTimeout:  http.StatusGatewayTimeout,
	blockchain.KindRejected: http.StatusInternalServerError,
	blockchain.KindReverted: http.StatusInternalServerError,
}

var ledgerMessage = map[blockchain.Kind]string{
	blockchain.KindNetwork:  i18n.KeyLedgerNetwork,
	blockchain.KindTimeout:  i18n.KeyLedgerTimeout,
	blockchain.KindRejected: i18n.KeyLedgerRejected,
	blockchain.KindReverted: i18n.KeyLedgerReverted,
}

type ledgerDetails struct {
	Reason          string `json:"reason,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Nonce           uint64 `json:"nonce,omitempty"`
	Retryable       bool   `json:"retryable"`
}

// respondError maps service and gateway errors onto the failure body.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	c.Error(err)

	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		utils.ValidationErrorResponse(c, vErr.Fields)
		return
	}

	if errors.Is(err, blockchain.ErrClosed) {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, utils.KindInternal, i18n.T(lang, i18n.KeyLedgerClosed), nil)
		return
	}

	var gwErr *blockchain.Error
	if errors.As(err, &gwErr) {
		message := i18n.T(lang, ledgerMessage[gwErr.Kind])
		details := ledgerDetails{
			Reason:    gwErr.Reason,
			Retryable: gwErr.Retryable(),
		}
		if gwErr.Reason != "" {
			message += ": " + gwErr.Reason
		}
		if gwErr.TxHash != (common.Hash{}) {
			details.TransactionHash = gwErr.TxHash.Hex()
			details.Nonce = gwErr.Nonce
		}
		utils.ErrorResponse(c, ledgerStatus[gwErr.Kind], string(gwErr.Kind), message, details)
		return
	}

	switch {
	case errors.Is(err, catalog.ErrListingNotFound):
		utils.NotFoundResponse(c, i18n.KeyListingNotFound)
	case errors.Is(err, services.ErrMarketDataUnavailable):
		utils.ErrorResponse(c, http.StatusBadGateway, utils.KindUpstream, i18n.T(lang, i18n.KeyMarketUnavailable), nil)
	default:
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON decodes the request body and writes the 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationBody), gin.H{"cause": err.Error()})
		return false
	}
	return true
}

func respondReceipt(c *gin.Context, receipt *blockchain.Receipt) {
	utils.TransactionResponse(c, receipt.TxHash.Hex(), receipt.BlockNumber, receipt.Nonce)
}
