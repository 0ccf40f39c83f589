// internal/handlers/transaction.go
package handlers

import (
	"context"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/database"
	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/models"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// StatusChecker looks up a transaction on the ledger.
type StatusChecker interface {
	TransactionStatus(ctx context.Context, hash common.Hash) (*blockchain.TxStatus, error)
}

// TransactionStore reads the local submission records.
type TransactionStore interface {
	ListTransactions(ctx context.Context, filter database.TransactionFilter, params utils.PaginationParams) ([]models.LedgerTransaction, int64, error)
	FindTransactionByHash(ctx context.Context, hash string) (*models.LedgerTransaction, error)
}

type TransactionHandler struct {
	checker StatusChecker
	store   TransactionStore
}

// NewTransactionHandler builds the handler. store may be nil when no
// database is configured.
func NewTransactionHandler(checker StatusChecker, store TransactionStore) *TransactionHandler {
	return &TransactionHandler{checker: checker, store: store}
}

type transactionView struct {
	*blockchain.TxStatus
	Record *models.LedgerTransaction `json:"record,omitempty"`
}

// GET /v1/transactions/:hash
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	hashText := c.Param("hash")
	if !txHashPattern.MatchString(hashText) {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyTxHashInvalid), nil)
		return
	}
	hash := common.HexToHash(hashText)

	status, err := h.checker.TransactionStatus(c.Request.Context(), hash)
	if err != nil {
		respondError(c, err)
		return
	}

	view := transactionView{TxStatus: status}
	if h.store != nil {
		if rec, err := h.store.FindTransactionByHash(c.Request.Context(), hash.Hex()); err == nil {
			view.Record = rec
		}
	}

	if status.State == blockchain.TxStateUnknown && view.Record == nil {
		utils.NotFoundResponse(c, i18n.KeyTxNotFound)
		return
	}
	utils.SuccessResponse(c, view)
}

// GET /v1/transactions
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	if h.store == nil {
		utils.NotFoundResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c, "created_at")
	filter := database.TransactionFilter{
		Method:    c.Query("method"),
		Status:    models.LedgerStatus(c.Query("status")),
		RequestID: c.Query("request_id"),
	}

	txs, total, err := h.store.ListTransactions(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(txs, total, params))
}
