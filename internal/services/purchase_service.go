// internal/services/purchase_service.go
package services

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/models"
)

// EtherDecimals is the fixed exponent between the display currency and wei.
const EtherDecimals = 18

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountTooPrecise  = errors.New("amount has more fractional digits than the ledger supports")
	ErrAmountNotDecimal  = errors.New("amount must be a plain decimal number")
)

type PurchaseService struct {
	ledgerWriter
	decimals int32
}

type BuyProductRequest struct {
	ProductID Numeric `json:"productId" validate:"required,uint_text"`
	// Value is the payment in display units, e.g. "0.05".
	Value Numeric `json:"value" validate:"required,decimal_text"`
}

func NewPurchaseService(submitter blockchain.Submitter, recorder Recorder, logger *logrus.Logger) *PurchaseService {
	return &PurchaseService{
		ledgerWriter: newLedgerWriter(submitter, recorder, logger, "purchase"),
		decimals:     EtherDecimals,
	}
}

func (s *PurchaseService) BuyProduct(ctx context.Context, req BuyProductRequest) (*blockchain.Receipt, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	productID, ok := new(big.Int).SetString(req.ProductID.String(), 10)
	if !ok {
		return nil, fieldError("productId", "uint_text", "productId must be a non-negative integer")
	}

	value, err := ToBaseUnits(req.Value.String(), s.decimals)
	if err != nil {
		return nil, fieldError("value", "decimal_text", err.Error())
	}

	return s.submit(ctx, blockchain.ContractCall{
		Method: blockchain.MethodBuyProduct,
		Args:   []interface{}{productID},
		Value:  value,
	}, models.JSONB{
		"productId": productID.String(),
		"value":     req.Value.String(),
	})
}

// ToBaseUnits converts a positive decimal amount into the ledger's smallest
// unit. The conversion is exact; amounts that would need rounding are rejected.
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.ContainsAny(amount, "eE") {
		return nil, ErrAmountNotDecimal
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, ErrAmountNotDecimal
	}
	if !d.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, ErrAmountTooPrecise
	}
	return scaled.BigInt(), nil
}
