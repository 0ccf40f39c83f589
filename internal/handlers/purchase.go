// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/services"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// POST /v1/buy-product
func (h *PurchaseHandler) BuyProduct(c *gin.Context) {
	var req services.BuyProductRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.purchaseService.BuyProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondReceipt(c, receipt)
}
