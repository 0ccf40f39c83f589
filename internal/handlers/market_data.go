// internal/handlers/market_data.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/services"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

type MarketDataHandler struct {
	marketDataService *services.MarketDataService
}

func NewMarketDataHandler(marketDataService *services.MarketDataService) *MarketDataHandler {
	return &MarketDataHandler{marketDataService: marketDataService}
}

// GET /v1/market-data
func (h *MarketDataHandler) GetMarketData(c *gin.Context) {
	records, err := h.marketDataService.Fetch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, records)
}

// GET /agriMarketData returns the bare records array that the existing
// frontend reads.
func (h *MarketDataHandler) GetAgriMarketData(c *gin.Context) {
	records, err := h.marketDataService.Fetch(c.Request.Context())
	if err != nil {
		c.Error(err)
		lang := utils.GetLangFromContext(c)
		c.JSON(http.StatusInternalServerError, gin.H{"error": i18n.T(lang, i18n.KeyMarketUnavailable)})
		return
	}
	c.JSON(http.StatusOK, records)
}
