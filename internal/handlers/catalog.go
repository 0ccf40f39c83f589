// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/geo"
	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/services"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// GET /v1/catalog
func (h *CatalogHandler) Browse(c *gin.Context) {
	buyer, ok := h.buyerLocation(c)
	if !ok {
		return
	}

	var filter services.CatalogFilter
	filter.Category = c.Query("category")
	filter.City = c.Query("city")

	if v := c.Query("max_distance"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 {
			badQuery(c, "max_distance")
			return
		}
		filter.MaxDistance = d
	}
	if v := c.Query("min_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			badQuery(c, "min_price")
			return
		}
		filter.MinPrice = p
	}
	if v := c.Query("max_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			badQuery(c, "max_price")
			return
		}
		filter.MaxPrice = p
	}
	if v := c.Query("deliverable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badQuery(c, "deliverable")
			return
		}
		filter.DeliverableOnly = b
	}

	results := h.catalogService.Browse(buyer, filter)

	params := utils.GetPaginationParams(c, "distance")
	start, end := utils.PageBounds(len(results), params)
	page := utils.CreatePaginationResult(results[start:end], int64(len(results)), params)
	utils.PaginatedResponse(c, page)
}

// GET /v1/catalog/:id/quote
func (h *CatalogHandler) Quote(c *gin.Context) {
	buyer, ok := h.buyerLocation(c)
	if !ok {
		return
	}

	priced, err := h.catalogService.Quote(c.Param("id"), buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, priced)
}

// buyerLocation reads lat/lng from the query, falling back to the default
// buyer when both are absent.
func (h *CatalogHandler) buyerLocation(c *gin.Context) (geo.Point, bool) {
	latText, lngText := c.Query("lat"), c.Query("lng")
	if latText == "" && lngText == "" {
		return h.catalogService.DefaultBuyer(), true
	}

	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		badQuery(c, "lat")
		return geo.Point{}, false
	}
	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		badQuery(c, "lng")
		return geo.Point{}, false
	}

	point, err := geo.NewPoint(lat, lng)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return geo.Point{}, false
	}
	return point, true
}

func badQuery(c *gin.Context, param string) {
	lang := utils.GetLangFromContext(c)
	utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationQuery, param), nil)
}
