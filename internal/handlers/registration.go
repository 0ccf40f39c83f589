// internal/handlers/registration.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// POST /v1/register-farmer
func (h *RegistrationHandler) RegisterFarmer(c *gin.Context) {
	var req services.RegisterFarmerRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.registrationService.RegisterFarmer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondReceipt(c, receipt)
}

// POST /v1/register-consumer
func (h *RegistrationHandler) RegisterConsumer(c *gin.Context) {
	var req services.RegisterConsumerRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.registrationService.RegisterConsumer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondReceipt(c, receipt)
}

// POST /v1/register-product
func (h *RegistrationHandler) RegisterProduct(c *gin.Context) {
	var req services.RegisterProductRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.registrationService.RegisterProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondReceipt(c, receipt)
}
