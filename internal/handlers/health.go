// internal/handlers/health.go
package handlers

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// GatewayInfo is the part of the gateway that health reports on.
type GatewayInfo interface {
	Address() common.Address
	ChainID() *big.Int
	Sent() uint64
}

// Pinger is an optional dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	gateway GatewayInfo
	deps    map[string]Pinger
}

func NewHealthHandler(gateway GatewayInfo, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{gateway: gateway, deps: deps}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"time":         time.Now().UTC(),
		"signer":       h.gateway.Address().Hex(),
		"chainId":      h.gateway.ChainID().String(),
		"transactions": h.gateway.Sent(),
		"dependencies": checks,
	})
}
