// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/config"
	"github.com/farmchain/farmchain-backend/internal/database"
	"github.com/farmchain/farmchain-backend/internal/handlers"
	"github.com/farmchain/farmchain-backend/internal/middleware"
	"github.com/farmchain/farmchain-backend/internal/services"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

// Ledger is the gateway surface the HTTP layer uses.
type Ledger interface {
	blockchain.Submitter
	handlers.StatusChecker
	handlers.GatewayInfo
}

type Dependencies struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Ledger  Ledger
	Catalog *catalog.Catalog
	// Optional.
	Store       *database.Store
	MarketCache services.MarketCache
	Pingers     map[string]handlers.Pinger
}

// Initialize wires services, handlers and routes. The returned func stops
// background work owned by the router.
func Initialize(deps Dependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var recorder services.Recorder
	var txStore handlers.TransactionStore
	var auditWriter middleware.AuditWriter
	if deps.Store != nil {
		recorder, txStore, auditWriter = deps.Store, deps.Store, deps.Store
	}

	// Initialize services
	registrationService := services.NewRegistrationService(deps.Ledger, recorder, logger)
	purchaseService := services.NewPurchaseService(deps.Ledger, recorder, logger)
	catalogService := services.NewCatalogService(deps.Catalog, cfg.PricingPolicy(), cfg.DefaultBuyer())
	marketDataService := services.NewMarketDataService(cfg.MarketData, deps.MarketCache, logger)

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	marketDataHandler := handlers.NewMarketDataHandler(marketDataService)
	transactionHandler := handlers.NewTransactionHandler(deps.Ledger, txStore)
	healthHandler := handlers.NewHealthHandler(deps.Ledger, deps.Pingers)

	var issuer *utils.TokenIssuer
	if cfg.JWT.SecretKey != "" {
		issuer = utils.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	}
	operatorOnly := middleware.OperatorRequired(issuer)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(limiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(auditWriter, logger))

	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		writes := v1.Group("", operatorOnly)
		{
			writes.POST("/register-farmer", registrationHandler.RegisterFarmer)
			writes.POST("/register-consumer", registrationHandler.RegisterConsumer)
			writes.POST("/register-product", registrationHandler.RegisterProduct)
			writes.POST("/buy-product", purchaseHandler.BuyProduct)
		}

		v1.GET("/transactions", transactionHandler.ListTransactions)
		v1.GET("/transactions/:hash", transactionHandler.GetTransaction)

		v1.GET("/catalog", catalogHandler.Browse)
		v1.GET("/catalog/:id/quote", catalogHandler.Quote)

		v1.GET("/market-data", marketDataHandler.GetMarketData)
	}

	// Paths used by the existing web client
	legacy := r.Group("")
	{
		legacy.POST("/registerFarmer", operatorOnly, registrationHandler.RegisterFarmer)
		legacy.POST("/registerConsumer", operatorOnly, registrationHandler.RegisterConsumer)
		legacy.POST("/registerProduct", operatorOnly, registrationHandler.RegisterProduct)
		legacy.POST("/buyProduct", operatorOnly, purchaseHandler.BuyProduct)
		legacy.GET("/agriMarketData", marketDataHandler.GetAgriMarketData)
	}

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, "")
	})

	return r, limiter.Stop
}
