// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/config"
	"github.com/farmchain/farmchain-backend/internal/database"
	"github.com/farmchain/farmchain-backend/internal/handlers"
	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/router"
	"github.com/farmchain/farmchain-backend/internal/services"
	"github.com/farmchain/farmchain-backend/internal/telemetry"
)

func main() {
	log := logrus.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(log, cfg)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tracing")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Ledger
	contract, err := cfg.LoadContract()
	if err != nil {
		log.WithError(err).Fatal("Failed to load contract ABI")
	}
	key, err := blockchain.ParsePrivateKey(cfg.Blockchain.PrivateKey)
	if err != nil {
		log.WithError(err).Fatal("Failed to parse signing key")
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, 15*time.Second)
	client, err := blockchain.Dial(dialCtx, cfg.Blockchain.RPC_URL)
	if err != nil {
		cancelDial()
		log.WithError(err).Fatal("Failed to connect to ledger")
	}
	gateway, err := blockchain.New(dialCtx, client, key, contract, cfg.GatewayOptions(), log)
	cancelDial()
	if err != nil {
		log.WithError(err).Fatal("Failed to start transaction gateway")
	}
	log.WithFields(logrus.Fields{
		"signer":   gateway.Address().Hex(),
		"chain_id": gateway.ChainID().String(),
		"contract": contract.Address.Hex(),
	}).Info("Transaction gateway ready")

	// Catalog
	listings, err := loadCatalog(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}

	pingers := map[string]handlers.Pinger{}

	// Optional database
	var store *database.Store
	if cfg.Database.Enabled() {
		db, err := database.Initialize(cfg.Database, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize database")
		}
		defer database.Close(db, log)

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(db, log); err != nil {
				log.WithError(err).Fatal("Failed to run migrations")
			}
		}
		store = database.NewStore(db)
		pingers["database"] = store
	} else {
		log.Info("DB_HOST not set, submission records and audit logs are disabled")
	}

	// Optional market data cache
	var marketCache services.MarketCache
	if cfg.Redis.Enabled() {
		redisCache := services.NewRedisMarketCache(cfg.Redis, cfg.MarketData.CacheTTL)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis is unreachable, market data will not be cached until it recovers")
		}
		marketCache = redisCache
		pingers["redis"] = redisCache
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r, stopRouter := router.Initialize(router.Dependencies{
		Config:      cfg,
		Logger:      log,
		Ledger:      gateway,
		Catalog:     listings,
		Store:       store,
		MarketCache: marketCache,
		Pingers:     pingers,
	})
	defer stopRouter()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(r, "farmchain-http"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Lets the in-flight submission finish before the process exits.
	gateway.Close()
	client.Close()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.Info("Server exited")
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Pricing.CatalogPath != "" {
		return catalog.LoadFile(cfg.Pricing.CatalogPath)
	}
	return catalog.Seed()
}
