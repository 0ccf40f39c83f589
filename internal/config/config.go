// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/geo"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Blockchain  BlockchainConfig
	Gateway     GatewayConfig
	Pricing     PricingConfig
	MarketData  MarketDataConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Telemetry   TelemetryConfig
	I18n        I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	CORSOrigins  []string
	RateLimit    float64 // requests per second per client
	RateBurst    int
}

type BlockchainConfig struct {
	RPC_URL         string
	PrivateKey      string
	ContractAddress string
	ABIPath         string
}

type GatewayConfig struct {
	SubmitTimeout  time.Duration
	PollInterval   time.Duration
	Confirmations  int
	GasMultiplier  float64
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type PricingConfig struct {
	MarkupPer100Km float64
	MaxMarkup      float64
	// Default buyer location used when a catalog request carries none.
	DefaultBuyerLat float64
	DefaultBuyerLng float64
	// CatalogPath replaces the bundled listings when set.
	CatalogPath string
}

type MarketDataConfig struct {
	BaseURL    string
	ResourceID string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	AutoMigrate  bool
}

type JWTConfig struct {
	SecretKey string
	Issuer    string
}

type TelemetryConfig struct {
	Exporter     string // none, stdout or otlp
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

type I18nConfig struct {
	DefaultLocale string
}

// ConfigurationError is returned for settings the process cannot start without.
type ConfigurationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for key, msg := range e.Invalid {
		parts = append(parts, fmt.Sprintf("%s: %s", key, msg))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

func (e *ConfigurationError) invalid(key, msg string) {
	if e.Invalid == nil {
		e.Invalid = make(map[string]string)
	}
	e.Invalid[key] = msg
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "5000"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 150),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			CORSOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimit:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateBurst:    getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Blockchain: BlockchainConfig{
			RPC_URL:         getEnv("BLOCKCHAIN_RPC_URL", ""),
			PrivateKey:      getEnvFirst([]string{"BLOCKCHAIN_PRIVATE_KEY", "PRIVATE_KEY"}, ""),
			ContractAddress: getEnvFirst([]string{"BLOCKCHAIN_CONTRACT_ADDRESS", "CONTRACT_ADDRESS"}, ""),
			ABIPath:         getEnv("BLOCKCHAIN_ABI_PATH", "FarmChainABI.json"),
		},
		Gateway: GatewayConfig{
			SubmitTimeout:  getEnvAsDuration("GATEWAY_SUBMIT_TIMEOUT", 2*time.Minute),
			PollInterval:   getEnvAsDuration("GATEWAY_POLL_INTERVAL", time.Second),
			Confirmations:  getEnvAsInt("GATEWAY_CONFIRMATIONS", 1),
			GasMultiplier:  getEnvAsFloat("GATEWAY_GAS_MULTIPLIER", 1.2),
			MaxAttempts:    getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 4),
			InitialBackoff: getEnvAsDuration("GATEWAY_INITIAL_BACKOFF", 250*time.Millisecond),
			MaxBackoff:     getEnvAsDuration("GATEWAY_MAX_BACKOFF", 5*time.Second),
		},
		Pricing: PricingConfig{
			MarkupPer100Km:  getEnvAsFloat("PRICING_MARKUP_PER_100KM", geo.DefaultPricing.MarkupPer100Km),
			MaxMarkup:       getEnvAsFloat("PRICING_MAX_MARKUP", geo.DefaultPricing.MaxMarkup),
			DefaultBuyerLat: getEnvAsFloat("DEFAULT_BUYER_LAT", 11.0168),
			DefaultBuyerLng: getEnvAsFloat("DEFAULT_BUYER_LNG", 76.9558),
			CatalogPath:     getEnv("CATALOG_PATH", ""),
		},
		MarketData: MarketDataConfig{
			BaseURL:    getEnv("AGRI_API_BASE_URL", "https://api.data.gov.in/resource"),
			ResourceID: getEnv("AGRI_API_RESOURCE_ID", "35985678-0d79-46b4-9ed6-6f13308a1d24"),
			APIKey:     getEnv("AGRI_API_KEY", ""),
			Timeout:    getEnvAsDuration("AGRI_API_TIMEOUT", 10*time.Second),
			CacheTTL:   getEnvAsDuration("AGRI_API_CACHE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", ""),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "farmchain"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "farmchain"),
		},
		Telemetry: TelemetryConfig{
			Exporter:     strings.ToLower(getEnv("OTEL_EXPORTER", "none")),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "farmchain-gateway"),
			SampleRatio:  getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	cfgErr := &ConfigurationError{}

	if c.Blockchain.RPC_URL == "" {
		cfgErr.Missing = append(cfgErr.Missing, "BLOCKCHAIN_RPC_URL")
	}
	if c.Blockchain.PrivateKey == "" {
		cfgErr.Missing = append(cfgErr.Missing, "BLOCKCHAIN_PRIVATE_KEY")
	}
	if c.Blockchain.ContractAddress == "" {
		cfgErr.Missing = append(cfgErr.Missing, "BLOCKCHAIN_CONTRACT_ADDRESS")
	} else if !common.IsHexAddress(c.Blockchain.ContractAddress) {
		cfgErr.invalid("BLOCKCHAIN_CONTRACT_ADDRESS", "not a hex address")
	}

	if c.Gateway.SubmitTimeout <= 0 {
		cfgErr.invalid("GATEWAY_SUBMIT_TIMEOUT", "must be positive")
	}
	if c.Gateway.GasMultiplier < 1 {
		cfgErr.invalid("GATEWAY_GAS_MULTIPLIER", "must be at least 1")
	}
	if c.Pricing.MarkupPer100Km < 0 || c.Pricing.MaxMarkup < 0 {
		cfgErr.invalid("PRICING_MARKUP", "must not be negative")
	}
	if _, err := geo.NewPoint(c.Pricing.DefaultBuyerLat, c.Pricing.DefaultBuyerLng); err != nil {
		cfgErr.invalid("DEFAULT_BUYER_LAT/DEFAULT_BUYER_LNG", err.Error())
	}
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		cfgErr.invalid("OTEL_EXPORTER", "must be none, stdout or otlp")
	}

	if c.JWT.SecretKey == "" && c.Environment == "production" {
		cfgErr.invalid("JWT_SECRET", "required in production")
	}

	if cfgErr.empty() {
		return nil
	}
	return cfgErr
}

// GatewayOptions converts the gateway settings for blockchain.New.
func (c *Config) GatewayOptions() blockchain.Options {
	g := c.Gateway
	return blockchain.Options{
		SubmitTimeout:  g.SubmitTimeout,
		PollInterval:   g.PollInterval,
		Confirmations:  uint64(max(g.Confirmations, 0)),
		GasMultiplier:  g.GasMultiplier,
		MaxAttempts:    uint(max(g.MaxAttempts, 1)),
		InitialBackoff: g.InitialBackoff,
		MaxBackoff:     g.MaxBackoff,
	}
}

func (c *Config) PricingPolicy() geo.PricingPolicy {
	return geo.PricingPolicy{
		MarkupPer100Km: c.Pricing.MarkupPer100Km,
		MaxMarkup:      c.Pricing.MaxMarkup,
	}
}

// DefaultBuyer is the buyer location used when a catalog request carries none.
func (c *Config) DefaultBuyer() geo.Point {
	return geo.Point{Lat: c.Pricing.DefaultBuyerLat, Lng: c.Pricing.DefaultBuyerLng}
}

// LoadContract reads the ABI descriptor. A missing or unreadable descriptor is
// a configuration error.
func (c *Config) LoadContract() (*blockchain.Contract, error) {
	contract, err := blockchain.LoadContract(c.Blockchain.ContractAddress, c.Blockchain.ABIPath)
	if err != nil {
		cfgErr := &ConfigurationError{}
		cfgErr.invalid("BLOCKCHAIN_ABI_PATH", err.Error())
		return nil, cfgErr
	}
	return contract, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("90s") or whole seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
