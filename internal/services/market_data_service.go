// internal/services/market_data_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmchain/farmchain-backend/internal/config"
)

var ErrMarketDataUnavailable = errors.New("market data unavailable")

// MarketRecord is one commodity price row, passed through unchanged.
type MarketRecord map[string]interface{}

// MarketCache stores the encoded records list. A miss returns found == false.
type MarketCache interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}

type MarketDataService struct {
	client *http.Client
	cache  MarketCache
	cfg    config.MarketDataConfig
	log    *logrus.Entry
}

func NewMarketDataService(cfg config.MarketDataConfig, cache MarketCache, logger *logrus.Logger) *MarketDataService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MarketDataService{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache: cache,
		cfg:   cfg,
		log:   logger.WithField("component", "market_data"),
	}
}

// Fetch returns the current commodity price records.
func (s *MarketDataService) Fetch(ctx context.Context) ([]MarketRecord, error) {
	key := "agri:market:" + s.cfg.ResourceID

	if s.cache != nil {
		data, found, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("Market data cache read failed")
		case found:
			var records []MarketRecord
			if err := json.Unmarshal(data, &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := s.fetchUpstream(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(records); err == nil {
			if err := s.cache.Set(ctx, key, data); err != nil {
				s.log.WithError(err).Warn("Market data cache write failed")
			}
		}
	}
	return records, nil
}

func (s *MarketDataService) fetchUpstream(ctx context.Context) ([]MarketRecord, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: AGRI_API_KEY is not set", ErrMarketDataUnavailable)
	}

	endpoint, err := url.JoinPath(s.cfg.BaseURL, s.cfg.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketDataUnavailable, err)
	}
	query := url.Values{}
	query.Set("api-key", s.cfg.APIKey)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketDataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		s.log.WithField("status", resp.StatusCode).Error("Market data API returned an error")
		return nil, fmt.Errorf("%w: upstream status %d", ErrMarketDataUnavailable, resp.StatusCode)
	}

	var payload struct {
		Records []MarketRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrMarketDataUnavailable, err)
	}
	if payload.Records == nil {
		payload.Records = []MarketRecord{}
	}
	return payload.Records, nil
}

// RedisMarketCache keeps market data in Redis for a fixed TTL.
type RedisMarketCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMarketCache(cfg config.RedisConfig, ttl time.Duration) *RedisMarketCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisMarketCache{client: client, ttl: ttl}
}

func (c *RedisMarketCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s from Redis: %w", key, err)
	}
	return data, true, nil
}

func (c *RedisMarketCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("saving %s to Redis: %w", key, err)
	}
	return nil
}

func (c *RedisMarketCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisMarketCache) Close() error {
	return c.client.Close()
}
