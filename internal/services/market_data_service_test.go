package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmchain/farmchain-backend/internal/config"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	return data, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func marketConfig(baseURL string) config.MarketDataConfig {
	return config.MarketDataConfig{
		BaseURL:    baseURL,
		ResourceID: "9ef84268-d588-465a-a308-a864a43d0070",
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		CacheTTL:   time.Minute,
	}
}

func TestMarketDataFetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/resource/9ef84268-d588-465a-a308-a864a43d0070", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 2, "records": [
			{"state": "Tamil Nadu", "commodity": "Tomato", "modal_price": "1200"},
			{"state": "Kerala", "commodity": "Cardamoms", "modal_price": "185000"}
		]}`))
	}))
	defer server.Close()

	cache := newMemoryCache()
	service := NewMarketDataService(marketConfig(server.URL+"/resource"), cache, quietLogger())

	records, err := service.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Tomato", records[0]["commodity"])

	again, err := service.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMarketDataWithoutCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"records": null}`))
	}))
	defer server.Close()

	service := NewMarketDataService(marketConfig(server.URL), nil, quietLogger())

	records, err := service.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, err = service.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestMarketDataUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := newMemoryCache()
	service := NewMarketDataService(marketConfig(server.URL), cache, quietLogger())

	_, err := service.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMarketDataUnavailable)
	assert.Empty(t, cache.items)
}

func TestMarketDataMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	service := NewMarketDataService(marketConfig(server.URL), nil, quietLogger())

	_, err := service.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMarketDataUnavailable)
}

func TestMarketDataRequiresAPIKey(t *testing.T) {
	cfg := marketConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	service := NewMarketDataService(cfg, nil, quietLogger())

	_, err := service.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrMarketDataUnavailable)
}
