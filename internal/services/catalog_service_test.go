package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/geo"
)

var coimbatore = geo.Point{Lat: 11.0168, Lng: 76.9558}

func newCatalogService(t *testing.T) *CatalogService {
	c, err := catalog.Seed()
	require.NoError(t, err)
	return NewCatalogService(c, geo.DefaultPricing, coimbatore)
}

func TestBrowseSortsNearestFirst(t *testing.T) {
	service := newCatalogService(t)

	results := service.Browse(coimbatore, CatalogFilter{})
	require.Len(t, results, 8)

	assert.Equal(t, "Local Green Chillies", results[0].Name)
	assert.Equal(t, 0.0, results[0].Quote.DistanceKm)
	assert.Equal(t, int64(1000), results[0].Quote.AdjustedPrice)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Quote.DistanceKm, results[i].Quote.DistanceKm)
	}
	assert.Equal(t, "Premium Saffron", results[len(results)-1].Name)
}

func TestBrowseFilters(t *testing.T) {
	service := newCatalogService(t)

	spices := service.Browse(coimbatore, CatalogFilter{Category: "spices"})
	assert.Len(t, spices, 3)
	for _, p := range spices {
		assert.Equal(t, "Spices", p.Category)
	}

	near := service.Browse(coimbatore, CatalogFilter{MaxDistance: 35})
	names := make([]string, 0, len(near))
	for _, p := range near {
		names = append(names, p.Name)
		assert.LessOrEqual(t, p.Quote.DistanceKm, 35.0)
	}
	assert.Contains(t, names, "Fresh Local Tomatoes")
	assert.NotContains(t, names, "Premium Basmati Rice")

	city := service.Browse(coimbatore, CatalogFilter{City: "METT"})
	require.Len(t, city, 1)
	assert.Equal(t, "Mettupalayam", city[0].Location.City)

	expensive := service.Browse(coimbatore, CatalogFilter{MinPrice: 3000})
	for _, p := range expensive {
		assert.GreaterOrEqual(t, p.Quote.AdjustedPrice, int64(3000))
	}
	assert.Len(t, expensive, 2)

	deliverable := service.Browse(coimbatore, CatalogFilter{DeliverableOnly: true})
	for _, p := range deliverable {
		assert.True(t, p.Quote.Deliverable, p.Name)
		assert.NotEqual(t, "Premium Basmati Rice", p.Name)
	}
}

func TestQuote(t *testing.T) {
	service := newCatalogService(t)

	tomatoes, err := service.Quote("1", coimbatore)
	require.NoError(t, err)
	assert.True(t, tomatoes.Quote.Deliverable)
	assert.InDelta(t, 31.4, tomatoes.Quote.DistanceKm, 0.5)
	assert.Equal(t, int64(1006), tomatoes.Quote.AdjustedPrice)

	rice, err := service.Quote("2", coimbatore)
	require.NoError(t, err)
	assert.False(t, rice.Quote.Deliverable)
	assert.Greater(t, rice.Quote.AdjustedPrice, rice.BasePrice)

	_, err = service.Quote("99", coimbatore)
	assert.ErrorIs(t, err, catalog.ErrListingNotFound)
}
