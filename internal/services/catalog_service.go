// internal/services/catalog_service.go
package services

import (
	"sort"
	"strings"

	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/geo"
	"github.com/farmchain/farmchain-backend/internal/models"
)

type CatalogService struct {
	catalog      *catalog.Catalog
	pricing      geo.PricingPolicy
	defaultBuyer geo.Point
}

// CatalogFilter narrows a browse. Zero values disable a criterion.
type CatalogFilter struct {
	Category        string
	MaxDistance     float64
	MinPrice        int64
	MaxPrice        int64
	City            string
	DeliverableOnly bool
}

func NewCatalogService(c *catalog.Catalog, pricing geo.PricingPolicy, defaultBuyer geo.Point) *CatalogService {
	return &CatalogService{
		catalog:      c,
		pricing:      pricing,
		defaultBuyer: defaultBuyer,
	}
}

func (s *CatalogService) DefaultBuyer() geo.Point {
	return s.defaultBuyer
}

// Browse quotes every listing for buyer, applies filter and returns the
// results nearest first.
func (s *CatalogService) Browse(buyer geo.Point, filter CatalogFilter) []models.PricedListing {
	city := strings.ToLower(strings.TrimSpace(filter.City))

	results := make([]models.PricedListing, 0, s.catalog.Len())
	for _, listing := range s.catalog.All() {
		priced := s.price(listing, buyer)

		if filter.Category != "" && !strings.EqualFold(listing.Category, filter.Category) {
			continue
		}
		if filter.MaxDistance > 0 && priced.Quote.DistanceKm > filter.MaxDistance {
			continue
		}
		if filter.MinPrice > 0 && priced.Quote.AdjustedPrice < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && priced.Quote.AdjustedPrice > filter.MaxPrice {
			continue
		}
		if city != "" && !strings.Contains(strings.ToLower(listing.Location.City), city) {
			continue
		}
		if filter.DeliverableOnly && !priced.Quote.Deliverable {
			continue
		}
		results = append(results, priced)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Quote.DistanceKm < results[j].Quote.DistanceKm
	})
	return results
}

func (s *CatalogService) Quote(listingID string, buyer geo.Point) (*models.PricedListing, error) {
	listing, err := s.catalog.Get(listingID)
	if err != nil {
		return nil, err
	}
	priced := s.price(listing, buyer)
	return &priced, nil
}

func (s *CatalogService) price(listing models.Listing, buyer geo.Point) models.PricedListing {
	return models.PricedListing{
		Listing: listing,
		Quote:   s.pricing.Quote(listing.BasePrice, listing.MaxDeliveryDistance, buyer, listing.Coordinates()),
	}
}
