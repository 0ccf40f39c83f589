// internal/geo/pricing.go
package geo

import (
	"math"

	"github.com/shopspring/decimal"
)

// PricingPolicy describes the distance markup curve.
//
// The adjusted price grows linearly with distance, MarkupPer100Km of the base
// price for every 100 km, until the markup reaches MaxMarkup. The result is
// rounded half away from zero to an integer currency unit, so the curve is
// monotonically non-decreasing and equals the base price at 0 km. Prices are
// multiplied exactly and saturate at math.MaxInt64.
type PricingPolicy struct {
	MarkupPer100Km float64
	MaxMarkup      float64
}

// DefaultPricing adds 2% per 100 km, capped at 50%.
var DefaultPricing = PricingPolicy{
	MarkupPer100Km: 0.02,
	MaxMarkup:      0.50,
}

// Quote is the derived pricing of one listing for one buyer.
type Quote struct {
	DistanceKm    float64 `json:"distance_km"`
	AdjustedPrice int64   `json:"adjusted_price"`
	Deliverable   bool    `json:"deliverable"`
}

// AdjustedPrice applies DefaultPricing.
func AdjustedPrice(basePrice int64, distanceKm float64) int64 {
	return DefaultPricing.AdjustedPrice(basePrice, distanceKm)
}

func (p PricingPolicy) AdjustedPrice(basePrice int64, distanceKm float64) int64 {
	markup := p.markup(distanceKm)
	if markup == 0 || basePrice <= 0 {
		return basePrice
	}

	adjusted := decimal.NewFromInt(basePrice).Mul(decimal.NewFromFloat(1 + markup)).Round(0)
	if adjusted.GreaterThan(maxPrice) {
		return math.MaxInt64
	}
	return adjusted.IntPart()
}

var maxPrice = decimal.NewFromInt(math.MaxInt64)

func (p PricingPolicy) markup(distanceKm float64) float64 {
	if math.IsNaN(distanceKm) || distanceKm <= 0 || p.MarkupPer100Km <= 0 {
		return 0
	}

	m := p.MarkupPer100Km * distanceKm / 100
	if p.MaxMarkup > 0 && m > p.MaxMarkup {
		m = p.MaxMarkup
	}
	return m
}

// Quote prices a listing at seller for a buyer.
func (p PricingPolicy) Quote(basePrice int64, maxDeliveryKm float64, buyer, seller Point) Quote {
	d := Distance(buyer, seller)
	return Quote{
		DistanceKm:    d,
		AdjustedPrice: p.AdjustedPrice(basePrice, d),
		Deliverable:   IsDeliverable(maxDeliveryKm, d),
	}
}
