// internal/models/product.go
package models

import "github.com/farmchain/farmchain-backend/internal/geo"

type Location struct {
	City  string `json:"city"`
	State string `json:"state"`
	geo.Point
}

// Listing is a catalog entry priced in whole currency units before any
// distance markup.
type Listing struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Farmer      string   `json:"farmer"`
	Category    string   `json:"category"`
	Unit        string   `json:"unit"`
	BasePrice   int64    `json:"basePrice"`
	Location    Location `json:"location"`
	Description string   `json:"description"`
	// MaxDeliveryDistance in km; 0 means unconstrained.
	MaxDeliveryDistance float64 `json:"maxDeliveryDistance"`
	ShelfLifeDays       int     `json:"shelfLife"`
	Quantity            int     `json:"quantity"`
	Image               string  `json:"image,omitempty"`
}

func (l *Listing) Coordinates() geo.Point {
	return l.Location.Point
}

// PricedListing is a listing quoted for one buyer.
type PricedListing struct {
	Listing
	Quote geo.Quote `json:"quote"`
}
