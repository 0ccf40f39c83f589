// Package catalog holds the listings served by the marketplace read path.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/farmchain/farmchain-backend/internal/geo"
	"github.com/farmchain/farmchain-backend/internal/models"
)

//go:embed seed.json
var seedData []byte

var ErrListingNotFound = errors.New("listing not found")

// Catalog is immutable after Load and safe for concurrent readers.
type Catalog struct {
	listings []models.Listing
	byID     map[string]int
}

// Seed returns the catalog bundled with the binary.
func Seed() (*Catalog, error) {
	return Load(seedData)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Load(data)
}

func Load(data []byte) (*Catalog, error) {
	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{listings: listings, byID: make(map[string]int, len(listings))}
	for i, l := range listings {
		if l.ID == "" {
			return nil, fmt.Errorf("listing %d has no id", i)
		}
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("duplicate listing id %q", l.ID)
		}
		if _, err := geo.NewPoint(l.Location.Lat, l.Location.Lng); err != nil {
			return nil, fmt.Errorf("listing %q: %w", l.ID, err)
		}
		if l.BasePrice < 0 || l.MaxDeliveryDistance < 0 {
			return nil, fmt.Errorf("listing %q: negative price or delivery distance", l.ID)
		}
		c.byID[l.ID] = i
	}
	return c, nil
}

// All returns a copy of every listing in catalog order.
func (c *Catalog) All() []models.Listing {
	out := make([]models.Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

func (c *Catalog) Get(id string) (models.Listing, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Listing{}, ErrListingNotFound
	}
	return c.listings[i], nil
}

func (c *Catalog) Len() int {
	return len(c.listings)
}
