// Package catalog implements the client for the upstream product catalog API:
// defensive payload normalization, response caching, and admission control on
// outbound calls.
package catalog

import (
	"encoding/json"
	"time"
)

// Product is the canonical unit of catalog data. Numeric fields always hold
// the best-effort parsed value, never a raw display string. A Product with an
// empty ASIN is a parsing failure, not a valid entity.
type Product struct {
	ASIN          string    `json:"asin"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"review_count"`
	Availability  string    `json:"availability"`
	PrimeEligible bool      `json:"prime_eligible"`
	Category      string    `json:"category"`
	URL           string    `json:"url"`
	ImageURL      string    `json:"image_url"`
	Features      []string  `json:"features"`
	Description   string    `json:"description"`
	Brand         string    `json:"brand"`
	LastUpdated   time.Time `json:"last_updated"`
}

// newProduct stamps the refresh timestamp at construction so records stay
// immutable afterwards.
func newProduct(p Product) Product {
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	return p
}

// Review is a raw upstream review object, passed through verbatim.
type Review = json.RawMessage
