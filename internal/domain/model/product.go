package model

import (
	"errors"
	"strings"
)

// PriceUnknown is the sentinel used when the storefront does not expose a
// price for a listing.
const PriceUnknown = "N/A"

// ErrMissingSlug is returned when a product record is constructed without
// a stable identifier.
var ErrMissingSlug = errors.New("product record: missing slug")

// ProductRecord is one catalog entry at a point in time. Two snapshots of
// the same slug are compared by value equality on Price and InStock.
type ProductRecord struct {
	Slug    string `json:"slug"` // stable identifier, unique key within a snapshot
	Name    string `json:"name"`
	URL     string `json:"url"`
	Price   string `json:"price"` // string form, PriceUnknown when not observable
	InStock bool   `json:"in_stock"`
}

// NewProductRecord validates and builds a ProductRecord. A missing slug is
// a contract violation by the caller and fails here rather than mid-diff.
func NewProductRecord(slug, name, url, price string, inStock bool) (ProductRecord, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductRecord{}, ErrMissingSlug
	}
	price = strings.TrimSpace(price)
	if price == "" {
		price = PriceUnknown
	}
	return ProductRecord{
		Slug:    slug,
		Name:    strings.TrimSpace(name),
		URL:     url,
		Price:   price,
		InStock: inStock,
	}, nil
}

// CatalogSnapshot maps slug to record, representing the entire catalog as
// observed at one time. Treated as read-only by the differencer.
type CatalogSnapshot map[string]ProductRecord

// Watchlist is a read-only set of slugs curated for guaranteed-notify
// treatment during differencing.
type Watchlist map[string]struct{}

// NewWatchlist builds a Watchlist from config slugs, ignoring blanks.
func NewWatchlist(slugs []string) Watchlist {
	w := make(Watchlist, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s != "" {
			w[s] = struct{}{}
		}
	}
	return w
}

// Contains reports watchlist membership. A nil Watchlist contains nothing.
func (w Watchlist) Contains(slug string) bool {
	_, ok := w[slug]
	return ok
}
