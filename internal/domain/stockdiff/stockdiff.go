// Package stockdiff compares successive catalog snapshots and classifies
// the transitions between them.
package stockdiff

import (
	"sort"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// Diff computes the typed change events between two snapshots of the same
// catalog. Pure given its inputs; both snapshots and the watchlist are
// treated as read-only.
//
// A nil or empty previous snapshot is the first-ever run: it establishes
// the baseline and yields zero events, which callers must not mistake for
// "no changes".
func Diff(previous, current model.CatalogSnapshot, watchlist model.Watchlist) []model.ChangeEvent {
	if len(previous) == 0 {
		return nil
	}

	var events []model.ChangeEvent

	for _, slug := range sortedSlugs(current) {
		if _, ok := previous[slug]; !ok {
			events = append(events, mark(model.ChangeEvent{
				Kind:    model.ChangeNewProduct,
				Product: current[slug],
			}, watchlist))
		}
	}

	for _, slug := range sortedSlugs(previous) {
		if _, ok := current[slug]; !ok {
			events = append(events, mark(model.ChangeEvent{
				Kind:    model.ChangeRemovedProduct,
				Product: previous[slug],
			}, watchlist))
		}
	}

	for _, slug := range sortedSlugs(previous) {
		curr, ok := current[slug]
		if !ok {
			continue
		}
		prev := previous[slug]

		switch {
		case !prev.InStock && curr.InStock:
			events = append(events, mark(model.ChangeEvent{
				Kind:    model.ChangeRestocked,
				Product: curr,
			}, watchlist))
		case prev.InStock && !curr.InStock:
			events = append(events, mark(model.ChangeEvent{
				Kind:    model.ChangeOutOfStock,
				Product: curr,
			}, watchlist))
		}

		// Price transitions are independent of stock transitions. An unknown
		// new price is skipped, but a product whose price becomes known is a
		// price change.
		if prev.Price != curr.Price && curr.Price != model.PriceUnknown {
			events = append(events, mark(model.ChangeEvent{
				Kind:     model.ChangePriceChanged,
				Product:  curr,
				OldPrice: prev.Price,
				NewPrice: curr.Price,
			}, watchlist))
		}
	}

	return events
}

func mark(e model.ChangeEvent, watchlist model.Watchlist) model.ChangeEvent {
	e.Watchlisted = watchlist.Contains(e.Product.Slug)
	return e
}

// sortedSlugs returns the snapshot keys in lexical order so diff output is
// deterministic across runs.
func sortedSlugs(snapshot model.CatalogSnapshot) []string {
	slugs := make([]string, 0, len(snapshot))
	for slug := range snapshot {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
