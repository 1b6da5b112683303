package notify

import "github.com/fragdrop/fragwatch/internal/domain/model"

// Prefs toggles which change kinds are forwarded to channels.
type Prefs struct {
	Restocked    bool
	NewProducts  bool
	OutOfStock   bool
	PriceChanges bool
}

// ShouldNotify decides whether a change event reaches the channels.
// Watchlist membership overrides the Restocked toggle: a watchlisted
// restock is delivered even when restock notifications are disabled.
func ShouldNotify(e model.ChangeEvent, prefs Prefs) bool {
	switch e.Kind {
	case model.ChangeRestocked:
		return prefs.Restocked || e.Watchlisted
	case model.ChangeNewProduct:
		return prefs.NewProducts
	case model.ChangeOutOfStock:
		return prefs.OutOfStock
	case model.ChangePriceChanged:
		return prefs.PriceChanges
	default:
		return false
	}
}
