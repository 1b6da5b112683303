package model

// ChangeKind enumerates the typed transitions a catalog diff can produce.
type ChangeKind string

// Change kinds emitted by the catalog differencer.
const (
	ChangeNewProduct     ChangeKind = "new_product"
	ChangeRemovedProduct ChangeKind = "removed_product"
	ChangeRestocked      ChangeKind = "restocked"
	ChangeOutOfStock     ChangeKind = "out_of_stock"
	ChangePriceChanged   ChangeKind = "price_change"
)

// ChangeEvent is one typed transition between two catalog snapshots.
// OldPrice and NewPrice are set only for ChangePriceChanged. Watchlisted
// marks events whose slug belongs to the user-curated watchlist; such
// restocks are notification-guaranteed regardless of the operator's
// general notification toggles.
type ChangeEvent struct {
	Kind        ChangeKind
	Product     ProductRecord
	OldPrice    string
	NewPrice    string
	Watchlisted bool
}
