// Package sources contains the network-facing clients that produce the
// core's inputs: community posts and catalog snapshots. These are thin
// protocol wrappers; all reasoning happens downstream.
package sources

import (
	"context"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// PostSource fetches recent community posts, newest first.
type PostSource interface {
	RecentPosts(ctx context.Context, limit int) ([]model.SocialPost, error)
}

// CatalogSource fetches the storefront catalog as observed right now.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) (model.CatalogSnapshot, error)
}
