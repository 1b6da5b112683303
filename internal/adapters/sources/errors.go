package sources

import "errors"

// Sentinel errors for this package, checked with errors.Is.
var (
	ErrFetchPosts   = errors.New("fetch posts failed")
	ErrFetchCatalog = errors.New("fetch catalog failed")
)
