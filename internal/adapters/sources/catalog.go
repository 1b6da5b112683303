package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/pkg/logger"
)

// CatalogClient reads the storefront collection through its JSON view.
// Listings without an exposed price carry the PriceUnknown sentinel.
type CatalogClient struct {
	catalogURL string
	userAgent  string
	client     *http.Client
	backoff    Backoff
	logger     logger.Logger
}

// CatalogOption applies a configuration option to the CatalogClient.
type CatalogOption func(*CatalogClient)

// WithCatalogHTTPClient overrides the HTTP client, for tests.
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(cc *CatalogClient) {
		if c != nil {
			cc.client = c
		}
	}
}

// WithCatalogBackoff overrides the retry tuning.
func WithCatalogBackoff(b Backoff) CatalogOption {
	return func(cc *CatalogClient) { cc.backoff = b }
}

// NewCatalogClient creates a client for one collection URL.
func NewCatalogClient(catalogURL, userAgent string, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		catalogURL: catalogURL,
		userAgent:  userAgent,
		client:     &http.Client{Timeout: 30 * time.Second},
		backoff:    DefaultBackoff(),
		logger:     logger.Get().Named("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// collection mirrors the subset of the storefront JSON view we consume.
type collection struct {
	Items []struct {
		Title   string `json:"title"`
		FullURL string `json:"fullUrl"`
		URLID   string `json:"urlId"`
		Variants []struct {
			Price   string `json:"price"`
			SoldOut bool   `json:"soldOut"`
		} `json:"variants"`
	} `json:"items"`
}

// FetchCatalog fetches the collection and maps it to a snapshot keyed by
// slug. Malformed listings are skipped with a warning rather than
// poisoning the snapshot.
func (c *CatalogClient) FetchCatalog(ctx context.Context) (model.CatalogSnapshot, error) {
	var body collection
	err := c.backoff.Do(ctx, func() error {
		return c.getJSON(ctx, c.catalogURL+"?format=json", &body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchCatalog, err)
	}

	snap := make(model.CatalogSnapshot, len(body.Items))
	for _, item := range body.Items {
		price := model.PriceUnknown
		inStock := true
		if len(item.Variants) > 0 {
			if p := item.Variants[0].Price; p != "" {
				price = p
			}
			inStock = !item.Variants[0].SoldOut
		}
		rec, err := model.NewProductRecord(item.URLID, item.Title, item.FullURL, price, inStock)
		if err != nil {
			c.logger.Warn(ctx, "skipping malformed listing",
				logger.String("title", item.Title),
				logger.Error(err),
			)
			continue
		}
		snap[rec.Slug] = rec
	}
	return snap, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode collection: %w", err)
	}
	return nil
}
