package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/carledger/internal/model"
	"github.com/nao1215/carledger/internal/pipeline"
)

// DefaultBaseURL is the listing URL prefix; the page number is appended.
const DefaultBaseURL = "https://retromagaz.com/hot-wheels?page="

// CatalogFetcher fetches and parses catalog pages.
type CatalogFetcher struct {
	source  PageSource
	parser  *Parser
	baseURL string
}

var (
	_ ListingFetcher          = (*CatalogFetcher)(nil)
	_ pipeline.ProductFetcher = (*CatalogFetcher)(nil)
)

// NewCatalogFetcher creates a CatalogFetcher. baseURL must be an absolute
// HTTP(S) URL; listing page n is baseURL followed by n.
func NewCatalogFetcher(source PageSource, parser *Parser, baseURL string) (*CatalogFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return &CatalogFetcher{source: source, parser: parser, baseURL: baseURL}, nil
}

// ListingURL returns the URL of listing page n.
func (f *CatalogFetcher) ListingURL(n int) string {
	return f.baseURL + strconv.Itoa(n)
}

// FetchListing fetches and parses listing page n.
func (f *CatalogFetcher) FetchListing(ctx context.Context, n int) (model.ListingPage, error) {
	pageURL := f.ListingURL(n)
	body, err := f.source.Fetch(ctx, pageURL)
	if err != nil {
		return model.ListingPage{}, err
	}
	return f.parser.ParseListing(n, pageURL, body)
}

// FetchProduct fetches and parses a detail page.
func (f *CatalogFetcher) FetchProduct(ctx context.Context, pageURL string) (model.ProductPage, error) {
	body, err := f.source.Fetch(ctx, pageURL)
	if err != nil {
		return model.ProductPage{}, err
	}
	return f.parser.ParseProduct(pageURL, body)
}
