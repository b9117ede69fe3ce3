package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeSource serves bodies from a map.
type fakeSource struct {
	pages map[string]string
}

func (s *fakeSource) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := s.pages[url]
	if !ok {
		return nil, &StatusError{URL: url, Code: 404}
	}
	return []byte(body), nil
}

// TestNewCatalogFetcher tests base URL validation.
func TestNewCatalogFetcher(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"", "shop.test/?page=", "ftp://shop.test/?page=", "http://"} {
		if _, err := NewCatalogFetcher(&fakeSource{}, NewParser(Selectors{}), base); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("base %q: expected ErrInvalidBaseURL, got %v", base, err)
		}
	}

	f, err := NewCatalogFetcher(&fakeSource{}, NewParser(Selectors{}), DefaultBaseURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.ListingURL(12); got != "https://retromagaz.com/hot-wheels?page=12" {
		t.Errorf("unexpected listing URL %q", got)
	}
}

// TestCatalogFetcher tests listing and product fetching through a source.
func TestCatalogFetcher(t *testing.T) {
	t.Parallel()

	base := "https://shop.test/hot-wheels?page="
	src := &fakeSource{pages: map[string]string{
		base + "1": `<div class="game-card"><a class="game-card__image" href="/p/1">x</a></div>
<li class="item" data-p="2">2</li>`,
		"https://shop.test/p/1": `<div class="product_title--top"><h1>Hot Wheels Skyline HYY72</h1></div>
<div class="product_info--shoping-bar"><span class="price">200</span></div>`,
	}}

	f, err := NewCatalogFetcher(src, NewParser(Selectors{}), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	listing, err := f.FetchListing(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listing.ProductURLs) != 1 || listing.ProductURLs[0] != "https://shop.test/p/1" || !listing.HasNext {
		t.Errorf("unexpected listing %+v", listing)
	}

	page, err := f.FetchProduct(ctx, listing.ProductURLs[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.RawTitle != "Hot Wheels Skyline HYY72" || page.RawPrice != "200" {
		t.Errorf("unexpected product %+v", page)
	}

	if _, err := f.FetchListing(ctx, 2); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected status error for missing page, got %v", err)
	}
	if _, err := f.FetchProduct(ctx, fmt.Sprintf("https://shop.test/p/%d", 9)); err == nil {
		t.Error("expected error for missing product")
	}
}
