package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/carledger/internal/model"
	"github.com/nao1215/carledger/internal/pipeline"
)

// Parser extracts listing and product data from HTML.
type Parser struct {
	sel Selectors
}

// NewParser creates a Parser. Empty selector fields fall back to
// DefaultSelectors.
func NewParser(sel Selectors) *Parser {
	return &Parser{sel: sel.Merge(DefaultSelectors())}
}

// Selectors returns the effective selectors.
func (p *Parser) Selectors() Selectors {
	return p.sel
}

// ParseListing reads listing page index fetched from pageURL.
// Detail links are resolved against pageURL and deduplicated in page order.
// Items without a link are ignored.
func (p *Parser) ParseListing(index int, pageURL string, body []byte) (model.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.ListingPage{}, fmt.Errorf("failed to parse listing page %d: %w", index, err)
	}

	listing := model.ListingPage{Index: index}
	seen := make(map[string]struct{})
	doc.Find(p.sel.Item).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(p.sel.Link).First().Attr("href")
		if !ok {
			return
		}
		abs := resolveURL(pageURL, href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		listing.ProductURLs = append(listing.ProductURLs, abs)
	})

	listing.HasNext = doc.Find(p.sel.nextPageSelector(index+1)).Length() > 0
	return listing, nil
}

// ParseProduct reads a detail page. A missing title or price wraps
// pipeline.ErrMissingElement.
func (p *Parser) ParseProduct(pageURL string, body []byte) (model.ProductPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.ProductPage{}, fmt.Errorf("failed to parse product page %s: %w", pageURL, err)
	}

	title := text(doc, p.sel.Title)
	if title == "" {
		return model.ProductPage{}, fmt.Errorf("%w: title", pipeline.ErrMissingElement)
	}
	price := text(doc, p.sel.Price)
	if price == "" {
		return model.ProductPage{}, fmt.Errorf("%w: price", pipeline.ErrMissingElement)
	}

	page := model.ProductPage{
		URL:      pageURL,
		RawTitle: title,
		RawPrice: price,
	}
	if p.sel.SellPrice != "" {
		page.RawSellPrice = text(doc, p.sel.SellPrice)
	}
	if p.sel.Image != "" {
		img := doc.Find(p.sel.Image).First()
		src, ok := img.Attr("content")
		if !ok {
			src, _ = img.Attr("src")
		}
		if src = strings.TrimSpace(src); src != "" {
			page.ImageURL = resolveURL(pageURL, src)
		}
	}
	return page, nil
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// resolveURL resolves href against base. Non-HTTP links and unparsable
// values yield "".
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
