package crawler

import (
	"strconv"
	"strings"
)

// PagePlaceholder is replaced by the next page number in Selectors.NextPage.
const PagePlaceholder = "{page}"

// Selectors are the CSS selectors used to read catalog markup.
type Selectors struct {
	// Item matches one product card on a listing page.
	Item string `yaml:"item"`
	// Link matches the detail link inside an item; its href is used.
	Link string `yaml:"link"`
	// NextPage matches the pagination entry of the following page.
	// PagePlaceholder is replaced by that page's number.
	NextPage string `yaml:"next_page"`
	// Title matches the product title on a detail page.
	Title string `yaml:"title"`
	// Price matches the buy price on a detail page.
	Price string `yaml:"price"`
	// SellPrice matches the optional old price. Empty disables it.
	SellPrice string `yaml:"sell_price"`
	// Image matches the main image; content or src is used.
	Image string `yaml:"image"`
}

// DefaultSelectors returns the selectors of the retromagaz.com catalog.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:     "div.game-card",
		Link:     "a.game-card__image",
		NextPage: `li.item[data-p="` + PagePlaceholder + `"]`,
		Title:    `div[class*="product_title--top"] h1, div[class*="product_title--top"] p.h1`,
		Price:    "div.product_info--shoping-bar span.price",
		Image:    `meta[property="og:image"]`,
	}
}

// Merge returns s with empty fields taken from def.
func (s Selectors) Merge(def Selectors) Selectors {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Selectors{
		Item:      pick(s.Item, def.Item),
		Link:      pick(s.Link, def.Link),
		NextPage:  pick(s.NextPage, def.NextPage),
		Title:     pick(s.Title, def.Title),
		Price:     pick(s.Price, def.Price),
		SellPrice: pick(s.SellPrice, def.SellPrice),
		Image:     pick(s.Image, def.Image),
	}
}

// nextPageSelector returns the NextPage selector for page.
func (s Selectors) nextPageSelector(page int) string {
	return strings.ReplaceAll(s.NextPage, PagePlaceholder, strconv.Itoa(page))
}
