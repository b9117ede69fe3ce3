package model

// ProductPage is a detail page reduced to the raw fields carledger needs.
// Values are exactly what the page showed; no cleanup has been applied.
type ProductPage struct {
	// URL is the detail page address.
	URL string `json:"url"`

	// RawTitle is the product title as displayed.
	RawTitle string `json:"raw_title"`

	// RawPrice is the buy price text, including currency symbols and spacing.
	RawPrice string `json:"raw_price"`

	// RawSellPrice is the optional sell (old/crossed-out) price text.
	RawSellPrice string `json:"raw_sell_price,omitempty"`

	// ImageURL is the absolute URL of the main product image, if any.
	ImageURL string `json:"image_url,omitempty"`
}

// ListingPage is one page of the paginated catalog index.
type ListingPage struct {
	// Index is the 1-based page number.
	Index int `json:"index"`

	// ProductURLs are the absolute detail page URLs linked from this page.
	ProductURLs []string `json:"product_urls"`

	// HasNext reports whether the catalog continues after this page.
	HasNext bool `json:"has_next"`
}
