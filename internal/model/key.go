package model

// Scheme identifies which identity rules produced a ProductKey.
//
// Keys from different schemes live in separate identity spaces: a SKU key is
// never equal to a composite key even when their text happens to match.
type Scheme int

const (
	// SchemeNone marks the zero ProductKey (no identity).
	SchemeNone Scheme = iota

	// SchemeSKU is a manufacturer SKU extracted from the title.
	SchemeSKU

	// SchemeComposite is the legacy (category, code, color) or
	// (category, title) composite used by ledgers without a sku column.
	SchemeComposite
)

// String returns the scheme name used in logs and reports.
func (s Scheme) String() string {
	switch s {
	case SchemeSKU:
		return "sku"
	case SchemeComposite:
		return "composite"
	default:
		return "none"
	}
}

// ProductKey is the stable identity of a physical product.
type ProductKey struct {
	// Scheme is the identity scheme that produced Value.
	Scheme Scheme `json:"scheme"`

	// Value is the SKU (SchemeSKU) or the composite key text.
	Value string `json:"value"`
}

// SKUKey returns a ProductKey in the SKU identity space.
func SKUKey(sku string) ProductKey {
	return ProductKey{Scheme: SchemeSKU, Value: sku}
}

// CompositeKey returns a ProductKey in the composite identity space.
func CompositeKey(value string) ProductKey {
	return ProductKey{Scheme: SchemeComposite, Value: value}
}

// IsZero reports whether the key carries no identity.
func (k ProductKey) IsZero() bool {
	return k.Scheme == SchemeNone || k.Value == ""
}

// IsSKU reports whether the key is a SKU key.
func (k ProductKey) IsSKU() bool {
	return k.Scheme == SchemeSKU && k.Value != ""
}

// String returns "scheme:value", which is unique across identity spaces.
func (k ProductKey) String() string {
	if k.IsZero() {
		return "none"
	}
	return k.Scheme.String() + ":" + k.Value
}
