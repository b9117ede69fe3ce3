// Package identity derives stable product identities from free-text titles.
//
// Two schemes are supported. The SKU scheme extracts a manufacturer code
// such as "HYY72" using an ordered list of rules; the first rule that yields
// a code wins. The composite scheme is used by legacy ledgers that predate
// SKU extraction and combines category, series code and trailing color.
//
// The schemes produce keys in separate identity spaces (see model.Scheme).
// A composite key is never converted into a SKU key or the reverse.
package identity
