package catalog

import "errors"

var (
	// ErrBadPrice is returned when a price string contains no parsable number.
	ErrBadPrice = errors.New("unparsable price")

	// ErrEmptyName is returned when normalization leaves nothing of a title.
	ErrEmptyName = errors.New("empty name after normalization")
)
