package identity

import "errors"

// ErrNoIdentity is returned when no rule can derive an identity from a title.
var ErrNoIdentity = errors.New("no identity found in title")
