package ledger

import "errors"

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrDuplicateColumn is returned when a header names a column twice.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrEmptyLedger is returned when a ledger file has no header row.
	ErrEmptyLedger = errors.New("empty ledger file")

	// ErrAlreadyMigrated is returned by Migrate when the ledger already has
	// a sku column and overwriting was not requested.
	ErrAlreadyMigrated = errors.New("ledger already has a sku column")
)
