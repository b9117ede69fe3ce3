package config

import "errors"

// Configuration validation errors returned by Config.Validate and the file
// conversions. Callers can match them with errors.Is.
var (
	// ErrInvalidBaseURL is returned when the catalog URL is empty.
	ErrInvalidBaseURL = errors.New("invalid base URL: must not be empty")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidSaveInterval is returned when the flush interval is not positive.
	ErrInvalidSaveInterval = errors.New("invalid save interval: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPageDelay is returned when the delay between listing pages
	// is negative.
	ErrInvalidPageDelay = errors.New("invalid page delay: must be non-negative")

	// ErrInvalidJitter is returned when the jitter range is negative or
	// inverted.
	ErrInvalidJitter = errors.New("invalid jitter: need 0 <= min <= max")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSchedule is returned for a cron expression that cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrEmptyPath is returned when a required file path is empty.
	ErrEmptyPath = errors.New("invalid path: must not be empty")

	// ErrUnknownCategory is returned when the config file names a category
	// that does not exist.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidFloor is returned for a negative price floor.
	ErrInvalidFloor = errors.New("invalid price floor: must be non-negative")
)
