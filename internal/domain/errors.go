package domain

import "errors"

var (
	ErrEmptyProductID = errors.New("empty product id")
	ErrNegativePrice  = errors.New("negative price")
)

var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrQueryTooLong     = errors.New("query too long")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrUnknownService   = errors.New("unknown service")
)

var (
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrAllServicesFailed = errors.New("all services failed")
)
