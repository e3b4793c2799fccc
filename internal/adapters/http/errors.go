package http

import "errors"

var (
	errUnknownTier = errors.New("unknown spotlight tier")
	errBadAmount   = errors.New("amount not in allowed denominations")
	errBadPurpose  = errors.New("unknown purchase purpose")
)
