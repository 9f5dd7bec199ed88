package model

import (
	"errors"
)

var (
	// ErrNotFound reports that an identifier does not resolve to retrievable content
	// (deleted, private or never existed) or that a cache entry is absent.
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("query limit is exceeded")
)
