package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidLookupKey = errors.New("invalid_lookup_key")
	ErrNotFound         = errors.New("plan_not_found")
)

// Service is the read path into the plan catalog. Plans are queried per
// operation rather than cached so activation/deactivation takes effect
// immediately.
type Service interface {
	GetActiveByLookupKey(ctx context.Context, lookupKey string) (Plan, error)
}
