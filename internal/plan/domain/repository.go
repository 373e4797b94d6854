package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindActiveByLookupKey returns the active plan for a lookup key, or nil
	// when no active plan carries it.
	FindActiveByLookupKey(ctx context.Context, db *gorm.DB, lookupKey string) (*Plan, error)
}
