package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates a provisioning race: the tenant's row has not
	// synced yet. Callers raise it so the provider retries.
	ErrNotFound = errors.New("organization_not_found")

	// ErrLimitsNotFound indicates a provisioning bug. No self-healing is
	// attempted; silently creating the row would mask the bug.
	ErrLimitsNotFound = errors.New("organization_limits_not_found")
)

type Repository interface {
	FindByTenantID(ctx context.Context, db *gorm.DB, tenantID string) (*Organization, error)
	FindLimitsByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*OrganizationLimits, error)
	// ListLimitsDueForReset returns limits rows whose last usage reset is at
	// or before the cutoff, oldest first.
	ListLimitsDueForReset(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]OrganizationLimits, error)
	SaveOrganization(ctx context.Context, db *gorm.DB, org *Organization) error
	SaveLimits(ctx context.Context, db *gorm.DB, limits *OrganizationLimits) error
}
