package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postpulse/postpulse/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByTenantID(ctx context.Context, db *gorm.DB, tenantID string) (*domain.Organization, error) {
	var item domain.Organization
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindLimitsByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.OrganizationLimits, error) {
	var item domain.OrganizationLimits
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListLimitsDueForReset(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.OrganizationLimits, error) {
	var items []domain.OrganizationLimits
	err := db.WithContext(ctx).
		Where("last_usage_reset <= ?", cutoff).
		Order("last_usage_reset ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SaveOrganization(ctx context.Context, db *gorm.DB, org *domain.Organization) error {
	return db.WithContext(ctx).Save(org).Error
}

func (r *repo) SaveLimits(ctx context.Context, db *gorm.DB, limits *domain.OrganizationLimits) error {
	return db.WithContext(ctx).Save(limits).Error
}
