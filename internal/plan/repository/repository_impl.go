package repository

import (
	"context"
	"errors"

	"github.com/postpulse/postpulse/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActiveByLookupKey(ctx context.Context, db *gorm.DB, lookupKey string) (*domain.Plan, error) {
	var item domain.Plan
	err := db.WithContext(ctx).
		Where("lookup_key = ? AND is_active = ?", lookupKey, true).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
