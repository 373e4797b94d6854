package service

import (
	"context"
	"strings"

	"github.com/postpulse/postpulse/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("plan.service"),
		repo: p.Repo,
	}
}

// GetActiveByLookupKey implements domain.Service.
func (s *Service) GetActiveByLookupKey(ctx context.Context, lookupKey string) (domain.Plan, error) {
	lookupKey = strings.TrimSpace(lookupKey)
	if lookupKey == "" {
		return domain.Plan{}, domain.ErrInvalidLookupKey
	}

	item, err := s.repo.FindActiveByLookupKey(ctx, s.db, lookupKey)
	if err != nil {
		return domain.Plan{}, err
	}
	if item == nil {
		return domain.Plan{}, domain.ErrNotFound
	}
	return *item, nil
}
