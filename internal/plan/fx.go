package plan

import (
	"github.com/postpulse/postpulse/internal/plan/repository"
	"github.com/postpulse/postpulse/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
