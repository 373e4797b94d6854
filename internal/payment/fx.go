package payment

import (
	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/payment/domain"
	"github.com/postpulse/postpulse/internal/payment/repository"
	"github.com/postpulse/postpulse/internal/payment/stripe"
	"github.com/postpulse/postpulse/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.webhook",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) (domain.Adapter, error) {
		return stripe.NewAdapter(cfg.StripeWebhookSecret)
	}),
	fx.Provide(func(cfg config.Config) domain.ProviderClient {
		return stripe.NewClient(cfg.StripeAPIKey, cfg.StripeAPIBaseURL)
	}),
	fx.Provide(webhook.NewService),
)
