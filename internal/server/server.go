// Package server exposes the HTTP surface: the payment webhook endpoint,
// read-only entitlement and plan lookups, health and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postpulse/postpulse/internal/config"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	"github.com/postpulse/postpulse/internal/payment/webhook"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.Logger
	DB         *gorm.DB
	WebhookSvc *webhook.Service
	PlanSvc    plandomain.Service
	OrgRepo    organizationdomain.Repository
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	db         *gorm.DB
	webhookSvc *webhook.Service
	planSvc    plandomain.Service
	orgRepo    organizationdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Engine,
		log:        p.Log.Named("server"),
		db:         p.DB,
		webhookSvc: p.WebhookSvc,
		planSvc:    p.PlanSvc,
		orgRepo:    p.OrgRepo,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
	api.GET("/plans/:lookup_key", s.HandleGetPlan)
	api.GET("/orgs/:tenant_id/entitlements", s.HandleGetEntitlements)
}
