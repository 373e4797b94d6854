package migration

import (
	"github.com/postpulse/postpulse/internal/config"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	paymentdomain "github.com/postpulse/postpulse/internal/payment/domain"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
	"github.com/postpulse/postpulse/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, billingCfg *config.BillingConfigHolder) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite/mysql dev targets have no versioned migration driver
			// wired; the model schema is authoritative there.
			if err := conn.AutoMigrate(
				&plandomain.Plan{},
				&organizationdomain.Organization{},
				&organizationdomain.OrganizationLimits{},
				&paymentdomain.EventRecord{},
			); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultPlans {
			if err := seed.EnsureDefaultPlans(conn, billingCfg.Get().TrialPlanLookupKey); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.EnsureDemoOrg && !cfg.IsProduction() {
			return seed.EnsureDemoOrg(conn)
		}
		return nil
	}),
)
