package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/entitlement"
	"github.com/postpulse/postpulse/internal/logger"
	"github.com/postpulse/postpulse/internal/migration"
	"github.com/postpulse/postpulse/internal/organization"
	"github.com/postpulse/postpulse/internal/payment"
	"github.com/postpulse/postpulse/internal/plan"
	"github.com/postpulse/postpulse/internal/scheduler"
	"github.com/postpulse/postpulse/internal/server"
	"github.com/postpulse/postpulse/internal/usage"
	"github.com/postpulse/postpulse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		plan.Module,
		organization.Module,
		entitlement.Module,
		payment.Module,
		usage.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the process-wide id generator. The node id comes
// from the environment so replicas never collide.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
