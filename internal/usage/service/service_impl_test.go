package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	organizationrepo "github.com/postpulse/postpulse/internal/organization/repository"
	"github.com/postpulse/postpulse/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationLimits{},
	))

	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := &Service{
		db:         db,
		log:        zaptest.NewLogger(t),
		clock:      fake,
		billingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		orgRepo:    organizationrepo.Provide(),
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return svc, db, fake, node
}

func seedOrgWithUsage(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID string, lastReset time.Time, used int64) organizationdomain.Organization {
	t.Helper()
	org := organizationdomain.Organization{ID: node.Generate(), TenantID: tenantID}
	require.NoError(t, db.Create(&org).Error)
	limits := organizationdomain.OrganizationLimits{
		ID:                 node.Generate(),
		OrgID:              org.ID,
		MonthlyCreditsUsed: used,
		LastUsageReset:     lastReset,
	}
	require.NoError(t, db.Create(&limits).Error)
	return org
}

func TestResetMonthlyUsageNotDue(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	org := seedOrgWithUsage(t, db, node, "org_1", fake.Now().Add(-10*24*time.Hour), 430)

	outcome, err := svc.ResetMonthlyUsage(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResetOutcomeNotDue, outcome)

	var limits organizationdomain.OrganizationLimits
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&limits).Error)
	assert.Equal(t, int64(430), limits.MonthlyCreditsUsed)
}

func TestResetMonthlyUsageAppliesAfterThreshold(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	org := seedOrgWithUsage(t, db, node, "org_1", fake.Now().Add(-26*24*time.Hour), 430)

	outcome, err := svc.ResetMonthlyUsage(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResetOutcomeApplied, outcome)

	var limits organizationdomain.OrganizationLimits
	require.NoError(t, db.Where("org_id = ?", org.ID).First(&limits).Error)
	assert.Equal(t, int64(0), limits.MonthlyCreditsUsed)
	assert.True(t, limits.LastUsageReset.Equal(fake.Now()))
}

func TestResetMonthlyUsageExactThresholdIsDue(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	seedOrgWithUsage(t, db, node, "org_1", fake.Now().Add(-25*24*time.Hour), 10)

	outcome, err := svc.ResetMonthlyUsage(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResetOutcomeApplied, outcome)
}

func TestResetMonthlyUsageMissingRowsAreSoft(t *testing.T) {
	svc, db, _, node := newTestService(t)

	outcome, err := svc.ResetMonthlyUsage(context.Background(), "org_missing")
	require.NoError(t, err)
	assert.Equal(t, domain.ResetOutcomeOrgMissing, outcome)

	org := organizationdomain.Organization{ID: node.Generate(), TenantID: "org_no_limits"}
	require.NoError(t, db.Create(&org).Error)

	outcome, err = svc.ResetMonthlyUsage(context.Background(), "org_no_limits")
	require.NoError(t, err)
	assert.Equal(t, domain.ResetOutcomeLimitsMissing, outcome)
}

func TestSweepResetsOnlyDueOrganizations(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	due1 := seedOrgWithUsage(t, db, node, "org_due_1", fake.Now().Add(-30*24*time.Hour), 500)
	due2 := seedOrgWithUsage(t, db, node, "org_due_2", fake.Now().Add(-26*24*time.Hour), 120)
	fresh := seedOrgWithUsage(t, db, node, "org_fresh", fake.Now().Add(-5*24*time.Hour), 80)

	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Reset)
	assert.Equal(t, 0, stats.Skipped)

	for _, orgID := range []snowflake.ID{due1.ID, due2.ID} {
		var limits organizationdomain.OrganizationLimits
		require.NoError(t, db.Where("org_id = ?", orgID).First(&limits).Error)
		assert.Equal(t, int64(0), limits.MonthlyCreditsUsed)
		assert.True(t, limits.LastUsageReset.Equal(fake.Now()))
	}

	var untouched organizationdomain.OrganizationLimits
	require.NoError(t, db.Where("org_id = ?", fresh.ID).First(&untouched).Error)
	assert.Equal(t, int64(80), untouched.MonthlyCreditsUsed)
}

func TestSweepDrainsInBatches(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	cfg := config.DefaultBillingConfig()
	cfg.SweepBatchSize = 2
	svc.billingCfg = config.NewStaticBillingConfigHolder(cfg)

	for i := 0; i < 5; i++ {
		seedOrgWithUsage(t, db, node, fmt.Sprintf("org_%d", i), fake.Now().Add(-40*24*time.Hour), 100)
	}

	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Reset)
}

func TestSweepHonorsContextCancellation(t *testing.T) {
	svc, db, fake, node := newTestService(t)
	seedOrgWithUsage(t, db, node, "org_1", fake.Now().Add(-30*24*time.Hour), 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
