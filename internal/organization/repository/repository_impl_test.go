package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/postpulse/postpulse/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}, &domain.OrganizationLimits{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func seedLimits(t *testing.T, db *gorm.DB, node *snowflake.Node, lastReset time.Time) domain.OrganizationLimits {
	t.Helper()
	limits := domain.OrganizationLimits{
		ID:             node.Generate(),
		OrgID:          node.Generate(),
		LastUsageReset: lastReset,
		UpdatedAt:      lastReset,
	}
	require.NoError(t, db.Create(&limits).Error)
	return limits
}

func TestFindByTenantIDReturnsNilWhenMissing(t *testing.T) {
	db, _ := newTestDB(t)
	r := Provide()

	org, err := r.FindByTenantID(context.Background(), db, "nope")
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestListLimitsDueForResetOrdersOldestFirst(t *testing.T) {
	db, node := newTestDB(t)
	r := Provide()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newest := seedLimits(t, db, node, base)
	oldest := seedLimits(t, db, node, base.AddDate(0, 0, -40))
	middle := seedLimits(t, db, node, base.AddDate(0, 0, -30))
	fresh := seedLimits(t, db, node, base.AddDate(0, 0, 10))

	cutoff := base.Add(time.Second)
	due, err := r.ListLimitsDueForReset(context.Background(), db, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, oldest.ID, due[0].ID)
	assert.Equal(t, middle.ID, due[1].ID)
	assert.Equal(t, newest.ID, due[2].ID)
	for _, row := range due {
		assert.NotEqual(t, fresh.ID, row.ID)
	}
}

func TestListLimitsDueForResetHonorsLimit(t *testing.T) {
	db, node := newTestDB(t)
	r := Provide()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedLimits(t, db, node, base.AddDate(0, 0, -30-i))
	}

	due, err := r.ListLimitsDueForReset(context.Background(), db, base, 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}
