// Package seed provisions a usable plan catalog for fresh deployments and
// a demo tenant for local development.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
	"gorm.io/gorm"
)

const demoTenantID = "demo"

// EnsureDefaultPlans inserts the default catalog when the lookup keys are
// not taken yet. Existing plans are left untouched so operator edits
// survive restarts.
func EnsureDefaultPlans(db *gorm.DB, trialLookupKey string) error {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ltdCampaign := "EARLY_ADOPTER_2025"
	ltdStack := 1
	plans := []plandomain.Plan{
		{
			ID:              node.Generate(),
			LookupKey:       trialLookupKey,
			Name:            "Trial",
			Kind:            plandomain.PlanKindMonthly,
			IsActive:        true,
			MonthlyCredits:  50,
			MaxProjects:     1,
			MaxTeamMembers:  2,
			MaxStorageBytes: 1 << 28,
		},
		{
			ID:              node.Generate(),
			LookupKey:       "pro_monthly",
			Name:            "Pro",
			Kind:            plandomain.PlanKindMonthly,
			IsActive:        true,
			MonthlyCredits:  500,
			MaxProjects:     10,
			MaxTeamMembers:  5,
			MaxStorageBytes: 10 << 30,
		},
		{
			ID:                   node.Generate(),
			LookupKey:            "agency_ltd",
			Name:                 "Agency Lifetime",
			Kind:                 plandomain.PlanKindLifetime,
			IsActive:             true,
			MonthlyCredits:       2000,
			MaxProjects:          50,
			MaxTeamMembers:       15,
			MaxStorageBytes:      100 << 30,
			LtdCampaign:          &ltdCampaign,
			LtdStackLevel:        &ltdStack,
			RequiresPurchaseCode: true,
		},
	}

	for i := range plans {
		var count int64
		if err := db.Model(&plandomain.Plan{}).
			Where("lookup_key = ? AND is_active = ?", plans[i].LookupKey, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&plans[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// EnsureDemoOrg provisions one tenant with its limits row, mirroring what
// the identity subsystem does in real deployments.
func EnsureDemoOrg(db *gorm.DB) error {
	var count int64
	if err := db.Model(&organizationdomain.Organization{}).
		Where("tenant_id = ?", demoTenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	org := organizationdomain.Organization{
		ID:       node.Generate(),
		TenantID: demoTenantID,
	}
	if err := db.Create(&org).Error; err != nil {
		return err
	}

	limits := organizationdomain.OrganizationLimits{
		ID:             node.Generate(),
		OrgID:          org.ID,
		LastUsageReset: now,
		UpdatedAt:      now,
	}
	return db.Create(&limits).Error
}
