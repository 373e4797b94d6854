// Package domain contains persistence models for billable tenants and
// their usage ledgers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
)

// Organization represents a billable tenant. Rows are provisioned by the
// identity subsystem before any payment webhook can fire; this service only
// mutates entitlement fields.
type Organization struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID string        `gorm:"type:text;not null;uniqueIndex:ux_organizations_tenant_id" json:"tenant_id"`
	PlanID   *snowflake.ID `gorm:"index" json:"plan_id,omitempty"`

	StripeCustomerID         *string    `gorm:"type:text" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID     *string    `gorm:"type:text" json:"stripe_subscription_id,omitempty"`
	StripeSubscriptionStatus *string    `gorm:"type:text" json:"stripe_subscription_status,omitempty"`
	StripeCurrentPeriodEnd   *time.Time `gorm:"" json:"stripe_current_period_end,omitempty"`

	LifetimeAccess      bool       `gorm:"not null;default:false" json:"lifetime_access"`
	ActiveLtdCampaign   *string    `gorm:"column:active_ltd_campaign;type:text" json:"active_ltd_campaign,omitempty"`
	TotalStacksRedeemed int        `gorm:"not null;default:0" json:"total_stacks_redeemed"`
	LtdPurchaseDate     *time.Time `gorm:"column:ltd_purchase_date" json:"ltd_purchase_date,omitempty"`

	IsOnTrial    bool       `gorm:"not null;default:false" json:"is_on_trial"`
	TrialEndDate *time.Time `gorm:"" json:"trial_end_date,omitempty"`

	BillingAnchorDay *int16 `gorm:"type:smallint" json:"billing_anchor_day,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationLimits is the live usage ledger, exactly one row per
// organization. Limit fields are re-derived from the plan on every plan
// change; used counters never go negative.
type OrganizationLimits struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID    snowflake.ID  `gorm:"not null;uniqueIndex:ux_organization_limits_org_id" json:"org_id"`
	PlanID   *snowflake.ID `gorm:"index" json:"plan_id,omitempty"`
	PlanKind string        `gorm:"type:text;not null;default:''" json:"plan_kind"`

	MonthlyCreditsUsed  int64     `gorm:"not null;default:0" json:"monthly_credits_used"`
	MonthlyCreditsLimit int64     `gorm:"not null;default:0" json:"monthly_credits_limit"`
	ExtraCredits        int64     `gorm:"not null;default:0" json:"extra_credits"`
	LastUsageReset      time.Time `gorm:"not null" json:"last_usage_reset"`

	ProjectsUsed      int   `gorm:"not null;default:0" json:"projects_used"`
	ProjectsLimit     int   `gorm:"not null;default:0" json:"projects_limit"`
	TeamMembersUsed   int   `gorm:"not null;default:0" json:"team_members_used"`
	TeamMembersLimit  int   `gorm:"not null;default:0" json:"team_members_limit"`
	StorageBytesUsed  int64 `gorm:"not null;default:0" json:"storage_bytes_used"`
	StorageBytesLimit int64 `gorm:"not null;default:0" json:"storage_bytes_limit"`

	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationLimits) TableName() string { return "organization_limits" }

// ApplyPlan re-derives the limit fields from a plan and opens a fresh usage
// window. A plan change never prorates.
func (l *OrganizationLimits) ApplyPlan(plan plandomain.Plan, now time.Time) {
	planID := plan.ID
	l.PlanID = &planID
	l.PlanKind = string(plan.Kind)
	l.MonthlyCreditsUsed = 0
	l.MonthlyCreditsLimit = plan.MonthlyCredits
	l.ProjectsLimit = plan.MaxProjects
	l.TeamMembersLimit = plan.MaxTeamMembers
	l.StorageBytesLimit = plan.MaxStorageBytes
	l.LastUsageReset = now
	l.UpdatedAt = now
}
