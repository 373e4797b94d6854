// Package domain contains persistence models for the plan catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanKind distinguishes recurring tiers from one-time lifetime deals.
type PlanKind string

const (
	PlanKindMonthly  PlanKind = "monthly"
	PlanKindLifetime PlanKind = "lifetime"
)

// Plan is a purchasable tier. The catalog is seeded externally; the
// reconciliation engine only ever reads it.
type Plan struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	LookupKey string       `gorm:"type:text;not null;index" json:"lookup_key"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Kind      PlanKind     `gorm:"type:text;not null" json:"kind"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`

	MonthlyCredits  int64 `gorm:"not null;default:0" json:"monthly_credits"`
	MaxProjects     int   `gorm:"not null;default:0" json:"max_projects"`
	MaxTeamMembers  int   `gorm:"not null;default:0" json:"max_team_members"`
	MaxStorageBytes int64 `gorm:"not null;default:0" json:"max_storage_bytes"`

	LtdCampaign          *string `gorm:"column:ltd_campaign;type:text" json:"ltd_campaign,omitempty"`
	LtdStackLevel        *int    `gorm:"column:ltd_stack_level" json:"ltd_stack_level,omitempty"`
	RequiresPurchaseCode bool    `gorm:"not null;default:false" json:"requires_purchase_code"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// IsLifetime reports whether the plan is a one-time lifetime deal.
func (p Plan) IsLifetime() bool { return p.Kind == PlanKindLifetime }
