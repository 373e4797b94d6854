// Package domain defines the monthly usage reset contract.
package domain

import "context"

// ResetOutcome classifies a per-organization reset attempt. None of the
// outcomes are errors: the sweeper is a scheduled job, not a user-facing
// call, and skips are part of normal operation.
type ResetOutcome string

const (
	ResetOutcomeApplied       ResetOutcome = "applied"
	ResetOutcomeNotDue        ResetOutcome = "not_due"
	ResetOutcomeOrgMissing    ResetOutcome = "org_missing"
	ResetOutcomeLimitsMissing ResetOutcome = "limits_missing"
)

// SweepStats summarizes one sweeper pass.
type SweepStats struct {
	Scanned int
	Reset   int
	Skipped int
}

type Service interface {
	// ResetMonthlyUsage opens a fresh usage window for one tenant if the
	// reset threshold has elapsed since its last reset.
	ResetMonthlyUsage(ctx context.Context, tenantID string) (ResetOutcome, error)

	// Sweep resets every organization whose usage window is due, in batches.
	Sweep(ctx context.Context) (SweepStats, error)
}
