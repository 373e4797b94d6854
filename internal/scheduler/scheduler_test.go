package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	usagedomain "github.com/postpulse/postpulse/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUsageService struct {
	sweepCalls int
	stats      usagedomain.SweepStats
	err        error
	lastCtx    context.Context
}

func (f *fakeUsageService) ResetMonthlyUsage(ctx context.Context, tenantID string) (usagedomain.ResetOutcome, error) {
	return usagedomain.ResetOutcomeNotDue, nil
}

func (f *fakeUsageService) Sweep(ctx context.Context) (usagedomain.SweepStats, error) {
	f.sweepCalls++
	f.lastCtx = ctx
	return f.stats, f.err
}

func newTestScheduler(t *testing.T, usage *fakeUsageService) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:        zaptest.NewLogger(t),
		Clock:      clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		UsageSvc:   usage,
	})
	require.NoError(t, err)
	return sched
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRunsSweep(t *testing.T) {
	usage := &fakeUsageService{stats: usagedomain.SweepStats{Scanned: 3, Reset: 2, Skipped: 1}}
	sched := newTestScheduler(t, usage)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, usage.sweepCalls)

	// The job wrapper must bound each pass with a deadline.
	_, ok := usage.lastCtx.Deadline()
	assert.True(t, ok)
}

func TestRunOncePropagatesSweepErrors(t *testing.T) {
	usage := &fakeUsageService{err: errors.New("db gone")}
	sched := newTestScheduler(t, usage)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage_reset")
}

func TestRunOnceAbsorbsTimeouts(t *testing.T) {
	usage := &fakeUsageService{err: context.DeadlineExceeded}
	sched := newTestScheduler(t, usage)

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestRunOnceWithoutLockerStillRuns(t *testing.T) {
	usage := &fakeUsageService{}
	sched := newTestScheduler(t, usage)
	require.Nil(t, sched.locker)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, usage.sweepCalls)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 10*time.Minute, cfg.LockTTL)
	assert.NotEmpty(t, cfg.LockKey)

	custom := Config{JobTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Second, custom.JobTimeout)
}
