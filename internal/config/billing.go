package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig carries the entitlement knobs operators tune without a
// redeploy: which plan a canceled subscription falls back to, how long the
// trial window lasts and the usage-reset cadence.
type BillingConfig struct {
	TrialPlanLookupKey  string `mapstructure:"trialPlanLookupKey"`
	TrialDurationDays   int    `mapstructure:"trialDurationDays"`
	UsageResetAfterDays int    `mapstructure:"usageResetAfterDays"`
	SweepIntervalMin    int    `mapstructure:"sweepIntervalMinutes"`
	SweepBatchSize      int    `mapstructure:"sweepBatchSize"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		TrialPlanLookupKey:  "trial",
		TrialDurationDays:   14,
		UsageResetAfterDays: 25,
		SweepIntervalMin:    60,
		SweepBatchSize:      200,
	}
}

func (c BillingConfig) TrialDuration() time.Duration {
	return time.Duration(c.TrialDurationDays) * 24 * time.Hour
}

func (c BillingConfig) UsageResetThreshold() time.Duration {
	return time.Duration(c.UsageResetAfterDays) * 24 * time.Hour
}

func (c BillingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/postpulse/config") // Volume-mounted config
	v.AddConfigPath("/etc/postpulse")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("POSTPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.trialPlanLookupKey", defaults.TrialPlanLookupKey)
	v.SetDefault("billing.trialDurationDays", defaults.TrialDurationDays)
	v.SetDefault("billing.usageResetAfterDays", defaults.UsageResetAfterDays)
	v.SetDefault("billing.sweepIntervalMinutes", defaults.SweepIntervalMin)
	v.SetDefault("billing.sweepBatchSize", defaults.SweepBatchSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	v := h.current.Load()
	if v == nil {
		return DefaultBillingConfig()
	}
	return v.(BillingConfig)
}

// NewStaticBillingConfigHolder builds a holder pinned to cfg, for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.TrialPlanLookupKey) == "" {
		return errors.New("billing.trialPlanLookupKey cannot be empty")
	}
	if cfg.TrialDurationDays <= 0 {
		return errors.New("billing.trialDurationDays must be positive")
	}
	if cfg.UsageResetAfterDays <= 0 {
		return errors.New("billing.usageResetAfterDays must be positive")
	}
	if cfg.SweepBatchSize <= 0 {
		return errors.New("billing.sweepBatchSize must be positive")
	}
	return nil
}
