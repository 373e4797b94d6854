package scheduler

import "time"

// Config controls the sweeper run loop.
type Config struct {
	JobTimeout time.Duration
	LockTTL    time.Duration
	LockKey    string
}

func DefaultConfig() Config {
	return Config{
		JobTimeout: 5 * time.Minute,
		LockTTL:    10 * time.Minute,
		LockKey:    "postpulse:scheduler:usage_reset",
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	return c
}
