package resilience

import "time"

// Config is the shared retry and breaker policy. The same executor is
// handed to the inference client and the broker publisher, so the
// values here bound every outbound dependency of the pipeline.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// normalize backfills zero or nonsensical fields from DefaultConfig so
// a partially filled Config cannot disable retries by accident.
func (c Config) normalize() Config {
	def := DefaultConfig()

	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if c.RetryMaxBackoff < c.RetryInitialBackoff {
		c.RetryMaxBackoff = c.RetryInitialBackoff
	}
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return c
}
