package validator

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/signals"
)

// Default batch settings.
const (
	DefaultMaxBatchSize          = 500
	DefaultMaxConcurrentRenders  = 10
	DefaultMaxConcurrentFallback = 10
)

// Config tunes the validation pipeline.
type Config struct {
	// MaxBatchSize is the largest batch ValidateBatch accepts.
	MaxBatchSize         int `env:"VALIDATION_MAX_BATCH_SIZE" yaml:"max_batch_size"`
	MaxConcurrentRenders int `yaml:"max_concurrent_renders"`
	// MaxConcurrentFallback is taken from fallback.max_concurrent when loaded from config.
	MaxConcurrentFallback int `yaml:"-"`

	Scores     domain.Scores      `yaml:"scores"`
	Thresholds signals.Thresholds `yaml:"thresholds"`

	// TrustedDomains and PaywallDomains extend the built-in domain tables.
	TrustedDomains []string `yaml:"trusted_domains"`
	PaywallDomains []string `yaml:"paywall_domains"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.MaxConcurrentRenders == 0 {
		c.MaxConcurrentRenders = DefaultMaxConcurrentRenders
	}
	if c.MaxConcurrentFallback == 0 {
		c.MaxConcurrentFallback = DefaultMaxConcurrentFallback
	}
	c.Scores.SetDefaults()
	c.Thresholds.SetDefaults()
}

// Validate checks the settings after defaults are applied.
func (c *Config) Validate() error {
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.MaxConcurrentRenders < 1 || c.MaxConcurrentFallback < 1 {
		return fmt.Errorf("concurrency limits must be positive, got renders=%d fallback=%d",
			c.MaxConcurrentRenders, c.MaxConcurrentFallback)
	}
	return c.Scores.Validate()
}
