package fetcher

import "time"

// Default fallback check settings.
const (
	DefaultTimeout       = 5 * time.Second
	DefaultMaxConcurrent = 10
	DefaultMaxRedirects  = 5
	DefaultUserAgent     = "NorthCloud-LinkValidator/1.0 (+https://northcloud.one/bot)"
)

// Config holds fallback checker settings.
type Config struct {
	// Timeout bounds each check, including a GET retry.
	Timeout time.Duration `env:"FALLBACK_TIMEOUT" yaml:"timeout"`
	// MaxConcurrent caps checks in flight for one batch.
	MaxConcurrent int    `env:"FALLBACK_MAX_CONCURRENT" yaml:"max_concurrent"`
	MaxRedirects  int    `yaml:"max_redirects"`
	UserAgent     string `env:"FALLBACK_USER_AGENT" yaml:"user_agent"`
}

// WithDefaults returns a copy of c with zero fields set to defaults.
func (c Config) WithDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}
