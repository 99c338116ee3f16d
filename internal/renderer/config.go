package renderer

import "time"

// Default renderer settings.
const (
	DefaultTimeout                 = 15 * time.Second
	DefaultMaxConcurrent           = 10
	DefaultWaitUntil               = "networkidle2"
	DefaultViewportWidth           = 1280
	DefaultViewportHeight          = 800
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerCooldown         = 30 * time.Second
)

// Config holds render service client settings.
type Config struct {
	// URL is the service base URL; empty disables rendering.
	URL   string `env:"RENDERER_URL"   yaml:"url"`
	Token string `env:"RENDERER_TOKEN" yaml:"token"`
	// Timeout bounds each render call.
	Timeout time.Duration `env:"RENDERER_TIMEOUT" yaml:"timeout"`
	// MaxConcurrent caps in-flight calls to the service across all batches.
	MaxConcurrent  int    `env:"RENDERER_MAX_CONCURRENT" yaml:"max_concurrent"`
	WaitUntil      string `yaml:"wait_until"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`

	BreakerFailureThreshold int           `yaml:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `yaml:"breaker_cooldown"`
}

// WithDefaults returns a copy of c with zero fields set to defaults.
func (c Config) WithDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.WaitUntil == "" {
		c.WaitUntil = DefaultWaitUntil
	}
	if c.ViewportWidth == 0 {
		c.ViewportWidth = DefaultViewportWidth
	}
	if c.ViewportHeight == 0 {
		c.ViewportHeight = DefaultViewportHeight
	}
	if c.BreakerFailureThreshold == 0 {
		c.BreakerFailureThreshold = DefaultBreakerFailureThreshold
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = DefaultBreakerCooldown
	}
	return c
}

// Enabled reports whether a service URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}
