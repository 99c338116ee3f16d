package config

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/north-cloud/link-validator/internal/cache"
	"github.com/jonesrussell/north-cloud/link-validator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
	"github.com/jonesrussell/north-cloud/link-validator/internal/validator"
)

// Default configuration values.
const (
	defaultServiceName     = "link-validator"
	defaultVersion         = "0.1.0"
	defaultServerPort      = 8099
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultRedisAddress    = "localhost:6379"
)

// Config holds the application configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Server     ServerConfig     `yaml:"server"`
	Logging    logger.Config    `yaml:"logging"`
	Renderer   renderer.Config  `yaml:"renderer"`
	Fallback   fetcher.Config   `yaml:"fallback"`
	Validation validator.Config `yaml:"validation"`
	Cache      cache.Config     `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"LINK_VALIDATOR_HOST" yaml:"host"`
	Port            int           `env:"LINK_VALIDATOR_PORT" yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// Address returns the listen address in host:port form.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AuthConfig holds API authentication settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// Load loads configuration from path. A missing file yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	return LoadFileWithDefaults[Config](path, setDefaults)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setServerDefaults(&cfg.Server)
	cfg.Logging.SetDefaults()
	cfg.Renderer = cfg.Renderer.WithDefaults()
	cfg.Fallback = cfg.Fallback.WithDefaults()
	cfg.Validation.SetDefaults()
	setCacheDefaults(&cfg.Cache)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
}

func setServerDefaults(srv *ServerConfig) {
	if srv.Port == 0 {
		srv.Port = defaultServerPort
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = defaultReadTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = defaultWriteTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = defaultIdleTimeout
	}
	if srv.ShutdownTimeout == 0 {
		srv.ShutdownTimeout = defaultShutdownTimeout
	}
}

func setCacheDefaults(c *cache.Config) {
	if c.Address == "" {
		c.Address = defaultRedisAddress
	}
	if c.TTL == 0 {
		c.TTL = cache.DefaultTTL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if c.Fallback.Timeout <= 0 {
		return &ValidationError{Field: "fallback.timeout", Message: "must be positive"}
	}
	if c.Fallback.MaxRedirects < 0 {
		return &ValidationError{Field: "fallback.max_redirects", Message: "must not be negative"}
	}
	if err := c.Validation.Validate(); err != nil {
		return &ValidationError{Field: "validation", Message: err.Error()}
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return &ValidationError{Field: "cache.address", Message: "is required when cache is enabled"}
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if !c.Renderer.Enabled() {
		return nil
	}
	u, err := url.Parse(c.Renderer.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "renderer.url", Message: "must be an absolute http(s) URL"}
	}
	if c.Renderer.Timeout <= 0 {
		return &ValidationError{Field: "renderer.timeout", Message: "must be positive"}
	}
	if c.Renderer.MaxConcurrent < 1 {
		return &ValidationError{Field: "renderer.max_concurrent", Message: "must be positive"}
	}
	return nil
}
