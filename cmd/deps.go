package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/link-validator/internal/cache"
	"github.com/jonesrussell/north-cloud/link-validator/internal/cleanser"
	"github.com/jonesrussell/north-cloud/link-validator/internal/config"
	"github.com/jonesrussell/north-cloud/link-validator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
	"github.com/jonesrussell/north-cloud/link-validator/internal/validator"
)

// commandDeps holds the components shared by every subcommand.
type commandDeps struct {
	Config    *config.Config
	Logger    logger.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Renderer  *renderer.Client
	Checker   *fetcher.Checker
	Redis     *redis.Client
	Cache     *cache.Verdicts
	Validator *validator.Validator
	Cleanser  *cleanser.Cleanser
}

// depsOptions adjusts wiring per subcommand.
type depsOptions struct {
	// cli sends console logs to stderr so stdout carries only results.
	cli bool
}

// loadConfig loads and validates configuration, applying the debug flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if viper.GetBool("debug") {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// newCommandDeps builds the validation pipeline from configuration.
func newCommandDeps(ctx context.Context, opts depsOptions) (*commandDeps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	logCfg.Development = logCfg.Development || cfg.Service.Debug
	if opts.cli {
		logCfg.Format = logger.FormatConsole
		logCfg.OutputPaths = []string{"stderr"}
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	d := &commandDeps{
		Config:   cfg,
		Logger:   log,
		Registry: reg,
		Metrics:  m,
		Checker:  fetcher.NewChecker(cfg.Fallback, log, m),
	}

	cfg.Validation.MaxConcurrentFallback = d.Checker.MaxConcurrent()

	vdeps := validator.Deps{
		Checker: d.Checker,
		Logger:  log,
		Metrics: m,
	}

	if cfg.Renderer.Enabled() {
		d.Renderer, err = renderer.New(cfg.Renderer, log, m)
		if err != nil {
			return nil, fmt.Errorf("create renderer: %w", err)
		}
		vdeps.Renderer = d.Renderer
	} else {
		log.Warn("Render service not configured, validating with HEAD requests only")
	}

	if cfg.Cache.Enabled {
		d.Redis, err = cache.NewClient(ctx, cfg.Cache)
		if err != nil {
			// The cache is an optimisation; run uncached rather than fail.
			log.Warn("Verdict cache unavailable, continuing without it", logger.Error(err))
		} else {
			d.Cache = cache.NewVerdicts(d.Redis, cfg.Cache.TTL, log, m)
			vdeps.Cache = d.Cache
		}
	}

	d.Validator, err = validator.New(cfg.Validation, vdeps)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create validator: %w", err)
	}
	d.Cleanser = cleanser.New(d.Validator, log, m)

	return d, nil
}

// Close releases the Redis connection and flushes the logger.
func (d *commandDeps) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	_ = d.Logger.Sync()
}

var errCacheDisabled = errors.New("verdict cache is not enabled or unreachable")
