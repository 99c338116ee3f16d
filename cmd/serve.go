package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-validator/internal/api"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			deps, err := newCommandDeps(ctx, depsOptions{})
			if err != nil {
				return err
			}
			defer deps.Close()

			cfg := deps.Config
			if cfg.Auth.JWTSecret == "" {
				deps.Logger.Warn("AUTH_JWT_SECRET not set, API is unauthenticated")
			}

			handler := api.NewHandler(deps.Validator, deps.Cleanser, deps.Logger)

			builder := api.NewServerBuilder(cfg.Service.Name, cfg.Server.Port).
				WithConfig(api.Config{
					Host:            cfg.Server.Host,
					Port:            cfg.Server.Port,
					Debug:           cfg.Service.Debug,
					ReadTimeout:     cfg.Server.ReadTimeout,
					WriteTimeout:    cfg.Server.WriteTimeout,
					IdleTimeout:     cfg.Server.IdleTimeout,
					ShutdownTimeout: cfg.Server.ShutdownTimeout,
					CORS:            api.CORSConfig{AllowedOrigins: cfg.Server.CORSOrigins},
					ServiceName:     cfg.Service.Name,
					ServiceVersion:  cfg.Service.Version,
				}).
				WithLogger(deps.Logger).
				WithRoutes(func(router *gin.Engine) {
					handler.RegisterRoutes(router, cfg.Auth.JWTSecret)
				}).
				WithRoutes(api.MetricsRoute(deps.Registry))

			if deps.Renderer != nil {
				builder.WithHealthCheck("render_circuit", api.CircuitHealthChecker(deps.Renderer.CircuitState))
			}
			if deps.Cache != nil {
				builder.WithHealthCheck("redis", api.RedisHealthChecker(deps.Cache.Ping))
			}

			deps.Logger.Info("Starting link validator",
				logger.String("version", cfg.Service.Version),
				logger.Bool("renderer_enabled", deps.Renderer != nil),
				logger.Bool("cache_enabled", deps.Cache != nil),
				logger.Int("max_batch_size", deps.Validator.MaxBatchSize()),
			)

			if runErr := builder.Build().RunWithGracefulShutdown(ctx); runErr != nil {
				return fmt.Errorf("run server: %w", runErr)
			}
			return nil
		},
	}
}
