// Package gateway assembles the mountgate request pipeline from config.
//
// Every configured mount becomes its own app, mounted under its prefix on the
// root app:
//
//	root:  RequestID → Logging → Tracing → /health → RateLimit → mounts… → 404
//	mount: Metrics → [Auth] → CircuitBreaker → Proxy
//
// Backends therefore receive paths relative to their mount prefix.
package gateway

import (
	"fmt"
	"log/slog"

	"github.com/tanmay/mountgate/internal/app"
	"github.com/tanmay/mountgate/internal/config"
	"github.com/tanmay/mountgate/internal/health"
	"github.com/tanmay/mountgate/internal/middleware"
	"github.com/tanmay/mountgate/internal/mount"
	"github.com/tanmay/mountgate/internal/proxy"
)

// HealthPath is where the health report is mounted.
const HealthPath = "/health"

// New builds the root app for cfg. hc may be nil, in which case backends are
// never taken out of rotation and no health endpoint is mounted.
func New(cfg *config.Config, hc *health.HealthChecker, logger *slog.Logger) (*app.App, error) {
	root := app.New("gateway").WithLogger(logger)
	root.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
	)
	if cfg.Telemetry.Enabled {
		root.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	}

	var source proxy.HealthSource
	if hc != nil {
		source = hc
		h, err := mount.Mount(HealthPath, hc.Handler(), mount.WithName("health"), mount.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		root.Use(h)
	}

	root.Use(middleware.NewRateLimiter(cfg.RateLimit.MaxTokens, cfg.RateLimit.RefillRate).Handler())

	auth := middleware.NewAuth(cfg.Auth.APIKeys, cfg.Auth.JWTSecret)
	for _, mc := range cfg.Mounts {
		sub, err := newMountApp(cfg, mc, auth, source, logger)
		if err != nil {
			return nil, err
		}

		h, err := mount.MountApp(mc.Prefix, sub, mount.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", mc.DisplayName(), err)
		}
		root.Use(h)

		logger.Info("mount registered",
			slog.String("prefix", mc.Prefix),
			slog.String("name", mc.DisplayName()),
			slog.Any("backends", mc.GetBackends()),
			slog.String("strategy", mc.Strategy),
			slog.Bool("auth", mc.Auth),
		)
	}

	return root, nil
}

func newMountApp(cfg *config.Config, mc config.MountConfig, auth *middleware.Auth, source proxy.HealthSource, logger *slog.Logger) (*app.App, error) {
	lb := proxy.NewLoadBalancer(mc.GetBackends(), mc.Strategy, source)
	p, err := proxy.New(lb, logger)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mc.DisplayName(), err)
	}

	sub := app.New(mc.DisplayName()).WithLogger(logger)
	sub.Use(middleware.Metrics())
	if mc.Auth {
		sub.Use(auth.Handler())
	}
	sub.Use(
		middleware.NewCircuitBreaker(mc.Prefix, cfg.CircuitBreaker.Threshold, cfg.CircuitBreakerTimeout(), logger).Handler(),
		p.Handler(),
	)

	return sub, nil
}
