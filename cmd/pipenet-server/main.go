package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-pipenet/pkg/api"
	"github.com/dd0wney/cluso-pipenet/pkg/api/middleware"
	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/config"
	"github.com/dd0wney/cluso-pipenet/pkg/dataset"
	"github.com/dd0wney/cluso-pipenet/pkg/health"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/metrics"
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/server"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipenet-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "optional .env file")
	location := flag.String("dataset", "", "dataset location: path, file://, s3://bucket/key or postgres:// DSN (overrides PIPENET_DATASET)")
	port := flag.Int("port", 0, "HTTP port (overrides PIPENET_PORT / PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *location != "" {
		cfg.Dataset.Location = *location
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset.Location == "" {
		return errors.New("no dataset location: pass -dataset or set PIPENET_DATASET")
	}

	logger := cfg.NewLogger(os.Stdout)
	defer func() { _ = logger.Sync() }()
	logging.SetDefaultLogger(logger)

	apiCfg, err := apiConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.DefaultRegistry()
	registry.SetBuildInfo(version)
	srv := api.NewServer(apiCfg, logger, registry)
	defer srv.Close()

	// Reported on /health only. The loaded dataset keeps serving without its source.
	srv.Health().Register("dataset_source", health.PingCheck("dataset_source", func(ctx context.Context) error {
		return dataset.Ping(ctx, cfg.Dataset.Location, cfg.DatasetOptions())
	}), health.ProbeHealth)

	load := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
		defer cancel()

		snap, err := dataset.Load(ctx, cfg.Dataset.Location, cfg.DatasetOptions())
		if err != nil {
			return err
		}
		svc, err := pipenet.FromRecords(snap.Records,
			pipenet.WithLimits(cfg.Limits),
			pipenet.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		return srv.Load(svc, api.Dataset{
			Origin:       snap.Origin,
			Digest:       snap.Digest,
			Bytes:        snap.Bytes,
			LoadDuration: snap.Duration,
			LoadedAt:     time.Now(),
		})
	}

	// A dataset that cannot be loaded at startup is fatal. On SIGHUP a
	// failed reload keeps the previous dataset.
	if err := load(ctx); err != nil {
		return err
	}

	logger.Info("pipenet server starting",
		logging.String("version", version),
		logging.String("addr", cfg.Addr()),
		logging.Bool("auth", apiCfg.Validator != nil),
		logging.Bool("rate_limit", apiCfg.RateLimit != nil),
	)

	gs := server.NewGracefulServer(cfg.Addr(), srv.Handler(),
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithReloadFunc(load),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				registry.UpdateSystemMetrics()
			}
		}
	})
	return g.Wait()
}

func apiConfig(cfg *config.Config) (api.Config, error) {
	out := api.Config{
		Version:      version,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	if cfg.Auth.JWTSecret != "" {
		jwt, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
		if err != nil {
			return out, err
		}
		out.Validator = jwt
	}

	if cfg.RateLimit.RPS > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RPS
		rl.BurstSize = cfg.RateLimit.Burst
		out.RateLimit = rl
	}

	trusted, errs := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if len(errs) > 0 {
		return out, fmt.Errorf("server.trusted_proxies: %w", errors.Join(errs...))
	}
	out.TrustedProxies = trusted

	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		out.CORS = cors
	}
	return out, nil
}
