package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/animerged/pkg/api"
	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/config"
	"github.com/platinummonkey/animerged/pkg/mailer"
	"github.com/platinummonkey/animerged/pkg/middleware"
	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/storage/postgres"
	redisstore "github.com/platinummonkey/animerged/pkg/storage/redis"
)

var version = "1.0.0"

func main() {
	configFile := flag.String("config", os.Getenv("ANIMERGED_CONFIG_FILE"), "Path to a YAML config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Error("AniMerged stopped with an error")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	logger.WithFields(map[string]interface{}{
		"env":     cfg.Env,
		"version": version,
	}).Info("Starting AniMerged API")

	db, err := postgres.Open(cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("Database connection pool established")

	var (
		counters *redisstore.CounterStore
		limiter  *middleware.RateLimiter
	)
	if cfg.RateLimit.Enabled {
		counters, err = redisstore.NewCounterStore(cfg.Storage)
		if err != nil {
			db.Close()
			return err
		}
		limiter = middleware.NewRateLimiter(counters, middleware.RateLimitConfig{
			Requests:          cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyFormat:         cfg.RateLimit.KeyFormat,
			TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
		})
		logger.Infof("Rate limiter enabled: %d requests per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	var welcome mailer.Mailer
	if cfg.SMTP.Host == "" {
		welcome = mailer.NewLogMailer(logger)
		logger.Warn("SMTP host not configured, activation tokens will only be logged")
	} else {
		welcome, err = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
		})
		if err != nil {
			return errors.Join(err, closeStores(db, counters))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		observability.RegisterDBStats(registry, db)
	}

	serviceVersion := cfg.Observability.OTelServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Insecure:       cfg.Observability.OTelInsecure,
		SamplingRate:   cfg.Observability.OTelSamplingRate,
	}, logger)
	if err != nil {
		// Tracing is optional
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without it")
	}

	server := api.NewServer(api.Config{
		Env:            cfg.Env,
		Version:        version,
		TrustedOrigins: cfg.Server.TrustedOrigins,
	}, api.Dependencies{
		Animations:  postgres.NewAnimationStore(db),
		Users:       postgres.NewUserStore(db),
		Tokens:      postgres.NewTokenStore(db, auth.NewTokenGenerator()),
		Permissions: postgres.NewPermissionStore(db),
		Mailer:      welcome,
		Limiter:     limiter,
		Metrics:     metrics,
		Logger:      logger,
	})

	var handler http.Handler = server
	if providers != nil {
		handler = otelhttp.NewHandler(server, "animerged")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Probes and metrics live on their own port so they bypass the limiter
	opsMux := http.NewServeMux()
	var redisPinger observability.Pinger
	if counters != nil {
		redisPinger = counters
	}
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisPinger, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: opsMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return closeStores(db, counters)
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API listening on %s", apiServer.Addr)
		return listen(apiServer)
	})
	g.Go(func() error {
		logger.Infof("Health and metrics listening on %s", opsServer.Addr)
		return listen(opsServer)
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	err = g.Wait()
	logger.Info("AniMerged stopped")
	return err
}

// listen treats a graceful close as success
func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}

func closeStores(db interface{ Close() error }, counters *redisstore.CounterStore) error {
	var errs []error
	if err := db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if counters != nil {
		if err := counters.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
