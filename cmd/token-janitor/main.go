package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/config"
	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/storage/postgres"
)

// Token janitor deletes expired activation and authentication tokens on a
// cron schedule. Lookups already ignore expired rows; this only reclaims space.
func main() {
	runOnce := flag.Bool("run-once", false, "Purge once and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9191")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.Open(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	tokens := postgres.NewTokenStore(db, auth.NewTokenGenerator())
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	panicLogger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stderr)

	purge := func() {
		defer observability.RecoverPanic(panicLogger, "token purge")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := tokens.DeleteExpired(ctx)
		if err != nil {
			logger.WithError(err).Error("Failed to purge expired tokens")
			return
		}
		metrics.ExpiredTokensPurged.Add(float64(n))
		logger.WithField("deleted", n).Info("Purged expired tokens")
	}

	if *runOnce {
		purge()
		return
	}

	if *metricsAddr != "" {
		serveMux := http.NewServeMux()
		observability.RegisterMetricsEndpoint(serveMux, registry)
		go func() {
			if err := http.ListenAndServe(*metricsAddr, serveMux); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Janitor.Schedule, purge); err != nil {
		logger.Fatalf("Invalid janitor schedule %q: %v", cfg.Janitor.Schedule, err)
	}

	c.Start()
	logger.Infof("Token janitor started with schedule %s", cfg.Janitor.Schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down gracefully...")

	stopped := c.Stop()
	<-stopped.Done()

	logger.Info("Token janitor stopped")
}
