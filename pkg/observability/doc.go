// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry tracing and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).WithField("anime_id", id).Info("anime updated")
//
// FromContext adds request_id, user_id and, when a span is recording,
// trace_id and span_id.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	handler := observability.HTTPMetricsMiddleware(metrics, router)(router)
//	metrics.EditConflicts.Inc()
//
// HTTP series are labelled with the matched route template, not the raw path.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, counterStore, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// The database is required for readiness; a Redis outage reports degraded.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "animerged",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
