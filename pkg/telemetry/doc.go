// Package telemetry provides observability primitives for the TLS 1.3
// client handshake engine.
//
// # Overview
//
// The telemetry package offers a complete observability solution including:
//   - Metrics collection (counters, gauges, histograms)
//   - Prometheus-compatible metrics export
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//   - Health check endpoints
//
// # Quick Start
//
// Basic usage with global collector:
//
//	import "github.com/jesiegel1/tls13/pkg/telemetry"
//
//	// Record metrics
//	telemetry.Global().HandshakeStarted()
//	telemetry.Global().RecordHandshakeLatency(150 * time.Millisecond)
//
//	// Start Prometheus server
//	go telemetry.ServePrometheus(":9090", telemetry.Global(), "tls13")
//
// # Metrics Collection
//
// The Collector type aggregates metrics from handshake attempts:
//
//	collector := telemetry.NewCollector(telemetry.Labels{
//		"instance": "node-1",
//		"region":   "us-west-2",
//	})
//
//	// Handshake metrics
//	collector.HandshakeStarted()
//	collector.HandshakeEnded()
//	collector.RecordHandshakeLatency(d)
//
//	// Negotiation metrics
//	collector.RecordHelloRetryRequest()
//	collector.RecordPSKResumption()
//
//	// Security metrics
//	collector.RecordCertVerifyFailure()
//	collector.RecordFinishedFailure()
//
//	// Get snapshot
//	snap := collector.Snapshot()
//
// # Prometheus Export
//
// Export metrics in Prometheus format:
//
//	exporter := telemetry.NewPrometheusExporter(collector, "tls13")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := telemetry.NewSimpleTracer()
//	telemetry.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := telemetry.NewOTelTracer("tls13")
//	telemetry.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := telemetry.StartSpan(ctx, telemetry.SpanHandshakeClient)
//	defer end(nil) // or end(err) on error
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := telemetry.NewLogger(
//		telemetry.WithLevel(telemetry.LevelInfo),
//		telemetry.WithFormat(telemetry.FormatJSON),
//		telemetry.WithFields(telemetry.Fields{"service": "tls13"}),
//	)
//
//	logger.Info("handshake complete", telemetry.Fields{
//		"cipher_suite": "TLS_AES_128_GCM_SHA256",
//	})
//
//	// Child loggers
//	hsLog := logger.Named("handshake").With(telemetry.Fields{"conn_id": connID})
//	hsLog.Debug("processing server hello")
//
// # Health Checks
//
// Provide health check endpoints for Kubernetes and load balancers:
//
//	health := telemetry.NewHealthCheck(collector, "1.0.0")
//	health.AddCheck("crypto", func() error {
//		// Verify crypto subsystem
//		return nil
//	})
//
//	http.Handle("/health", health.Handler())
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler())
//
// # Observability Server
//
// Start a complete observability server:
//
//	server := telemetry.NewServer(telemetry.ServerConfig{
//		Collector:        collector,
//		Version:          "1.0.0",
//		Namespace:        "tls13",
//		EnablePrometheus: true,
//		EnableHealth:     true,
//	})
//
//	go server.ListenAndServe(":9090")
//
// This provides:
//   - /metrics - Prometheus metrics
//   - /health  - Detailed health status
//   - /healthz - Kubernetes liveness probe
//   - /readyz  - Kubernetes readiness probe
package telemetry
