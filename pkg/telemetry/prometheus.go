package telemetry

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports metrics in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given collector.
// The namespace is prepended to all metric names (e.g., "tls13").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	// --- Handshake Metrics ---
	e.writeHelp(w, "handshakes_active", "Number of currently in-flight handshakes")
	e.writeType(w, "handshakes_active", "gauge")
	e.writeMetric(w, "handshakes_active", labels, float64(snap.HandshakesActive))

	e.writeHelp(w, "handshakes_total", "Total number of handshakes started")
	e.writeType(w, "handshakes_total", "counter")
	e.writeMetric(w, "handshakes_total", labels, float64(snap.HandshakesTotal))

	e.writeHelp(w, "handshakes_failed_total", "Total number of failed handshake attempts")
	e.writeType(w, "handshakes_failed_total", "counter")
	e.writeMetric(w, "handshakes_failed_total", labels, float64(snap.HandshakesFailed))

	// --- Negotiation Metrics ---
	e.writeHelp(w, "hello_retry_requests_total", "Total HelloRetryRequest messages received")
	e.writeType(w, "hello_retry_requests_total", "counter")
	e.writeMetric(w, "hello_retry_requests_total", labels, float64(snap.HelloRetryRequests))

	e.writeHelp(w, "downgrades_detected_total", "Total TLS 1.3 downgrade sentinels observed")
	e.writeType(w, "downgrades_detected_total", "counter")
	e.writeMetric(w, "downgrades_detected_total", labels, float64(snap.DowngradesDetected))

	e.writeHelp(w, "psk_resumptions_total", "Total handshakes that resumed via PSK")
	e.writeType(w, "psk_resumptions_total", "counter")
	e.writeMetric(w, "psk_resumptions_total", labels, float64(snap.PSKResumptions))

	e.writeHelp(w, "early_data_accepted_total", "Total handshakes where 0-RTT early data was accepted")
	e.writeType(w, "early_data_accepted_total", "counter")
	e.writeMetric(w, "early_data_accepted_total", labels, float64(snap.EarlyDataAccepted))

	e.writeHelp(w, "early_data_rejected_total", "Total handshakes where 0-RTT early data was rejected")
	e.writeType(w, "early_data_rejected_total", "counter")
	e.writeMetric(w, "early_data_rejected_total", labels, float64(snap.EarlyDataRejected))

	e.writeHelp(w, "session_tickets_received_total", "Total NewSessionTicket messages received")
	e.writeType(w, "session_tickets_received_total", "counter")
	e.writeMetric(w, "session_tickets_received_total", labels, float64(snap.SessionTicketsReceived))

	// --- Security Metrics ---
	e.writeHelp(w, "cert_verify_failures_total", "Total CertificateVerify validation failures")
	e.writeType(w, "cert_verify_failures_total", "counter")
	e.writeMetric(w, "cert_verify_failures_total", labels, float64(snap.CertVerifyFailures))

	e.writeHelp(w, "finished_failures_total", "Total Finished MAC verification failures")
	e.writeType(w, "finished_failures_total", "counter")
	e.writeMetric(w, "finished_failures_total", labels, float64(snap.FinishedFailures))

	e.writeHelp(w, "decode_errors_total", "Total wire-format decode errors")
	e.writeType(w, "decode_errors_total", "counter")
	e.writeMetric(w, "decode_errors_total", labels, float64(snap.DecodeErrors))

	// --- Uptime ---
	e.writeHelp(w, "uptime_seconds", "Time since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())

	// --- Histograms ---
	e.writeHistogram(w, "handshake_duration_milliseconds", "Handshake duration in milliseconds", labels, snap.HandshakeLatency)
	e.writeHistogram(w, "key_schedule_duration_microseconds", "Key schedule stage duration in microseconds", labels, snap.KeyScheduleLatency)
}

// writeHelp writes a HELP line.
func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

// writeType writes a TYPE line.
func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

// writeMetric writes a single metric line.
func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

// writeHistogram writes a histogram in Prometheus format.
func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHelp(w, name, help)
	e.writeType(w, name, "histogram")

	fullName := e.namespace + "_" + name

	// Write bucket counts
	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	// Write sum and count
	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

// formatLabels converts Labels to Prometheus label format.
func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		// Escape label values
		v := escapePromValue(labels[k])
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, v))
	}

	return strings.Join(parts, ",")
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// --- Convenience Functions ---

// ServePrometheus starts an HTTP server serving Prometheus metrics.
// This is a convenience function for simple use cases.
func ServePrometheus(addr string, c *Collector, namespace string) error {
	exp := NewPrometheusExporter(c, namespace)
	http.Handle("/metrics", exp.Handler())
	return http.ListenAndServe(addr, nil)
}
