package telemetry

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusExporterWriteMetrics(t *testing.T) {
	c := NewCollector(Labels{"instance": "test"})

	c.HandshakeStarted()
	c.RecordHandshakeLatency(100 * time.Millisecond)

	exp := NewPrometheusExporter(c, "tls13")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)

	output := buf.String()

	expectedMetrics := []string{
		"tls13_handshakes_active",
		"tls13_handshakes_total",
		"tls13_handshake_duration_milliseconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("expected metric %q in output", metric)
		}
	}

	if !strings.Contains(output, `instance="test"`) {
		t.Error("expected label instance=\"test\" in output")
	}

	if !strings.Contains(output, "# HELP tls13_handshakes_active") {
		t.Error("expected HELP line for handshakes_active")
	}
	if !strings.Contains(output, "# TYPE tls13_handshakes_active gauge") {
		t.Error("expected TYPE line for handshakes_active")
	}
}

func TestPrometheusExporterHandler(t *testing.T) {
	c := NewCollector(nil)
	c.HandshakeStarted()

	exp := NewPrometheusExporter(c, "test")
	handler := exp.Handler()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("expected text/plain content type, got %s", contentType)
	}

	body := w.Body.String()
	if !strings.Contains(body, "test_handshakes_active") {
		t.Error("expected handshakes_active metric in response")
	}
}

func TestPrometheusExporterHistogram(t *testing.T) {
	c := NewCollector(nil)
	c.RecordHandshakeLatency(50 * time.Millisecond)
	c.RecordHandshakeLatency(150 * time.Millisecond)

	exp := NewPrometheusExporter(c, "test")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)

	output := buf.String()

	if !strings.Contains(output, "_bucket{le=") {
		t.Error("expected histogram bucket format")
	}
	if !strings.Contains(output, "_sum") {
		t.Error("expected histogram sum")
	}
	if !strings.Contains(output, "_count") {
		t.Error("expected histogram count")
	}
	if !strings.Contains(output, `le="+Inf"`) {
		t.Error("expected +Inf bucket")
	}
}

func TestPrometheusExporterLabelEscaping(t *testing.T) {
	c := NewCollector(Labels{
		"path":    "/api/v1",
		"message": "hello \"world\"",
		"newline": "line1\nline2",
	})

	exp := NewPrometheusExporter(c, "test")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)

	output := buf.String()

	if strings.Contains(output, "\n\"") {
		t.Error("newline should be escaped in labels")
	}
	if strings.Contains(output, `"hello "world""`) {
		t.Error("quotes should be escaped in labels")
	}
}

func TestPrometheusExporterAllMetricTypes(t *testing.T) {
	c := NewCollector(nil)

	c.HandshakeStarted()
	c.HandshakeEnded()
	c.HandshakeFailed()
	c.RecordHelloRetryRequest()
	c.RecordDowngradeDetected()
	c.RecordPSKResumption()
	c.RecordEarlyDataAccepted()
	c.RecordEarlyDataRejected()
	c.RecordSessionTicketReceived()
	c.RecordCertVerifyFailure()
	c.RecordFinishedFailure()
	c.RecordDecodeError()
	c.RecordHandshakeLatency(100 * time.Millisecond)
	c.RecordKeyScheduleLatency(10 * time.Microsecond)

	exp := NewPrometheusExporter(c, "tls13")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)

	output := buf.String()

	expectedMetrics := []string{
		"handshakes_active",
		"handshakes_total",
		"handshakes_failed_total",
		"hello_retry_requests_total",
		"downgrades_detected_total",
		"psk_resumptions_total",
		"early_data_accepted_total",
		"early_data_rejected_total",
		"session_tickets_received_total",
		"cert_verify_failures_total",
		"finished_failures_total",
		"decode_errors_total",
		"uptime_seconds",
		"handshake_duration_milliseconds",
		"key_schedule_duration_microseconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, "tls13_"+metric) {
			t.Errorf("missing metric: tls13_%s", metric)
		}
	}
}

func TestPrometheusExporterEmptyLabels(t *testing.T) {
	c := NewCollector(nil)
	c.HandshakeStarted()

	exp := NewPrometheusExporter(c, "test")

	var buf bytes.Buffer
	exp.WriteMetrics(&buf)

	output := buf.String()

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "test_handshakes_active") {
			if strings.Contains(line, "{") && !strings.Contains(line, "_bucket") {
				t.Errorf("gauge metric should not have labels: %s", line)
			}
		}
	}
}
