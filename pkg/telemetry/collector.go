// Package telemetry provides observability primitives for the TLS 1.3
// handshake engine.
//
// The package includes:
//   - Handshake counters and gauges (Collector) and a Histogram type
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from handshake attempts.
type Collector struct {
	// Handshake metrics
	handshakesActive   atomic.Uint64
	handshakesTotal    atomic.Uint64
	handshakesFailed   atomic.Uint64
	handshakeLatency   *Histogram

	// Negotiation metrics
	helloRetryRequests    atomic.Uint64
	downgradesDetected    atomic.Uint64
	pskResumptions        atomic.Uint64
	earlyDataAccepted     atomic.Uint64
	earlyDataRejected     atomic.Uint64
	sessionTicketsReceived atomic.Uint64

	// Security metrics
	certVerifyFailures atomic.Uint64
	finishedFailures   atomic.Uint64
	decodeErrors       atomic.Uint64

	// Performance histograms
	keyScheduleLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		handshakeLatency:   NewHistogram(HandshakeLatencyBuckets),
		keyScheduleLatency: NewHistogram(LatencyBuckets),
		createdAt:          time.Now(),
		labels:             labels,
	}
}

// Default bucket configurations for histograms.
var (
	// HandshakeLatencyBuckets for full handshake duration (milliseconds).
	HandshakeLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	// LatencyBuckets for key-schedule stage operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Handshake Metrics ---

// HandshakeStarted increments active and total handshake counters.
func (c *Collector) HandshakeStarted() {
	c.handshakesActive.Add(1)
	c.handshakesTotal.Add(1)
}

// HandshakeEnded decrements the active handshake counter.
func (c *Collector) HandshakeEnded() {
	for {
		current := c.handshakesActive.Load()
		if current == 0 {
			return
		}
		if c.handshakesActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// HandshakeFailed records a failed handshake attempt.
func (c *Collector) HandshakeFailed() {
	c.handshakesFailed.Add(1)
}

// RecordHandshakeLatency records a handshake duration.
func (c *Collector) RecordHandshakeLatency(d time.Duration) {
	c.handshakeLatency.Observe(float64(d.Milliseconds()))
}

// --- Negotiation Metrics ---

func (c *Collector) RecordHelloRetryRequest()     { c.helloRetryRequests.Add(1) }
func (c *Collector) RecordDowngradeDetected()     { c.downgradesDetected.Add(1) }
func (c *Collector) RecordPSKResumption()         { c.pskResumptions.Add(1) }
func (c *Collector) RecordEarlyDataAccepted()     { c.earlyDataAccepted.Add(1) }
func (c *Collector) RecordEarlyDataRejected()     { c.earlyDataRejected.Add(1) }
func (c *Collector) RecordSessionTicketReceived() { c.sessionTicketsReceived.Add(1) }

// --- Security Metrics ---

func (c *Collector) RecordCertVerifyFailure() { c.certVerifyFailures.Add(1) }
func (c *Collector) RecordFinishedFailure()   { c.finishedFailures.Add(1) }
func (c *Collector) RecordDecodeError()       { c.decodeErrors.Add(1) }

// --- Performance Metrics ---

// RecordKeyScheduleLatency records a key-schedule stage's latency.
func (c *Collector) RecordKeyScheduleLatency(d time.Duration) {
	c.keyScheduleLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	HandshakesActive uint64
	HandshakesTotal  uint64
	HandshakesFailed uint64

	HelloRetryRequests     uint64
	DowngradesDetected     uint64
	PSKResumptions         uint64
	EarlyDataAccepted      uint64
	EarlyDataRejected      uint64
	SessionTicketsReceived uint64

	CertVerifyFailures uint64
	FinishedFailures   uint64
	DecodeErrors       uint64

	HandshakeLatency   HistogramSummary
	KeyScheduleLatency HistogramSummary

	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:              time.Now(),
		Uptime:                 time.Since(c.createdAt),
		HandshakesActive:       c.handshakesActive.Load(),
		HandshakesTotal:        c.handshakesTotal.Load(),
		HandshakesFailed:       c.handshakesFailed.Load(),
		HelloRetryRequests:     c.helloRetryRequests.Load(),
		DowngradesDetected:     c.downgradesDetected.Load(),
		PSKResumptions:         c.pskResumptions.Load(),
		EarlyDataAccepted:      c.earlyDataAccepted.Load(),
		EarlyDataRejected:      c.earlyDataRejected.Load(),
		SessionTicketsReceived: c.sessionTicketsReceived.Load(),
		CertVerifyFailures:     c.certVerifyFailures.Load(),
		FinishedFailures:       c.finishedFailures.Load(),
		DecodeErrors:           c.decodeErrors.Load(),
		HandshakeLatency:       c.handshakeLatency.Summary(),
		KeyScheduleLatency:     c.keyScheduleLatency.Summary(),
		Labels:                 c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.handshakesActive.Store(0)
	c.handshakesTotal.Store(0)
	c.handshakesFailed.Store(0)
	c.helloRetryRequests.Store(0)
	c.downgradesDetected.Store(0)
	c.pskResumptions.Store(0)
	c.earlyDataAccepted.Store(0)
	c.earlyDataRejected.Store(0)
	c.sessionTicketsReceived.Store(0)
	c.certVerifyFailures.Store(0)
	c.finishedFailures.Store(0)
	c.decodeErrors.Store(0)
	c.handshakeLatency.Reset()
	c.keyScheduleLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector, creating one with default
// settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector. Should be called during
// initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
