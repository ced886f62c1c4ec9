package telemetry

import (
	"testing"
	"time"
)

func TestCollectorHandshakeLifecycle(t *testing.T) {
	c := NewCollector(nil)

	c.HandshakeStarted()
	c.HandshakeStarted()
	snap := c.Snapshot()
	if snap.HandshakesActive != 2 || snap.HandshakesTotal != 2 {
		t.Fatalf("unexpected snapshot after two starts: %+v", snap)
	}

	c.HandshakeEnded()
	snap = c.Snapshot()
	if snap.HandshakesActive != 1 {
		t.Fatalf("expected 1 active handshake, got %d", snap.HandshakesActive)
	}

	c.HandshakeFailed()
	snap = c.Snapshot()
	if snap.HandshakesFailed != 1 {
		t.Fatalf("expected 1 failed handshake, got %d", snap.HandshakesFailed)
	}
}

func TestCollectorHandshakeEndedNeverUnderflows(t *testing.T) {
	c := NewCollector(nil)
	c.HandshakeEnded()
	c.HandshakeEnded()
	if c.Snapshot().HandshakesActive != 0 {
		t.Fatal("handshakesActive should clamp at zero")
	}
}

func TestCollectorNegotiationAndSecurityMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RecordHelloRetryRequest()
	c.RecordDowngradeDetected()
	c.RecordPSKResumption()
	c.RecordEarlyDataAccepted()
	c.RecordEarlyDataRejected()
	c.RecordSessionTicketReceived()
	c.RecordCertVerifyFailure()
	c.RecordFinishedFailure()
	c.RecordDecodeError()

	snap := c.Snapshot()
	if snap.HelloRetryRequests != 1 || snap.DowngradesDetected != 1 || snap.PSKResumptions != 1 {
		t.Fatalf("negotiation metrics mismatch: %+v", snap)
	}
	if snap.EarlyDataAccepted != 1 || snap.EarlyDataRejected != 1 || snap.SessionTicketsReceived != 1 {
		t.Fatalf("early data/ticket metrics mismatch: %+v", snap)
	}
	if snap.CertVerifyFailures != 1 || snap.FinishedFailures != 1 || snap.DecodeErrors != 1 {
		t.Fatalf("security metrics mismatch: %+v", snap)
	}
}

func TestCollectorLatencyHistograms(t *testing.T) {
	c := NewCollector(nil)
	c.RecordHandshakeLatency(100 * time.Millisecond)
	c.RecordKeyScheduleLatency(50 * time.Microsecond)

	snap := c.Snapshot()
	if snap.HandshakeLatency.Count != 1 {
		t.Fatalf("expected 1 handshake latency observation, got %d", snap.HandshakeLatency.Count)
	}
	if snap.KeyScheduleLatency.Count != 1 {
		t.Fatalf("expected 1 key schedule latency observation, got %d", snap.KeyScheduleLatency.Count)
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(nil)
	c.HandshakeStarted()
	c.RecordCertVerifyFailure()
	c.RecordHandshakeLatency(10 * time.Millisecond)

	c.Reset()

	snap := c.Snapshot()
	if snap.HandshakesActive != 0 || snap.HandshakesTotal != 0 || snap.CertVerifyFailures != 0 {
		t.Fatalf("expected zeroed snapshot after reset, got %+v", snap)
	}
	if snap.HandshakeLatency.Count != 0 {
		t.Fatal("expected histogram cleared after reset")
	}
}

func TestGlobalCollectorSingleton(t *testing.T) {
	first := Global()
	second := Global()
	if first != second {
		t.Fatal("Global() should return the same collector instance")
	}
}

func TestSetGlobalCollector(t *testing.T) {
	custom := NewCollector(Labels{"instance": "custom"})
	SetGlobal(custom)
	if Global() != custom {
		t.Fatal("SetGlobal should replace the global collector")
	}
}
