// handshake_observer.go adapts the teacher's TunnelObserver (a VPN
// session's lifecycle hooks wired to Collector/Tracer/Logger) into the
// Observer interface the handshake engine calls at each C6 state
// transition and key-schedule stage.
package telemetry

import (
	"encoding/hex"
	"time"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// Observer receives lifecycle callbacks from a running handshake. All
// methods must be safe to call from the single goroutine driving Step; the
// engine never calls an Observer concurrently with itself.
type Observer interface {
	OnHandshakeStart()
	OnStateChange(from, to string)
	OnHelloRetryRequest()
	OnDowngradeDetected()
	OnKeyScheduleStage(stage string)
	OnCertificateVerifyFailure(err error)
	OnFinishedFailure(err error)
	OnSessionTicketReceived()
	OnHandshakeDone(d time.Duration, suite params.CipherSuite)
	OnHandshakeFailed(err *alert.FatalAlertError)
}

// NoopObserver implements Observer with no-ops; it is the default when a
// caller supplies none.
type NoopObserver struct{}

func (NoopObserver) OnHandshakeStart()                                {}
func (NoopObserver) OnStateChange(string, string)                     {}
func (NoopObserver) OnHelloRetryRequest()                             {}
func (NoopObserver) OnDowngradeDetected()                             {}
func (NoopObserver) OnKeyScheduleStage(string)                        {}
func (NoopObserver) OnCertificateVerifyFailure(error)                 {}
func (NoopObserver) OnFinishedFailure(error)                          {}
func (NoopObserver) OnSessionTicketReceived()                         {}
func (NoopObserver) OnHandshakeDone(time.Duration, params.CipherSuite) {}
func (NoopObserver) OnHandshakeFailed(*alert.FatalAlertError)         {}

// HandshakeObserver is the concrete Observer wiring handshake lifecycle
// events into a Collector, a Tracer, and a structured Logger, generalized
// from the teacher's TunnelObserver.
type HandshakeObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
	connID    string
	start     time.Time
}

// HandshakeObserverConfig configures a HandshakeObserver.
type HandshakeObserverConfig struct {
	Collector    *Collector
	Tracer       Tracer
	Logger       *Logger
	ConnectionID []byte
}

// NewHandshakeObserver creates an Observer wired to cfg's (or default)
// collector/tracer/logger.
func NewHandshakeObserver(cfg HandshakeObserverConfig) *HandshakeObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	connID := ""
	if len(cfg.ConnectionID) > 0 {
		connID = hex.EncodeToString(cfg.ConnectionID[:min(8, len(cfg.ConnectionID))])
	}

	return &HandshakeObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger.Named("handshake").With(Fields{"conn_id": connID}),
		connID:    connID,
	}
}

func (o *HandshakeObserver) OnHandshakeStart() {
	o.start = time.Now()
	o.collector.HandshakeStarted()
	o.logger.Info("handshake started")
}

func (o *HandshakeObserver) OnStateChange(from, to string) {
	o.logger.Debug("state transition", Fields{"from": from, "to": to})
}

func (o *HandshakeObserver) OnHelloRetryRequest() {
	o.collector.RecordHelloRetryRequest()
	o.logger.Info("hello retry request received")
}

func (o *HandshakeObserver) OnDowngradeDetected() {
	o.collector.RecordDowngradeDetected()
	o.logger.Warn("TLS 1.3 downgrade sentinel observed")
}

func (o *HandshakeObserver) OnKeyScheduleStage(stage string) {
	o.logger.Debug("key schedule stage", Fields{"stage": stage})
}

func (o *HandshakeObserver) OnCertificateVerifyFailure(err error) {
	o.collector.RecordCertVerifyFailure()
	o.logger.Error("certificate verify failed", Fields{"error": err.Error()})
}

func (o *HandshakeObserver) OnFinishedFailure(err error) {
	o.collector.RecordFinishedFailure()
	o.logger.Error("finished verification failed", Fields{"error": err.Error()})
}

func (o *HandshakeObserver) OnSessionTicketReceived() {
	o.collector.RecordSessionTicketReceived()
	o.logger.Info("session ticket received")
}

func (o *HandshakeObserver) OnHandshakeDone(d time.Duration, suite params.CipherSuite) {
	o.collector.HandshakeEnded()
	o.collector.RecordHandshakeLatency(d)
	o.logger.Info("handshake complete", Fields{
		"duration_ms":  d.Milliseconds(),
		"cipher_suite": suite.String(),
	})
}

func (o *HandshakeObserver) OnHandshakeFailed(err *alert.FatalAlertError) {
	o.collector.HandshakeEnded()
	o.collector.HandshakeFailed()
	o.logger.Error("handshake failed", Fields{"alert": err.Alert.String(), "op": err.Op})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
