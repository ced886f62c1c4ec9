// Package handshake implements the TLS 1.3 client handshake state machine
// (C6) and its supporting Configuration/Handshake data model (spec §3),
// driving the transcript hash (C1), key schedule (C2), extension codec
// (C3), message codec (C4), and transport interface (C5) components.
package handshake

import (
	"crypto/rand"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/certverify"
	"github.com/jesiegel1/tls13/pkg/telemetry"
)

// AuthMode controls whether the client presents its own certificate when
// the server sends a CertificateRequest.
type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthOptional
	AuthRequired
)

// EarlyDataPolicy controls whether the client offers 0-RTT data.
type EarlyDataPolicy int

const (
	EarlyDataDisabled EarlyDataPolicy = iota
	EarlyDataEnabled
)

// Config is the caller-supplied, immutable-during-a-handshake configuration
// of spec §3. A Config value may be shared read-only across many
// concurrent handshakes (spec §5 "Shared resources").
type Config struct {
	MinVersion params.ProtocolVersion
	MaxVersion params.ProtocolVersion

	CipherSuites     []params.CipherSuite
	Groups           []params.NamedGroup
	SignatureSchemes []params.SignatureScheme

	Verifier    certverify.Verifier
	AuthMode    AuthMode
	ServerName  string

	ALPNProtocols []string

	PSKModes        []params.PSKKeyExchangeMode
	EarlyData       EarlyDataPolicy
	MaxEarlyDataSize uint32

	// CompatibilityMode emits the middlebox dummy ChangeCipherSpec records.
	CompatibilityMode bool

	// ClientCertificateChain, if set, is offered when the server requests one
	// and AuthMode != AuthNone. Signer abstracts away the private key
	// operation so this package never holds raw key material it did not
	// generate itself.
	ClientCertificateChain [][]byte
	ClientSigner           Signer
	ClientSignatureScheme  params.SignatureScheme

	// Observer receives lifecycle callbacks as the handshake progresses
	// (state transitions, key schedule stages, failures). Defaults to a
	// no-op if left nil.
	Observer telemetry.Observer
}

// Signer abstracts the client certificate's private-key signing operation,
// mirroring the way Verifier abstracts certificate chain validation: both
// keep this engine from depending on a concrete private-key representation.
type Signer interface {
	Sign(content []byte) ([]byte, error)
}

// DefaultConfig returns sane client defaults: TLS 1.3 only, the three
// RFC 8446 AEAD suites in descending strength/performance order, X25519
// and P-256 key-exchange groups, and the RFC 8446 §4.2.3 recommended
// signature scheme set.
func DefaultConfig() Config {
	return Config{
		MinVersion: params.VersionTLS13,
		MaxVersion: params.VersionTLS13,
		CipherSuites: []params.CipherSuite{
			params.TLS_AES_128_GCM_SHA256,
			params.TLS_AES_256_GCM_SHA384,
			params.TLS_CHACHA20_POLY1305_SHA256,
		},
		Groups: []params.NamedGroup{params.GroupX25519, params.GroupSecp256r1},
		SignatureSchemes: []params.SignatureScheme{
			params.SigSchemeECDSASecp256r1SHA256,
			params.SigSchemeRSAPSSRSAESHA256,
			params.SigSchemeEd25519,
			params.SigSchemeECDSASecp384r1SHA384,
			params.SigSchemeRSAPSSRSAESHA384,
		},
		AuthMode:          AuthNone,
		EarlyData:         EarlyDataDisabled,
		CompatibilityMode: true,
	}
}

// Validate fail-fasts on an unusable configuration, mirroring the teacher's
// "struct + DefaultConfig + Validate" idiom.
func (c *Config) Validate() error {
	if c.MinVersion > c.MaxVersion {
		return alert.New(alert.InternalError, "Config.Validate", nil)
	}
	if c.MaxVersion != params.VersionTLS13 {
		return alert.New(alert.InternalError, "Config.Validate", nil)
	}
	if len(c.CipherSuites) == 0 {
		return alert.New(alert.InternalError, "Config.Validate", nil)
	}
	if len(c.Groups) == 0 {
		return alert.New(alert.InternalError, "Config.Validate", nil)
	}
	if len(c.SignatureSchemes) == 0 {
		return alert.New(alert.InternalError, "Config.Validate", nil)
	}
	return nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, alert.New(alert.InternalError, "handshake.randomBytes", err)
	}
	return b, nil
}
