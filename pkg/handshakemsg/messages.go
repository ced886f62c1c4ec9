package handshakemsg

import (
	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/extensions"
	"github.com/jesiegel1/tls13/pkg/wire"
)

// ClientHello is the client's first (or, after an HRR, second) flight
// message. Extensions is the already-built extension list in offered
// order; pre_shared_key, if present, must be last (spec §4.4 "ClientHello
// write"), which is the caller's responsibility to arrange in the Builder
// passed to Extensions.
type ClientHello struct {
	LegacyVersion     params.ProtocolVersion
	Random            [32]byte
	LegacySessionID   []byte
	CipherSuites      []params.CipherSuite
	Extensions        *extensions.Builder
}

// Marshal serializes the ClientHello. If Extensions carries a
// pre_shared_key extension, its binders list is emitted however the caller
// last set it (zero-filled placeholders until PatchBinders overwrites them
// in place, per sendClientHelloWithPSK).
func (m *ClientHello) Marshal() []byte {
	w := wire.NewWriter()
	w.PutUint16(uint16(m.LegacyVersion))
	w.PutBytes(m.Random[:])
	w.PutUint8LengthPrefixed(m.LegacySessionID)

	inner := wire.NewWriter()
	for _, cs := range m.CipherSuites {
		inner.PutUint16(uint16(cs))
	}
	w.PutUint16LengthPrefixed(inner.Bytes())

	w.PutUint8(1) // legacy_compression_methods = {0}
	w.PutUint8(0)

	m.Extensions.Encode(w)
	return w.Bytes()
}

// ParseClientHello parses an incoming ClientHello body (used by tests and by
// any server-role harness in this repository's integration tests, since the
// client must be able to reverse-parse its own writes per spec §8
// "Round-trip").
func ParseClientHello(body []byte) (*ClientHello, *extensions.List, error) {
	r := wire.NewReader(body)
	version := params.ProtocolVersion(r.Uint16())
	random := r.Bytes(32)
	sessionID := r.Uint8LengthPrefixed()

	suitesBody := r.Uint16LengthPrefixed()
	if r.Err() != nil {
		return nil, nil, alert.New(alert.DecodeError, "handshakemsg.ParseClientHello", r.Err())
	}
	suiteR := wire.NewReader(suitesBody)
	var suites []params.CipherSuite
	for suiteR.Remaining() > 0 {
		suites = append(suites, params.CipherSuite(suiteR.Uint16()))
	}
	if suiteR.Err() != nil || !suiteR.Done() {
		return nil, nil, alert.New(alert.DecodeError, "handshakemsg.ParseClientHello", nil)
	}

	compressionLen := r.Uint8()
	_ = r.Bytes(int(compressionLen))

	extList, err := extensions.ParseList(r)
	if err != nil {
		return nil, nil, err
	}
	if r.Err() != nil || !r.Done() {
		return nil, nil, alert.New(alert.DecodeError, "handshakemsg.ParseClientHello", alert.ErrTrailingBytes)
	}

	ch := &ClientHello{
		LegacyVersion:   version,
		LegacySessionID: append([]byte(nil), sessionID...),
		CipherSuites:    suites,
	}
	copy(ch.Random[:], random)
	return ch, extList, nil
}

// ServerHelloShape covers both ServerHello and HelloRetryRequest, which
// share a wire shape and are distinguished only by the fixed random value
// (spec §4.4 "ServerHello / HelloRetryRequest discrimination").
type ServerHelloShape struct {
	LegacyVersion           params.ProtocolVersion
	Random                  [32]byte
	LegacySessionIDEcho     []byte
	CipherSuite             params.CipherSuite
	LegacyCompressionMethod uint8
	Extensions              *extensions.List
	RawExtensions           []byte // not set by ParseServerHelloShape; the parsed extensions are in Extensions
}

// IsHelloRetryRequest reports whether Random matches the fixed HRR sentinel.
func (s *ServerHelloShape) IsHelloRetryRequest() bool {
	return s.Random == params.HelloRetryRequestRandom
}

func ParseServerHelloShape(body []byte) (*ServerHelloShape, error) {
	r := wire.NewReader(body)
	version := params.ProtocolVersion(r.Uint16())
	random := r.Bytes(32)
	sessionIDEcho := r.Uint8LengthPrefixed()
	cipherSuite := params.CipherSuite(r.Uint16())
	compression := r.Uint8()

	extList, err := extensions.ParseList(r)
	if err != nil {
		return nil, err
	}
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseServerHelloShape", alert.ErrTrailingBytes)
	}

	s := &ServerHelloShape{
		LegacyVersion:           version,
		LegacySessionIDEcho:     append([]byte(nil), sessionIDEcho...),
		CipherSuite:             cipherSuite,
		LegacyCompressionMethod: compression,
		Extensions:              extList,
	}
	copy(s.Random[:], random)
	return s, nil
}

func MarshalServerHelloShape(s *ServerHelloShape, builder *extensions.Builder) []byte {
	w := wire.NewWriter()
	w.PutUint16(uint16(s.LegacyVersion))
	w.PutBytes(s.Random[:])
	w.PutUint8LengthPrefixed(s.LegacySessionIDEcho)
	w.PutUint16(uint16(s.CipherSuite))
	w.PutUint8(s.LegacyCompressionMethod)
	builder.Encode(w)
	return w.Bytes()
}

// EncryptedExtensions carries the server's response extensions (spec §4.3).
type EncryptedExtensions struct {
	Extensions *extensions.List
}

func ParseEncryptedExtensions(body []byte) (*EncryptedExtensions, error) {
	r := wire.NewReader(body)
	extList, err := extensions.ParseList(r)
	if err != nil {
		return nil, err
	}
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseEncryptedExtensions", alert.ErrTrailingBytes)
	}
	return &EncryptedExtensions{Extensions: extList}, nil
}

// CertificateRequest (optional, mutual-auth flows).
type CertificateRequest struct {
	CertificateRequestContext []byte
	Extensions                *extensions.List
}

func ParseCertificateRequest(body []byte) (*CertificateRequest, error) {
	r := wire.NewReader(body)
	ctx := r.Uint8LengthPrefixed()
	extList, err := extensions.ParseList(r)
	if err != nil {
		return nil, err
	}
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificateRequest", alert.ErrTrailingBytes)
	}
	return &CertificateRequest{CertificateRequestContext: append([]byte(nil), ctx...), Extensions: extList}, nil
}

// CertificateEntry is one entry of a Certificate message's cert chain.
type CertificateEntry struct {
	CertData   []byte
	Extensions *extensions.List
}

// Certificate (spec §4.4 "Certificate (incoming)"). The client only ever
// receives this message with an empty certificate_request_context; a
// nonempty value from the server is a protocol violation.
type Certificate struct {
	CertificateRequestContext []byte
	CertList                  []CertificateEntry
}

// maxCertDataSize caps an individual cert_data entry tighter than the wire's
// 2^24-1 ceiling, per spec §4.4.
const maxCertDataSize = 0x10000

func ParseCertificate(body []byte) (*Certificate, error) {
	r := wire.NewReader(body)
	ctx := r.Uint8LengthPrefixed()
	if r.Err() != nil {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificate", r.Err())
	}
	if len(ctx) != 0 {
		return nil, alert.New(alert.IllegalParameter, "handshakemsg.ParseCertificate", nil)
	}

	listLen := r.Uint24()
	listBody := r.Bytes(int(listLen))
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificate", nil)
	}

	listR := wire.NewReader(listBody)
	var entries []CertificateEntry
	for listR.Remaining() > 0 {
		certLen := listR.Uint24()
		if certLen >= maxCertDataSize {
			return nil, alert.New(alert.BadCertificate, "handshakemsg.ParseCertificate", nil)
		}
		certData := listR.Bytes(int(certLen))
		extList, err := extensions.ParseList(listR)
		if err != nil {
			return nil, err
		}
		if listR.Err() != nil {
			return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificate", listR.Err())
		}
		entries = append(entries, CertificateEntry{CertData: certData, Extensions: extList})
	}
	if !listR.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificate", alert.ErrTrailingBytes)
	}

	return &Certificate{CertList: entries}, nil
}

// CertificateVerify (spec §4.4).
type CertificateVerify struct {
	Scheme    params.SignatureScheme
	Signature []byte
}

func ParseCertificateVerify(body []byte) (*CertificateVerify, error) {
	r := wire.NewReader(body)
	scheme := params.SignatureScheme(r.Uint16())
	sig := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseCertificateVerify", nil)
	}
	return &CertificateVerify{Scheme: scheme, Signature: append([]byte(nil), sig...)}, nil
}

func MarshalCertificateVerify(m *CertificateVerify) []byte {
	w := wire.NewWriter()
	w.PutUint16(uint16(m.Scheme))
	w.PutUint16LengthPrefixed(m.Signature)
	return w.Bytes()
}

// Finished carries verify_data, whose length must equal the ciphersuite's
// hash output length (spec §8 "Testable Properties").
type Finished struct {
	VerifyData []byte
}

func ParseFinished(body []byte, hashLen int) (*Finished, error) {
	if len(body) != hashLen {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseFinished", nil)
	}
	return &Finished{VerifyData: append([]byte(nil), body...)}, nil
}

func MarshalFinished(m *Finished) []byte {
	return append([]byte(nil), m.VerifyData...)
}

// NewSessionTicket is the post-handshake ticket message (spec §4.4,
// §4.7, C7).
type NewSessionTicket struct {
	TicketLifetime uint32
	TicketAgeAdd   uint32
	TicketNonce    []byte
	Ticket         []byte
	Extensions     *extensions.List
}

func ParseNewSessionTicket(body []byte) (*NewSessionTicket, error) {
	r := wire.NewReader(body)
	lifetime := r.Uint32()
	ageAdd := r.Uint32()
	nonce := r.Uint8LengthPrefixed()
	ticket := r.Uint16LengthPrefixed()
	extList, err := extensions.ParseList(r)
	if err != nil {
		return nil, err
	}
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseNewSessionTicket", alert.ErrTrailingBytes)
	}
	if len(ticket) == 0 {
		return nil, alert.New(alert.DecodeError, "handshakemsg.ParseNewSessionTicket", nil)
	}
	return &NewSessionTicket{
		TicketLifetime: lifetime,
		TicketAgeAdd:   ageAdd,
		TicketNonce:    append([]byte(nil), nonce...),
		Ticket:         append([]byte(nil), ticket...),
		Extensions:     extList,
	}, nil
}
