package handshakemsg_test

import (
	"bytes"
	"testing"

	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/extensions"
	"github.com/jesiegel1/tls13/pkg/handshakemsg"
	"github.com/jesiegel1/tls13/pkg/wire"
)

func TestFrameAndParseFrameHeaderRoundTrip(t *testing.T) {
	body := []byte("a handshake message body")
	framed := handshakemsg.Frame(params.HandshakeFinished, body)

	typ, length, err := handshakemsg.ParseFrameHeader(framed)
	if err != nil {
		t.Fatalf("ParseFrameHeader: %v", err)
	}
	if typ != params.HandshakeFinished {
		t.Errorf("type = %v, want HandshakeFinished", typ)
	}
	if int(length) != len(body) {
		t.Errorf("length = %d, want %d", length, len(body))
	}
	if !bytes.Equal(framed[4:], body) {
		t.Error("framed body does not match original")
	}
}

func TestParseFrameHeaderRejectsShortBuffer(t *testing.T) {
	if _, _, err := handshakemsg.ParseFrameHeader([]byte{0x01, 0x00}); err == nil {
		t.Fatal("ParseFrameHeader accepted a buffer shorter than the 4-byte header")
	}
}

func TestClientHelloMarshalParseRoundTrip(t *testing.T) {
	b := extensions.NewBuilder()
	b.Add(params.ExtServerName, extensions.EncodeServerName("example.com"))

	ch := &handshakemsg.ClientHello{
		LegacyVersion:   params.VersionTLS12,
		LegacySessionID: []byte{0xAA, 0xBB},
		CipherSuites:    []params.CipherSuite{params.TLS_AES_128_GCM_SHA256},
		Extensions:      b,
	}
	copy(ch.Random[:], bytes.Repeat([]byte{0x42}, 32))

	body := ch.Marshal()

	parsed, extList, err := handshakemsg.ParseClientHello(body)
	if err != nil {
		t.Fatalf("ParseClientHello: %v", err)
	}
	if parsed.LegacyVersion != ch.LegacyVersion {
		t.Errorf("LegacyVersion = %v, want %v", parsed.LegacyVersion, ch.LegacyVersion)
	}
	if !bytes.Equal(parsed.Random[:], ch.Random[:]) {
		t.Error("Random mismatch after round trip")
	}
	if !bytes.Equal(parsed.LegacySessionID, ch.LegacySessionID) {
		t.Error("LegacySessionID mismatch after round trip")
	}
	if len(parsed.CipherSuites) != 1 || parsed.CipherSuites[0] != params.TLS_AES_128_GCM_SHA256 {
		t.Errorf("CipherSuites = %v", parsed.CipherSuites)
	}
	if !extList.Has(params.ExtServerName) {
		t.Error("expected ExtServerName in parsed extension list")
	}
}

func TestServerHelloShapeMarshalParseRoundTrip(t *testing.T) {
	b := extensions.NewBuilder()
	b.Add(params.ExtKeyShare, []byte{0x00, 0x1D})

	shape := &handshakemsg.ServerHelloShape{
		LegacyVersion:           params.VersionTLS12,
		LegacySessionIDEcho:     []byte{0x01, 0x02},
		CipherSuite:             params.TLS_AES_128_GCM_SHA256,
		LegacyCompressionMethod: 0,
	}
	copy(shape.Random[:], bytes.Repeat([]byte{0x11}, 32))

	body := handshakemsg.MarshalServerHelloShape(shape, b)
	parsed, err := handshakemsg.ParseServerHelloShape(body)
	if err != nil {
		t.Fatalf("ParseServerHelloShape: %v", err)
	}
	if parsed.CipherSuite != shape.CipherSuite {
		t.Errorf("CipherSuite = %v, want %v", parsed.CipherSuite, shape.CipherSuite)
	}
	if parsed.IsHelloRetryRequest() {
		t.Error("a random ServerHello random value should not match the HRR sentinel")
	}
	if !parsed.Extensions.Has(params.ExtKeyShare) {
		t.Error("expected ExtKeyShare present after round trip")
	}
}

func TestServerHelloShapeDetectsHelloRetryRequestSentinel(t *testing.T) {
	shape := &handshakemsg.ServerHelloShape{Random: params.HelloRetryRequestRandom}
	if !shape.IsHelloRetryRequest() {
		t.Error("IsHelloRetryRequest should detect the RFC 8446 fixed sentinel")
	}
}

func TestCertificateVerifyRoundTrip(t *testing.T) {
	m := &handshakemsg.CertificateVerify{
		Scheme:    params.SigSchemeEd25519,
		Signature: bytes.Repeat([]byte{0x55}, 64),
	}
	body := handshakemsg.MarshalCertificateVerify(m)
	parsed, err := handshakemsg.ParseCertificateVerify(body)
	if err != nil {
		t.Fatalf("ParseCertificateVerify: %v", err)
	}
	if parsed.Scheme != m.Scheme || !bytes.Equal(parsed.Signature, m.Signature) {
		t.Errorf("parsed = %+v, want %+v", parsed, m)
	}
}

func TestFinishedRoundTrip(t *testing.T) {
	m := &handshakemsg.Finished{VerifyData: bytes.Repeat([]byte{0x99}, 32)}
	body := handshakemsg.MarshalFinished(m)
	parsed, err := handshakemsg.ParseFinished(body, 32)
	if err != nil {
		t.Fatalf("ParseFinished: %v", err)
	}
	if !bytes.Equal(parsed.VerifyData, m.VerifyData) {
		t.Error("VerifyData mismatch after round trip")
	}
}

func TestFinishedRejectsWrongLength(t *testing.T) {
	if _, err := handshakemsg.ParseFinished(bytes.Repeat([]byte{0x01}, 48), 32); err == nil {
		t.Fatal("ParseFinished accepted a verify_data of the wrong length for the suite")
	}
}

func TestParseCertificateRejectsNonEmptyContext(t *testing.T) {
	w := wire.NewWriter()
	w.PutUint8LengthPrefixed([]byte{0x01})
	w.PutUint24(0)

	if _, err := handshakemsg.ParseCertificate(w.Bytes()); err == nil {
		t.Fatal("ParseCertificate accepted a nonempty certificate_request_context")
	}
}

func TestParseCertificateEmptyChain(t *testing.T) {
	w := wire.NewWriter()
	w.PutUint8LengthPrefixed(nil)
	w.PutUint24(0)

	cert, err := handshakemsg.ParseCertificate(w.Bytes())
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if len(cert.CertList) != 0 {
		t.Errorf("CertList = %v, want empty", cert.CertList)
	}
}

func TestNewSessionTicketRoundTrip(t *testing.T) {
	w := wire.NewWriter()
	w.PutUint32(3600)
	w.PutUint32(12345)
	w.PutUint8LengthPrefixed([]byte{0x01})
	w.PutUint16LengthPrefixed([]byte("opaque-ticket-bytes"))
	extB := extensions.NewBuilder()
	extB.Encode(w)

	nst, err := handshakemsg.ParseNewSessionTicket(w.Bytes())
	if err != nil {
		t.Fatalf("ParseNewSessionTicket: %v", err)
	}
	if nst.TicketLifetime != 3600 || nst.TicketAgeAdd != 12345 {
		t.Errorf("TicketLifetime/TicketAgeAdd = %d/%d", nst.TicketLifetime, nst.TicketAgeAdd)
	}
	if !bytes.Equal(nst.Ticket, []byte("opaque-ticket-bytes")) {
		t.Errorf("Ticket = %q", nst.Ticket)
	}
}

func TestNewSessionTicketRejectsEmptyTicket(t *testing.T) {
	w := wire.NewWriter()
	w.PutUint32(3600)
	w.PutUint32(0)
	w.PutUint8LengthPrefixed(nil)
	w.PutUint16LengthPrefixed(nil)
	extB := extensions.NewBuilder()
	extB.Encode(w)

	if _, err := handshakemsg.ParseNewSessionTicket(w.Bytes()); err == nil {
		t.Fatal("ParseNewSessionTicket accepted a zero-length ticket")
	}
}
