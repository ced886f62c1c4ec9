// Package params defines the wire constants of TLS 1.3 (RFC 8446): protocol
// versions, cipher suites, extension types, named groups, and signature
// schemes, plus the fixed byte sequences the handshake state machine must
// recognize by exact value (the HelloRetryRequest random and the TLS 1.2/1.1
// downgrade sentinels).
package params

// ProtocolVersion is the on-the-wire 16-bit version identifier used in the
// legacy_version field and the supported_versions extension.
type ProtocolVersion uint16

const (
	VersionTLS10 ProtocolVersion = 0x0301
	VersionTLS11 ProtocolVersion = 0x0302
	VersionTLS12 ProtocolVersion = 0x0303
	VersionTLS13 ProtocolVersion = 0x0304

	// LegacyVersion is the value every TLS 1.3 record's legacy_version field
	// carries on the wire, for middlebox compatibility.
	LegacyVersion ProtocolVersion = VersionTLS12
)

// CipherSuite identifies an AEAD + hash pairing per RFC 8446 Appendix B.4.
type CipherSuite uint16

const (
	TLS_AES_128_GCM_SHA256       CipherSuite = 0x1301
	TLS_AES_256_GCM_SHA384       CipherSuite = 0x1302
	TLS_CHACHA20_POLY1305_SHA256 CipherSuite = 0x1303
)

func (cs CipherSuite) String() string {
	switch cs {
	case TLS_AES_128_GCM_SHA256:
		return "TLS_AES_128_GCM_SHA256"
	case TLS_AES_256_GCM_SHA384:
		return "TLS_AES_256_GCM_SHA384"
	case TLS_CHACHA20_POLY1305_SHA256:
		return "TLS_CHACHA20_POLY1305_SHA256"
	default:
		return "unknown_cipher_suite"
	}
}

// HashLen returns the transcript/MAC hash output length for the suite.
func (cs CipherSuite) HashLen() int {
	if cs == TLS_AES_256_GCM_SHA384 {
		return 48
	}
	return 32
}

// NamedGroup identifies a key-exchange group per RFC 8446 §4.2.7.
type NamedGroup uint16

const (
	GroupSecp256r1 NamedGroup = 0x0017
	GroupSecp384r1 NamedGroup = 0x0018
	GroupSecp521r1 NamedGroup = 0x0019
	GroupX25519    NamedGroup = 0x001D
	GroupX448      NamedGroup = 0x001E
)

func (g NamedGroup) String() string {
	switch g {
	case GroupSecp256r1:
		return "secp256r1"
	case GroupSecp384r1:
		return "secp384r1"
	case GroupSecp521r1:
		return "secp521r1"
	case GroupX25519:
		return "x25519"
	case GroupX448:
		return "x448"
	default:
		return "unknown_group"
	}
}

// SignatureScheme identifies a signature algorithm per RFC 8446 §4.2.3.
type SignatureScheme uint16

const (
	SigSchemeRSAPSSRSAESHA256 SignatureScheme = 0x0804
	SigSchemeRSAPSSRSAESHA384 SignatureScheme = 0x0805
	SigSchemeRSAPSSRSAESHA512 SignatureScheme = 0x0806
	SigSchemeECDSASecp256r1SHA256 SignatureScheme = 0x0403
	SigSchemeECDSASecp384r1SHA384 SignatureScheme = 0x0503
	SigSchemeECDSASecp521r1SHA512 SignatureScheme = 0x0603
	SigSchemeEd25519             SignatureScheme = 0x0807
)

// ExtensionType identifies an extension per RFC 8446 §4.2 / IANA registry.
type ExtensionType uint16

const (
	ExtServerName            ExtensionType = 0
	ExtMaxFragmentLength      ExtensionType = 1
	ExtStatusRequest          ExtensionType = 5
	ExtSupportedGroups        ExtensionType = 10
	ExtSignatureAlgorithms    ExtensionType = 13
	ExtALPN                   ExtensionType = 16
	ExtCompressCertificate    ExtensionType = 27
	ExtPreSharedKey           ExtensionType = 41
	ExtEarlyData              ExtensionType = 42
	ExtSupportedVersions      ExtensionType = 43
	ExtCookie                 ExtensionType = 44
	ExtPSKKeyExchangeModes    ExtensionType = 45
	ExtCertificateAuthorities ExtensionType = 47
	ExtSignatureAlgorithmsCert ExtensionType = 50
	ExtKeyShare               ExtensionType = 51
)

// PSKKeyExchangeMode per RFC 8446 §4.2.9.
type PSKKeyExchangeMode uint8

const (
	PSKKE    PSKKeyExchangeMode = 0 // psk_ke
	PSKDHEKE PSKKeyExchangeMode = 1 // psk_dhe_ke
)

// HandshakeType identifies the 1-byte handshake message type.
type HandshakeType uint8

const (
	HandshakeClientHello         HandshakeType = 1
	HandshakeServerHello         HandshakeType = 2
	HandshakeNewSessionTicket    HandshakeType = 4
	HandshakeEndOfEarlyData      HandshakeType = 5
	HandshakeEncryptedExtensions HandshakeType = 8
	HandshakeCertificate         HandshakeType = 11
	HandshakeCertificateVerify   HandshakeType = 15
	HandshakeFinished            HandshakeType = 20
	HandshakeKeyUpdate           HandshakeType = 24
	HandshakeMessageHash         HandshakeType = 254
)

// MaxHandshakeMessageSize bounds a single handshake message body per the
// engine's implementation cap (tighter than the wire's 2^24-1 ceiling).
const MaxHandshakeMessageSize = 1 << 16

// HelloRetryRequestRandom is the fixed 32-byte value RFC 8446 §4.1.3 mandates
// in place of ServerHello.random when the message is actually a
// HelloRetryRequest.
var HelloRetryRequestRandom = [32]byte{
	0xCF, 0x21, 0xAD, 0x74, 0xE5, 0x9A, 0x61, 0x11,
	0xBE, 0x1D, 0x8C, 0x02, 0x1E, 0x65, 0xB8, 0x91,
	0xC2, 0xA2, 0x11, 0x16, 0x7A, 0xBB, 0x8C, 0x5E,
	0x07, 0x9E, 0x09, 0xE2, 0xC8, 0xA8, 0x33, 0x9C,
}

// DowngradeSentinelTLS12 and DowngradeSentinelTLS11 are the last 8 bytes a
// TLS-1.3-aware server MUST set in ServerHello.random when it is actually
// negotiating TLS 1.2 or below (RFC 8446 §4.1.3), letting a TLS-1.3-only
// client detect an active downgrade attack.
var (
	DowngradeSentinelTLS12 = [8]byte{0x44, 0x4F, 0x57, 0x4E, 0x47, 0x52, 0x44, 0x01}
	DowngradeSentinelTLS11 = [8]byte{0x44, 0x4F, 0x57, 0x4E, 0x47, 0x52, 0x44, 0x00}
)
