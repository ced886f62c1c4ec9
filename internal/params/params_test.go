package params_test

import (
	"testing"

	"github.com/jesiegel1/tls13/internal/params"
)

func TestCipherSuiteString(t *testing.T) {
	cases := map[params.CipherSuite]string{
		params.TLS_AES_128_GCM_SHA256:       "TLS_AES_128_GCM_SHA256",
		params.TLS_AES_256_GCM_SHA384:       "TLS_AES_256_GCM_SHA384",
		params.TLS_CHACHA20_POLY1305_SHA256: "TLS_CHACHA20_POLY1305_SHA256",
		params.CipherSuite(0xffff):          "unknown_cipher_suite",
	}
	for cs, want := range cases {
		if got := cs.String(); got != want {
			t.Errorf("CipherSuite(%#x).String() = %q, want %q", uint16(cs), got, want)
		}
	}
}

func TestCipherSuiteHashLen(t *testing.T) {
	if got := params.TLS_AES_128_GCM_SHA256.HashLen(); got != 32 {
		t.Errorf("TLS_AES_128_GCM_SHA256.HashLen() = %d, want 32", got)
	}
	if got := params.TLS_CHACHA20_POLY1305_SHA256.HashLen(); got != 32 {
		t.Errorf("TLS_CHACHA20_POLY1305_SHA256.HashLen() = %d, want 32", got)
	}
	if got := params.TLS_AES_256_GCM_SHA384.HashLen(); got != 48 {
		t.Errorf("TLS_AES_256_GCM_SHA384.HashLen() = %d, want 48", got)
	}
}

func TestNamedGroupString(t *testing.T) {
	cases := map[params.NamedGroup]string{
		params.GroupX25519:     "x25519",
		params.GroupSecp256r1:  "secp256r1",
		params.GroupSecp384r1:  "secp384r1",
		params.GroupSecp521r1:  "secp521r1",
		params.GroupX448:       "x448",
		params.NamedGroup(0x99): "unknown_group",
	}
	for g, want := range cases {
		if got := g.String(); got != want {
			t.Errorf("NamedGroup(%#x).String() = %q, want %q", uint16(g), got, want)
		}
	}
}

func TestHelloRetryRequestRandomLength(t *testing.T) {
	if len(params.HelloRetryRequestRandom) != 32 {
		t.Fatalf("len(HelloRetryRequestRandom) = %d, want 32", len(params.HelloRetryRequestRandom))
	}
}

func TestDowngradeSentinelsDistinct(t *testing.T) {
	if params.DowngradeSentinelTLS12 == params.DowngradeSentinelTLS11 {
		t.Error("TLS 1.2 and TLS 1.1 downgrade sentinels must differ")
	}
}

func TestLegacyVersionIsTLS12(t *testing.T) {
	if params.LegacyVersion != params.VersionTLS12 {
		t.Errorf("LegacyVersion = %#x, want VersionTLS12 (%#x)", params.LegacyVersion, params.VersionTLS12)
	}
}

func TestPSKKeyExchangeModeValues(t *testing.T) {
	if params.PSKKE != 0 {
		t.Errorf("PSKKE = %d, want 0", params.PSKKE)
	}
	if params.PSKDHEKE != 1 {
		t.Errorf("PSKDHEKE = %d, want 1", params.PSKDHEKE)
	}
}
