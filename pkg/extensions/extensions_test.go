package extensions_test

import (
	"bytes"
	"testing"

	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/extensions"
	"github.com/jesiegel1/tls13/pkg/wire"
)

func TestBuilderParseListRoundTrip(t *testing.T) {
	b := extensions.NewBuilder()
	b.Add(params.ExtServerName, []byte("hello"))
	b.Add(params.ExtSupportedVersions, []byte{0x03, 0x04})

	w := wire.NewWriter()
	b.Encode(w)

	r := wire.NewReader(w.Bytes())
	list, err := extensions.ParseList(r)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if !r.Done() {
		t.Fatal("ParseList left trailing bytes unread")
	}

	if !list.Has(params.ExtServerName) {
		t.Error("expected ExtServerName present")
	}
	data, ok := list.Find(params.ExtSupportedVersions)
	if !ok || !bytes.Equal(data, []byte{0x03, 0x04}) {
		t.Errorf("Find(ExtSupportedVersions) = %v, %v", data, ok)
	}
}

func TestParseListRejectsDuplicateExtensionType(t *testing.T) {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	inner.PutUint16(uint16(params.ExtServerName))
	inner.PutUint16LengthPrefixed([]byte("a"))
	inner.PutUint16(uint16(params.ExtServerName))
	inner.PutUint16LengthPrefixed([]byte("b"))
	w.PutUint16LengthPrefixed(inner.Bytes())

	r := wire.NewReader(w.Bytes())
	if _, err := extensions.ParseList(r); err == nil {
		t.Fatal("ParseList accepted a duplicate extension type")
	}
}

func TestSupportedVersionsClientHelloEncodesLengthPrefix(t *testing.T) {
	body := extensions.EncodeSupportedVersionsClientHello([]params.ProtocolVersion{params.VersionTLS13, params.VersionTLS12})
	r := wire.NewReader(body)
	inner := r.Uint8LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		t.Fatalf("EncodeSupportedVersionsClientHello produced malformed body: %v", r.Err())
	}
	if len(inner) != 4 {
		t.Fatalf("inner versions list length = %d, want 4 (two uint16 versions)", len(inner))
	}
}

func TestSupportedVersionsServerHelloRoundTrip(t *testing.T) {
	w := wire.NewWriter()
	w.PutUint16(uint16(params.VersionTLS13))

	decoded, err := extensions.DecodeSupportedVersionsServerHello(w.Bytes())
	if err != nil {
		t.Fatalf("DecodeSupportedVersionsServerHello: %v", err)
	}
	if decoded != params.VersionTLS13 {
		t.Errorf("decoded version = %v, want TLS13", decoded)
	}
}

func TestSupportedGroupsRoundTrip(t *testing.T) {
	groups := []params.NamedGroup{params.GroupX25519, params.GroupSecp256r1}
	body := extensions.EncodeSupportedGroups(groups)
	decoded, err := extensions.DecodeSupportedGroups(body)
	if err != nil {
		t.Fatalf("DecodeSupportedGroups: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != params.GroupX25519 || decoded[1] != params.GroupSecp256r1 {
		t.Errorf("decoded groups = %v", decoded)
	}
}

func TestSignatureAlgorithmsRoundTrip(t *testing.T) {
	schemes := []params.SignatureScheme{params.SigSchemeEd25519, params.SigSchemeECDSASecp256r1SHA256}
	body := extensions.EncodeSignatureAlgorithms(schemes)
	decoded, err := extensions.DecodeSignatureAlgorithms(body)
	if err != nil {
		t.Fatalf("DecodeSignatureAlgorithms: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != schemes[0] || decoded[1] != schemes[1] {
		t.Errorf("decoded schemes = %v", decoded)
	}
}

func TestKeyShareClientHelloRoundTrip(t *testing.T) {
	entries := []extensions.KeyShareEntry{
		{Group: params.GroupX25519, KeyExchange: bytes.Repeat([]byte{0x01}, 32)},
	}
	body := extensions.EncodeKeyShareClientHello(entries)
	decoded, err := extensions.DecodeKeyShareClientHello(body)
	if err != nil {
		t.Fatalf("DecodeKeyShareClientHello: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Group != params.GroupX25519 || !bytes.Equal(decoded[0].KeyExchange, entries[0].KeyExchange) {
		t.Errorf("decoded entries = %v", decoded)
	}
}

func TestKeyShareServerHelloRoundTrip(t *testing.T) {
	entry := extensions.KeyShareEntry{Group: params.GroupSecp256r1, KeyExchange: bytes.Repeat([]byte{0x02}, 65)}
	body := extensions.EncodeKeyShareServerHello(entry)
	decoded, err := extensions.DecodeKeyShareServerHello(body)
	if err != nil {
		t.Fatalf("DecodeKeyShareServerHello: %v", err)
	}
	if decoded.Group != entry.Group || !bytes.Equal(decoded.KeyExchange, entry.KeyExchange) {
		t.Errorf("decoded entry = %v", decoded)
	}
}

func TestKeyShareHelloRetryRequestRoundTrip(t *testing.T) {
	body := extensions.EncodeKeyShareHelloRetryRequest(params.GroupSecp384r1)
	decoded, err := extensions.DecodeKeyShareHelloRetryRequest(body)
	if err != nil {
		t.Fatalf("DecodeKeyShareHelloRetryRequest: %v", err)
	}
	if decoded != params.GroupSecp384r1 {
		t.Errorf("decoded group = %v, want GroupSecp384r1", decoded)
	}
}

func TestPreSharedKeyEncodeIdentitiesAndPatchBinders(t *testing.T) {
	identities := []extensions.PSKIdentity{
		{Identity: []byte("ticket-1"), ObfuscatedTicketAge: 1234},
	}
	binderLens := []int{32}

	body, _ := extensions.EncodeIdentities(identities, binderLens)
	realBinder := bytes.Repeat([]byte{0x77}, 32)
	extensions.PatchBinders(body, [][]byte{realBinder})

	decoded, err := extensions.DecodePreSharedKeyClientHello(body)
	if err != nil {
		t.Fatalf("DecodePreSharedKeyClientHello: %v", err)
	}
	if len(decoded.Identities) != 1 || !bytes.Equal(decoded.Identities[0].Identity, identities[0].Identity) {
		t.Errorf("decoded identities = %v", decoded.Identities)
	}
	if decoded.Identities[0].ObfuscatedTicketAge != 1234 {
		t.Errorf("decoded ObfuscatedTicketAge = %d, want 1234", decoded.Identities[0].ObfuscatedTicketAge)
	}
	if len(decoded.Binders) != 1 || !bytes.Equal(decoded.Binders[0], realBinder) {
		t.Errorf("decoded binders = %v, want [%v]", decoded.Binders, realBinder)
	}
}

func TestSelectedIdentityRoundTrip(t *testing.T) {
	body := extensions.EncodeSelectedIdentity(3)
	decoded, err := extensions.DecodeSelectedIdentity(body)
	if err != nil {
		t.Fatalf("DecodeSelectedIdentity: %v", err)
	}
	if decoded != 3 {
		t.Errorf("decoded index = %d, want 3", decoded)
	}
}

func TestPSKKeyExchangeModesRoundTrip(t *testing.T) {
	modes := []params.PSKKeyExchangeMode{params.PSKDHEKE}
	body := extensions.EncodePSKKeyExchangeModes(modes)
	decoded, err := extensions.DecodePSKKeyExchangeModes(body)
	if err != nil {
		t.Fatalf("DecodePSKKeyExchangeModes: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != params.PSKDHEKE {
		t.Errorf("decoded modes = %v", decoded)
	}
}

func TestEarlyDataNewSessionTicketRoundTrip(t *testing.T) {
	body := extensions.EncodeEarlyDataNewSessionTicket(16384)
	decoded, err := extensions.DecodeEarlyDataNewSessionTicket(body)
	if err != nil {
		t.Fatalf("DecodeEarlyDataNewSessionTicket: %v", err)
	}
	if decoded != 16384 {
		t.Errorf("decoded max size = %d, want 16384", decoded)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	body := extensions.EncodeCookie([]byte("opaque-cookie-state"))
	decoded, err := extensions.DecodeCookie(body)
	if err != nil {
		t.Fatalf("DecodeCookie: %v", err)
	}
	if !bytes.Equal(decoded, []byte("opaque-cookie-state")) {
		t.Errorf("decoded cookie = %q", decoded)
	}
}

func TestALPNRoundTrip(t *testing.T) {
	body := extensions.EncodeALPN([]string{"h2"})
	decoded, err := extensions.DecodeALPN(body)
	if err != nil {
		t.Fatalf("DecodeALPN: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != "h2" {
		t.Errorf("decoded protocols = %v", decoded)
	}
}

func TestALPNDecodeRejectsMultipleProtocols(t *testing.T) {
	body := extensions.EncodeALPN([]string{"h2", "http/1.1"})
	if _, err := extensions.DecodeALPN(body); err == nil {
		t.Fatal("DecodeALPN accepted more than one negotiated protocol")
	}
}

func TestMaxFragmentLengthRoundTrip(t *testing.T) {
	body := extensions.EncodeMaxFragmentLength(extensions.MaxFragmentLength2048)
	decoded, err := extensions.DecodeMaxFragmentLength(body)
	if err != nil {
		t.Fatalf("DecodeMaxFragmentLength: %v", err)
	}
	if decoded != extensions.MaxFragmentLength2048 {
		t.Errorf("decoded = %v, want MaxFragmentLength2048", decoded)
	}
}
