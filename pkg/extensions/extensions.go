// Package extensions implements the TLS 1.3 extension codec (C3): encoding
// and parsing of each extension in its position-specific shape
// (ClientHello, ServerHello/HelloRetryRequest, EncryptedExtensions,
// CertificateRequest, NewSessionTicket), per spec §4.3.
package extensions

import (
	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/wire"
)

// Raw is one undecoded extension: its type and opaque body.
type Raw struct {
	Type params.ExtensionType
	Data []byte
}

// List is a parsed extension block, plus a presence bitmask for the O(1)
// "exactly one"/"required"/"forbidden here" checks spec §3 calls for.
type List struct {
	Extensions []Raw
	seen       map[params.ExtensionType]bool
}

// Has reports whether t was present in the message.
func (l *List) Has(t params.ExtensionType) bool { return l.seen[t] }

// Find returns the raw body of the first (only, per ParseList's duplicate
// check) extension of type t.
func (l *List) Find(t params.ExtensionType) ([]byte, bool) {
	for _, e := range l.Extensions {
		if e.Type == t {
			return e.Data, true
		}
	}
	return nil, false
}

// ParseList parses a full `Extension extensions<0..2^16-1>` vector,
// rejecting duplicate extension types and any trailing bytes (spec §4.3
// "Parsing invariants").
func ParseList(r *wire.Reader) (*List, error) {
	body := r.Uint16LengthPrefixed()
	if r.Err() != nil {
		return nil, alert.New(alert.DecodeError, "extensions.ParseList", r.Err())
	}
	sub := wire.NewReader(body)

	out := &List{seen: make(map[params.ExtensionType]bool)}
	for sub.Remaining() > 0 {
		extType := params.ExtensionType(sub.Uint16())
		extData := sub.Uint16LengthPrefixed()
		if sub.Err() != nil {
			return nil, alert.New(alert.DecodeError, "extensions.ParseList", sub.Err())
		}
		if out.seen[extType] {
			return nil, alert.New(alert.DecodeError, "extensions.ParseList", nil)
		}
		out.seen[extType] = true
		out.Extensions = append(out.Extensions, Raw{Type: extType, Data: extData})
	}
	if !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.ParseList", alert.ErrTrailingBytes)
	}
	return out, nil
}

// Builder accumulates extensions for an outgoing message in offered order.
type Builder struct {
	items []Raw
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Add(t params.ExtensionType, body []byte) {
	b.items = append(b.items, Raw{Type: t, Data: body})
}

// Encode writes the accumulated `Extension extensions<0..2^16-1>` vector
// into w.
func (b *Builder) Encode(w *wire.Writer) {
	inner := wire.NewWriter()
	for _, e := range b.items {
		inner.PutUint16(uint16(e.Type))
		inner.PutUint16LengthPrefixed(e.Data)
	}
	w.PutUint16LengthPrefixed(inner.Bytes())
}

// ---- supported_versions ----

func EncodeSupportedVersionsClientHello(versions []params.ProtocolVersion) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, v := range versions {
		inner.PutUint16(uint16(v))
	}
	w.PutUint8LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodeSupportedVersionsServerHello(data []byte) (params.ProtocolVersion, error) {
	r := wire.NewReader(data)
	v := r.Uint16()
	if r.Err() != nil || !r.Done() {
		return 0, alert.New(alert.DecodeError, "extensions.DecodeSupportedVersionsServerHello", nil)
	}
	return params.ProtocolVersion(v), nil
}

// ---- supported_groups ----

func EncodeSupportedGroups(groups []params.NamedGroup) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, g := range groups {
		inner.PutUint16(uint16(g))
	}
	w.PutUint16LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodeSupportedGroups(data []byte) ([]params.NamedGroup, error) {
	r := wire.NewReader(data)
	body := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeSupportedGroups", nil)
	}
	sub := wire.NewReader(body)
	var groups []params.NamedGroup
	for sub.Remaining() > 0 {
		groups = append(groups, params.NamedGroup(sub.Uint16()))
	}
	if sub.Err() != nil || !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeSupportedGroups", nil)
	}
	return groups, nil
}

// ---- signature_algorithms / signature_algorithms_cert (same shape) ----

func EncodeSignatureAlgorithms(schemes []params.SignatureScheme) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, s := range schemes {
		inner.PutUint16(uint16(s))
	}
	w.PutUint16LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodeSignatureAlgorithms(data []byte) ([]params.SignatureScheme, error) {
	r := wire.NewReader(data)
	body := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeSignatureAlgorithms", nil)
	}
	sub := wire.NewReader(body)
	var schemes []params.SignatureScheme
	for sub.Remaining() > 0 {
		schemes = append(schemes, params.SignatureScheme(sub.Uint16()))
	}
	if sub.Err() != nil || !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeSignatureAlgorithms", nil)
	}
	return schemes, nil
}

// ---- key_share ----

type KeyShareEntry struct {
	Group      params.NamedGroup
	KeyExchange []byte
}

func EncodeKeyShareClientHello(entries []KeyShareEntry) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, e := range entries {
		inner.PutUint16(uint16(e.Group))
		inner.PutUint16LengthPrefixed(e.KeyExchange)
	}
	w.PutUint16LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodeKeyShareClientHello(data []byte) ([]KeyShareEntry, error) {
	r := wire.NewReader(data)
	body := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeKeyShareClientHello", nil)
	}
	sub := wire.NewReader(body)
	var entries []KeyShareEntry
	for sub.Remaining() > 0 {
		g := params.NamedGroup(sub.Uint16())
		ke := sub.Uint16LengthPrefixed()
		entries = append(entries, KeyShareEntry{Group: g, KeyExchange: ke})
	}
	if sub.Err() != nil || !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeKeyShareClientHello", nil)
	}
	return entries, nil
}

func EncodeKeyShareServerHello(e KeyShareEntry) []byte {
	w := wire.NewWriter()
	w.PutUint16(uint16(e.Group))
	w.PutUint16LengthPrefixed(e.KeyExchange)
	return w.Bytes()
}

func DecodeKeyShareServerHello(data []byte) (KeyShareEntry, error) {
	r := wire.NewReader(data)
	g := params.NamedGroup(r.Uint16())
	ke := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return KeyShareEntry{}, alert.New(alert.DecodeError, "extensions.DecodeKeyShareServerHello", nil)
	}
	return KeyShareEntry{Group: g, KeyExchange: ke}, nil
}

// HelloRetryRequest's key_share carries only a selected_group, no value.
func EncodeKeyShareHelloRetryRequest(g params.NamedGroup) []byte {
	w := wire.NewWriter()
	w.PutUint16(uint16(g))
	return w.Bytes()
}

func DecodeKeyShareHelloRetryRequest(data []byte) (params.NamedGroup, error) {
	r := wire.NewReader(data)
	g := r.Uint16()
	if r.Err() != nil || !r.Done() {
		return 0, alert.New(alert.DecodeError, "extensions.DecodeKeyShareHelloRetryRequest", nil)
	}
	return params.NamedGroup(g), nil
}

// ---- pre_shared_key ----

type PSKIdentity struct {
	Identity            []byte
	ObfuscatedTicketAge uint32
}

// PreSharedKeyClientHello holds the parsed/unparsed pre_shared_key body. The
// binders vector is kept separate because the message codec (C4) must patch
// it in after the rest of ClientHello (including the identities) has been
// transcript-hashed, per spec §4.4.
type PreSharedKeyClientHello struct {
	Identities []PSKIdentity
	Binders    [][]byte
}

// EncodeIdentities emits only the identities list portion, reserving the
// binders list with zero-filled placeholder entries of the given lengths so
// the overall extension length is correct before the real binders are
// computed. Callers that need to patch real binder bytes in afterward use
// PatchBinders, which locates the binders list in body by itself.
func EncodeIdentities(identities []PSKIdentity, binderLens []int) (body []byte, bindersOffset int) {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, id := range identities {
		inner.PutUint16LengthPrefixed(id.Identity)
		inner.PutUint32(id.ObfuscatedTicketAge)
	}
	w.PutUint16LengthPrefixed(inner.Bytes())

	bindersOffset = w.Len()
	bindersInner := wire.NewWriter()
	for _, l := range binderLens {
		bindersInner.PutUint8LengthPrefixed(make([]byte, l))
	}
	w.PutUint16LengthPrefixed(bindersInner.Bytes())
	return w.Bytes(), bindersOffset
}

// PatchBinders overwrites the placeholder binder entries in body (as
// produced by EncodeIdentities) with the real computed binder values, in
// order. Binder lengths must match what EncodeIdentities reserved.
func PatchBinders(body []byte, binders [][]byte) {
	// body layout from bindersOffset: [u16 bindersVecLen][u8 len][binder]...
	off := findBindersOffset(body)
	off += 2 // skip bindersVecLen
	for _, b := range binders {
		off++ // skip the 1-byte length already written
		copy(body[off:off+len(b)], b)
		off += len(b)
	}
}

func findBindersOffset(body []byte) int {
	r := wire.NewReader(body)
	idLen := int(r.Uint16())
	return 2 + idLen
}

func DecodePreSharedKeyClientHello(data []byte) (*PreSharedKeyClientHello, error) {
	r := wire.NewReader(data)
	idBody := r.Uint16LengthPrefixed()
	binderBody := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodePreSharedKeyClientHello", nil)
	}

	idR := wire.NewReader(idBody)
	var identities []PSKIdentity
	for idR.Remaining() > 0 {
		identity := idR.Uint16LengthPrefixed()
		age := idR.Uint32()
		identities = append(identities, PSKIdentity{Identity: identity, ObfuscatedTicketAge: age})
	}
	if idR.Err() != nil || !idR.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodePreSharedKeyClientHello", nil)
	}

	binR := wire.NewReader(binderBody)
	var binders [][]byte
	for binR.Remaining() > 0 {
		binders = append(binders, binR.Uint8LengthPrefixed())
	}
	if binR.Err() != nil || !binR.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodePreSharedKeyClientHello", nil)
	}

	return &PreSharedKeyClientHello{Identities: identities, Binders: binders}, nil
}

func EncodeSelectedIdentity(idx uint16) []byte {
	w := wire.NewWriter()
	w.PutUint16(idx)
	return w.Bytes()
}

func DecodeSelectedIdentity(data []byte) (uint16, error) {
	r := wire.NewReader(data)
	idx := r.Uint16()
	if r.Err() != nil || !r.Done() {
		return 0, alert.New(alert.DecodeError, "extensions.DecodeSelectedIdentity", nil)
	}
	return idx, nil
}

// ---- psk_key_exchange_modes ----

func EncodePSKKeyExchangeModes(modes []params.PSKKeyExchangeMode) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, m := range modes {
		inner.PutUint8(uint8(m))
	}
	w.PutUint8LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodePSKKeyExchangeModes(data []byte) ([]params.PSKKeyExchangeMode, error) {
	r := wire.NewReader(data)
	body := r.Uint8LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodePSKKeyExchangeModes", nil)
	}
	sub := wire.NewReader(body)
	var modes []params.PSKKeyExchangeMode
	for sub.Remaining() > 0 {
		modes = append(modes, params.PSKKeyExchangeMode(sub.Uint8()))
	}
	if sub.Err() != nil || !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodePSKKeyExchangeModes", nil)
	}
	return modes, nil
}

// ---- early_data ----

// EncodeEarlyDataEmpty returns the zero-length body used in ClientHello and
// EncryptedExtensions.
func EncodeEarlyDataEmpty() []byte { return nil }

func EncodeEarlyDataNewSessionTicket(maxSize uint32) []byte {
	w := wire.NewWriter()
	w.PutUint32(maxSize)
	return w.Bytes()
}

func DecodeEarlyDataNewSessionTicket(data []byte) (uint32, error) {
	r := wire.NewReader(data)
	v := r.Uint32()
	if r.Err() != nil || !r.Done() {
		return 0, alert.New(alert.DecodeError, "extensions.DecodeEarlyDataNewSessionTicket", nil)
	}
	return v, nil
}

// ---- cookie ----

func EncodeCookie(cookie []byte) []byte {
	w := wire.NewWriter()
	w.PutUint16LengthPrefixed(cookie)
	return w.Bytes()
}

func DecodeCookie(data []byte) ([]byte, error) {
	r := wire.NewReader(data)
	cookie := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeCookie", nil)
	}
	return cookie, nil
}

// ---- server_name (SNI) ----

func EncodeServerName(hostname string) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	inner.PutUint8(0) // name_type: host_name
	inner.PutUint16LengthPrefixed([]byte(hostname))
	w.PutUint16LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

// ---- alpn ----

func EncodeALPN(protocols []string) []byte {
	w := wire.NewWriter()
	inner := wire.NewWriter()
	for _, p := range protocols {
		inner.PutUint8LengthPrefixed([]byte(p))
	}
	w.PutUint16LengthPrefixed(inner.Bytes())
	return w.Bytes()
}

func DecodeALPN(data []byte) ([]string, error) {
	r := wire.NewReader(data)
	body := r.Uint16LengthPrefixed()
	if r.Err() != nil || !r.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeALPN", nil)
	}
	sub := wire.NewReader(body)
	var protos []string
	for sub.Remaining() > 0 {
		protos = append(protos, string(sub.Uint8LengthPrefixed()))
	}
	if sub.Err() != nil || !sub.Done() {
		return nil, alert.New(alert.DecodeError, "extensions.DecodeALPN", nil)
	}
	if len(protos) != 1 {
		// EncryptedExtensions MUST carry exactly one negotiated protocol.
		return nil, alert.New(alert.DecodeError, "extensions.DecodeALPN", nil)
	}
	return protos, nil
}

// ---- max_fragment_length ----

type MaxFragmentLength uint8

const (
	MaxFragmentLength512  MaxFragmentLength = 1
	MaxFragmentLength1024 MaxFragmentLength = 2
	MaxFragmentLength2048 MaxFragmentLength = 3
	MaxFragmentLength4096 MaxFragmentLength = 4
)

func EncodeMaxFragmentLength(v MaxFragmentLength) []byte { return []byte{byte(v)} }

func DecodeMaxFragmentLength(data []byte) (MaxFragmentLength, error) {
	if len(data) != 1 {
		return 0, alert.New(alert.DecodeError, "extensions.DecodeMaxFragmentLength", nil)
	}
	return MaxFragmentLength(data[0]), nil
}
