// Package handshakemsg implements the TLS 1.3 handshake message codec (C4):
// the wire-exact layouts of every handshake message named in spec §4.4,
// built on top of the extension codec (C3, package extensions) and the
// shared wire cursor.
package handshakemsg

import (
	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/wire"
)

// Frame wraps body in the 1-byte-type + 3-byte-length handshake record
// header RFC 8446 §4 mandates for every handshake message.
func Frame(t params.HandshakeType, body []byte) []byte {
	w := wire.NewWriter()
	w.PutUint8(uint8(t))
	w.PutUint24(uint32(len(body)))
	w.PutBytes(body)
	return w.Bytes()
}

// ParseFrameHeader reads the 4-byte header from the front of buf, returning
// the message type and the expected body length. It does not consume or
// validate the body itself — the transport (C5) is responsible for
// buffering exactly that many more bytes before the body is parsed.
func ParseFrameHeader(buf []byte) (params.HandshakeType, uint32, error) {
	if len(buf) < 4 {
		return 0, 0, alert.New(alert.DecodeError, "handshakemsg.ParseFrameHeader", nil)
	}
	r := wire.NewReader(buf[:4])
	t := params.HandshakeType(r.Uint8())
	length := r.Uint24()
	if length > params.MaxHandshakeMessageSize {
		return 0, 0, alert.New(alert.RecordOverflow, "handshakemsg.ParseFrameHeader", nil)
	}
	return t, length, nil
}
