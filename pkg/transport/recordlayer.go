// recordlayer.go is the one concrete Transport implementation this
// repository ships: a net.Conn-backed TLS 1.3 record layer, generalized from
// the teacher's Transport struct (pkg/tunnel/transport.go), which wrapped
// net.Conn with its own (non-TLS) record framing. Record content types and
// the 5-byte TLSPlaintext/TLSCiphertext header follow RFC 8446 §5.1; this is
// still "external" to the handshake engine in the sense that C6 only ever
// calls the Transport interface, never this struct's fields directly.
package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/cryptosuite"
)

const (
	contentTypeChangeCipherSpec uint8 = 20
	contentTypeAlert            uint8 = 21
	contentTypeHandshake        uint8 = 22
	contentTypeApplicationData  uint8 = 23
)

const maxRecordPlaintext = 1 << 14

// RecordLayer is a net.Conn-backed Transport. It is safe for the
// single-threaded cooperative use the handshake engine makes of it; it is
// not safe for concurrent use from multiple goroutines.
type RecordLayer struct {
	conn net.Conn

	writeMu sync.Mutex

	outboundAEAD *cryptosuite.AEAD
	inboundAEAD  *cryptosuite.AEAD

	// readBuf holds bytes read from conn but not yet consumed by a caller
	// of ReadHandshake, spanning a single handshake message that may itself
	// span multiple records.
	readBuf     []byte
	pendingBody []byte
	pendingType params.HandshakeType
	havePending bool
}

// New wraps conn as a Transport. No record protection is installed until
// InstallKeys is called; records are read/written in cleartext until then,
// matching the handshake's ClientHello/ServerHello cleartext phase.
func New(conn net.Conn) *RecordLayer {
	return &RecordLayer{conn: conn}
}

func (r *RecordLayer) WriteHandshake(t params.HandshakeType, body []byte) error {
	frame := frameHandshake(t, body)
	return r.writeRecord(contentTypeHandshake, frame)
}

func (r *RecordLayer) WriteChangeCipherSpec() error {
	return r.writeRecord(contentTypeChangeCipherSpec, []byte{0x01})
}

func (r *RecordLayer) WriteEarlyData(data []byte) error {
	return r.writeRecord(contentTypeApplicationData, data)
}

func (r *RecordLayer) writeRecord(contentType uint8, payload []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	for len(payload) > 0 {
		chunk := payload
		if len(chunk) > maxRecordPlaintext {
			chunk = chunk[:maxRecordPlaintext]
		}
		payload = payload[len(chunk):]

		var wire []byte
		effectiveType := contentType
		if r.outboundAEAD != nil && contentType != contentTypeChangeCipherSpec {
			inner := append(append([]byte{}, chunk...), contentType)
			sealed := r.outboundAEAD.Seal(inner, recordAAD(len(inner)+r.outboundAEAD.Overhead()))
			wire = sealed
			effectiveType = contentTypeApplicationData
		} else {
			wire = chunk
		}

		header := make([]byte, 5)
		header[0] = effectiveType
		binary.BigEndian.PutUint16(header[1:3], uint16(params.LegacyVersion))
		binary.BigEndian.PutUint16(header[3:5], uint16(len(wire)))

		if _, err := r.conn.Write(header); err != nil {
			return alert.New(alert.InternalError, "transport.RecordLayer.writeRecord", err)
		}
		if _, err := r.conn.Write(wire); err != nil {
			return alert.New(alert.InternalError, "transport.RecordLayer.writeRecord", err)
		}
	}
	return nil
}

// recordAAD builds the additional authenticated data for a TLSCiphertext
// record per RFC 8446 §5.2: opaque_type(1)=23, legacy_record_version(2),
// length(2) of the AEAD-protected payload.
func recordAAD(ciphertextLen int) []byte {
	aad := make([]byte, 5)
	aad[0] = contentTypeApplicationData
	binary.BigEndian.PutUint16(aad[1:3], uint16(params.LegacyVersion))
	binary.BigEndian.PutUint16(aad[3:5], uint16(ciphertextLen))
	return aad
}

func (r *RecordLayer) InstallKeys(direction Direction, suite params.CipherSuite, key, iv []byte) error {
	a, err := cryptosuite.New(suite, key, iv)
	if err != nil {
		return err
	}
	if direction == Outbound {
		r.writeMu.Lock()
		r.outboundAEAD = a
		r.writeMu.Unlock()
	} else {
		r.inboundAEAD = a
	}
	return nil
}

// ReadHandshake returns the next handshake message, transparently
// reassembling it across as many records as necessary and decrypting once
// inbound keys are installed.
func (r *RecordLayer) ReadHandshake(expectedType params.HandshakeType) (params.HandshakeType, []byte, Signal, error) {
	for {
		header, err := r.readFull(5)
		if err != nil {
			return 0, nil, SignalNone, err
		}
		contentType := header[0]
		length := binary.BigEndian.Uint16(header[3:5])
		payload, err := r.readFull(int(length))
		if err != nil {
			return 0, nil, SignalNone, err
		}

		var plaintext []byte
		var realType uint8
		if r.inboundAEAD != nil {
			opened, err := r.inboundAEAD.Open(payload, recordAAD(len(payload)))
			if err != nil {
				return 0, nil, SignalNone, err
			}
			realType = opened[len(opened)-1]
			plaintext = opened[:len(opened)-1]
		} else {
			realType = contentType
			plaintext = payload
		}

		switch realType {
		case contentTypeChangeCipherSpec:
			return 0, nil, SignalChangeCipherSpecDropped, nil
		case contentTypeApplicationData:
			return 0, plaintext, SignalApplicationData, nil
		case contentTypeHandshake:
			r.readBuf = append(r.readBuf, plaintext...)
			if t, body, ok := r.tryExtractMessage(); ok {
				return t, body, SignalNone, nil
			}
			continue
		case contentTypeAlert:
			return 0, nil, SignalNone, alert.New(alert.HandshakeFailure, "transport.RecordLayer.ReadHandshake", nil)
		default:
			return 0, nil, SignalNone, alert.New(alert.UnexpectedMessage, "transport.RecordLayer.ReadHandshake", nil)
		}
	}
}

func (r *RecordLayer) tryExtractMessage() (params.HandshakeType, []byte, bool) {
	if len(r.readBuf) < 4 {
		return 0, nil, false
	}
	t := params.HandshakeType(r.readBuf[0])
	length := uint32(r.readBuf[1])<<16 | uint32(r.readBuf[2])<<8 | uint32(r.readBuf[3])
	if uint32(len(r.readBuf)) < 4+length {
		return 0, nil, false
	}
	body := append([]byte(nil), r.readBuf[4:4+length]...)
	r.readBuf = r.readBuf[4+length:]
	return t, body, true
}

func (r *RecordLayer) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.conn, buf); err != nil {
		return nil, alert.New(alert.InternalError, "transport.RecordLayer.readFull", err)
	}
	return buf, nil
}

func frameHandshake(t params.HandshakeType, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(t)
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}
