// Package transport defines the record-layer collaborator (C5) the
// handshake engine drives: reading and writing handshake messages, emitting
// the middlebox-compatibility dummy ChangeCipherSpec, and switching a
// direction's record-protection epoch. Per spec §1 the record layer itself
// (framing, fragmentation, encryption) is an external collaborator; this
// package is the seam plus one concrete net.Conn-backed implementation,
// generalized from the teacher's Transport struct (pkg/tunnel/transport.go)
// which concretely wrapped net.Conn directly rather than exposing an
// interface the state machine could be driven through.
package transport

import (
	"github.com/jesiegel1/tls13/internal/params"
)

// Direction identifies which side of the connection a key-install or
// epoch-switch operation applies to.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// Signal is a non-fatal condition read_handshake may surface alongside (or
// instead of) a parsed message.
type Signal int

const (
	SignalNone Signal = iota
	// SignalChangeCipherSpecDropped indicates a ChangeCipherSpec record was
	// observed and silently discarded, per RFC 8446 §5's middlebox
	// compatibility guidance.
	SignalChangeCipherSpecDropped
	// SignalApplicationData indicates application data was received
	// (relevant post-handshake, or for 0-RTT the server chose to ignore).
	SignalApplicationData
)

// Transport is the interface the handshake state machine (C6) consumes.
// Every method may block; per spec §5 it is the engine's only suspension
// point.
type Transport interface {
	// ReadHandshake returns the next handshake message's type and body.
	// expectedType, if nonzero, lets an implementation that multiplexes
	// record types short-circuit; implementations are free to ignore it and
	// let the caller validate the type itself.
	ReadHandshake(expectedType params.HandshakeType) (t params.HandshakeType, body []byte, sig Signal, err error)

	// WriteHandshake enqueues a fully-framed handshake message for
	// transmission under the currently installed outbound epoch.
	WriteHandshake(t params.HandshakeType, body []byte) error

	// WriteChangeCipherSpec emits a single dummy CCS record (compatibility
	// mode only). No-op (but not an error) for implementations that never
	// need middlebox compatibility.
	WriteChangeCipherSpec() error

	// InstallKeys activates new record-layer protection for direction,
	// effective strictly after the last record under the previous epoch for
	// that direction has been flushed (outbound) or consumed (inbound),
	// per spec §4.5 "Ordering".
	InstallKeys(direction Direction, suite params.CipherSuite, key, iv []byte) error

	// WriteEarlyData sends protected 0-RTT application data. Called only
	// between installing early traffic keys and the end-of-early-data
	// transition.
	WriteEarlyData(data []byte) error
}
