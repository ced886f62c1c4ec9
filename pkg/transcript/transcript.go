// Package transcript implements the TLS 1.3 handshake transcript hash (C1).
//
// The transcript is a running hash over every handshake message exchanged,
// in wire order. Before the cipher suite is known, messages are fed to both
// a SHA-256 and a SHA-384 context in parallel; the losing context is
// discarded once ServerHello fixes the suite. After a HelloRetryRequest the
// transcript is rewritten per RFC 8446 §4.4.1 using the synthetic
// "message_hash" construction.
package transcript

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// Hash accumulates the handshake transcript. It is not safe for concurrent
// use; the handshake state machine drives it from a single goroutine.
type Hash struct {
	suiteKnown bool
	hashLen    int

	// Before suiteKnown, both contexts run in parallel.
	h256 hash.Hash
	h384 hash.Hash

	// After suiteKnown, only this one is live.
	active hash.Hash
}

// New returns a fresh transcript with both candidate hashes running.
func New() *Hash {
	return &Hash{
		h256: sha256.New(),
		h384: sha512.New384(),
	}
}

// Update folds a fully-framed handshake message (type + length + body) into
// the transcript, in both candidate hashes if the suite has not yet been
// fixed, or in the single active hash otherwise.
func (h *Hash) Update(msg []byte) {
	if h.suiteKnown {
		h.active.Write(msg)
		return
	}
	h.h256.Write(msg)
	h.h384.Write(msg)
}

// SelectSuite commits the transcript to the hash implied by cs, discarding
// the other candidate. Calls after the first are ignored.
func (h *Hash) SelectSuite(cs params.CipherSuite) {
	if h.suiteKnown {
		return
	}
	h.suiteKnown = true
	h.hashLen = cs.HashLen()
	if h.hashLen == 48 {
		h.active = h.h384
	} else {
		h.active = h.h256
	}
	h.h256 = nil
	h.h384 = nil
}

// Snapshot returns the current transcript digest. It is an error to call
// this before SelectSuite.
func (h *Hash) Snapshot() ([]byte, error) {
	if !h.suiteKnown {
		return nil, alert.New(alert.InternalError, "transcript.Snapshot", alert.ErrTranscriptNotReady)
	}
	clone := cloneHash(h.active)
	return clone.Sum(nil), nil
}

// HashLen returns the selected hash's output length, or 0 if not yet fixed.
func (h *Hash) HashLen() int { return h.hashLen }

// ResetForHelloRetryRequest implements the RFC 8446 §4.4.1 synthetic
// "message_hash" rewrite: the transcript so far (ClientHello1) is replaced
// with MessageHash(0x00, 0x00, len(digest), digest), and the next Update call
// is expected to be the HelloRetryRequest itself.
func (h *Hash) ResetForHelloRetryRequest() error {
	digest, err := h.Snapshot()
	if err != nil {
		return err
	}
	synthetic := make([]byte, 4+len(digest))
	synthetic[0] = byte(params.HandshakeMessageHash)
	synthetic[1] = 0x00
	synthetic[2] = 0x00
	synthetic[3] = byte(len(digest))
	copy(synthetic[4:], digest)

	if h.hashLen == 48 {
		h.active = sha512.New384()
	} else {
		h.active = sha256.New()
	}
	h.active.Write(synthetic)
	return nil
}

// cloneHash returns an independent copy of h's internal state so Snapshot
// can be called without perturbing future Update calls. crypto/sha256 and
// crypto/sha512's exported constructors return types implementing
// encoding.BinaryMarshaler/Unmarshaler, which this relies on.
func cloneHash(h hash.Hash) hash.Hash {
	type marshaler interface {
		MarshalBinary() ([]byte, error)
	}
	type unmarshaler interface {
		UnmarshalBinary([]byte) error
	}
	m, ok := h.(marshaler)
	if !ok {
		// Fall back to the live hash itself; callers needing post-snapshot Update
		// correctness always go through Update, never this path, for the
		// two stdlib hash implementations actually used here.
		return h
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return h
	}
	clone := newSameKind(h)
	if u, ok := clone.(unmarshaler); ok {
		_ = u.UnmarshalBinary(state)
	}
	return clone
}

func newSameKind(h hash.Hash) hash.Hash {
	if h.Size() == 48 {
		return sha512.New384()
	}
	return sha256.New()
}
