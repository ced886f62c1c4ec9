// aead.go wraps the cipher-suite AEADs (RFC 8446 §5.2): per-direction
// sequence numbers are combined with the traffic IV by XOR (not prepended to
// the ciphertext, unlike the teacher's VPN framing, which is record-layer
// policy this engine's record layer owns, not this oracle).
package cryptosuite

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// AEAD wraps one direction's record-protection cipher for one epoch. It
// tracks its own sequence number so callers need only supply plaintext and
// additional data per record.
type AEAD struct {
	mu     sync.Mutex
	cipher cipher.AEAD
	iv     []byte
	seq    uint64
}

// KeyLen and IVLen return the key/IV sizes HKDF-Expand-Label must produce
// for suite, per RFC 8446 §5.2 (AEAD key length) and §5.3 (fixed IV length,
// always 12 bytes for the suites this engine supports).
func KeyLen(suite params.CipherSuite) int {
	if suite == params.TLS_AES_128_GCM_SHA256 {
		return 16
	}
	return 32
}

func IVLen(params.CipherSuite) int { return 12 }

// New constructs an AEAD for suite keyed with key, with fixed IV iv.
func New(suite params.CipherSuite, key, iv []byte) (*AEAD, error) {
	var c cipher.AEAD
	switch suite {
	case params.TLS_AES_128_GCM_SHA256, params.TLS_AES_256_GCM_SHA384:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, alert.New(alert.InternalError, "cryptosuite.New", err)
		}
		c, err = cipher.NewGCM(block)
		if err != nil {
			return nil, alert.New(alert.InternalError, "cryptosuite.New", err)
		}
	case params.TLS_CHACHA20_POLY1305_SHA256:
		var err error
		c, err = chacha20poly1305.New(key)
		if err != nil {
			return nil, alert.New(alert.InternalError, "cryptosuite.New", err)
		}
	default:
		return nil, alert.New(alert.InternalError, "cryptosuite.New", alert.ErrUnofferedExtension)
	}
	return &AEAD{cipher: c, iv: append([]byte(nil), iv...)}, nil
}

func (a *AEAD) nonce() []byte {
	n := append([]byte(nil), a.iv...)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], a.seq)
	for i := 0; i < 8; i++ {
		n[4+i] ^= seqBytes[i]
	}
	return n
}

// Seal encrypts plaintext under the next sequence number, authenticating
// additionalData (the TLSCiphertext opaque_type/legacy_record_version/length
// fields per RFC 8446 §5.2), and advances the sequence counter.
func (a *AEAD) Seal(plaintext, additionalData []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.cipher.Seal(nil, a.nonce(), plaintext, additionalData)
	a.seq++
	return out
}

// Open decrypts and authenticates ciphertext under the next sequence number
// and advances the sequence counter on success. A failure here is always
// fatal (bad_record_mac) to the caller, which is the record layer, not this
// engine's concern directly, but the error is surfaced for completeness.
func (a *AEAD) Open(ciphertext, additionalData []byte) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out, err := a.cipher.Open(nil, a.nonce(), ciphertext, additionalData)
	if err != nil {
		return nil, alert.New(alert.BadRecordMAC, "cryptosuite.AEAD.Open", err)
	}
	a.seq++
	return out, nil
}

// Overhead returns the AEAD expansion (tag length) in bytes.
func (a *AEAD) Overhead() int { return a.cipher.Overhead() }
