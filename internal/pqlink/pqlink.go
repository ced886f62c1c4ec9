// Package pqlink is a build-link smoke test for a post-quantum KEM, per
// SPEC_FULL.md §11: the handshake engine treats post-quantum key exchange as
// an external collaborator it does not negotiate, but this module still
// proves the dependency is fetchable, linkable, and functionally sound,
// grounded on the teacher's CH-KEM hybrid construction (pkg/chkem, since
// removed) reduced to its ML-KEM-1024 half.
package pqlink

import (
	"bytes"
	"fmt"

	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
)

// Smoke runs one keygen/encapsulate/decapsulate round trip against
// ML-KEM-1024 and reports whether the two sides agree on the shared secret.
// It is not part of the TLS 1.3 handshake; it only demonstrates that a
// future post-quantum hybrid key exchange can be wired to this module.
func Smoke() error {
	scheme := mlkem1024.Scheme()

	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("pqlink: generate key pair: %w", err)
	}

	ct, ssSend, err := scheme.Encapsulate(pub)
	if err != nil {
		return fmt.Errorf("pqlink: encapsulate: %w", err)
	}

	ssRecv, err := scheme.Decapsulate(priv, ct)
	if err != nil {
		return fmt.Errorf("pqlink: decapsulate: %w", err)
	}

	if !bytes.Equal(ssSend, ssRecv) {
		return fmt.Errorf("pqlink: shared secret mismatch")
	}
	return nil
}

