// Package certverify defines the external certificate-verification
// collaborator the handshake engine calls from the SERVER_CERTIFICATE and
// CERTIFICATE_VERIFY states. Per spec §1 the X.509 parser itself is
// external; this package is the seam, plus one stdlib-backed
// implementation (StdlibVerifier) that callers may install.
package certverify

import (
	"crypto"
	"crypto/x509"
	"time"
)

// VerifiedChain is what a successful verification callback hands back to
// the engine: the parsed leaf (for public-key extraction during
// CertificateVerify) and the full validated chain, if the caller wants to
// keep it on the session.
type VerifiedChain struct {
	Leaf  *x509.Certificate
	Chain []*x509.Certificate
}

// LeafPublicKey returns the leaf certificate's public key, used by the
// engine to verify the server's CertificateVerify signature.
func (v *VerifiedChain) LeafPublicKey() crypto.PublicKey {
	return v.Leaf.PublicKey
}

// Verifier authenticates a peer certificate chain. rawCerts is in the wire
// order the Certificate message carried them (leaf first). hostname is the
// configured SNI/verification hostname, empty if the caller disabled
// hostname checking.
type Verifier interface {
	VerifyPeerCertificate(rawCerts [][]byte, hostname string) (*VerifiedChain, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(rawCerts [][]byte, hostname string) (*VerifiedChain, error)

func (f VerifierFunc) VerifyPeerCertificate(rawCerts [][]byte, hostname string) (*VerifiedChain, error) {
	return f(rawCerts, hostname)
}

// StdlibVerifier verifies against a crypto/x509.CertPool of trust anchors
// using the stdlib X.509 chain-building and hostname-verification logic.
// The engine never installs it by itself: a Config whose Verifier is nil
// skips certificate chain verification.
type StdlibVerifier struct {
	Roots *x509.CertPool
	// Now, if set, pins the verification time (for deterministic tests);
	// otherwise time.Now is used.
	Now func() time.Time
}

func (v *StdlibVerifier) VerifyPeerCertificate(rawCerts [][]byte, hostname string) (*VerifiedChain, error) {
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, x509.CertificateInvalidError{Reason: x509.NotAuthorizedToSign}
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	opts := x509.VerifyOptions{
		Roots:         v.Roots,
		Intermediates: intermediates,
		DNSName:       hostname,
		CurrentTime:   now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	chains, err := certs[0].Verify(opts)
	if err != nil {
		return nil, err
	}
	return &VerifiedChain{Leaf: certs[0], Chain: chains[0]}, nil
}
