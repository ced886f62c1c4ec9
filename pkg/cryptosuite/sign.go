// sign.go implements the CertificateVerify signature-verification oracle
// (spec §4.4). Per spec §1 these algorithms are oracles, not reimplemented
// primitives, so this wraps the stdlib crypto/rsa, crypto/ecdsa, and
// crypto/ed25519 packages directly rather than a third-party signing
// library (no suitable replacement exists in the retrieved example pack for
// this concern — see DESIGN.md).
package cryptosuite

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// serverContextString is the context string inside the fixed 98-byte (for
// server auth) content prefix RFC 8446 §4.4.3 mandates: 64 bytes of 0x20, the context string, and
// a single 0x00 separator, followed by the transcript hash up through
// Certificate.
const serverContextString = "TLS 1.3, server CertificateVerify"

// BuildSignatureInput assembles the exact byte string that is signed (by
// the server) and verified (by this client) for CertificateVerify.
func BuildSignatureInput(transcriptDigest []byte) []byte {
	out := make([]byte, 0, 64+len(serverContextString)+1+len(transcriptDigest))
	for i := 0; i < 64; i++ {
		out = append(out, 0x20)
	}
	out = append(out, serverContextString...)
	out = append(out, 0x00)
	out = append(out, transcriptDigest...)
	return out
}

// VerifySignature checks sig over content under pub using scheme, returning
// a fatal decrypt_error alert on any failure (bad signature, or scheme
// incompatible with the key type).
func VerifySignature(scheme params.SignatureScheme, pub crypto.PublicKey, content, sig []byte) error {
	switch scheme {
	case params.SigSchemeRSAPSSRSAESHA256, params.SigSchemeRSAPSSRSAESHA384, params.SigSchemeRSAPSSRSAESHA512:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", nil)
		}
		h, hashed := hashFor(scheme, content)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
		if err := rsa.VerifyPSS(rsaPub, h, hashed, sig, opts); err != nil {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", err)
		}
		return nil

	case params.SigSchemeECDSASecp256r1SHA256, params.SigSchemeECDSASecp384r1SHA384, params.SigSchemeECDSASecp521r1SHA512:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", nil)
		}
		_, hashed := hashFor(scheme, content)
		if !ecdsa.VerifyASN1(ecPub, hashed, sig) {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", nil)
		}
		return nil

	case params.SigSchemeEd25519:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", nil)
		}
		if !ed25519.Verify(edPub, content, sig) {
			return alert.New(alert.DecryptError, "cryptosuite.VerifySignature", nil)
		}
		return nil

	default:
		return alert.New(alert.HandshakeFailure, "cryptosuite.VerifySignature", alert.ErrUnofferedExtension)
	}
}

func hashFor(scheme params.SignatureScheme, content []byte) (crypto.Hash, []byte) {
	switch scheme {
	case params.SigSchemeRSAPSSRSAESHA384, params.SigSchemeECDSASecp384r1SHA384:
		sum := sha512.Sum384(content)
		return crypto.SHA384, sum[:]
	case params.SigSchemeRSAPSSRSAESHA512, params.SigSchemeECDSASecp521r1SHA512:
		sum := sha512.Sum512(content)
		return crypto.SHA512, sum[:]
	default:
		sum := sha256.Sum256(content)
		return crypto.SHA256, sum[:]
	}
}
