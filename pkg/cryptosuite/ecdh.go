// Package cryptosuite wraps the cryptographic primitives the handshake
// engine treats as oracles per spec §1: (EC)DHE key agreement and record
// AEADs. Signature verification oracles live alongside in sign.go.
//
// ECDH backends are modeled as a tagged variant rather than an interface
// with many implementations, per spec §9 ("Polymorphism over ECDH
// backends"): every supported group is a case of the same KeyAgreement
// struct, dispatching on params.NamedGroup.
package cryptosuite

import (
	"crypto/ecdh"
	"crypto/rand"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// KeyShare is a generated (or received) key-exchange value for one group.
type KeyShare struct {
	Group      params.NamedGroup
	PublicKey  []byte
	privateKey *ecdh.PrivateKey
}

func curveFor(g params.NamedGroup) (ecdh.Curve, error) {
	switch g {
	case params.GroupX25519:
		return ecdh.X25519(), nil
	case params.GroupSecp256r1:
		return ecdh.P256(), nil
	case params.GroupSecp384r1:
		return ecdh.P384(), nil
	case params.GroupSecp521r1:
		return ecdh.P521(), nil
	default:
		return nil, alert.New(alert.InternalError, "cryptosuite.curveFor", alert.ErrUnofferedExtension)
	}
}

// GenerateKeyShare creates a fresh ephemeral key pair for group.
func GenerateKeyShare(g params.NamedGroup) (*KeyShare, error) {
	curve, err := curveFor(g)
	if err != nil {
		return nil, err
	}
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, alert.New(alert.InternalError, "cryptosuite.GenerateKeyShare", err)
	}
	return &KeyShare{Group: g, PublicKey: priv.PublicKey().Bytes(), privateKey: priv}, nil
}

// Agree computes the (EC)DHE shared secret between the local ephemeral
// private key and the peer's public value for the same group.
func (k *KeyShare) Agree(peerPublic []byte) ([]byte, error) {
	curve, err := curveFor(k.Group)
	if err != nil {
		return nil, err
	}
	peer, err := curve.NewPublicKey(peerPublic)
	if err != nil {
		return nil, alert.New(alert.IllegalParameter, "cryptosuite.KeyShare.Agree", err)
	}
	secret, err := k.privateKey.ECDH(peer)
	if err != nil {
		return nil, alert.New(alert.IllegalParameter, "cryptosuite.KeyShare.Agree", err)
	}
	return secret, nil
}

// Zeroize drops the reference to the private scalar. crypto/ecdh does not
// expose raw key bytes for in-place erasure; releasing the only reference is
// the best this wrapper can do, matching the teacher's own documented
// limitation for the same primitive.
func (k *KeyShare) Zeroize() {
	k.privateKey = nil
}
