package cryptosuite_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/cryptosuite"
)

func TestVerifySignatureEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	content := cryptosuite.BuildSignatureInput([]byte("a transcript digest"))
	sig := ed25519.Sign(priv, content)

	if err := cryptosuite.VerifySignature(params.SigSchemeEd25519, pub, content, sig); err != nil {
		t.Errorf("VerifySignature rejected a valid signature: %v", err)
	}
}

func TestVerifySignatureEd25519RejectsTamperedContent(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	content := cryptosuite.BuildSignatureInput([]byte("a transcript digest"))
	sig := ed25519.Sign(priv, content)

	tampered := cryptosuite.BuildSignatureInput([]byte("a different digest!!"))
	if err := cryptosuite.VerifySignature(params.SigSchemeEd25519, pub, tampered, sig); err == nil {
		t.Error("VerifySignature accepted a signature over the wrong content")
	}
}

func TestVerifySignatureRejectsWrongKeyType(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	content := cryptosuite.BuildSignatureInput([]byte("digest"))
	if err := cryptosuite.VerifySignature(params.SigSchemeECDSASecp256r1SHA256, pub, content, []byte("sig")); err == nil {
		t.Error("VerifySignature accepted an ed25519 key under an ECDSA scheme")
	}
}

func TestBuildSignatureInputHasFixedPrefix(t *testing.T) {
	digest := []byte("digest-bytes")
	out := cryptosuite.BuildSignatureInput(digest)
	for i := 0; i < 64; i++ {
		if out[i] != 0x20 {
			t.Fatalf("byte %d = %#x, want 0x20 padding", i, out[i])
		}
	}
	if out[len(out)-len(digest)-1] != 0x00 {
		t.Error("expected a 0x00 separator before the transcript digest")
	}
}
