package cryptosuite_test

import (
	"bytes"
	"testing"

	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/cryptosuite"
)

func TestKeyShareAgreeX25519(t *testing.T) {
	client, err := cryptosuite.GenerateKeyShare(params.GroupX25519)
	if err != nil {
		t.Fatalf("GenerateKeyShare (client): %v", err)
	}
	server, err := cryptosuite.GenerateKeyShare(params.GroupX25519)
	if err != nil {
		t.Fatalf("GenerateKeyShare (server): %v", err)
	}

	clientSecret, err := client.Agree(server.PublicKey)
	if err != nil {
		t.Fatalf("client Agree: %v", err)
	}
	serverSecret, err := server.Agree(client.PublicKey)
	if err != nil {
		t.Fatalf("server Agree: %v", err)
	}

	if !bytes.Equal(clientSecret, serverSecret) {
		t.Error("ECDHE shared secrets do not match between peers")
	}
}

func TestKeyShareAgreeSecp256r1(t *testing.T) {
	client, err := cryptosuite.GenerateKeyShare(params.GroupSecp256r1)
	if err != nil {
		t.Fatalf("GenerateKeyShare (client): %v", err)
	}
	server, err := cryptosuite.GenerateKeyShare(params.GroupSecp256r1)
	if err != nil {
		t.Fatalf("GenerateKeyShare (server): %v", err)
	}

	clientSecret, err := client.Agree(server.PublicKey)
	if err != nil {
		t.Fatalf("client Agree: %v", err)
	}
	serverSecret, err := server.Agree(client.PublicKey)
	if err != nil {
		t.Fatalf("server Agree: %v", err)
	}
	if !bytes.Equal(clientSecret, serverSecret) {
		t.Error("ECDHE shared secrets do not match between peers")
	}
}

func TestKeyShareAgreeRejectsMismatchedGroup(t *testing.T) {
	a, _ := cryptosuite.GenerateKeyShare(params.GroupX25519)
	b, _ := cryptosuite.GenerateKeyShare(params.GroupSecp256r1)

	if _, err := a.Agree(b.PublicKey); err == nil {
		t.Fatal("Agree should fail when the peer public value belongs to a different group")
	}
}

func TestKeyShareZeroizeDoesNotPanic(t *testing.T) {
	ks, err := cryptosuite.GenerateKeyShare(params.GroupX25519)
	if err != nil {
		t.Fatalf("GenerateKeyShare: %v", err)
	}
	ks.Zeroize()
}
