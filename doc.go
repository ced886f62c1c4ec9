// Package tls13 provides a client-side TLS 1.3 (RFC 8446) handshake engine.
//
// The engine is organized into the seven components described in
// SPEC_FULL.md: a transcript hash (pkg/transcript), a key schedule
// (pkg/keyschedule), an extension codec (pkg/extensions), a handshake
// message codec (pkg/handshakemsg), a transport abstraction plus a concrete
// record layer (pkg/transport), the handshake state machine itself
// (pkg/handshake), and session/ticket storage for resumption
// (pkg/session). The record layer's peer (the server), the X.509 chain
// parser, and the underlying AEAD/ECDH/signature primitives are treated as
// external collaborators; cryptosuite and certverify wrap them.
//
// # Quick Start
//
//	cfg := handshake.DefaultConfig()
//	cfg.ServerName = "example.com"
//	cfg.Verifier = &certverify.StdlibVerifier{Roots: roots}
//
//	rl := transport.New(conn)
//	h, err := handshake.New(&cfg, rl, session.NewStore(4))
//	for {
//		result, err := h.Step()
//		if err != nil {
//			// fatal alert; connection is unusable
//		}
//		if result == handshake.ResultDone {
//			break
//		}
//	}
//
// # Package Structure
//
//   - pkg/transcript: running transcript hash and HelloRetryRequest rewrite
//   - pkg/keyschedule: RFC 8446 §7.1 HKDF key schedule
//   - pkg/extensions: ClientHello/ServerHello extension codecs
//   - pkg/handshakemsg: handshake message framing and (un)marshaling
//   - pkg/transport: the Transport interface and a concrete record layer
//   - pkg/cryptosuite: AEAD, ECDHE key exchange, and signature primitives
//   - pkg/certverify: minimal X.509 chain verification
//   - pkg/session: session state and ticket storage for resumption
//   - pkg/handshake: the client handshake state machine (C6) and its config
//   - internal/params: RFC 8446 wire constants
//   - internal/alert: the TLS alert protocol and fatal-error plumbing
//   - internal/pqlink: a build-link smoke test for a future post-quantum KEM
//   - pkg/telemetry: structured logging, tracing, metrics, and health checks
//
// For more information, see SPEC_FULL.md and DESIGN.md.
package tls13
