package handshake

import (
	"crypto"
	"time"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/cryptosuite"
	"github.com/jesiegel1/tls13/pkg/keyschedule"
	"github.com/jesiegel1/tls13/pkg/session"
	"github.com/jesiegel1/tls13/pkg/telemetry"
	"github.com/jesiegel1/tls13/pkg/transcript"
	"github.com/jesiegel1/tls13/pkg/transport"
)

// peerKeyShare is the server's ECDHE contribution, spec §3 "Received key
// material".
type peerKeyShare struct {
	Group     params.NamedGroup
	PublicKey []byte
}

// offeredPSK is one PSK identity this handshake offered in its ClientHello,
// alongside the locally-held secret needed to recompute its binder.
type offeredPSK struct {
	Identity []byte
	Ticket   *session.Ticket
	Secret   []byte // resumption PSK or external PSK, per spec §4.2
}

// Handshake is the ephemeral, per-connection state of spec §3: created when
// the caller initiates a connection, mutated only by Step, and destroyed
// (with explicit zeroization of secret material) at success or fatal
// termination.
type Handshake struct {
	config    *Config
	transport transport.Transport
	store     *session.Store

	state State

	clientRandom [32]byte
	serverRandom [32]byte

	transcriptHash *transcript.Hash

	// Offered key shares: single key-share policy (spec §3), so exactly one
	// group/private-key pair is generated per ClientHello.
	keyShare *cryptosuite.KeyShare

	// Received key material.
	peerShare peerKeyShare

	// PSKs offered in the first ClientHello, in offer order. selectedPSK
	// indexes into this slice once the server's selected_identity arrives.
	offeredPSKs []offeredPSK
	selectedPSK int

	keyExchangeMode KeyExchangeMode

	helloRetryRequestCount int
	ccsSent                int

	cookie []byte

	certificateRequestContext []byte
	certificateRequested      bool
	certificateRequestReceived bool

	// Cached Finished digests: the transcript snapshot at the moment each
	// Finished message's verify_data is computed over.
	serverFinishedTranscript []byte
	clientFinishedTranscript []byte

	// certificateTranscript is the transcript snapshot up through Certificate,
	// the input CertificateVerify's signature covers (spec §4.4).
	certificateTranscript []byte

	schedule *keyschedule.Schedule

	// pendingOutboundHandshakeKey/pendingOutboundApplicationKey hold a
	// derived key until the exact message boundary where it must switch in
	// (spec §3 invariant 3), since key derivation and epoch installation
	// happen at different states.
	pendingOutboundHandshakeKey   keyschedule.TrafficKeys
	pendingOutboundApplicationKey keyschedule.TrafficKeys

	negotiatedSuite params.CipherSuite
	negotiatedALPN  string

	peerCertConsumed  bool
	peerLeafPublicKey crypto.PublicKey

	earlyData         EarlyDataStatus
	earlyAppData      [][]byte
	earlyAppDataLen   int
	clientCertOffered bool

	sess *session.Session

	// lastTicket is filled by Step when a post-handshake NewSessionTicket
	// arrives, for the caller to read after a ResultGotTicket return.
	lastTicket *session.Ticket

	done bool

	observer  telemetry.Observer
	startedAt time.Time
}

// New creates a Handshake ready to run from HELLO_REQUEST. cfg must have
// already passed Validate. store may be nil (no resumption offered).
func New(cfg *Config, t transport.Transport, store *session.Store) (*Handshake, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	random, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	observer := cfg.Observer
	if observer == nil {
		observer = telemetry.NoopObserver{}
	}
	h := &Handshake{
		config:      cfg,
		transport:   t,
		store:       store,
		state:       StateHelloRequest,
		selectedPSK: -1,
		sess:        session.New(),
		observer:    observer,
	}
	copy(h.clientRandom[:], random)
	h.transcriptHash = transcript.New()
	return h, nil
}

// State reports the current node of the C6 state machine.
func (h *Handshake) State() State { return h.state }

// Session returns the in-progress session; only meaningful for the caller
// to inspect after ResultDone or ResultGotTicket.
func (h *Handshake) Session() *session.Session { return h.sess }

// LastTicket returns the most recently received post-handshake ticket,
// valid to read immediately after a ResultGotTicket return.
func (h *Handshake) LastTicket() *session.Ticket { return h.lastTicket }

// fatal wraps an error as a FatalAlertError if it is not already one,
// marks this handshake done, and zeroizes all secret material before
// returning it to the caller, per spec §7 "Propagation".
func (h *Handshake) fatal(err error) error {
	h.done = true
	h.Zeroize()
	if _, ok := err.(*alert.FatalAlertError); ok {
		return err
	}
	return alert.New(alert.InternalError, "handshake", err)
}

// reportFatal wraps err via fatal and also notifies the observer, for error
// paths that return directly instead of going through Step's own handling.
func (h *Handshake) reportFatal(err error) error {
	fatalErr := h.fatal(err)
	if fa, ok := fatalErr.(*alert.FatalAlertError); ok {
		h.observer.OnHandshakeFailed(fa)
	}
	return fatalErr
}

// Zeroize erases every piece of derived secret material still resident in
// the handshake structure, per spec §3 lifecycle and §7 propagation.
func (h *Handshake) Zeroize() {
	if h.keyShare != nil {
		h.keyShare.Zeroize()
	}
	if h.schedule != nil {
		h.schedule.Zeroize()
	}
	for i := range h.offeredPSKs {
		zero(h.offeredPSKs[i].Secret)
	}
	zero(h.peerShare.PublicKey)
	h.pendingOutboundHandshakeKey.Zeroize()
	h.pendingOutboundApplicationKey.Zeroize()
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
