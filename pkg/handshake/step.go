package handshake

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"time"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
	"github.com/jesiegel1/tls13/pkg/cryptosuite"
	"github.com/jesiegel1/tls13/pkg/extensions"
	"github.com/jesiegel1/tls13/pkg/handshakemsg"
	"github.com/jesiegel1/tls13/pkg/keyschedule"
	"github.com/jesiegel1/tls13/pkg/session"
	"github.com/jesiegel1/tls13/pkg/transport"
)

// Step advances the handshake by exactly one state transition's worth of
// work and returns the caller-visible outcome, per spec §5/§6 "Handshake
// entry". The caller re-enters Step until it returns ResultDone or
// ResultFatal; after ResultDone, Step may still be called to watch for
// post-handshake NewSessionTicket messages (ResultGotTicket).
func (h *Handshake) Step() (StepResult, error) {
	if h.done && h.state != StateHandshakeOver {
		return ResultFatal, alert.New(alert.InternalError, "handshake.Step", alert.ErrHandshakeDone)
	}

	var result StepResult
	var err error
	prevState := h.state

	switch h.state {
	case StateHelloRequest:
		h.startedAt = time.Now()
		h.observer.OnHandshakeStart()
		h.state = StateClientHello
		result = ResultContinue

	case StateClientHello:
		err = h.stepClientHello()
		if err == nil {
			if h.config.CompatibilityMode {
				h.state = StateCCSAfterClientHello
			} else {
				h.state = StateEarlyAppData
			}
			result = ResultContinue
		}

	case StateCCSAfterClientHello:
		if err = h.transport.WriteChangeCipherSpec(); err == nil {
			h.ccsSent++
			h.state = StateEarlyAppData
			result = ResultContinue
		}

	case StateEarlyAppData:
		err = h.stepEarlyAppData()
		if err == nil {
			h.state = StateServerHello
			result = ResultContinue
		}

	case StateServerHello:
		var hrr bool
		hrr, err = h.stepServerHello()
		if err == nil {
			if hrr {
				h.state = StateClientHello
			} else {
				h.state = StateEncryptedExtensions
			}
			result = ResultContinue
		}

	case StateEncryptedExtensions:
		err = h.stepEncryptedExtensions()
		if err == nil {
			if h.certificateRequested {
				h.state = StateCertificateRequest
			} else if h.keyExchangeMode == ModePSKOnly {
				h.state = StateServerFinished
			} else {
				h.state = StateCertificateRequest
			}
			result = ResultContinue
		}

	case StateCertificateRequest:
		err = h.stepCertificateRequest()
		if err == nil {
			h.state = StateServerCertificate
			result = ResultContinue
		}

	case StateServerCertificate:
		err = h.stepServerCertificate()
		if err == nil {
			h.state = StateCertificateVerify
			result = ResultContinue
		}

	case StateCertificateVerify:
		err = h.stepCertificateVerify()
		if err == nil {
			h.state = StateServerFinished
			result = ResultContinue
		}

	case StateServerFinished:
		err = h.stepServerFinished()
		if err == nil {
			h.state = StateEndOfEarlyData
			result = ResultContinue
		}

	case StateEndOfEarlyData:
		err = h.stepEndOfEarlyData()
		if err == nil {
			if h.config.CompatibilityMode && h.earlyData != EarlyDataStatusOfferedAccepted {
				h.state = StateCCSAfterServerFinished
			} else {
				h.state = StateClientCertificate
			}
			result = ResultContinue
		}

	case StateCCSAfterServerFinished:
		if err = h.transport.WriteChangeCipherSpec(); err == nil {
			h.ccsSent++
			h.state = StateClientCertificate
			result = ResultContinue
		}

	case StateClientCertificate:
		err = h.stepClientCertificate()
		if err == nil {
			if h.clientCertOffered {
				h.state = StateClientCertificateVerify
			} else {
				h.state = StateClientFinished
			}
			result = ResultContinue
		}

	case StateClientCertificateVerify:
		err = h.stepClientCertificateVerify()
		if err == nil {
			h.state = StateClientFinished
			result = ResultContinue
		}

	case StateClientFinished:
		err = h.stepClientFinished()
		if err == nil {
			h.state = StateFlushBuffers
			result = ResultContinue
		}

	case StateFlushBuffers:
		h.state = StateHandshakeWrapup
		result = ResultContinue

	case StateHandshakeWrapup:
		h.stepWrapup()
		h.state = StateHandshakeOver
		result = ResultDone
		h.observer.OnHandshakeDone(time.Since(h.startedAt), h.negotiatedSuite)

	case StateHandshakeOver:
		return h.stepPostHandshake()

	default:
		err = alert.New(alert.InternalError, "handshake.Step", nil)
	}

	if err != nil {
		return ResultFatal, h.reportFatal(err)
	}
	if h.state != prevState {
		h.observer.OnStateChange(prevState.String(), h.state.String())
	}
	return result, nil
}

// ---- CLIENT_HELLO ----

func (h *Handshake) stepClientHello() error {
	builder := extensions.NewBuilder()

	versions := []params.ProtocolVersion{params.VersionTLS13}
	if h.config.MinVersion < params.VersionTLS13 {
		versions = append(versions, params.VersionTLS12)
	}
	builder.Add(params.ExtSupportedVersions, extensions.EncodeSupportedVersionsClientHello(versions))
	builder.Add(params.ExtSupportedGroups, extensions.EncodeSupportedGroups(h.config.Groups))
	builder.Add(params.ExtSignatureAlgorithms, extensions.EncodeSignatureAlgorithms(h.config.SignatureSchemes))

	// h.keyShare already holds the right group if a HelloRetryRequest chose
	// one (handleHelloRetryRequest), or if the HRR carried no key_share
	// extension at all, in which case RFC 8446 §4.1.2 requires resending the
	// first ClientHello's share unchanged. Only generate one here on the
	// very first ClientHello of the handshake.
	if h.keyShare == nil {
		ks, err := cryptosuite.GenerateKeyShare(h.config.Groups[0])
		if err != nil {
			return err
		}
		h.keyShare = ks
	}
	builder.Add(params.ExtKeyShare, extensions.EncodeKeyShareClientHello([]extensions.KeyShareEntry{
		{Group: h.keyShare.Group, KeyExchange: h.keyShare.PublicKey},
	}))

	if h.config.ServerName != "" {
		builder.Add(params.ExtServerName, extensions.EncodeServerName(h.config.ServerName))
	}
	if len(h.config.ALPNProtocols) > 0 {
		builder.Add(params.ExtALPN, extensions.EncodeALPN(h.config.ALPNProtocols))
	}
	if len(h.cookie) > 0 {
		builder.Add(params.ExtCookie, extensions.EncodeCookie(h.cookie))
	}

	var ticket *session.Ticket
	if h.store != nil && h.helloRetryRequestCount == 0 {
		ticket = h.store.Take(h.config.ServerName)
	}
	if ticket != nil && len(h.config.PSKModes) > 0 {
		builder.Add(params.ExtPSKKeyExchangeModes, extensions.EncodePSKKeyExchangeModes(h.config.PSKModes))
		if h.config.EarlyData == EarlyDataEnabled && ticket.MaxEarlyDataSize > 0 {
			builder.Add(params.ExtEarlyData, extensions.EncodeEarlyDataEmpty())
			h.earlyData = EarlyDataStatusOfferedRejected
		}
	}

	ch := &handshakemsg.ClientHello{
		LegacyVersion: params.LegacyVersion,
		Random:        h.clientRandom,
		CipherSuites:  h.config.CipherSuites,
		Extensions:    builder,
	}
	if h.config.CompatibilityMode {
		id, err := randomBytes(32)
		if err != nil {
			return err
		}
		ch.LegacySessionID = id
	}

	if ticket == nil || len(h.config.PSKModes) == 0 {
		return h.sendClientHello(ch, nil)
	}
	return h.sendClientHelloWithPSK(ch, ticket)
}

func (h *Handshake) sendClientHello(ch *handshakemsg.ClientHello, _ *session.Ticket) error {
	body := ch.Marshal()
	if err := h.transport.WriteHandshake(params.HandshakeClientHello, body); err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeClientHello, body))
	return nil
}

// sendClientHelloWithPSK emits a ClientHello carrying a single pre_shared_key
// offer, computing the binder over the truncated message per spec §4.4.
func (h *Handshake) sendClientHelloWithPSK(ch *handshakemsg.ClientHello, ticket *session.Ticket) error {
	identity := extensions.PSKIdentity{
		Identity:            ticket.TicketBytes,
		ObfuscatedTicketAge: ticket.ObfuscatedAge(time.Now()),
	}
	binderLen := ticket.CipherSuite.HashLen()
	pskBody, bindersOffsetInExt := extensions.EncodeIdentities([]extensions.PSKIdentity{identity}, []int{binderLen})
	ch.Extensions.Add(params.ExtPreSharedKey, pskBody)

	body := ch.Marshal()
	bodyStart := len(body) - len(pskBody)
	framed := handshakemsg.Frame(params.HandshakeClientHello, body)
	truncated := framed[:4+bodyStart+bindersOffsetInExt+2]

	tmp := keyschedule.New(ticket.CipherSuite)
	tmp.StageEarly(ticket.PSK, nil)
	finishedKey := tmp.FinishedKey(tmp.BinderKey)
	digest := hashBytes(ticket.CipherSuite, truncated)
	binder := tmp.VerifyData(finishedKey, digest)
	tmp.Zeroize()

	extensions.PatchBinders(body[bodyStart:], [][]byte{binder})

	if err := h.transport.WriteHandshake(params.HandshakeClientHello, body); err != nil {
		return err
	}
	fullFramed := handshakemsg.Frame(params.HandshakeClientHello, body)
	h.transcriptHash.Update(fullFramed)

	h.offeredPSKs = []offeredPSK{{
		Identity: identity.Identity,
		Ticket:   ticket,
		Secret:   append([]byte(nil), ticket.PSK...),
	}}

	if h.earlyData == EarlyDataStatusOfferedRejected {
		return h.setUpEarlyTraffic(ticket, fullFramed)
	}
	return nil
}

// setUpEarlyTraffic derives the early traffic secret and installs the
// outbound early-data epoch, per spec §3 invariant 6.
func (h *Handshake) setUpEarlyTraffic(ticket *session.Ticket, clientHelloTranscript []byte) error {
	h.schedule = keyschedule.New(ticket.CipherSuite)
	chDigest := hashBytes(ticket.CipherSuite, clientHelloTranscript)
	h.schedule.StageEarly(ticket.PSK, chDigest)
	h.observer.OnKeyScheduleStage("early")
	keyLen := cryptosuite.KeyLen(ticket.CipherSuite)
	ivLen := cryptosuite.IVLen(ticket.CipherSuite)
	early := h.schedule.GenerateEarlyTrafficKey(keyLen, ivLen)
	defer early.Zeroize()
	return h.transport.InstallKeys(transport.Outbound, ticket.CipherSuite, early.Key, early.IV)
}

func hashBytes(suite params.CipherSuite, data []byte) []byte {
	var hh hash.Hash
	if suite == params.TLS_AES_256_GCM_SHA384 {
		hh = sha512.New384()
	} else {
		hh = sha256.New()
	}
	hh.Write(data)
	return hh.Sum(nil)
}

// ---- EARLY_APP_DATA ----

func (h *Handshake) stepEarlyAppData() error {
	if h.earlyData != EarlyDataStatusOfferedRejected && h.earlyData != EarlyDataStatusOfferedAccepted {
		return nil
	}
	for _, chunk := range h.earlyAppData {
		if err := h.transport.WriteEarlyData(chunk); err != nil {
			return err
		}
	}
	return nil
}

// OfferEarlyData queues 0-RTT application data to send, if the handshake
// ends up offering early data. Must be called before the first Step call.
// Data beyond the configured MaxEarlyDataSize is silently dropped, since a
// client should never offer more 0-RTT data than it is willing to have a
// server reject and replay as 1-RTT.
func (h *Handshake) OfferEarlyData(data []byte) {
	if h.config.MaxEarlyDataSize > 0 {
		budget := int(h.config.MaxEarlyDataSize) - h.earlyAppDataLen
		if budget <= 0 {
			return
		}
		if len(data) > budget {
			data = data[:budget]
		}
	}
	h.earlyAppDataLen += len(data)
	h.earlyAppData = append(h.earlyAppData, append([]byte(nil), data...))
}

// ---- SERVER_HELLO ----

func (h *Handshake) stepServerHello() (hrr bool, err error) {
	t, body, sig, err := h.transport.ReadHandshake(params.HandshakeServerHello)
	if err != nil {
		return false, err
	}
	if sig == transport.SignalChangeCipherSpecDropped {
		t, body, _, err = h.transport.ReadHandshake(params.HandshakeServerHello)
		if err != nil {
			return false, err
		}
	}
	if t != params.HandshakeServerHello {
		return false, alert.New(alert.UnexpectedMessage, "handshake.stepServerHello", nil)
	}

	shape, err := handshakemsg.ParseServerHelloShape(body)
	if err != nil {
		return false, err
	}

	if shape.IsHelloRetryRequest() {
		return h.handleHelloRetryRequest(shape, body)
	}

	if err := h.checkDowngrade(shape); err != nil {
		return false, err
	}

	if !containsSuite(h.config.CipherSuites, shape.CipherSuite) {
		return false, alert.New(alert.IllegalParameter, "handshake.stepServerHello", nil)
	}
	h.negotiatedSuite = shape.CipherSuite
	h.serverRandom = shape.Random

	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeServerHello, body))
	h.transcriptHash.SelectSuite(h.negotiatedSuite)

	hasKeyShare := shape.Extensions.Has(params.ExtKeyShare)
	hasPSK := shape.Extensions.Has(params.ExtPreSharedKey)
	switch {
	case hasPSK && hasKeyShare:
		h.keyExchangeMode = ModePSKEphemeral
	case hasPSK:
		h.keyExchangeMode = ModePSKOnly
	case hasKeyShare:
		h.keyExchangeMode = ModeEphemeralOnly
	default:
		return false, alert.New(alert.HandshakeFailure, "handshake.stepServerHello", alert.ErrNoKeyExchangeMode)
	}

	var pskSecret []byte
	if hasPSK {
		raw, _ := shape.Extensions.Find(params.ExtPreSharedKey)
		idx, err := extensions.DecodeSelectedIdentity(raw)
		if err != nil {
			return false, err
		}
		if int(idx) >= len(h.offeredPSKs) {
			return false, alert.New(alert.IllegalParameter, "handshake.stepServerHello", alert.ErrPSKIdentityOutOfRange)
		}
		h.selectedPSK = int(idx)
		pskSecret = h.offeredPSKs[idx].Secret
	}

	var dheSecret []byte
	if hasKeyShare {
		raw, _ := shape.Extensions.Find(params.ExtKeyShare)
		entry, err := extensions.DecodeKeyShareServerHello(raw)
		if err != nil {
			return false, err
		}
		if entry.Group != h.keyShare.Group {
			return false, alert.New(alert.IllegalParameter, "handshake.stepServerHello", nil)
		}
		h.peerShare = peerKeyShare{Group: entry.Group, PublicKey: entry.KeyExchange}
		dheSecret, err = h.keyShare.Agree(entry.KeyExchange)
		if err != nil {
			return false, err
		}
	}

	if h.schedule == nil {
		h.schedule = keyschedule.New(h.negotiatedSuite)
	}
	h.schedule.StageEarly(pskSecret, nil)
	h.observer.OnKeyScheduleStage("early")

	shDigest, err := h.transcriptHash.Snapshot()
	if err != nil {
		return false, err
	}
	h.schedule.StageHandshake(dheSecret, shDigest)
	h.observer.OnKeyScheduleStage("handshake")

	keyLen := cryptosuite.KeyLen(h.negotiatedSuite)
	ivLen := cryptosuite.IVLen(h.negotiatedSuite)
	clientHS, serverHS := h.schedule.GenerateHandshakeKeys(keyLen, ivLen)
	defer serverHS.Zeroize()

	if err := h.transport.InstallKeys(transport.Inbound, h.negotiatedSuite, serverHS.Key, serverHS.IV); err != nil {
		return false, err
	}
	// clientHS is not installed yet: outbound handshake keys switch in only
	// at the client's second flight boundary (spec §3 invariant 3), so it is
	// held pending and zeroized once consumed in stepEndOfEarlyData.
	h.pendingOutboundHandshakeKey = clientHS
	return false, nil
}

func (h *Handshake) handleHelloRetryRequest(shape *handshakemsg.ServerHelloShape, body []byte) (bool, error) {
	if h.helloRetryRequestCount > 0 {
		return false, alert.New(alert.UnexpectedMessage, "handshake.handleHelloRetryRequest", alert.ErrSecondHelloRetryRequest)
	}
	h.helloRetryRequestCount++
	h.observer.OnHelloRetryRequest()

	if !containsSuite(h.config.CipherSuites, shape.CipherSuite) {
		return false, alert.New(alert.IllegalParameter, "handshake.handleHelloRetryRequest", nil)
	}

	if raw, ok := shape.Extensions.Find(params.ExtCookie); ok {
		cookie, err := extensions.DecodeCookie(raw)
		if err != nil {
			return false, err
		}
		h.cookie = cookie
	}

	if raw, ok := shape.Extensions.Find(params.ExtKeyShare); ok {
		group, err := extensions.DecodeKeyShareHelloRetryRequest(raw)
		if err != nil {
			return false, err
		}
		ks, err := cryptosuite.GenerateKeyShare(group)
		if err != nil {
			return false, err
		}
		if h.keyShare != nil {
			h.keyShare.Zeroize()
		}
		h.keyShare = ks
	}

	h.transcriptHash.SelectSuite(shape.CipherSuite)
	if err := h.transcriptHash.ResetForHelloRetryRequest(); err != nil {
		return false, err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeServerHello, body))

	h.earlyData = EarlyDataStatusDisabled
	h.earlyAppData = nil

	return true, nil
}

func (h *Handshake) checkDowngrade(shape *handshakemsg.ServerHelloShape) error {
	if shape.Extensions.Has(params.ExtSupportedVersions) {
		return nil
	}
	if shape.LegacyVersion != params.VersionTLS12 {
		return nil
	}
	tail := [8]byte{}
	copy(tail[:], shape.Random[24:])
	if tail == params.DowngradeSentinelTLS12 || tail == params.DowngradeSentinelTLS11 {
		h.observer.OnDowngradeDetected()
		return alert.New(alert.IllegalParameter, "handshake.checkDowngrade", alert.ErrDowngradeDetected)
	}
	return alert.New(alert.ProtocolVersion, "handshake.checkDowngrade", nil)
}

func containsSuite(suites []params.CipherSuite, want params.CipherSuite) bool {
	for _, s := range suites {
		if s == want {
			return true
		}
	}
	return false
}

// ---- ENCRYPTED_EXTENSIONS ----

func (h *Handshake) stepEncryptedExtensions() error {
	t, body, _, err := h.transport.ReadHandshake(params.HandshakeEncryptedExtensions)
	if err != nil {
		return err
	}
	if t != params.HandshakeEncryptedExtensions {
		return alert.New(alert.UnexpectedMessage, "handshake.stepEncryptedExtensions", nil)
	}
	ee, err := handshakemsg.ParseEncryptedExtensions(body)
	if err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeEncryptedExtensions, body))

	if raw, ok := ee.Extensions.Find(params.ExtALPN); ok {
		protos, err := extensions.DecodeALPN(raw)
		if err != nil {
			return err
		}
		if len(protos) > 0 {
			h.negotiatedALPN = protos[0]
		}
	}
	if ee.Extensions.Has(params.ExtEarlyData) {
		if h.earlyData == EarlyDataStatusOfferedRejected {
			h.earlyData = EarlyDataStatusOfferedAccepted
		}
	} else if h.earlyData == EarlyDataStatusOfferedRejected {
		// stays rejected; caller already sent (or skipped) 0-RTT data.
	}

	h.certificateRequested = h.config.AuthMode != AuthNone && h.keyExchangeMode != ModePSKOnly
	return nil
}

// ---- CERTIFICATE_REQUEST ----

func (h *Handshake) stepCertificateRequest() error {
	if h.keyExchangeMode == ModePSKOnly {
		return nil
	}
	// A CertificateRequest is optional; whether the server sends one is the
	// server's decision, independent of this client's own AuthMode. Peek is
	// not available on Transport, so this engine always reads one message
	// here and switches on its actual type; servers that skip
	// CertificateRequest proceed straight to Certificate, which is handled
	// below exactly like the SERVER_CERTIFICATE state would.
	t, body, _, err := h.transport.ReadHandshake(0)
	if err != nil {
		return err
	}
	switch t {
	case params.HandshakeCertificate:
		return h.consumeServerCertificate(body)
	default:
		cr, err := handshakemsg.ParseCertificateRequest(body)
		if err != nil {
			return err
		}
		h.transcriptHash.Update(handshakemsg.Frame(t, body))
		h.certificateRequestContext = cr.CertificateRequestContext
		h.certificateRequestReceived = true
		h.clientCertOffered = len(h.config.ClientCertificateChain) > 0
		return nil
	}
}

// ---- SERVER_CERTIFICATE ----

func (h *Handshake) stepServerCertificate() error {
	if h.peerCertConsumed {
		return nil
	}
	t, body, _, err := h.transport.ReadHandshake(params.HandshakeCertificate)
	if err != nil {
		return err
	}
	if t != params.HandshakeCertificate {
		return alert.New(alert.UnexpectedMessage, "handshake.stepServerCertificate", nil)
	}
	return h.consumeServerCertificate(body)
}

func (h *Handshake) consumeServerCertificate(body []byte) error {
	cert, err := handshakemsg.ParseCertificate(body)
	if err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeCertificate, body))

	raw := make([][]byte, len(cert.CertList))
	for i, e := range cert.CertList {
		raw[i] = e.CertData
	}
	if h.config.Verifier != nil {
		chain, err := h.config.Verifier.VerifyPeerCertificate(raw, h.config.ServerName)
		if err != nil {
			return alert.New(alert.BadCertificate, "handshake.consumeServerCertificate", err)
		}
		h.sess.PeerCertificates = chain.Chain
		h.sess.PeerVerified = true
		h.peerLeafPublicKey = chain.LeafPublicKey()
	}
	h.peerCertConsumed = true

	digest, err := h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}
	h.certificateTranscript = digest
	return nil
}

// ---- CERTIFICATE_VERIFY ----

func (h *Handshake) stepCertificateVerify() error {
	t, body, _, err := h.transport.ReadHandshake(params.HandshakeCertificateVerify)
	if err != nil {
		return err
	}
	if t != params.HandshakeCertificateVerify {
		return alert.New(alert.UnexpectedMessage, "handshake.stepCertificateVerify", nil)
	}
	cv, err := handshakemsg.ParseCertificateVerify(body)
	if err != nil {
		return err
	}

	if !containsScheme(h.config.SignatureSchemes, cv.Scheme) {
		return alert.New(alert.IllegalParameter, "handshake.stepCertificateVerify", alert.ErrUnofferedExtension)
	}
	content := cryptosuite.BuildSignatureInput(h.certificateTranscript)
	if err := cryptosuite.VerifySignature(cv.Scheme, h.peerLeafPublicKey, content, cv.Signature); err != nil {
		h.observer.OnCertificateVerifyFailure(err)
		return err
	}

	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeCertificateVerify, body))
	return nil
}

func containsScheme(schemes []params.SignatureScheme, want params.SignatureScheme) bool {
	for _, s := range schemes {
		if s == want {
			return true
		}
	}
	return false
}

// ---- SERVER_FINISHED ----

func (h *Handshake) stepServerFinished() error {
	t, body, _, err := h.transport.ReadHandshake(params.HandshakeFinished)
	if err != nil {
		return err
	}
	if t != params.HandshakeFinished {
		return alert.New(alert.UnexpectedMessage, "handshake.stepServerFinished", nil)
	}
	fin, err := handshakemsg.ParseFinished(body, h.negotiatedSuite.HashLen())
	if err != nil {
		return err
	}

	digest, err := h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}
	finishedKey := h.schedule.FinishedKey(h.schedule.ServerHandshakeTrafficSecret)
	if err := h.schedule.CheckVerifyData(finishedKey, digest, fin.VerifyData); err != nil {
		h.observer.OnFinishedFailure(err)
		return alert.New(alert.DecryptError, "handshake.stepServerFinished", err)
	}

	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeFinished, body))
	h.serverFinishedTranscript, err = h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}

	h.schedule.StageApplication()
	h.observer.OnKeyScheduleStage("application")
	keyLen := cryptosuite.KeyLen(h.negotiatedSuite)
	ivLen := cryptosuite.IVLen(h.negotiatedSuite)
	clientApp, serverApp := h.schedule.GenerateApplicationKeys(h.serverFinishedTranscript, keyLen, ivLen)
	defer serverApp.Zeroize()

	if err := h.transport.InstallKeys(transport.Inbound, h.negotiatedSuite, serverApp.Key, serverApp.IV); err != nil {
		return err
	}
	// clientApp switches in only after the client's Finished is sent (spec
	// §3 invariant 3); held pending until stepClientFinished consumes it.
	h.pendingOutboundApplicationKey = clientApp

	h.sess.CipherSuite = h.negotiatedSuite
	h.sess.ALPN = h.negotiatedALPN
	return nil
}

// ---- END_OF_EARLY_DATA ----

// stepEndOfEarlyData writes EndOfEarlyData under the still-installed early
// traffic key iff the server accepted 0-RTT, then switches the outbound
// epoch to the handshake traffic key derived at ServerHello, per spec §3
// invariant 3 ("outbound handshake keys ... before sending handshake
// messages of the client's second flight").
func (h *Handshake) stepEndOfEarlyData() error {
	if h.earlyData == EarlyDataStatusOfferedAccepted {
		body := []byte{}
		if err := h.transport.WriteHandshake(params.HandshakeEndOfEarlyData, body); err != nil {
			return err
		}
		h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeEndOfEarlyData, body))
	}
	if err := h.transport.InstallKeys(transport.Outbound, h.negotiatedSuite, h.pendingOutboundHandshakeKey.Key, h.pendingOutboundHandshakeKey.IV); err != nil {
		return err
	}
	h.pendingOutboundHandshakeKey.Zeroize()
	return nil
}

// ---- CLIENT_CERTIFICATE ----

func (h *Handshake) stepClientCertificate() error {
	if !h.certificateRequestReceived {
		h.clientCertOffered = false
		return nil
	}
	var ctx []byte
	if len(h.certificateRequestContext) > 0 {
		ctx = h.certificateRequestContext
	}

	var chain [][]byte
	if h.clientCertOffered && h.config.AuthMode != AuthNone {
		chain = h.config.ClientCertificateChain
	}
	body := newCertificateWriter(ctx, chain)
	if err := h.transport.WriteHandshake(params.HandshakeCertificate, body); err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeCertificate, body))
	return nil
}

// newCertificateWriter marshals a Certificate message body for the client's
// own chain (possibly empty, per RFC 8446 §4.4.2 "if no certificate is
// available, the client MUST send an empty Certificate message").
func newCertificateWriter(ctx []byte, chain [][]byte) []byte {
	w := certWriter{}
	w.putUint8LengthPrefixed(ctx)
	inner := certWriter{}
	for _, cert := range chain {
		inner.putUint24LengthPrefixed(cert)
		inner.putUint16(0) // no per-certificate extensions
	}
	w.putUint24LengthPrefixed(inner.buf)
	return w.buf
}

type certWriter struct{ buf []byte }

func (w *certWriter) putUint8LengthPrefixed(b []byte) {
	w.buf = append(w.buf, byte(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *certWriter) putUint24LengthPrefixed(b []byte) {
	n := len(b)
	w.buf = append(w.buf, byte(n>>16), byte(n>>8), byte(n))
	w.buf = append(w.buf, b...)
}

func (w *certWriter) putUint16(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

// ---- CLIENT_CERTIFICATE_VERIFY ----

func (h *Handshake) stepClientCertificateVerify() error {
	digest, err := h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}
	content := clientSignatureInput(digest)
	sig, err := h.config.ClientSigner.Sign(content)
	if err != nil {
		return alert.New(alert.InternalError, "handshake.stepClientCertificateVerify", err)
	}
	cv := &handshakemsg.CertificateVerify{Scheme: h.config.ClientSignatureScheme, Signature: sig}
	body := handshakemsg.MarshalCertificateVerify(cv)
	if err := h.transport.WriteHandshake(params.HandshakeCertificateVerify, body); err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeCertificateVerify, body))
	return nil
}

// clientSignatureInput mirrors cryptosuite.BuildSignatureInput but with the
// client-side context string, per RFC 8446 §4.4.3.
func clientSignatureInput(transcriptDigest []byte) []byte {
	pad := make([]byte, 64)
	for i := range pad {
		pad[i] = 0x20
	}
	const ctx = "TLS 1.3, client CertificateVerify"
	out := append([]byte(nil), pad...)
	out = append(out, ctx...)
	out = append(out, 0x00)
	out = append(out, transcriptDigest...)
	return out
}

// ---- CLIENT_FINISHED ----

func (h *Handshake) stepClientFinished() error {
	digest, err := h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}
	finishedKey := h.schedule.FinishedKey(h.schedule.ClientHandshakeTrafficSecret)
	verifyData := h.schedule.VerifyData(finishedKey, digest)
	body := handshakemsg.MarshalFinished(&handshakemsg.Finished{VerifyData: verifyData})

	if err := h.transport.WriteHandshake(params.HandshakeFinished, body); err != nil {
		return err
	}
	h.transcriptHash.Update(handshakemsg.Frame(params.HandshakeFinished, body))
	h.clientFinishedTranscript, err = h.transcriptHash.Snapshot()
	if err != nil {
		return err
	}

	h.schedule.GenerateResumptionMasterSecret(h.clientFinishedTranscript)

	if err := h.transport.InstallKeys(transport.Outbound, h.negotiatedSuite, h.pendingOutboundApplicationKey.Key, h.pendingOutboundApplicationKey.IV); err != nil {
		return err
	}
	return nil
}

// ---- HANDSHAKE_WRAPUP ----

func (h *Handshake) stepWrapup() {
	h.done = true
	if h.keyShare != nil {
		h.keyShare.Zeroize()
	}
	zero(h.peerShare.PublicKey)
	for i := range h.offeredPSKs {
		zero(h.offeredPSKs[i].Secret)
	}
}

// ---- post-handshake (NewSessionTicket) ----

func (h *Handshake) stepPostHandshake() (StepResult, error) {
	t, body, sig, err := h.transport.ReadHandshake(params.HandshakeNewSessionTicket)
	if err != nil {
		return ResultFatal, err
	}
	if sig == transport.SignalApplicationData {
		return ResultContinue, nil
	}
	if t != params.HandshakeNewSessionTicket {
		return ResultFatal, h.reportFatal(alert.New(alert.UnexpectedMessage, "handshake.stepPostHandshake", nil))
	}
	nst, err := handshakemsg.ParseNewSessionTicket(body)
	if err != nil {
		return ResultFatal, h.reportFatal(err)
	}

	var maxEarly uint32
	if raw, ok := nst.Extensions.Find(params.ExtEarlyData); ok {
		maxEarly, _ = extensions.DecodeEarlyDataNewSessionTicket(raw)
	}

	psk := h.schedule.ResumptionPSK(nst.TicketNonce)
	ticket := &session.Ticket{
		CipherSuite:      h.negotiatedSuite,
		TicketBytes:      nst.Ticket,
		TicketAgeAdd:     nst.TicketAgeAdd,
		Lifetime:         time.Duration(nst.TicketLifetime) * time.Second,
		ReceivedAt:       time.Now(),
		MaxEarlyDataSize: maxEarly,
		PSK:              psk,
	}
	h.sess.AddTicket(ticket)
	h.lastTicket = ticket
	if h.store != nil {
		h.store.Put(h.config.ServerName, ticket)
	}
	h.observer.OnSessionTicketReceived()
	return ResultGotTicket, nil
}
