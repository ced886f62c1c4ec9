// Package keyschedule implements the TLS 1.3 key schedule (C2): the
// four-stage HKDF tree of RFC 8446 §7.1 that turns a PSK and/or an (EC)DHE
// shared secret into Early, Handshake, Application, and Resumption traffic
// secrets, and from those into the AEAD keys and IVs the record layer
// installs at each epoch boundary.
//
// Every exported stage method is called once per handshake, except that the
// handshake state machine calls StageEarly a second time (without a
// transcript) after ServerHello when early data was offered. The order is
// stage_early -> stage_handshake -> generate_handshake_keys ->
// stage_application -> generate_application_keys ->
// generate_resumption_master_secret, mirroring spec §4.2. Calling a stage out
// of order is a programmer error, not a protocol error, and is not guarded
// against here; the handshake state machine (C6) is the only caller and
// enforces ordering by construction.
package keyschedule

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/hkdf"

	"github.com/jesiegel1/tls13/internal/alert"
	"github.com/jesiegel1/tls13/internal/params"
)

// TrafficKeys holds the AEAD key and IV for one direction of one epoch.
type TrafficKeys struct {
	Key []byte
	IV  []byte
}

// Zeroize overwrites the key material in place.
func (t *TrafficKeys) Zeroize() {
	zero(t.Key)
	zero(t.IV)
}

// Schedule carries the running secrets of the HKDF tree for one handshake.
// Every byte slice it holds is secret and must be zeroized via Zeroize once
// the handshake (or session, for the resumption secret) is done with it.
type Schedule struct {
	suite   params.CipherSuite
	hashLen int
	newHash func() hash.Hash

	earlySecret       []byte
	handshakeSecret   []byte
	masterSecret      []byte

	BinderKey                []byte
	ClientEarlyTrafficSecret []byte
	EarlyExporterSecret      []byte

	ClientHandshakeTrafficSecret []byte
	ServerHandshakeTrafficSecret []byte

	ClientApplicationTrafficSecret []byte
	ServerApplicationTrafficSecret []byte

	ResumptionMasterSecret []byte
}

// New creates a Schedule bound to the negotiated cipher suite's hash.
func New(suite params.CipherSuite) *Schedule {
	s := &Schedule{suite: suite, hashLen: suite.HashLen()}
	if s.hashLen == 48 {
		s.newHash = sha512.New384
	} else {
		s.newHash = sha256.New
	}
	return s
}

func (s *Schedule) zeroVector() []byte { return make([]byte, s.hashLen) }

// extract is HKDF-Extract(salt, ikm).
func (s *Schedule) extract(salt, ikm []byte) []byte {
	if ikm == nil {
		ikm = s.zeroVector()
	}
	return hkdf.Extract(s.newHash, ikm, salt)
}

// expandLabel is HKDF-Expand-Label(Secret, Label, Context, Length) per
// RFC 8446 §7.1.
func (s *Schedule) expandLabel(secret []byte, label string, context []byte, length int) []byte {
	hkdfLabel := buildHkdfLabel(label, context, length)
	out := make([]byte, length)
	r := hkdf.Expand(s.newHash, secret, hkdfLabel)
	_, _ = r.Read(out) // hkdf.Expand's Reader never errors for in-range lengths
	return out
}

// buildHkdfLabel serializes the HkdfLabel structure:
//
//	uint16 length
//	opaque label<7..255> = "tls13 " + Label
//	opaque context<0..255> = Context
func buildHkdfLabel(label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label
	out := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))
	out = append(out, byte(length>>8), byte(length))
	out = append(out, byte(len(fullLabel)))
	out = append(out, fullLabel...)
	out = append(out, byte(len(context)))
	out = append(out, context...)
	return out
}

// deriveSecret is Derive-Secret(Secret, Label, Messages) where Messages is
// already a transcript digest (or empty, for "").
func (s *Schedule) deriveSecret(secret []byte, label string, transcriptDigest []byte) []byte {
	return s.expandLabel(secret, label, transcriptDigest, s.hashLen)
}

// StageEarly derives early_secret, the binder key (labelled "res binder" if
// psk is non-nil, "ext binder" otherwise) and, when clientHelloTranscript is
// non-nil (early data was offered), the client early traffic secret and
// early exporter master secret.
func (s *Schedule) StageEarly(psk []byte, clientHelloTranscript []byte) {
	s.earlySecret = s.extract(nil, psk)

	binderLabel := "res binder"
	if psk == nil {
		binderLabel = "ext binder"
	}
	emptyDigest := s.emptyTranscriptDigest()
	s.BinderKey = s.deriveSecret(s.earlySecret, binderLabel, emptyDigest)

	if clientHelloTranscript != nil {
		s.ClientEarlyTrafficSecret = s.deriveSecret(s.earlySecret, "c e traffic", clientHelloTranscript)
		s.EarlyExporterSecret = s.deriveSecret(s.earlySecret, "e exp master", clientHelloTranscript)
	}
}

// GenerateEarlyTrafficKey expands ClientEarlyTrafficSecret into the AEAD
// key/IV pair that protects 0-RTT data, per spec §3 "Early-data status".
// Valid only after StageEarly was called with a non-nil clientHelloTranscript.
func (s *Schedule) GenerateEarlyTrafficKey(keyLen, ivLen int) TrafficKeys {
	return s.trafficKeys(s.ClientEarlyTrafficSecret, keyLen, ivLen)
}

// StageHandshake derives handshake_secret and the two handshake traffic
// secrets from the transcript up to and including ServerHello.
func (s *Schedule) StageHandshake(dheSharedSecret []byte, serverHelloTranscript []byte) {
	derivedEarly := s.deriveSecret(s.earlySecret, "derived", s.emptyTranscriptDigest())
	s.handshakeSecret = s.extract(derivedEarly, dheSharedSecret)

	s.ClientHandshakeTrafficSecret = s.deriveSecret(s.handshakeSecret, "c hs traffic", serverHelloTranscript)
	s.ServerHandshakeTrafficSecret = s.deriveSecret(s.handshakeSecret, "s hs traffic", serverHelloTranscript)
}

// GenerateHandshakeKeys expands both handshake traffic secrets into AEAD
// key/IV pairs, keyed and sized to the cipher suite.
func (s *Schedule) GenerateHandshakeKeys(keyLen, ivLen int) (client, server TrafficKeys) {
	client = s.trafficKeys(s.ClientHandshakeTrafficSecret, keyLen, ivLen)
	server = s.trafficKeys(s.ServerHandshakeTrafficSecret, keyLen, ivLen)
	return
}

// StageApplication derives master_secret from the handshake secret.
func (s *Schedule) StageApplication() {
	derivedHandshake := s.deriveSecret(s.handshakeSecret, "derived", s.emptyTranscriptDigest())
	s.masterSecret = s.extract(derivedHandshake, nil)
}

// GenerateApplicationKeys derives the application traffic secrets at the
// given transcript boundary (up through server Finished) and expands them
// into AEAD key/IV pairs.
func (s *Schedule) GenerateApplicationKeys(serverFinishedTranscript []byte, keyLen, ivLen int) (client, server TrafficKeys) {
	s.ClientApplicationTrafficSecret = s.deriveSecret(s.masterSecret, "c ap traffic", serverFinishedTranscript)
	s.ServerApplicationTrafficSecret = s.deriveSecret(s.masterSecret, "s ap traffic", serverFinishedTranscript)
	client = s.trafficKeys(s.ClientApplicationTrafficSecret, keyLen, ivLen)
	server = s.trafficKeys(s.ServerApplicationTrafficSecret, keyLen, ivLen)
	return
}

// GenerateResumptionMasterSecret derives resumption_master_secret at the
// transcript boundary up through client Finished.
func (s *Schedule) GenerateResumptionMasterSecret(clientFinishedTranscript []byte) {
	s.ResumptionMasterSecret = s.deriveSecret(s.masterSecret, "res master", clientFinishedTranscript)
}

// ResumptionPSK derives the resumption PSK for a NewSessionTicket carrying
// ticketNonce, per RFC 8446 §4.6.1.
func (s *Schedule) ResumptionPSK(ticketNonce []byte) []byte {
	return s.expandLabel(s.ResumptionMasterSecret, "resumption", ticketNonce, s.hashLen)
}

// FinishedKey derives the MAC key used to compute/verify a Finished message
// from the traffic secret active at that point.
func (s *Schedule) FinishedKey(trafficSecret []byte) []byte {
	return s.expandLabel(trafficSecret, "finished", nil, s.hashLen)
}

// VerifyData computes HMAC(finishedKey, transcriptDigest), the Finished
// message's verify_data field.
func (s *Schedule) VerifyData(finishedKey, transcriptDigest []byte) []byte {
	mac := hmac.New(s.newHash, finishedKey)
	mac.Write(transcriptDigest)
	return mac.Sum(nil)
}

// CheckVerifyData reports whether candidate matches the expected verify_data
// for finishedKey/transcriptDigest in constant time, returning a fatal
// decrypt_error alert on mismatch per spec §4.4.
func (s *Schedule) CheckVerifyData(finishedKey, transcriptDigest, candidate []byte) error {
	expected := s.VerifyData(finishedKey, transcriptDigest)
	if !hmac.Equal(expected, candidate) {
		return alert.New(alert.DecryptError, "keyschedule.CheckVerifyData", nil)
	}
	return nil
}

func (s *Schedule) trafficKeys(secret []byte, keyLen, ivLen int) TrafficKeys {
	return TrafficKeys{
		Key: s.expandLabel(secret, "key", nil, keyLen),
		IV:  s.expandLabel(secret, "iv", nil, ivLen),
	}
}

func (s *Schedule) emptyTranscriptDigest() []byte {
	h := s.newHash()
	return h.Sum(nil)
}

// Zeroize erases every secret this schedule holds. Call once the handshake
// (and, for ResumptionMasterSecret, the session) is done with the schedule.
func (s *Schedule) Zeroize() {
	zero(s.earlySecret)
	zero(s.handshakeSecret)
	zero(s.masterSecret)
	zero(s.BinderKey)
	zero(s.ClientEarlyTrafficSecret)
	zero(s.EarlyExporterSecret)
	zero(s.ClientHandshakeTrafficSecret)
	zero(s.ServerHandshakeTrafficSecret)
	zero(s.ClientApplicationTrafficSecret)
	zero(s.ServerApplicationTrafficSecret)
	zero(s.ResumptionMasterSecret)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
