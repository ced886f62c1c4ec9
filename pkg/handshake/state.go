package handshake

// State is one node of the C6 state machine of spec §4.6.
type State int

const (
	StateHelloRequest State = iota
	StateClientHello
	StateCCSAfterClientHello
	StateEarlyAppData
	StateServerHello
	StateEncryptedExtensions
	StateCertificateRequest
	StateServerCertificate
	StateCertificateVerify
	StateServerFinished
	StateEndOfEarlyData
	StateCCSAfterServerFinished
	StateClientCertificate
	StateClientCertificateVerify
	StateClientFinished
	StateFlushBuffers
	StateHandshakeWrapup
	StateHandshakeOver
)

func (s State) String() string {
	names := [...]string{
		"HELLO_REQUEST", "CLIENT_HELLO", "CCS_AFTER_CLIENT_HELLO", "EARLY_APP_DATA",
		"SERVER_HELLO", "ENCRYPTED_EXTENSIONS", "CERTIFICATE_REQUEST", "SERVER_CERTIFICATE",
		"CERTIFICATE_VERIFY", "SERVER_FINISHED", "END_OF_EARLY_DATA", "CCS_AFTER_SERVER_FINISHED",
		"CLIENT_CERTIFICATE", "CLIENT_CERTIFICATE_VERIFY", "CLIENT_FINISHED", "FLUSH_BUFFERS",
		"HANDSHAKE_WRAPUP", "HANDSHAKE_OVER",
	}
	if int(s) < 0 || int(s) >= len(names) {
		return "UNKNOWN_STATE"
	}
	return names[s]
}

// StepResult is the per-call outcome Step returns to the caller, per spec
// §6 "Handshake entry".
type StepResult int

const (
	ResultContinue StepResult = iota
	ResultWantRead
	ResultWantWrite
	ResultGotTicket
	ResultDone
	ResultFatal
)

func (r StepResult) String() string {
	switch r {
	case ResultContinue:
		return "continue"
	case ResultWantRead:
		return "want_read"
	case ResultWantWrite:
		return "want_write"
	case ResultGotTicket:
		return "got_ticket"
	case ResultDone:
		return "done"
	case ResultFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// KeyExchangeMode is resolved at the end of ServerHello parsing per spec
// §4.6 "Key-exchange mode resolution".
type KeyExchangeMode int

const (
	ModeUnresolved KeyExchangeMode = iota
	ModePSKOnly
	ModeEphemeralOnly
	ModePSKEphemeral
)

// EarlyDataStatus tracks the 0-RTT negotiation outcome (spec §3).
type EarlyDataStatus int

const (
	EarlyDataStatusDisabled EarlyDataStatus = iota
	EarlyDataStatusOfferedRejected
	EarlyDataStatusOfferedAccepted
)
