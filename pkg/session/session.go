// Package session implements C7: the negotiated session state handed to the
// caller on a successful handshake, and the post-handshake NewSessionTicket
// consumption that derives resumption PSKs for future handshakes.
//
// Ownership: handshake.New creates the Session and the Handshake holds it
// directly, not as a reference borrowed from a connection; callers reach it
// through Handshake.Session(). The Session struct mirrors the teacher's
// Session struct (pkg/tunnel/session.go) generalized from a VPN tunnel's
// negotiated parameters to a TLS connection's.
package session

import (
	"crypto/x509"
	"sync"
	"time"

	"github.com/jesiegel1/tls13/internal/params"
)

// Session holds everything a successful handshake negotiates, plus
// whatever resumption material later NewSessionTicket messages add.
type Session struct {
	mu sync.RWMutex

	CipherSuite params.CipherSuite
	ALPN        string

	PeerCertificates []*x509.Certificate
	PeerVerified     bool

	// Tickets accumulates every resumable ticket received on this
	// connection, most recent last; a caller may persist any/all of them.
	Tickets []*Ticket
}

// Ticket is one resumable session, derived from a NewSessionTicket message
// plus the resumption_master_secret live at the time it arrived.
type Ticket struct {
	CipherSuite      params.CipherSuite
	TicketBytes      []byte
	TicketAgeAdd     uint32
	Lifetime         time.Duration
	ReceivedAt       time.Time
	MaxEarlyDataSize uint32

	// PSK is the resumption PSK derived via
	// HKDF-Expand-Label(resumption_master_secret, "resumption", ticket_nonce, H).
	PSK []byte
}

// ObfuscatedAge computes obfuscated_ticket_age = ((now - ReceivedAt) +
// TicketAgeAdd) mod 2^32, per spec §6 "Persisted state".
func (t *Ticket) ObfuscatedAge(now time.Time) uint32 {
	elapsedMs := now.Sub(t.ReceivedAt).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	return uint32(uint64(elapsedMs)+uint64(t.TicketAgeAdd)) // wraps mod 2^32 by uint32 conversion
}

// New returns an empty Session, ready to be populated by a handshake.
func New() *Session {
	return &Session{}
}

// AddTicket appends a newly-received ticket. Safe for concurrent use since
// post-handshake tickets may arrive while the caller's application code is
// already using the connection on another goroutine.
func (s *Session) AddTicket(t *Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tickets = append(s.Tickets, t)
}

// LatestTicket returns the most recently received ticket, if any.
func (s *Session) LatestTicket() *Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Tickets) == 0 {
		return nil
	}
	return s.Tickets[len(s.Tickets)-1]
}

// Zeroize erases every PSK this session's tickets hold. Call when the
// session (and all connections derived from it) is being torn down.
func (s *Session) Zeroize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Tickets {
		for i := range t.PSK {
			t.PSK[i] = 0
		}
	}
}
