package client

import (
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Transport sends one QNAME query and returns the decoded TXT string from
// the server's answer. The client state machine is strictly single-threaded
// and single-outstanding-query by construction: it never calls Query again
// before the previous call returns.
type Transport interface {
	Query(qname string) (string, error)
}

// UDPTransport is the production Transport: a single UDP socket to one DNS
// server, synchronous send-and-wait per query, with optional fault injection
// for TEST_MODE runs.
type UDPTransport struct {
	conn    *net.UDPConn
	server  *net.UDPAddr
	timeout time.Duration
	faults  *FaultInjector
}

// NewUDPTransport dials nothing (UDP is connectionless) but resolves
// serverAddr and opens a local socket to send from.
func NewUDPTransport(serverAddr string, timeout time.Duration, faults *FaultInjector) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, server: raddr, timeout: timeout, faults: faults}, nil
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// Query sends qname as a standard TXT query with RD=1 and blocks for the
// reply up to the configured timeout.
func (t *UDPTransport) Query(qname string) (string, error) {
	msg := new(dns.Msg)
	msg.RecursionDesired = true
	msg.SetQuestion(dns.Fqdn(qname), dns.TypeTXT)

	buf, err := msg.Pack()
	if err != nil {
		return "", err
	}
	if _, err := t.conn.WriteToUDP(buf, t.server); err != nil {
		return "", err
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return "", err
	}
	resp := make([]byte, 512)
	n, _, err := t.conn.ReadFromUDP(resp)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "", ErrTimeout
		}
		return "", err
	}

	if t.faults.ShouldDrop() {
		return "", ErrTimeout
	}

	reply := new(dns.Msg)
	if err := reply.Unpack(resp[:n]); err != nil {
		return "", err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return "", ErrServerError
	}
	if len(reply.Answer) == 0 {
		return "", ErrNoAnswer
	}
	txtRR, ok := reply.Answer[0].(*dns.TXT)
	if !ok {
		return "", ErrNoAnswer
	}

	txt := strings.Join(txtRR.Txt, "")
	return string(t.faults.MaybeCorrupt([]byte(txt))), nil
}
