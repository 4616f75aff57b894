package server

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipstream-go/internal/codec"
)

// fakeFetcher returns a canned resource or error, so handler tests never
// touch the network.
type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	return f.data, f.err
}

// fakeWriter implements dns.ResponseWriter, capturing the last message
// written for assertions.
type fakeWriter struct {
	remote net.Addr
	last   *dns.Msg
}

func newFakeWriter(remote string) *fakeWriter {
	addr, _ := net.ResolveUDPAddr("udp", remote)
	return &fakeWriter{remote: addr}
}

func (w *fakeWriter) LocalAddr() net.Addr         { return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 53} }
func (w *fakeWriter) RemoteAddr() net.Addr        { return w.remote }
func (w *fakeWriter) WriteMsg(m *dns.Msg) error   { w.last = m; return nil }
func (w *fakeWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *fakeWriter) Close() error                { return nil }
func (w *fakeWriter) TsigStatus() error           { return nil }
func (w *fakeWriter) TsigTimersOnly(bool)         {}
func (w *fakeWriter) Hijack()                     {}

func query(qname string) *dns.Msg {
	m := new(dns.Msg)
	m.RecursionDesired = true
	m.SetQuestion(dns.Fqdn(qname), dns.TypeTXT)
	return m
}

func TestHandlerGetServesSingleDoneChunk(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{data: []byte("hi")}}
	w := newFakeWriter("203.0.113.1:5555")

	getName, err := codec.EncodeGet("index.html", "abc123")
	require.NoError(t, err)
	h.ServeDNS(w, query(getName))

	require.NotNil(t, w.last)
	require.Len(t, w.last.Answer, 1)
	txtRR := w.last.Answer[0].(*dns.TXT)
	seq, data, checksum, err := codec.DecodeChunk(txtRR.Txt[0])
	require.NoError(t, err)
	assert.Equal(t, codec.SeqDone, seq)
	assert.Equal(t, []byte("hi"), data)
	assert.True(t, codec.VerifyChecksum(data, checksum))
	assert.Equal(t, dns.RcodeSuccess, w.last.Rcode)
	assert.EqualValues(t, 300, txtRR.Hdr.Ttl)
}

func TestHandlerMultiChunkAckAdvances(t *testing.T) {
	resource := make([]byte, 151)
	for i := range resource {
		resource[i] = 'A'
	}
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{data: resource}}
	w := newFakeWriter("203.0.113.2:6000")

	getName, _ := codec.EncodeGet("big.bin", "zzz999")
	h.ServeDNS(w, query(getName))
	txt0 := w.last.Answer[0].(*dns.TXT).Txt[0]
	seq0, _, _, _ := codec.DecodeChunk(txt0)
	require.Equal(t, codec.Seq0, seq0)

	ackName, _ := codec.EncodeAck(0, "zzz999")
	h.ServeDNS(w, query(ackName))
	txt1 := w.last.Answer[0].(*dns.TXT).Txt[0]
	seq1, data1, checksum1, err := codec.DecodeChunk(txt1)
	require.NoError(t, err)
	assert.Equal(t, codec.SeqDone, seq1)
	assert.Equal(t, []byte("A"), data1)
	assert.True(t, codec.VerifyChecksum(data1, checksum1))
}

func TestHandlerRejectsMalformedQuery(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{}}
	w := newFakeWriter("203.0.113.3:7000")

	m := new(dns.Msg)
	m.RecursionDesired = true
	m.SetQuestion(dns.Fqdn("GET-index-html.abc123.evil.com"), dns.TypeTXT)
	h.ServeDNS(w, m)

	require.NotNil(t, w.last)
	assert.Equal(t, dns.RcodeFormatError, w.last.Rcode)
	assert.Empty(t, w.last.Answer)
}

func TestHandlerRejectsAckWithNoSession(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{}}
	w := newFakeWriter("203.0.113.4:8000")

	ackName, _ := codec.EncodeAck(0, "nosuch")
	h.ServeDNS(w, query(ackName))

	assert.Equal(t, dns.RcodeFormatError, w.last.Rcode)
}

func TestHandlerSurfacesUpstreamFetchFailure(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{err: ErrUpstreamFetchFailed}}
	w := newFakeWriter("203.0.113.5:9000")

	getName, _ := codec.EncodeGet("missing.html", "abc123")
	h.ServeDNS(w, query(getName))

	assert.Equal(t, dns.RcodeServerFailure, w.last.Rcode)
	assert.Empty(t, w.last.Answer)
}

// TestHandlerKeepsSessionsPerAddressSeparate: two clients using the same
// session id get independent records because the table is keyed by
// transport address.
func TestHandlerKeepsSessionsPerAddressSeparate(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: nil}

	w1 := newFakeWriter("203.0.113.10:1")
	h.Fetcher = &fakeFetcher{data: []byte("client one")}
	getName, _ := codec.EncodeGet("f.txt", "dupeid")
	h.ServeDNS(w1, query(getName))

	w2 := newFakeWriter("203.0.113.11:1")
	h.Fetcher = &fakeFetcher{data: []byte("client two")}
	h.ServeDNS(w2, query(getName))

	_, data1, _, _ := codec.DecodeChunk(w1.last.Answer[0].(*dns.TXT).Txt[0])
	_, data2, _, _ := codec.DecodeChunk(w2.last.Answer[0].(*dns.TXT).Txt[0])
	assert.Equal(t, []byte("client one"), data1)
	assert.Equal(t, []byte("client two"), data2)
}

// TestHandlerNewGetOverwritesSession: a GET from a known address resets
// cursor to 0 with fresh chunks, discarding whatever transfer was in
// progress.
func TestHandlerNewGetOverwritesSession(t *testing.T) {
	h := &Handler{Sessions: NewSessionManager(), Fetcher: &fakeFetcher{data: make([]byte, 300)}}
	w := newFakeWriter("203.0.113.20:1")

	getName, _ := codec.EncodeGet("a.bin", "abc123")
	h.ServeDNS(w, query(getName))
	ackName, _ := codec.EncodeAck(0, "abc123")
	h.ServeDNS(w, query(ackName)) // advance cursor to 1

	h.Fetcher = &fakeFetcher{data: []byte("x")}
	h.ServeDNS(w, query(getName)) // fresh GET resets the session

	seq, data, _, err := codec.DecodeChunk(w.last.Answer[0].(*dns.TXT).Txt[0])
	require.NoError(t, err)
	assert.Equal(t, codec.SeqDone, seq)
	assert.Equal(t, []byte("x"), data)
}
