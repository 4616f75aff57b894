package server

import (
	"context"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"slipstream-go/internal/codec"
)

// Handler implements the server side of the stop-and-wait state machine
// described by the protocol design: one state per live client address,
// Fresh until a GET arrives, Serving{cursor, chunks} after.
type Handler struct {
	Sessions *SessionManager
	Fetcher  Fetcher
}

// ServeDNS is a dns.HandlerFunc: parse the one question we expect, dispatch
// to GET or ACK handling, and write back exactly one TXT answer (or an
// answer-less error response).
func (h *Handler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	if !isWellFormedQuery(r) {
		log.Warn().Str("remote", w.RemoteAddr().String()).Msg("rejecting malformed query")
		reject(w, r, dns.RcodeFormatError)
		return
	}

	q := r.Question[0]
	cmd, err := codec.DecodeRequest(q.Name)
	if err != nil {
		log.Warn().Err(err).Str("qname", q.Name).Msg("rejecting undecodable qname")
		reject(w, r, dns.RcodeFormatError)
		return
	}

	addr := w.RemoteAddr().String()

	var (
		data     []byte
		seq      codec.Seq
		checksum string
	)

	switch cmd.Verb {
	case "GET":
		resource, err := h.Fetcher.Fetch(context.Background(), cmd.Filename)
		if err != nil {
			log.Error().Err(err).Str("filename", cmd.Filename).Str("remote", addr).Msg("upstream fetch failed")
			reject(w, r, dns.RcodeServerFailure)
			return
		}
		sess := newSession(cmd.SessionID, codec.ChunkResource(resource))
		h.Sessions.Put(addr, sess)
		log.Info().Str("remote", addr).Str("session", cmd.SessionID).Str("filename", cmd.Filename).
			Int("chunks", len(sess.Chunks)).Msg("new session")
		data, seq, checksum = sess.current()

	case "ACK":
		sess, ok := h.Sessions.Get(addr)
		if !ok {
			log.Warn().Str("remote", addr).Msg("ACK with no live session, rejecting")
			reject(w, r, dns.RcodeFormatError)
			return
		}
		data, seq, checksum = sess.HandleAck(cmd.Bit)

	default:
		// DecodeRequest never returns an unrecognised verb without error,
		// but stay defensive rather than send a malformed reply.
		reject(w, r, dns.RcodeFormatError)
		return
	}

	txt, err := codec.EncodeChunk(data, seq, checksum)
	if err != nil {
		log.Error().Err(err).Msg("chunk could not be encoded onto the wire")
		reject(w, r, dns.RcodeServerFailure)
		return
	}

	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true
	msg.Answer = append(msg.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 300},
		Txt: []string{txt},
	})

	if err := w.WriteMsg(msg); err != nil {
		log.Error().Err(err).Str("remote", addr).Msg("failed to write DNS response")
	}
}

// isWellFormedQuery enforces the shape the protocol demands of an inbound
// query: recursion desired, exactly one question, QTYPE TXT, QCLASS IN.
func isWellFormedQuery(r *dns.Msg) bool {
	if !r.RecursionDesired {
		return false
	}
	if len(r.Question) != 1 {
		return false
	}
	q := r.Question[0]
	return q.Qtype == dns.TypeTXT && q.Qclass == dns.ClassINET
}

func reject(w dns.ResponseWriter, r *dns.Msg, rcode int) {
	msg := new(dns.Msg)
	msg.SetRcode(r, rcode)
	if err := w.WriteMsg(msg); err != nil {
		log.Error().Err(err).Msg("failed to write rejection response")
	}
}
