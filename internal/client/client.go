// Package client implements the stop-and-wait receiver side of the tunnel:
// it issues one GET, then drives an alternating-bit ACK loop against
// whatever Transport it's given until the server's DONE tag is observed.
package client

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"slipstream-go/internal/codec"
)

// Stats accumulates counters over one Fetch call, matching the statistics
// the reference client prints at the end of a transfer.
type Stats struct {
	BytesReceived int
	Duplicates    int
	Elapsed       time.Duration
}

// Client drives the Init -> Awaiting{bit} -> Done state machine for a single
// session. It is not safe for concurrent use — the protocol itself forbids
// more than one outstanding query at a time.
type Client struct {
	Transport Transport
	SessionID string
	Retries   int
}

// New returns a Client bound to transport and sessionID, retrying each
// logical step up to retries times before giving up.
func New(transport Transport, sessionID string, retries int) *Client {
	return &Client{Transport: transport, SessionID: sessionID, Retries: retries}
}

// Fetch requests filename and reassembles it, returning the complete octet
// stream and transfer statistics. It returns ErrTransferFailed if any step
// exhausts its retries; no partial output is implied by a non-nil error.
func (c *Client) Fetch(filename string) ([]byte, Stats, error) {
	start := time.Now()
	var stats Stats

	qname, err := codec.EncodeGet(filename, c.SessionID)
	if err != nil {
		return nil, stats, err
	}

	txt, err := c.sendWithRetry(qname)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: initial GET: %v", ErrTransferFailed, err)
	}

	var chunks [][]byte
	expectedBit := 0
	badReplies := 0

	for {
		seq, data, checksum, decodeErr := codec.DecodeChunk(txt)
		validChecksum := decodeErr == nil && codec.VerifyChecksum(data, checksum)

		switch {
		case decodeErr != nil || !validChecksum:
			badReplies++
			if badReplies > c.Retries {
				return nil, stats, fmt.Errorf("%w: %d consecutive undecodable or corrupted replies", ErrTransferFailed, badReplies)
			}
			if decodeErr != nil {
				log.Debug().Err(decodeErr).Msg("undecodable chunk, requesting retransmit")
			} else {
				log.Debug().Msg("checksum mismatch, requesting retransmit")
			}
			// Redesigned NACK: ack the bit opposite of what we're waiting
			// for so the server's "ack matches chunk just sent" check can
			// never mistake a corrupted chunk for an accepted one.
			ackName, err := codec.EncodeAck(1-expectedBit, c.SessionID)
			if err != nil {
				return nil, stats, err
			}
			txt, err = c.sendWithRetry(ackName)
			if err != nil {
				return nil, stats, fmt.Errorf("%w: retransmit request: %v", ErrTransferFailed, err)
			}

		case seq == codec.SeqDone:
			chunks = append(chunks, data)
			stats.BytesReceived += len(data)
			ackName, err := codec.EncodeAck(expectedBit, c.SessionID)
			if err != nil {
				return nil, stats, err
			}
			if _, err := c.sendWithRetry(ackName); err != nil {
				return nil, stats, fmt.Errorf("%w: final ACK: %v", ErrTransferFailed, err)
			}
			stats.Elapsed = time.Since(start)
			return joinChunks(chunks), stats, nil

		case seq.Bit() == expectedBit:
			badReplies = 0
			chunks = append(chunks, data)
			stats.BytesReceived += len(data)
			ackBit := expectedBit
			expectedBit = 1 - expectedBit
			ackName, err := codec.EncodeAck(ackBit, c.SessionID)
			if err != nil {
				return nil, stats, err
			}
			txt, err = c.sendWithRetry(ackName)
			if err != nil {
				return nil, stats, fmt.Errorf("%w: ACK(%d): %v", ErrTransferFailed, ackBit, err)
			}

		default: // seq.Bit() == 1-expectedBit: duplicate of the chunk we already have
			badReplies = 0
			stats.Duplicates++
			ackName, err := codec.EncodeAck(seq.Bit(), c.SessionID)
			if err != nil {
				return nil, stats, err
			}
			txt, err = c.sendWithRetry(ackName)
			if err != nil {
				return nil, stats, fmt.Errorf("%w: duplicate ACK(%d): %v", ErrTransferFailed, seq.Bit(), err)
			}
		}
	}
}

// sendWithRetry retries the same logical query up to Retries times,
// covering Timeout, InvalidQuery (FORMERR), and UpstreamFetchFailed
// (SERVFAIL) alike — the client treats any transport error the same way.
func (c *Client) sendWithRetry(qname string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.Retries; attempt++ {
		txt, err := c.Transport.Query(qname)
		if err == nil {
			return txt, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt+1).Str("qname", qname).Msg("query failed, retrying")
	}
	return "", lastErr
}

func joinChunks(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
