package server

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"slipstream-go/internal/codec"
)

const (
	// sessionIdleTTL and sessionSweepInterval bound memory for abandoned
	// sessions per the protocol design's reaping recommendation: a record
	// is evicted if idle this long, checked on this interval. Every
	// successful GET or ACK refreshes the TTL.
	sessionIdleTTL       = 5 * time.Minute
	sessionSweepInterval = 10 * time.Minute
)

// Session is the server-side record for one client's transfer: the
// immutable ordered chunk list and the cursor pointing at the next chunk to
// (re)transmit. cursor only ever advances by one per accepted ACK and never
// exceeds the last chunk index.
type Session struct {
	ID     string
	Chunks [][]byte
	Cursor int

	mu sync.Mutex
}

func newSession(id string, chunks [][]byte) *Session {
	return &Session{ID: id, Chunks: chunks}
}

// current returns the chunk at the cursor along with its wire sequence tag
// and checksum. The tag is DONE exactly when the cursor sits on the final
// chunk, alternating otherwise.
func (s *Session) current() ([]byte, codec.Seq, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() ([]byte, codec.Seq, string) {
	data := s.Chunks[s.Cursor]
	var seq codec.Seq
	if s.Cursor == len(s.Chunks)-1 {
		seq = codec.SeqDone
	} else {
		seq = codec.SeqForBit(s.Cursor % 2)
	}
	return data, seq, codec.CalculateChecksum(data)
}

// HandleAck applies an inbound ACK's bit against the cursor per the server
// state machine: a bit matching the cursor's own parity retires the chunk we
// just sent and advances (capped at the last index); any other bit is
// treated as a NACK for the chunk still in flight and triggers an idempotent
// retransmit of exactly what was last sent.
func (s *Session) HandleAck(bit int) ([]byte, codec.Seq, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bit == s.Cursor%2 && s.Cursor < len(s.Chunks)-1 {
		s.Cursor++
	}
	return s.currentLocked()
}
