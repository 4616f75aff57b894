package server

import (
	"github.com/patrickmn/go-cache"
)

// SessionManager maps client transport address to that client's session
// record. It owns the table exclusively; the server component is the only
// writer. go-cache's TTL sweep is what reaps sessions abandoned mid-transfer
// — the protocol does not require explicit teardown, so idle eviction is the
// only bound on memory.
type SessionManager struct {
	store *cache.Cache
}

// NewSessionManager creates an empty table with the default idle TTL.
func NewSessionManager() *SessionManager {
	return &SessionManager{store: cache.New(sessionIdleTTL, sessionSweepInterval)}
}

// Get looks up the session for addr, refreshing its TTL on a hit.
func (sm *SessionManager) Get(addr string) (*Session, bool) {
	v, found := sm.store.Get(addr)
	if !found {
		return nil, false
	}
	sess := v.(*Session)
	sm.store.Set(addr, sess, cache.DefaultExpiration)
	return sess, true
}

// Put installs sess as the record for addr, overwriting any prior record —
// a fresh GET does not preserve whatever transfer was in progress.
func (sm *SessionManager) Put(addr string, sess *Session) {
	sm.store.Set(addr, sess, cache.DefaultExpiration)
}
