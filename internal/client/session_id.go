package client

import cryptorand "crypto/rand"

const sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const sessionIDLength = 6

// NewSessionID generates a random six-character session id drawn from
// lowercase letters and digits. Uniqueness within a server's live session
// table is the caller's responsibility — the protocol treats a collision as
// session reuse, not an error.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDLength)
	if _, err := cryptorand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = sessionIDAlphabet[int(b[i])%len(sessionIDAlphabet)]
	}
	return string(b), nil
}
