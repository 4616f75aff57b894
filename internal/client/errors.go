package client

import "errors"

var (
	// ErrTimeout marks a query that got no reply within the deadline.
	ErrTimeout = errors.New("client: timeout waiting for DNS response")

	// ErrNoAnswer marks a reply with RCODE=0 but no usable TXT answer.
	ErrNoAnswer = errors.New("client: no TXT answer in DNS response")

	// ErrServerError marks a reply carrying a non-zero RCODE.
	ErrServerError = errors.New("client: server returned non-zero rcode")

	// ErrTransferFailed marks a transfer abandoned after exhausting
	// retries at some step. Partial output is not written when this is
	// returned.
	ErrTransferFailed = errors.New("client: transfer failed")
)
