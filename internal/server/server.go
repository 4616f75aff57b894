package server

import (
	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

// Config bundles what Run needs to start a tunnel server.
type Config struct {
	// Addr is the UDP listen address, e.g. ":53".
	Addr    string
	Fetcher Fetcher
}

// Run starts the UDP DNS listener and blocks until it fails. Bind and
// permission failures are fatal at startup per the protocol design; Run
// returns the error for the caller to log.Fatal on.
func Run(cfg Config) error {
	sessions := NewSessionManager()
	handler := &Handler{Sessions: sessions, Fetcher: cfg.Fetcher}

	srv := &dns.Server{
		Addr:    cfg.Addr,
		Net:     "udp",
		Handler: dns.HandlerFunc(handler.ServeDNS),
	}

	log.Info().Str("addr", cfg.Addr).Msg("starting DNS tunnel server")
	return srv.ListenAndServe()
}
