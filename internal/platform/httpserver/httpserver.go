// Package httpserver builds the engine's HTTP server with the timeouts
// the config layer supplies.
package httpserver

import (
	"net/http"
	"time"
)

// Option adjusts the server before it is returned.
type Option func(*http.Server)

// WithTimeouts overrides the read and write timeouts from configuration.
// Zero values keep the defaults.
func WithTimeouts(read, write time.Duration) Option {
	return func(srv *http.Server) {
		if read > 0 {
			srv.ReadTimeout = read
		}
		if write > 0 {
			srv.WriteTimeout = write
		}
	}
}

// New builds the server for the engine's public surface. Header reads are
// bounded separately so a slow client cannot hold a connection open
// before routing starts; the write timeout leaves room for the capacity
// gate transaction under contention.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
