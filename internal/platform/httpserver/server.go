// Package httpserver wraps http.Server construction so timeouts are set in
// exactly one place.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with conservative timeouts. The per-request
// deadline is enforced separately by the request guard; these protect the
// listener itself from slow clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
