package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the registration API. Bodies are small
// JSON forms, so reads are bounded tightly; writes are left to the
// per-request timeout middleware so CSV exports are not cut short.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
