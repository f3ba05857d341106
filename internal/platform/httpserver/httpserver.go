// Package httpserver builds the API server. Import requests run a whole
// batch through the pipeline before responding, so the write timeout is sized
// from the pipeline's per-call timeout instead of a generic few seconds.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second

	// A batch holds many records; give the response budget a wide multiple
	// of the slowest single persistence call.
	writeTimeoutFactor = 12
)

// New builds the server. callTimeout is the pipeline's per-call budget; values
// at or below zero fall back to the pipeline's own default.
func New(addr string, handler http.Handler, callTimeout time.Duration) *http.Server {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       callTimeout,
		WriteTimeout:      writeTimeoutFactor * callTimeout,
		IdleTimeout:       idleTimeout,
	}
}
