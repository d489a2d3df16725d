// Package server wraps net/http with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// GracefulServer wraps an HTTP server so it drains in-flight requests
// before exiting on SIGINT or SIGTERM.
type GracefulServer struct {
	server       *http.Server
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewGracefulServer builds a GracefulServer listening on addr.
func NewGracefulServer(addr string, handler http.Handler) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		shutdownCh: make(chan struct{}),
	}
}

// Start blocks serving HTTP until a shutdown signal arrives, then
// returns once the server has drained.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	log.Printf("starting HTTP server on %s", gs.server.Addr)
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits up to timeout for
// in-flight requests to finish.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Printf("shutting down (timeout: %v)", timeout)
		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			log.Printf("error during shutdown: %v", shutdownErr)
		} else {
			log.Printf("shutdown complete")
		}
	})
	return err
}

func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("received %v, starting graceful shutdown...", sig)
	if err := gs.Shutdown(30 * time.Second); err != nil {
		log.Printf("shutdown error: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// IsShuttingDown reports whether shutdown has been initiated.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}
