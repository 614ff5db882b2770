// Package server constructs and starts the Gravity Chat HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub runs the hub's event loop in its own goroutine.
func StartHub(hub *Hub) {
	go hub.Run()
	hub.log.Info("hub started and ready to place connections")
}

// StartServer listens until the server is shut down. A graceful shutdown is
// not reported as an error.
func StartServer(server *http.Server, log *slog.Logger) error {
	log.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", server.Addr, err)
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info("HTTP server shutdown completed")
	return nil
}
