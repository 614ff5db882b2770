// Package server wires HTTP handlers into a ServeMux for the Gravity Chat
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes served by hub.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub))
	mux.HandleFunc("/test", TestPageHandler)
	mux.HandleFunc("/api/universe", UniverseHandler(hub))
	return mux
}
