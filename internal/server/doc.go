// Package server implements the HTTP and WebSocket transport for Gravity Chat.
//
// Each WebSocket connection becomes a participant in the universe store. The
// Hub places it on connect, removes it on disconnect, and relays chat lines
// to the members of the sender's cluster. Configuration, origin checks, rate
// limiting, routing and HTTP helpers live in their own files.
package server
