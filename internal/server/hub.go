// Package server coordinates client registration, cluster broadcasts, and
// chat relaying for Gravity Chat via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gravitychat/internal/universe"
)

// Hub owns every WebSocket client and is the only caller of the universe
// store. Registration, unregistration and inbound frames are handled one at a
// time by Run, so broadcasts always reflect the state the store returned.
type Hub struct {
	store      *universe.Store
	names      NameGenerator
	clients    map[string]*Client
	inbound    chan InboundMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *slog.Logger

	// failed collects clients whose send buffer overflowed during the
	// current event. Only touched from Run.
	failed []*Client
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithNameGenerator replaces the display name generator.
func WithNameGenerator(names NameGenerator) HubOption {
	return func(h *Hub) {
		if names != nil {
			h.names = names
		}
	}
}

// NewHub creates a Hub backed by store. The returned Hub is ready to manage
// WebSocket connections once Run is started.
func NewHub(store *universe.Store, log *slog.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		store:      store,
		names:      NewNameGenerator(nil),
		clients:    make(map[string]*Client),
		inbound:    make(chan InboundMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// GetInboundChan returns the channel clients push their raw frames into.
func (h *Hub) GetInboundChan() chan<- InboundMessage {
	return h.inbound
}

// Store returns the universe the hub places clients in.
func (h *Hub) Store() *universe.Store {
	return h.store
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.drop(client)

		case msg := <-h.inbound:
			h.handleInbound(msg)
		}

		h.evictFailed()
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	participant := h.store.AddUser(client.id, h.names())
	h.log.Info("client joined universe",
		"client", client.id, "addr", client.addr, "name", participant.Name,
		"cluster", participant.ClusterID, "x", participant.Position.X, "y", participant.Position.Y,
		"clients", clientCount)

	if client.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			client.writePump()
		}()
		go func() {
			defer h.wg.Done()
			client.readPump()
		}()
	}

	h.sendTo(client, EventUniverseInit, nodeFromParticipant(participant))
	h.broadcastClusterUpdate(participant.ClusterID)
	h.broadcastToCluster(participant.ClusterID, EventClusterNotification, NotificationPayload{
		Type: "join",
		ID:   participant.ID,
		Name: participant.Name,
	})
}

// drop unregisters a client, removes it from the universe and tells the
// cluster it left. Unknown clients are ignored.
func (h *Hub) drop(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	close(client.send)

	participant, known := h.store.GetUser(client.id)
	h.store.RemoveUser(client.id)
	h.log.Info("client left universe", "client", client.id, "addr", client.addr, "clients", clientCount)

	if !known {
		return
	}
	h.broadcastToCluster(participant.ClusterID, EventClusterNotification, NotificationPayload{
		Type: "leave",
		ID:   participant.ID,
		Name: participant.Name,
	})
	h.broadcastClusterUpdate(participant.ClusterID)
}

func (h *Hub) handleInbound(msg InboundMessage) {
	if msg.Sender == nil {
		return
	}
	sender, ok := h.store.GetUser(msg.Sender.id)
	if !ok {
		h.log.Warn("message from unplaced client dropped", "client", msg.Sender.id)
		return
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		h.log.Debug("invalid frame", "client", sender.ID, "error", err)
		h.sendError(msg.Sender, "invalid message format")
		return
	}

	switch envelope.Type {
	case RequestClusterMessage:
		h.relayClusterMessage(msg.Sender, sender, envelope.Payload)
	case RequestPrivateMessage:
		h.relayPrivateMessage(msg.Sender, sender, envelope.Payload)
	default:
		h.sendError(msg.Sender, "unknown message type "+envelope.Type)
	}
}

func (h *Hub) relayClusterMessage(client *Client, sender universe.Participant, raw json.RawMessage) {
	var req ClusterMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		h.sendError(client, "cluster message requires a non-empty message")
		return
	}

	clusterID, ok := h.store.GetUserCluster(sender.ID)
	if !ok {
		return
	}
	h.broadcastToCluster(clusterID, EventClusterMessage, ChatPayload{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Message:    req.Message,
	})
}

func (h *Hub) relayPrivateMessage(client *Client, sender universe.Participant, raw json.RawMessage) {
	var req PrivateMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.TargetID == "" || strings.TrimSpace(req.Message) == "" {
		h.sendError(client, "private message requires targetId and a non-empty message")
		return
	}

	h.mutex.RLock()
	target, ok := h.clients[req.TargetID]
	h.mutex.RUnlock()
	if !ok {
		h.sendError(client, "recipient is not connected")
		return
	}

	h.sendTo(target, EventPrivateMessage, ChatPayload{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Message:    req.Message,
	})
	h.sendTo(client, EventPrivateMessage, ChatPayload{
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		Message:     req.Message,
		RecipientID: req.TargetID,
		Echo:        true,
	})
	h.sendTo(target, EventPrivateNotification, PrivateNotificationPayload{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Preview:    req.Message,
	})
}

// broadcastClusterUpdate sends the cluster's member list to every member.
// Nothing is sent for a cluster that no longer exists.
func (h *Hub) broadcastClusterUpdate(clusterID string) {
	members := h.store.GetClusterMembers(clusterID)
	if len(members) == 0 {
		return
	}
	nodes := make([]NodePayload, 0, len(members))
	for _, m := range members {
		nodes = append(nodes, nodeFromParticipant(m))
	}
	h.broadcastToMembers(members, EventClusterUpdate, nodes)
}

func (h *Hub) broadcastToCluster(clusterID, eventType string, payload any) {
	members := h.store.GetClusterMembers(clusterID)
	if len(members) == 0 {
		return
	}
	h.broadcastToMembers(members, eventType, payload)
}

func (h *Hub) broadcastToMembers(members []universe.Participant, eventType string, payload any) {
	frame, err := encodeEnvelope(eventType, payload)
	if err != nil {
		h.log.Error("dropping broadcast", "event", eventType, "error", err)
		return
	}

	h.mutex.RLock()
	targets := make([]*Client, 0, len(members))
	for _, m := range members {
		if c, ok := h.clients[m.ID]; ok {
			targets = append(targets, c)
		}
	}
	h.mutex.RUnlock()

	h.log.Debug("broadcasting to cluster", "event", eventType, "targets", len(targets))
	for _, c := range targets {
		if !h.safeSend(c, frame) {
			h.failed = append(h.failed, c)
		}
	}
}

func (h *Hub) sendTo(client *Client, eventType string, payload any) {
	frame, err := encodeEnvelope(eventType, payload)
	if err != nil {
		h.log.Error("dropping message", "event", eventType, "client", client.id, "error", err)
		return
	}
	if !h.safeSend(client, frame) {
		h.failed = append(h.failed, client)
	}
}

func (h *Hub) sendError(client *Client, message string) {
	h.sendTo(client, EventError, ErrorPayload{Message: message})
}

func (h *Hub) safeSend(client *Client, message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("recovered from panic in safeSend", "client", client.id, "panic", r)
			sent = false
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// evictFailed drops clients whose send buffer overflowed. Dropping a client
// broadcasts to its cluster, which may overflow further clients, so this
// loops until no failures remain.
func (h *Hub) evictFailed() {
	for len(h.failed) > 0 {
		client := h.failed[0]
		h.failed = h.failed[1:]
		h.mutex.RLock()
		_, registered := h.clients[client.id]
		h.mutex.RUnlock()
		if !registered {
			continue
		}
		h.log.Warn("client removed due to full send buffer", "client", client.id, "addr", client.addr)
		h.drop(client)
	}
}

// shutdownClients closes every live connection. The read pumps notice and
// exit; the store is left as is since the process is going away.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("error closing client connection", "client", client.id, "error", err)
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops Run and waits for all client goroutines to finish or the
// timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
