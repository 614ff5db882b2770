// Package server defines the JSON envelopes exchanged with browser clients
// and small helpers shared by the hub and client code.
package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Tyrowin/gravitychat/internal/universe"
)

// Event types sent by the server.
const (
	EventUniverseInit        = "universe_init"
	EventClusterUpdate       = "cluster_update"
	EventClusterNotification = "cluster_notification"
	EventClusterMessage      = "cluster_message"
	EventPrivateMessage      = "private_message"
	EventPrivateNotification = "private_notification"
	EventError               = "error"
)

// Request types accepted from clients.
const (
	RequestClusterMessage = "cluster_message"
	RequestPrivateMessage = "private_message"
)

// Envelope is the frame used in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NodePayload describes one participant: the connecting client's own state
// in universe_init and each entry of a cluster_update.
type NodePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ClusterID string `json:"clusterId"`
}

// NotificationPayload announces a join or leave to a cluster.
type NotificationPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatPayload carries a relayed chat line. RecipientID and Echo are only set
// on the copy of a private message returned to its sender.
type ChatPayload struct {
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	Message     string `json:"message"`
	RecipientID string `json:"recipientId,omitempty"`
	Echo        bool   `json:"echo,omitempty"`
}

// PrivateNotificationPayload lets a client badge an unread conversation.
type PrivateNotificationPayload struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Preview    string `json:"preview"`
}

// ErrorPayload explains why a request was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ClusterMessageRequest is sent by a client to talk to its own cluster.
type ClusterMessageRequest struct {
	Message string `json:"message"`
}

// PrivateMessageRequest is sent by a client to talk to one participant.
type PrivateMessageRequest struct {
	TargetID string `json:"targetId"`
	Message  string `json:"message"`
}

// InboundMessage is a raw frame read from a client, queued for the hub.
type InboundMessage struct {
	Sender  *Client
	Payload []byte
}

func nodeFromParticipant(p universe.Participant) NodePayload {
	return NodePayload{
		ID:        p.ID,
		Name:      p.Name,
		X:         p.Position.X,
		Y:         p.Position.Y,
		ClusterID: p.ClusterID,
	}
}

func encodeEnvelope(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	frame, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", eventType, err)
	}
	return frame, nil
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
