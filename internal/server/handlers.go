// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, the universe snapshot API, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Tyrowin/gravitychat/internal/universe"
)

// UniverseResponse is the body served by the universe snapshot endpoint.
type UniverseResponse struct {
	universe.Universe
	Healthy    bool   `json:"healthy"`
	Violations string `json:"violations,omitempty"`
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if isOriginAllowed(r) {
		return true
	}

	h.log.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}

// WebSocketHandler upgrades GET requests to WebSocket connections and hands
// each new client to the hub, which places it in the universe.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// UniverseHandler serves a JSON snapshot of every cluster along with the
// result of the store's consistency check.
func UniverseHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		resp := UniverseResponse{Universe: hub.store.Snapshot(), Healthy: true}
		if err := hub.store.CheckInvariants(); err != nil {
			resp.Healthy = false
			resp.Violations = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			hub.log.Warn("error writing universe snapshot", "error", err)
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Gravity Chat server is running!")
}

// TestPageHandler serves an HTML page that connects to the WebSocket
// endpoint, shows the caller's position and cluster, and sends chat lines.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Gravity Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages, #members {
            border: 1px solid #ccc;
            height: 260px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #members { height: 120px; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Gravity Chat</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div id="me"></div>
    <div>
        <input type="text" id="messageInput" placeholder="Say something to your cluster..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <h3>Cluster</h3>
    <div id="members"></div>
    <h3>Messages</h3>
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const membersDiv = document.getElementById('members');
        const meDiv = document.getElementById('me');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'gray';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function handle(frame) {
            const p = frame.payload;
            switch (frame.type) {
            case 'universe_init':
                meDiv.textContent = p.name + ' at (' + p.x + ', ' + p.y + ') in cluster ' + p.clusterId;
                break;
            case 'cluster_update':
                membersDiv.textContent = '';
                p.forEach(function (m) {
                    const el = document.createElement('div');
                    el.textContent = m.name + ' (' + m.x + ', ' + m.y + ')';
                    membersDiv.appendChild(el);
                });
                break;
            case 'cluster_notification':
                addLine(p.name + (p.type === 'join' ? ' drifted in' : ' drifted away'));
                break;
            case 'cluster_message':
                addLine(p.senderName + ': ' + p.message, 'green');
                break;
            case 'private_message':
                addLine((p.echo ? 'to ' + p.recipientId : 'from ' + p.senderName) + ': ' + p.message, 'purple');
                break;
            case 'error':
                addLine('error: ' + p.message, 'red');
                break;
            }
        }

        function connect() {
            ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            ws.onopen = function () { updateStatus(true); };
            ws.onmessage = function (event) { handle(JSON.parse(event.data)); };
            ws.onclose = function () { updateStatus(false); ws = null; };
            ws.onerror = function () { updateStatus(false); };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ type: 'cluster_message', payload: { message: message } }));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function (e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
