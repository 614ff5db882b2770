package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gravitychat/internal/server"
	"github.com/Tyrowin/gravitychat/internal/universe"
)

const testOrigin = "http://localhost:8080"

func startTestServer(t *testing.T) (*httptest.Server, *server.Hub) {
	t.Helper()
	return startTestServerWithConfig(t, nil)
}

// startTestServerWithConfig applies cfg before any client connects, so every
// connection picks up its limits. A nil cfg means defaults.
func startTestServerWithConfig(t *testing.T, cfg *server.Config) (*httptest.Server, *server.Hub) {
	t.Helper()
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })
	hub := server.NewHub(universe.New(), nil)
	server.StartHub(hub)
	t.Cleanup(func() {
		require.NoError(t, hub.Shutdown(2*time.Second))
	})

	ts := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(ts.Close)
	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", origin)
	return dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", headers)
}

func connect(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := dial(t, ts, testOrigin)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read[T any](t *testing.T, conn *websocket.Conn, eventType string) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var envelope server.Envelope
	require.NoError(t, conn.ReadJSON(&envelope))
	require.Equal(t, eventType, envelope.Type)
	var payload T
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	return payload
}

func fetchUniverse(t *testing.T, ts *httptest.Server) server.UniverseResponse {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/universe")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body server.UniverseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWebSocketClusterChat(t *testing.T) {
	ts, hub := startTestServer(t)

	alice := connect(t, ts)
	aliceNode := read[server.NodePayload](t, alice, server.EventUniverseInit)
	read[[]server.NodePayload](t, alice, server.EventClusterUpdate)
	read[server.NotificationPayload](t, alice, server.EventClusterNotification)

	bob := connect(t, ts)
	bobNode := read[server.NodePayload](t, bob, server.EventUniverseInit)
	require.Equal(t, aliceNode.ClusterID, bobNode.ClusterID)
	read[[]server.NodePayload](t, bob, server.EventClusterUpdate)
	read[server.NotificationPayload](t, bob, server.EventClusterNotification)

	members := read[[]server.NodePayload](t, alice, server.EventClusterUpdate)
	require.Len(t, members, 2)
	joined := read[server.NotificationPayload](t, alice, server.EventClusterNotification)
	require.Equal(t, bobNode.ID, joined.ID)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":    server.RequestClusterMessage,
		"payload": map[string]string{"message": "hi bob"},
	}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := read[server.ChatPayload](t, conn, server.EventClusterMessage)
		require.Equal(t, "hi bob", msg.Message)
		require.Equal(t, aliceNode.ID, msg.SenderID)
		require.Equal(t, aliceNode.Name, msg.SenderName)
	}

	snapshot := fetchUniverse(t, ts)
	require.True(t, snapshot.Healthy, snapshot.Violations)
	require.Equal(t, 2, snapshot.Population)
	require.Len(t, snapshot.Clusters, 1)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	left := read[server.NotificationPayload](t, alice, server.EventClusterNotification)
	require.Equal(t, "leave", left.Type)
	require.Equal(t, bobNode.ID, left.ID)
	remaining := read[[]server.NodePayload](t, alice, server.EventClusterUpdate)
	require.Len(t, remaining, 1)

	require.Equal(t, 1, hub.Store().Len())
	require.NoError(t, hub.Store().CheckInvariants())
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	ts, hub := startTestServer(t)

	_, resp, err := dial(t, ts, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, hub.Store().Len())
}

func TestWebSocketRejectsNonGet(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndTestPage(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/test")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestUniverseEndpointEmpty(t *testing.T) {
	ts, _ := startTestServer(t)

	snapshot := fetchUniverse(t, ts)
	require.True(t, snapshot.Healthy)
	require.Zero(t, snapshot.Population)
	require.Empty(t, snapshot.Clusters)

	resp, err := http.Post(ts.URL+"/api/universe", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
