package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wsPair is a connected server/client websocket pair for exercising the hub
// with real connections.
type wsPair struct {
	server *websocket.Conn
	client *websocket.Conn
}

// newWSPair upgrades a loopback HTTP connection and returns both ends.
func newWSPair(t *testing.T) wsPair {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-conns
	t.Cleanup(func() { serverConn.Close() })

	return wsPair{server: serverConn, client: clientConn}
}

// newTestClient builds a hub client over a real server-side connection.
// WritePump is not started: tests read queued frames straight off the send
// channel via mustEvent.
func newTestClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	pair := newWSPair(t)
	return NewClient(h, pair.server)
}

// eventEnvelope mirrors Event with a raw payload for decoding in tests.
type eventEnvelope struct {
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// mustEvent waits for the next frame queued to c and requires it to be of the
// given type, returning the decoded envelope.
func mustEvent(t *testing.T, c *Client, want EventType) eventEnvelope {
	t.Helper()

	select {
	case frame := <-c.send:
		var ev eventEnvelope
		require.NoError(t, json.Unmarshal(frame, &ev))
		require.Equal(t, want, ev.Type, "unexpected event: %s", frame)
		return ev

	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s event", want)
		return eventEnvelope{}
	}
}

// requireNoEvent asserts that nothing is queued to c within the grace window.
func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case frame := <-c.send:
		t.Fatalf("unexpected queued frame: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

// decodePayload unmarshals an envelope payload into dst.
func decodePayload(t *testing.T, ev eventEnvelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ev.Payload, dst))
}
