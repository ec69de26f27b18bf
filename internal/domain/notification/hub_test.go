package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPushesToConnectedUser(t *testing.T) {
	hub := NewHub(nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeWS(conn, 42)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Connected(42) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.False(t, hub.Push(7, &Event{Type: EventNotification}))
	assert.True(t, hub.Push(42, &Event{Type: EventNotification, Payload: map[string]string{"message": "hello"}}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventNotification, got.Type)
	assert.Equal(t, "hello", got.Payload["message"])

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), EventPong)

	client.Close()
	require.Eventually(t, func() bool { return hub.Connected(42) == 0 }, 2*time.Second, 10*time.Millisecond)
}
