package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// TestNotifyBroadcasts verifies every connected client receives the event.
func TestNotifyBroadcasts(t *testing.T) {
	hub, url := newTestHub(t)
	a, b := dial(t, url), dial(t, url)
	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	rec := workout.ToRecord(workout.NewRunning("w1", time.Now(), workout.Coords{Lat: 1, Lng: 2}, 5, 30, 150))
	hub.Notify(session.Event{Type: session.EventWorkoutCreated, Workout: &rec})

	for _, ws := range []*websocket.Conn{a, b} {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)

		var got session.Event
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, session.EventWorkoutCreated, got.Type)
		require.NotNil(t, got.Workout)
		require.Equal(t, "w1", got.Workout.ID)
	}
}

// TestDisconnectRemovesClient verifies a closed client is unregistered.
func TestDisconnectRemovesClient(t *testing.T) {
	hub, url := newTestHub(t)
	ws := dial(t, url)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestNotifyWithoutClients verifies broadcasting to nobody is harmless.
func TestNotifyWithoutClients(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.Notify(session.Event{Type: session.EventMapFit, Count: 3})
	require.Zero(t, hub.Len())
}

// TestDeleteUnknown verifies deleting an unknown client reports not found.
func TestDeleteUnknown(t *testing.T) {
	hub, _ := newTestHub(t)
	require.ErrorIs(t, hub.Delete([16]byte{1}), ErrConnIsNotFound)
	require.ErrorIs(t, hub.Add(nil), ErrEmptyConn)
}
