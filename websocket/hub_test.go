package websocket

import (
	"encoding/json"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		ID:     userID + "-conn-" + time.Now().Format("150405.000000000"),
		UserID: userID,
		Hub:    hub,
		Send:   make(chan []byte, 16),
	}
}

func registerAndWait(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	require.Eventually(t, func() bool {
		return hub.IsOnline(c.UserID)
	}, time.Second, time.Millisecond)
}

func TestEmitToUserReachesOnlyThatRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newTestClient(hub, "user-a")
	b := newTestClient(hub, "user-b")
	registerAndWait(t, hub, a)
	registerAndWait(t, hub, b)

	hub.EmitToUser("user-a", "user-typing", map[string]interface{}{"sender_id": "user-b"})

	select {
	case payload := <-a.Send:
		var evt Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, "user-typing", evt.Event)
	case <-time.After(time.Second):
		t.Fatal("expected event in user-a's room")
	}

	select {
	case <-b.Send:
		t.Fatal("user-b must not receive user-a's event")
	default:
	}
}

func TestEmitToUserFansOutToAllConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Two sockets in the same room: both tabs of one user.
	first := newTestClient(hub, "user-a")
	second := newTestClient(hub, "user-a")
	second.ID = "user-a-conn-2"
	registerAndWait(t, hub, first)
	hub.register <- second
	time.Sleep(10 * time.Millisecond)

	hub.EmitToUser("user-a", "receive-message", map[string]interface{}{"content": "hi"})

	for _, c := range []*Client{first, second} {
		select {
		case payload := <-c.Send:
			var evt Event
			require.NoError(t, json.Unmarshal(payload, &evt))
			assert.Equal(t, "receive-message", evt.Event)
		case <-time.After(time.Second):
			t.Fatal("every connection in the room must receive the event")
		}
	}
}

func TestEmitToOfflineUserIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// No panic, no queueing: the event just disappears.
	hub.EmitToUser("nobody-home", "receive-message", map[string]interface{}{"content": "hi"})
	assert.False(t, hub.IsOnline("nobody-home"))
}

func TestUnregisterLastConnectionClosesRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := newTestClient(hub, "user-a")
	registerAndWait(t, hub, c)

	hub.unregister <- c
	require.Eventually(t, func() bool {
		return !hub.IsOnline("user-a")
	}, time.Second, time.Millisecond)

	// Send channel is closed so WritePump can exit.
	_, open := <-c.Send
	assert.False(t, open)
}

func TestEmitToUserConcurrentWithRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Emitting into a room while Run is rewriting it must stay race-free:
	// EmitToUser holds the read lock for the whole iteration.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.EmitToUser("user-a", "user-typing", map[string]interface{}{"sender_id": "user-b"})
		}
	}()

	for i := 0; i < 50; i++ {
		c := newTestClient(hub, "user-a")
		c.ID = c.ID + "-" + strconv.Itoa(i)
		hub.register <- c
	}
	<-done
}

func TestHubStaysResponsiveDuringPresenceBroadcast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hub := NewHub()
	hub.Bind(db, nil)
	go hub.Run()

	// The departing user's only friend has a socket that never drains, so the
	// presence fan-out hits the slow path while Run is handling the unregister.
	friend := newTestClient(hub, "user-b")
	friend.Send = make(chan []byte)
	registerAndWait(t, hub, friend)

	mock.ExpectQuery(regexp.QuoteMeta("FROM friendships WHERE user_lo = ? OR user_hi = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"friend_id"}).AddRow("user-b"))

	leaving := newTestClient(hub, "user-a")
	registerAndWait(t, hub, leaving)
	hub.unregister <- leaving

	// Run must keep servicing registrations while the broadcast is in flight.
	late := newTestClient(hub, "user-c")
	hub.register <- late
	require.Eventually(t, func() bool {
		return hub.IsOnline("user-c")
	}, time.Second, time.Millisecond)
}

func TestSendPongNeverBlocksReader(t *testing.T) {
	c := &Client{Send: make(chan []byte)}

	done := make(chan struct{})
	go func() {
		// Nothing drains Send, so the pong must be dropped, not queued.
		c.sendPong()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendPong must not block when the send buffer is full")
	}
}
