package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID uuid.UUID, buffer int) *Client {
	return &Client{
		userID: userID,
		connID: uuid.New(),
		send:   make(chan []byte, buffer),
	}
}

func TestRegistryOnlineTransitions(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	first := newTestClient(userID, 8)
	second := newTestClient(userID, 8)

	assert.False(t, registry.IsOnline(userID))

	assert.True(t, registry.Add(first), "first connection should come online")
	assert.False(t, registry.Add(second), "second connection should not re-transition")
	assert.True(t, registry.IsOnline(userID))
	assert.Equal(t, 2, registry.ConnectionCount(userID))

	assert.False(t, registry.Remove(first), "one connection remains")
	assert.True(t, registry.IsOnline(userID))

	assert.True(t, registry.Remove(second), "last connection should go offline")
	assert.False(t, registry.IsOnline(userID))
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(uuid.New(), 8)

	registry.Add(client)
	assert.True(t, registry.Remove(client))
	assert.False(t, registry.Remove(client), "second remove must be a no-op")
	assert.False(t, registry.Remove(newTestClient(uuid.New(), 8)), "unknown client must be a no-op")
}

func TestRegistrySendToAllConnections(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	first := newTestClient(userID, 8)
	second := newTestClient(userID, 8)
	registry.Add(first)
	registry.Add(second)

	delivered := registry.SendTo(userID, []byte(`{"type":"pong"}`))
	assert.Equal(t, 2, delivered)

	require.Len(t, first.send, 1)
	require.Len(t, second.send, 1)
	assert.JSONEq(t, `{"type":"pong"}`, string(<-first.send))
}

func TestRegistrySendToOfflineUser(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, 0, registry.SendTo(uuid.New(), []byte("x")))
}

func TestRegistryDropsSlowConsumer(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	healthy := newTestClient(userID, 8)
	stuck := newTestClient(userID, 1)
	registry.Add(healthy)
	registry.Add(stuck)

	// Fill the stuck client's buffer so the next enqueue fails
	stuck.send <- []byte("backlog")

	delivered := registry.SendTo(userID, []byte("payload"))
	assert.Equal(t, 1, delivered)

	assert.Equal(t, 1, registry.ConnectionCount(userID), "stuck client must be evicted")
	assert.True(t, registry.IsOnline(userID), "healthy connection keeps the user online")

	// Eviction closed the stuck client's channel
	_, open := <-stuck.send
	assert.True(t, open, "backlog frame still readable")
	_, open = <-stuck.send
	assert.False(t, open, "channel must be closed after eviction")
}

func TestRegistryOnlineUsers(t *testing.T) {
	registry := NewRegistry()
	alice := uuid.New()
	bob := uuid.New()

	registry.Add(newTestClient(alice, 8))
	registry.Add(newTestClient(bob, 8))

	online := registry.OnlineUsers()
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, online)
}

func TestRegistryBroadcast(t *testing.T) {
	registry := NewRegistry()
	alice := newTestClient(uuid.New(), 8)
	bob := newTestClient(uuid.New(), 8)
	registry.Add(alice)
	registry.Add(bob)

	registry.Broadcast([]byte("hello"))

	assert.Len(t, alice.send, 1)
	assert.Len(t, bob.send, 1)
}

func TestClientEnqueueAfterClose(t *testing.T) {
	client := newTestClient(uuid.New(), 8)
	client.close()
	assert.False(t, client.enqueue([]byte("late")), "enqueue after close must fail, not panic")
	client.close() // second close must not panic
}
