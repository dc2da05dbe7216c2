package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoomsJoinLeave(t *testing.T) {
	rooms := NewRooms()
	conversation := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	rooms.Join(conversation, alice)
	rooms.Join(conversation, alice) // idempotent
	rooms.Join(conversation, bob)

	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, rooms.Members(conversation))
	assert.True(t, rooms.IsMember(conversation, alice))

	rooms.Leave(conversation, alice)
	assert.False(t, rooms.IsMember(conversation, alice))
	assert.ElementsMatch(t, []uuid.UUID{bob}, rooms.Members(conversation))

	rooms.Leave(conversation, alice) // idempotent
	rooms.Leave(uuid.New(), bob)     // unknown room is a no-op
}

func TestRoomsLeaveAll(t *testing.T) {
	rooms := NewRooms()
	alice := uuid.New()
	first := uuid.New()
	second := uuid.New()

	rooms.Join(first, alice)
	rooms.Join(second, alice)
	rooms.Join(second, uuid.New())

	rooms.LeaveAll(alice)

	assert.False(t, rooms.IsMember(first, alice))
	assert.False(t, rooms.IsMember(second, alice))
	assert.Len(t, rooms.Members(second), 1, "other members must survive")
	assert.Empty(t, rooms.Members(first))
}

func TestRoomsMembersEmptyRoom(t *testing.T) {
	rooms := NewRooms()
	assert.Empty(t, rooms.Members(uuid.New()))
	assert.False(t, rooms.IsMember(uuid.New(), uuid.New()))
}
