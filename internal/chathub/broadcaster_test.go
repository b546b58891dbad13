package chathub_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderchat/backend/internal/chathub"
	"orderchat/backend/internal/models"
)

func newRooms(t *testing.T) (*chathub.Registry, *chathub.Broadcaster) {
	t.Helper()
	r := chathub.NewRegistry()
	return r, chathub.NewBroadcaster(r)
}

func ping(n int) models.OutboundEvent {
	return models.OutboundEvent{Type: models.EventNewMessage, Content: fmt.Sprint(n)}
}

func TestBroadcaster_DeliversToMembersOnly(t *testing.T) {
	reg, b := newRooms(t)
	a, c, outsider := newMockClient("a"), newMockClient("c"), newMockClient("o")
	reg.Register(alice, a)
	reg.Register(bob, c)
	reg.Register(admin, outsider)

	require.True(t, b.Join(a, "room1"))
	require.True(t, b.Join(c, "room1"))
	require.True(t, b.Join(outsider, "room2"))

	n := b.Broadcast("room1", ping(1))

	assert.Equal(t, 2, n)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, c.Events(), 1)
	assert.Empty(t, outsider.Events())
	assert.Equal(t, []string{"a", "c"}, b.Members("room1"))
	assert.Equal(t, []string{"room1"}, reg.Rooms("a"))
}

func TestBroadcaster_JoinRequiresRegistration(t *testing.T) {
	_, b := newRooms(t)
	assert.False(t, b.Join(newMockClient("x"), "room1"))
	assert.Equal(t, 0, b.RoomCount())
}

func TestBroadcaster_JoinIsIdempotent(t *testing.T) {
	reg, b := newRooms(t)
	a := newMockClient("a")
	reg.Register(alice, a)

	b.Join(a, "room1")
	b.Join(a, "room1")

	assert.Equal(t, 1, b.Broadcast("room1", ping(1)))
}

func TestBroadcaster_LeaveDropsEmptyRoom(t *testing.T) {
	reg, b := newRooms(t)
	a := newMockClient("a")
	reg.Register(alice, a)

	b.Join(a, "room1")
	assert.True(t, b.Leave(a, "room1"))
	assert.False(t, b.Leave(a, "room1"))

	assert.Equal(t, 0, b.RoomCount())
	assert.Equal(t, 0, b.Broadcast("room1", ping(1)))
	assert.Empty(t, reg.Rooms("a"))
}

func TestBroadcaster_LeaveAll(t *testing.T) {
	reg, b := newRooms(t)
	a, c := newMockClient("a"), newMockClient("c")
	reg.Register(alice, a)
	reg.Register(bob, c)

	b.Join(a, "room1")
	b.Join(a, "room2")
	b.Join(c, "room2")

	left := b.LeaveAll(a)

	assert.Equal(t, []string{"room1", "room2"}, left)
	assert.Equal(t, 1, b.RoomCount())
	assert.Equal(t, []string{"c"}, b.Members("room2"))
}

func TestBroadcaster_PrunesFailedMembers(t *testing.T) {
	reg, b := newRooms(t)
	slow := newMockClient("slow")
	slow.capacity = 1
	ok := newMockClient("ok")
	reg.Register(alice, slow)
	reg.Register(bob, ok)
	b.Join(slow, "room1")
	b.Join(ok, "room1")

	assert.Equal(t, 2, b.Broadcast("room1", ping(1)))
	assert.Equal(t, 1, b.Broadcast("room1", ping(2)))

	assert.Equal(t, []string{"ok"}, b.Members("room1"))
	assert.Len(t, ok.Events(), 2)
}

func TestBroadcaster_PreservesOrderPerProducer(t *testing.T) {
	reg, b := newRooms(t)
	a := newMockClient("a")
	reg.Register(alice, a)
	b.Join(a, "room1")

	for i := 0; i < 50; i++ {
		b.Broadcast("room1", ping(i))
	}

	events := a.Events()
	require.Len(t, events, 50)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprint(i), ev.Content)
	}
}

func TestBroadcaster_ClosedRooms(t *testing.T) {
	_, b := newRooms(t)
	assert.False(t, b.IsClosed("room1"))
	b.MarkClosed("room1")
	assert.True(t, b.IsClosed("room1"))
}

func TestBroadcaster_ConcurrentJoinLeaveBroadcast(t *testing.T) {
	reg, b := newRooms(t)
	const workers = 20

	clients := make([]*MockClient, workers)
	for i := range clients {
		clients[i] = newMockClient(fmt.Sprintf("c%d", i))
		reg.Register(alice, clients[i])
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(c *MockClient) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Join(c, "hot")
				b.Leave(c, "hot")
			}
			b.Join(c, "hot")
		}(clients[i])
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Broadcast("hot", ping(n))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, b.Members("hot"), workers)
	assert.Equal(t, workers, b.Broadcast("hot", ping(-1)))
	for _, c := range clients {
		assert.Equal(t, "-1", c.Last().Content)
	}
}
