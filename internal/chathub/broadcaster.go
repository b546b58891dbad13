package chathub

import (
	"log"
	"sort"
	"sync"

	"orderchat/backend/internal/models"
)

// membership is the per-connection room bookkeeping kept by the Registry.
type membership interface {
	trackRoom(connID, roomID string) bool
	untrackRoom(connID, roomID string)
	Rooms(connID string) []string
}

type room struct {
	mu    sync.Mutex
	conns map[string]Client
}

// Broadcaster maintains room membership and fans events out to every member of a room.
//
// Locks are always taken in the order Broadcaster.mu, then room.mu, and the room lock is held
// for the whole fan-out, so a join or leave is ordered strictly before or after a broadcast.
type Broadcaster struct {
	mu      sync.Mutex
	rooms   map[string]*room
	closed  map[string]struct{}
	members membership
}

// NewBroadcaster creates a Broadcaster that records membership in members.
func NewBroadcaster(members membership) *Broadcaster {
	return &Broadcaster{
		rooms:   make(map[string]*room),
		closed:  make(map[string]struct{}),
		members: members,
	}
}

// Join adds c to roomID and reports whether c is now a member. Connections that are not
// registered are never added. Authorization is the caller's job.
func (b *Broadcaster) Join(c Client, roomID string) bool {
	if roomID == "" || !b.members.trackRoom(c.ID(), roomID) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		r = &room{conns: make(map[string]Client)}
		b.rooms[roomID] = r
	}
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
	return true
}

// Leave removes c from roomID. A room is dropped once its last member leaves.
// It reports whether c was a member.
func (b *Broadcaster) Leave(c Client, roomID string) bool {
	b.mu.Lock()
	was := false
	if r, ok := b.rooms[roomID]; ok {
		r.mu.Lock()
		_, was = r.conns[c.ID()]
		delete(r.conns, c.ID())
		empty := len(r.conns) == 0
		r.mu.Unlock()
		if empty {
			delete(b.rooms, roomID)
		}
	}
	b.mu.Unlock()

	b.members.untrackRoom(c.ID(), roomID)
	return was
}

// LeaveAll removes c from every room it has joined and returns those rooms.
func (b *Broadcaster) LeaveAll(c Client) []string {
	rooms := b.members.Rooms(c.ID())
	for _, roomID := range rooms {
		b.Leave(c, roomID)
	}
	return rooms
}

// Broadcast delivers event to every current member of roomID and returns how many accepted
// it. Members whose Send fails are removed from the room.
func (b *Broadcaster) Broadcast(roomID string, event models.OutboundEvent) int {
	b.mu.Lock()
	r, ok := b.rooms[roomID]
	b.mu.Unlock()
	if !ok {
		return 0
	}

	var stale []Client
	delivered := 0

	r.mu.Lock()
	for _, c := range r.conns {
		if c.Send(event) {
			delivered++
			continue
		}
		stale = append(stale, c)
	}
	r.mu.Unlock()

	for _, c := range stale {
		log.Printf("WARNING: Dropping stale connection %s from room %s", c.ID(), roomID)
		b.Leave(c, roomID)
	}
	return delivered
}

// MarkClosed records that roomID no longer accepts messages.
func (b *Broadcaster) MarkClosed(roomID string) {
	b.mu.Lock()
	b.closed[roomID] = struct{}{}
	b.mu.Unlock()
}

// IsClosed reports whether roomID was marked closed.
func (b *Broadcaster) IsClosed(roomID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.closed[roomID]
	return ok
}

// Members returns the connection IDs currently in roomID, sorted.
func (b *Broadcaster) Members(roomID string) []string {
	b.mu.Lock()
	r, ok := b.rooms[roomID]
	b.mu.Unlock()

	ids := make([]string, 0)
	if !ok {
		return ids
	}
	r.mu.Lock()
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// RoomCount returns the number of rooms with at least one member.
func (b *Broadcaster) RoomCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms)
}
