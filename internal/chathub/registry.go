package chathub

import (
	"sort"
	"strings"
	"sync"

	"orderchat/backend/internal/auth"
)

// registration is everything the registry knows about one connection.
type registration struct {
	client   Client
	identity auth.Identity
	emails   map[string]struct{}
	rooms    map[string]struct{}
}

// Registry owns the set of live connections: the identity behind each one, the rooms each
// one has joined, and the email -> connection index used for targeted routing.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*registration // connection ID -> registration
	byEmail map[string]Client        // email -> current connection
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*registration),
		byEmail: make(map[string]Client),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register records c as the current connection for identity's email. A later registration
// for the same email supersedes the earlier one. Re-registering a known connection keeps its
// first identity and rooms.
func (r *Registry) Register(identity auth.Identity, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[c.ID()]
	if !ok {
		reg = &registration{
			client:   c,
			identity: identity,
			emails:   make(map[string]struct{}),
			rooms:    make(map[string]struct{}),
		}
		r.conns[c.ID()] = reg
	}
	r.bindLocked(reg, identity.Email)
}

// BindEmail makes c the current connection for email. It returns false if c is not a
// registered connection.
func (r *Registry) BindEmail(email string, c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[c.ID()]
	if !ok {
		return false
	}
	r.bindLocked(reg, email)
	return true
}

func (r *Registry) bindLocked(reg *registration, email string) {
	email = normalizeEmail(email)
	if email == "" {
		return
	}
	if prev, ok := r.byEmail[email]; ok && prev.ID() != reg.client.ID() {
		if prevReg, ok := r.conns[prev.ID()]; ok {
			delete(prevReg.emails, email)
		}
	}
	r.byEmail[email] = reg.client
	reg.emails[email] = struct{}{}
}

// LookupByEmail returns the current connection for email.
func (r *Registry) LookupByEmail(email string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byEmail[normalizeEmail(email)]
	return c, ok
}

// Identity returns the authenticated identity of a registered connection.
func (r *Registry) Identity(c Client) (auth.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.conns[c.ID()]
	if !ok {
		return auth.Identity{}, false
	}
	return reg.identity, true
}

// Unregister removes c from every index. Emails that were since taken over by a newer
// connection are left alone.
func (r *Registry) Unregister(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[c.ID()]
	if !ok {
		return
	}
	for email := range reg.emails {
		if cur, ok := r.byEmail[email]; ok && cur.ID() == c.ID() {
			delete(r.byEmail, email)
		}
	}
	delete(r.conns, c.ID())
}

// AdminHolders returns the connections currently indexed under an admin's email.
func (r *Registry) AdminHolders() map[string]Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Client)
	for email, c := range r.byEmail {
		if reg, ok := r.conns[c.ID()]; ok && reg.identity.IsAdmin() {
			out[email] = c
		}
	}
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Rooms returns the rooms connID has joined, sorted.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0)
	if reg, ok := r.conns[connID]; ok {
		for room := range reg.rooms {
			rooms = append(rooms, room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// IsMember reports whether connID has joined roomID.
func (r *Registry) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, ok = reg.rooms[roomID]
	return ok
}

func (r *Registry) trackRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[connID]
	if !ok {
		return false
	}
	reg.rooms[roomID] = struct{}{}
	return true
}

func (r *Registry) untrackRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg, ok := r.conns[connID]; ok {
		delete(reg.rooms, roomID)
	}
}
