package chathub

import "orderchat/backend/internal/models"

// Client is one live realtime connection as seen by the hub.
// It hides the transport so the registry and broadcaster can be exercised without sockets.
type Client interface {
	// ID returns the opaque connection handle. It is unique per connection, not per user.
	ID() string
	// Send queues an event for delivery without blocking. It returns false when the
	// connection is closed or cannot keep up; such a connection is being torn down.
	Send(event models.OutboundEvent) bool
	// Close shuts the connection down. It is safe to call more than once.
	Close()
}
