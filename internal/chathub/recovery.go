package chathub

import (
	"context"
	"log"

	"orderchat/backend/internal/models"
)

// rejoinRooms joins a freshly authenticated connection to every active room it may access
// and reports the result. A store failure is reported to the connection, which stays open.
func (m *ManagerService) rejoinRooms(ctx context.Context, s *Session) []string {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	chats, err := m.store.FindActiveRooms(sctx)
	if err != nil {
		log.Printf("ERROR: Rejoin lookup failed for %s: %v", s.identity.Email, err)
		s.client.Send(errorEvent(newEventError(ErrStoreFailure, "Error rejoining rooms"), ""))
		return nil
	}

	for i := range chats {
		chat := &chats[i]
		m.indexOrder(chat.OrderID, chat.ID)
		if m.Rooms.IsClosed(chat.ID) || !canAccess(s.identity, chat) {
			continue
		}
		m.Rooms.Join(s.client, chat.ID)
	}

	rooms := m.Registry.Rooms(s.client.ID())
	s.client.Send(models.OutboundEvent{
		Type: models.EventRejoinedRooms,
		Data: models.RoomList{Rooms: rooms},
	})
	return rooms
}
