package chathub

import (
	"context"
	"log"
)

// RoomClosedSource delivers IDs of rooms closed by another process.
type RoomClosedSource interface {
	SubscribeRoomClosed(ctx context.Context) (<-chan string, error)
}

// StartPubSubListener subscribes to room-closed notices and relays each one to the members
// of the room until ctx is done.
func (m *ManagerService) StartPubSubListener(ctx context.Context, src RoomClosedSource) error {
	notices, err := src.SubscribeRoomClosed(ctx)
	if err != nil {
		return err
	}
	go m.ListenRoomClosed(ctx, notices)
	return nil
}

// ListenRoomClosed calls NotifyRoomClosed for every ID received on notices. It returns when
// ctx is done or notices is closed.
func (m *ManagerService) ListenRoomClosed(ctx context.Context, notices <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case chatID, ok := <-notices:
			if !ok {
				log.Println("INFO: Room-closed subscription ended")
				return
			}
			m.NotifyRoomClosed(chatID)
		}
	}
}
