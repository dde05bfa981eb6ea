package gateway

import (
	"context"
	"encoding/json"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/hub"
	"github.com/parley-chat/parley/pkg/log"
)

// Broadcaster consumes the persisted topic and re-emits each event to
// the local connections subscribed to its room. Every gateway instance
// runs its own consumer group, so the topic fans out to all instances
// rather than being divided among them.
type Broadcaster struct {
	hub *hub.Hub
}

func NewBroadcaster(h *hub.Hub) *Broadcaster {
	return &Broadcaster{hub: h}
}

// Handle processes one persisted-topic record. Malformed payloads are
// logged and discarded; that is the documented policy for corrupt
// input, not a crash path. Repeated delivery of the same message id is
// a client display concern, so redelivered events are re-broadcast
// as-is.
func (b *Broadcaster) Handle(ctx context.Context, key, value []byte) error {
	l := log.L()

	var event domain.MessagePersistedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.Error().Err(err).Msg("discarding unparseable persisted event")
		return nil
	}
	if err := event.Validate(); err != nil {
		l.Error().Err(err).Msg("discarding invalid persisted event")
		return nil
	}

	frame := &domain.NewMessageFrame{
		Type:        domain.MsgTypeNewMessage,
		ID:          event.MessageID,
		RoomID:      event.RoomID,
		SenderID:    event.SenderID,
		ClientMsgID: event.ClientMsgID,
		MessageType: event.MessageType,
		Content:     event.Content,
		CreatedAt:   event.CreatedAt,
	}

	if err := b.hub.Broadcast(event.RoomID, frame); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("failed to broadcast persisted event")
		return nil
	}

	l.Debug().
		Str(log.FieldMessageID, event.MessageID).
		Str(log.FieldRoomID, event.RoomID).
		Int("local_clients", b.hub.RoomClientCount(event.RoomID)).
		Msg("persisted event broadcast")
	return nil
}
