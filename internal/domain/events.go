package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Kafka topic and consumer group names shared by the gateway and the
// persistence worker.
const (
	TopicMessages          = "chat.messages.v1"
	TopicMessagesPersisted = "chat.messages.persisted.v1"

	GroupPersistor       = "chat-persistor"
	GroupBroadcastPrefix = "chat-broadcast"
)

var ErrInvalidEvent = errors.New("invalid event")

// MessageCreatedEvent is the intake-topic representation of an accepted
// but not yet persisted message. EventID exists for producer-side
// idempotence; deduplication is the (RoomID, SenderID, ClientMsgID)
// uniqueness constraint at the store.
type MessageCreatedEvent struct {
	EventID     string      `json:"event_id"`
	RoomID      string      `json:"room_id"`
	SenderID    string      `json:"sender_id"`
	ClientMsgID string      `json:"client_msg_id"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	ProducedAt  string      `json:"produced_at"`
}

// Validate is called once at the consume boundary; after it passes the
// event flows through the worker as an immutable record.
func (e *MessageCreatedEvent) Validate() error {
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("%w: event_id: %v", ErrInvalidEvent, err)
	}
	if _, err := uuid.Parse(e.RoomID); err != nil {
		return fmt.Errorf("%w: room_id: %v", ErrInvalidEvent, err)
	}
	if _, err := uuid.Parse(e.SenderID); err != nil {
		return fmt.Errorf("%w: sender_id: %v", ErrInvalidEvent, err)
	}
	if _, err := uuid.Parse(e.ClientMsgID); err != nil {
		return fmt.Errorf("%w: client_msg_id: %v", ErrInvalidEvent, err)
	}
	switch e.MessageType {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
	default:
		return fmt.Errorf("%w: message_type %q", ErrInvalidEvent, e.MessageType)
	}
	if e.Content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidEvent)
	}
	if len(e.Content) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidEvent, MaxContentLength)
	}
	return nil
}

// MessagePersistedEvent is the persisted-topic representation of a
// durably stored message, carrying the assigned ULID.
type MessagePersistedEvent struct {
	MessageID   string      `json:"message_id"`
	RoomID      string      `json:"room_id"`
	SenderID    string      `json:"sender_id"`
	ClientMsgID string      `json:"client_msg_id"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	CreatedAt   string      `json:"created_at"`
}

func (e *MessagePersistedEvent) Validate() error {
	if _, err := ulid.Parse(e.MessageID); err != nil {
		return fmt.Errorf("%w: message_id: %v", ErrInvalidEvent, err)
	}
	if _, err := uuid.Parse(e.RoomID); err != nil {
		return fmt.Errorf("%w: room_id: %v", ErrInvalidEvent, err)
	}
	if _, err := uuid.Parse(e.SenderID); err != nil {
		return fmt.Errorf("%w: sender_id: %v", ErrInvalidEvent, err)
	}
	if e.Content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidEvent)
	}
	return nil
}
