package domain

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageType enumerates message content kinds.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// MaxContentLength bounds message bodies at the ingress boundary.
const MaxContentLength = 5000

var ErrInvalidMessageID = errors.New("invalid message id")

// ValidType reports whether t is a type a client may submit.
// SYSTEM messages are produced server-side only.
func (t MessageType) ValidType() bool {
	return t == MessageTypeText || t == MessageTypeImage
}

// Message is an immutable, durably stored chat message. The id is a
// server-assigned ULID so ids sort lexically in creation order within a
// room. The (RoomID, SenderID, ClientMsgID) triple is the sole
// deduplication key.
type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	SenderID    string      `json:"sender_id"`
	ClientMsgID string      `json:"client_msg_id"`
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MessageQuery describes a catch-up page over a room's messages.
// Before and After are ULID cursors; an empty cursor means unbounded.
type MessageQuery struct {
	Before string
	After  string
	Limit  int
}

// Normalize validates cursors and clamps the page size.
func (q *MessageQuery) Normalize() error {
	if q.Before != "" {
		if _, err := ulid.Parse(q.Before); err != nil {
			return ErrInvalidMessageID
		}
	}
	if q.After != "" {
		if _, err := ulid.Parse(q.After); err != nil {
			return ErrInvalidMessageID
		}
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
