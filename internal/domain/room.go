package domain

import "time"

// Room is a chat room. LastMessageID and LastMessageAt are denormalized
// pointers maintained by the persistence worker so room lists sort
// without a join against messages.
type Room struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageID *string    `json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// RoomMember is a (room, user) membership record. LastReadMessageID is
// client-driven and not validated against message ordering.
type RoomMember struct {
	RoomID            string    `json:"room_id"`
	UserID            string    `json:"user_id"`
	JoinedAt          time.Time `json:"joined_at"`
	LastReadMessageID *string   `json:"last_read_message_id,omitempty"`
}

// CreateRoomRequest is the payload for creating a room.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// UpdateReadCursorRequest moves the caller's read cursor in a room.
type UpdateReadCursorRequest struct {
	LastReadMessageID string `json:"last_read_message_id" binding:"required"`
}
