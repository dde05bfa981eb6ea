package domain

import (
	"time"
)

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	Name          string    `gorm:"type:varchar(100);not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	LastMessageID *string   `gorm:"type:varchar(26)"`
	LastMessageAt *time.Time
}

func (RoomModel) TableName() string {
	return "rooms"
}

func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:            m.ID,
		Name:          m.Name,
		CreatedAt:     m.CreatedAt,
		LastMessageID: m.LastMessageID,
		LastMessageAt: m.LastMessageAt,
	}
}

func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:            r.ID,
		Name:          r.Name,
		CreatedAt:     r.CreatedAt,
		LastMessageID: r.LastMessageID,
		LastMessageAt: r.LastMessageAt,
	}
}

// RoomMemberModel is the GORM model for the room_members table.
type RoomMemberModel struct {
	RoomID            string    `gorm:"type:varchar(36);primaryKey"`
	UserID            string    `gorm:"type:varchar(36);primaryKey"`
	JoinedAt          time.Time `gorm:"autoCreateTime"`
	LastReadMessageID *string   `gorm:"type:varchar(26)"`
}

func (RoomMemberModel) TableName() string {
	return "room_members"
}

func (m *RoomMemberModel) ToDomain() *RoomMember {
	return &RoomMember{
		RoomID:            m.RoomID,
		UserID:            m.UserID,
		JoinedAt:          m.JoinedAt,
		LastReadMessageID: m.LastReadMessageID,
	}
}

// MessageModel is the GORM model for the messages table. The unique
// index on (room_id, sender_id, client_msg_id) is the dedup constraint
// the persistence worker relies on; the (room_id, id) index serves the
// catch-up query.
type MessageModel struct {
	ID          string    `gorm:"type:varchar(26);primaryKey;index:idx_messages_room_id,priority:2"`
	RoomID      string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_messages_dedup;index:idx_messages_room_id,priority:1"`
	SenderID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_messages_dedup"`
	ClientMsgID string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_messages_dedup"`
	Type        string    `gorm:"type:varchar(20);not null;default:'TEXT'"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		ClientMsgID: m.ClientMsgID,
		Type:        MessageType(m.Type),
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		SenderID:    msg.SenderID,
		ClientMsgID: msg.ClientMsgID,
		Type:        string(msg.Type),
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	}
}
