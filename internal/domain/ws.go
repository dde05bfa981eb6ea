package domain

import "github.com/google/uuid"

// WebSocket message types from client.
const (
	MsgTypeJoinRoom    = "join_room"
	MsgTypeLeaveRoom   = "leave_room"
	MsgTypeSendMessage = "send_message"
	MsgTypeHeartbeat   = "heartbeat"
)

// WebSocket message types to client.
const (
	MsgTypeJoinResult   = "join_result"
	MsgTypeAck          = "ack"
	MsgTypeNewMessage   = "new_message"
	MsgTypeHeartbeatAck = "heartbeat_ack"
	MsgTypeError        = "error"
)

// Ack statuses. ACCEPTED means accepted for processing, not persisted.
const (
	AckAccepted = "ACCEPTED"
	AckFailed   = "FAILED"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotMember     = "NOT_A_MEMBER"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Envelope is the base structure for all WebSocket frames.
type Envelope struct {
	Type string `json:"type"`
}

// Client -> Server frames

type JoinRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type LeaveRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// SendMessageFrame carries a client send. ClientMsgID is the caller's
// idempotency token; resubmitting the same one is always safe.
type SendMessageFrame struct {
	Type        string      `json:"type"`
	RoomID      string      `json:"room_id"`
	ClientMsgID string      `json:"client_msg_id"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
}

// Validate checks frame shape at the connection boundary. Defaults the
// message type to TEXT like the original wire contract.
func (f *SendMessageFrame) Validate() error {
	if _, err := uuid.Parse(f.RoomID); err != nil {
		return errInvalidField("room_id")
	}
	if _, err := uuid.Parse(f.ClientMsgID); err != nil {
		return errInvalidField("client_msg_id")
	}
	if f.MessageType == "" {
		f.MessageType = MessageTypeText
	}
	if !f.MessageType.ValidType() {
		return errInvalidField("message_type")
	}
	if f.Content == "" || len(f.Content) > MaxContentLength {
		return errInvalidField("content")
	}
	return nil
}

type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "invalid field: " + e.Field
}

func errInvalidField(field string) error {
	return &ValidationError{Field: field}
}

// Server -> Client frames

type JoinResultFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AckFrame acknowledges a send_message frame. The client's idempotency
// token is always echoed so a FAILED ack can be retried safely.
type AckFrame struct {
	Type        string `json:"type"`
	ClientMsgID string `json:"client_msg_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

type NewMessageFrame struct {
	Type        string      `json:"type"`
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	SenderID    string      `json:"sender_id"`
	ClientMsgID string      `json:"client_msg_id"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	CreatedAt   string      `json:"created_at"`
}

type HeartbeatAckFrame struct {
	Type string `json:"type"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
