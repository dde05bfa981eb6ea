package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/hub"
	"github.com/parley-chat/parley/internal/kafka"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/pkg/log"
)

// MembershipChecker is the membership view the gateway needs.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// Service implements the connection-side operations: presence upkeep,
// membership-gated joins, and turning accepted sends into intake
// events. Every operation returns an explicit result frame; rejections
// are data, not connection faults.
type Service struct {
	hub            *hub.Hub
	members        MembershipChecker
	presence       presence.Registry
	producer       kafka.Publisher
	instanceID     string
	publishTimeout time.Duration
}

func NewService(
	h *hub.Hub,
	members MembershipChecker,
	reg presence.Registry,
	producer kafka.Publisher,
	instanceID string,
	publishTimeout time.Duration,
) *Service {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &Service{
		hub:            h,
		members:        members,
		presence:       reg,
		producer:       producer,
		instanceID:     instanceID,
		publishTimeout: publishTimeout,
	}
}

// HandleConnect registers presence for a freshly authenticated
// connection. Presence failures never block the connection.
func (s *Service) HandleConnect(ctx context.Context, c *hub.Client) {
	if err := s.presence.SetOnline(ctx, c.UserID, s.instanceID, c.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, c.UserID).Msg("failed to set presence online")
	}
}

// HandleDisconnect removes the connection's presence entry. When it was
// the user's last connection the user reads as offline immediately.
func (s *Service) HandleDisconnect(ctx context.Context, c *hub.Client) {
	if err := s.presence.SetOffline(ctx, c.UserID, c.ID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, c.UserID).Msg("failed to set presence offline")
	}
}

// HandleHeartbeat extends the presence freshness deadline.
func (s *Service) HandleHeartbeat(ctx context.Context, c *hub.Client) *domain.HeartbeatAckFrame {
	if err := s.presence.RefreshTTL(ctx, c.UserID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, c.UserID).Msg("failed to refresh presence ttl")
	}
	return &domain.HeartbeatAckFrame{Type: domain.MsgTypeHeartbeatAck}
}

// HandleJoinRoom gates the subscription on membership. Non-members get
// a rejection result and keep their connection.
func (s *Service) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) *domain.JoinResultFrame {
	l := log.Ctx(ctx)

	if _, err := uuid.Parse(roomID); err != nil {
		return &domain.JoinResultFrame{
			Type:   domain.MsgTypeJoinResult,
			RoomID: roomID,
			Error:  "invalid room id",
		}
	}

	isMember, err := s.members.IsMember(ctx, roomID, c.UserID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("membership check failed")
		return &domain.JoinResultFrame{
			Type:   domain.MsgTypeJoinResult,
			RoomID: roomID,
			Error:  "membership check failed",
		}
	}
	if !isMember {
		return &domain.JoinResultFrame{
			Type:   domain.MsgTypeJoinResult,
			RoomID: roomID,
			Error:  "not a member of this room",
		}
	}

	s.hub.JoinRoom(c, roomID)
	return &domain.JoinResultFrame{
		Type:    domain.MsgTypeJoinResult,
		RoomID:  roomID,
		Success: true,
	}
}

// HandleLeaveRoom unsubscribes the connection from a room.
func (s *Service) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) {
	s.hub.LeaveRoom(c, roomID)
}

// HandleSendMessage validates the frame, gates on membership, and
// publishes a MessageCreated event keyed by room id. ACCEPTED means
// accepted for processing; a FAILED ack echoes the idempotency token so
// the client can retry safely.
func (s *Service) HandleSendMessage(ctx context.Context, c *hub.Client, frame *domain.SendMessageFrame) *domain.AckFrame {
	l := log.Ctx(ctx)

	if err := frame.Validate(); err != nil {
		return &domain.AckFrame{
			Type:        domain.MsgTypeAck,
			ClientMsgID: frame.ClientMsgID,
			Status:      domain.AckFailed,
			Error:       err.Error(),
		}
	}

	isMember, err := s.members.IsMember(ctx, frame.RoomID, c.UserID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, frame.RoomID).Msg("membership check failed")
		return &domain.AckFrame{
			Type:        domain.MsgTypeAck,
			ClientMsgID: frame.ClientMsgID,
			Status:      domain.AckFailed,
			Error:       "membership check failed",
		}
	}
	if !isMember {
		return &domain.AckFrame{
			Type:        domain.MsgTypeAck,
			ClientMsgID: frame.ClientMsgID,
			Status:      domain.AckFailed,
			Error:       "not a member of this room",
		}
	}

	event := &domain.MessageCreatedEvent{
		EventID:     uuid.New().String(),
		RoomID:      frame.RoomID,
		SenderID:    c.UserID,
		ClientMsgID: frame.ClientMsgID,
		MessageType: frame.MessageType,
		Content:     frame.Content,
		ProducedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return &domain.AckFrame{
			Type:        domain.MsgTypeAck,
			ClientMsgID: frame.ClientMsgID,
			Status:      domain.AckFailed,
			Error:       "internal error",
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.producer.Publish(pubCtx, domain.TopicMessages, event.RoomID, value); err != nil {
		l.Error().Err(err).
			Str(log.FieldRoomID, frame.RoomID).
			Str(log.FieldClientMsgID, frame.ClientMsgID).
			Msg("failed to publish message created event")
		return &domain.AckFrame{
			Type:        domain.MsgTypeAck,
			ClientMsgID: frame.ClientMsgID,
			Status:      domain.AckFailed,
			Error:       "message delivery failed",
		}
	}

	l.Debug().
		Str(log.FieldEventID, event.EventID).
		Str(log.FieldRoomID, event.RoomID).
		Msg("message accepted for processing")
	return &domain.AckFrame{
		Type:        domain.MsgTypeAck,
		ClientMsgID: frame.ClientMsgID,
		Status:      domain.AckAccepted,
	}
}
