package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/hub"
	"github.com/parley-chat/parley/internal/presence"
)

type fakeMembership struct {
	members map[string]bool
	err     error
}

func (f *fakeMembership) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[roomID+"/"+userID], nil
}

type fakeRegistry struct {
	online    map[string]bool
	refreshed int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{online: map[string]bool{}}
}

func (f *fakeRegistry) SetOnline(ctx context.Context, userID, instanceID, connID string) error {
	f.online[userID] = true
	return nil
}

func (f *fakeRegistry) SetOffline(ctx context.Context, userID, connID string) error {
	delete(f.online, userID)
	return nil
}

func (f *fakeRegistry) RefreshTTL(ctx context.Context, userID string) error {
	f.refreshed++
	return nil
}

func (f *fakeRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	return f.online[userID], nil
}

func (f *fakeRegistry) Close() error { return nil }

var _ presence.Registry = (*fakeRegistry)(nil)

type publishedRecord struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	published []publishedRecord
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedRecord{topic: topic, key: key, value: value})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type testEnv struct {
	svc      *Service
	hub      *hub.Hub
	members  *fakeMembership
	registry *fakeRegistry
	producer *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	h := hub.NewHub()
	go h.Run()

	members := &fakeMembership{members: map[string]bool{}}
	registry := newFakeRegistry()
	producer := &fakePublisher{}

	return &testEnv{
		svc:      NewService(h, members, registry, producer, "instance-1", time.Second),
		hub:      h,
		members:  members,
		registry: registry,
		producer: producer,
	}
}

func (e *testEnv) newClient(userID string) *hub.Client {
	c := hub.NewClient(uuid.NewString(), userID, e.hub, nil, hub.PumpConfig{})
	e.hub.Register(c)
	return c
}

func validSendFrame(roomID string) *domain.SendMessageFrame {
	return &domain.SendMessageFrame{
		Type:        domain.MsgTypeSendMessage,
		RoomID:      roomID,
		ClientMsgID: uuid.NewString(),
		MessageType: domain.MessageTypeText,
		Content:     "hello",
	}
}

func TestHandleSendMessageAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := uuid.NewString()
	env.members.members[roomID+"/alice"] = true

	c := env.newClient("alice")
	frame := validSendFrame(roomID)

	ack := env.svc.HandleSendMessage(ctx, c, frame)
	require.Equal(t, domain.AckAccepted, ack.Status)
	require.Equal(t, frame.ClientMsgID, ack.ClientMsgID)
	require.Empty(t, ack.Error)

	require.Len(t, env.producer.published, 1)
	rec := env.producer.published[0]
	require.Equal(t, domain.TopicMessages, rec.topic)
	require.Equal(t, roomID, rec.key)

	var event domain.MessageCreatedEvent
	require.NoError(t, json.Unmarshal(rec.value, &event))
	require.NoError(t, event.Validate())
	require.Equal(t, "alice", event.SenderID)
	require.Equal(t, frame.ClientMsgID, event.ClientMsgID)
	require.Equal(t, frame.Content, event.Content)
}

func TestHandleSendMessageNonMemberRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient("alice")

	ack := env.svc.HandleSendMessage(context.Background(), c, validSendFrame(uuid.NewString()))
	require.Equal(t, domain.AckFailed, ack.Status)
	require.NotEmpty(t, ack.ClientMsgID)
	require.Empty(t, env.producer.published)
}

func TestHandleSendMessageInvalidFrame(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient("alice")

	frame := validSendFrame(uuid.NewString())
	frame.Content = ""

	ack := env.svc.HandleSendMessage(context.Background(), c, frame)
	require.Equal(t, domain.AckFailed, ack.Status)
	require.Equal(t, frame.ClientMsgID, ack.ClientMsgID)
	require.Empty(t, env.producer.published)
}

func TestHandleSendMessagePublishFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := uuid.NewString()
	env.members.members[roomID+"/alice"] = true
	env.producer.err = errors.New("broker down")

	c := env.newClient("alice")
	frame := validSendFrame(roomID)

	ack := env.svc.HandleSendMessage(ctx, c, frame)
	require.Equal(t, domain.AckFailed, ack.Status)
	require.Equal(t, frame.ClientMsgID, ack.ClientMsgID)
}

func TestHandleJoinRoomMemberGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := uuid.NewString()
	c := env.newClient("alice")

	result := env.svc.HandleJoinRoom(ctx, c, roomID)
	require.False(t, result.Success)
	require.Equal(t, 0, env.hub.RoomClientCount(roomID))

	env.members.members[roomID+"/alice"] = true
	result = env.svc.HandleJoinRoom(ctx, c, roomID)
	require.True(t, result.Success)
	require.Equal(t, 1, env.hub.RoomClientCount(roomID))
}

func TestHandleJoinRoomInvalidID(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient("alice")

	result := env.svc.HandleJoinRoom(context.Background(), c, "not-a-uuid")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestConnectLifecyclePresence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.newClient("alice")

	env.svc.HandleConnect(ctx, c)
	require.True(t, env.registry.online["alice"])

	ack := env.svc.HandleHeartbeat(ctx, c)
	require.Equal(t, domain.MsgTypeHeartbeatAck, ack.Type)
	require.Equal(t, 1, env.registry.refreshed)

	env.svc.HandleDisconnect(ctx, c)
	require.False(t, env.registry.online["alice"])
}

func TestBroadcasterDeliversToSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	roomID := uuid.NewString()
	env.members.members[roomID+"/alice"] = true

	c := env.newClient("alice")
	require.True(t, env.svc.HandleJoinRoom(ctx, c, roomID).Success)

	b := NewBroadcaster(env.hub)
	event := domain.MessagePersistedEvent{
		MessageID:   ulid.Make().String(),
		RoomID:      roomID,
		SenderID:    uuid.NewString(),
		ClientMsgID: uuid.NewString(),
		MessageType: domain.MessageTypeText,
		Content:     "hello",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, b.Handle(ctx, []byte(roomID), value))

	select {
	case payload := <-c.Send:
		var frame domain.NewMessageFrame
		require.NoError(t, json.Unmarshal(payload, &frame))
		require.Equal(t, domain.MsgTypeNewMessage, frame.Type)
		require.Equal(t, event.MessageID, frame.ID)
		require.Equal(t, event.Content, frame.Content)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast frame")
	}
}

func TestBroadcasterDiscardsMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	b := NewBroadcaster(env.hub)

	require.NoError(t, b.Handle(context.Background(), nil, []byte("{not json")))
}
