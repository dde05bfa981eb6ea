package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func validCreatedEvent() MessageCreatedEvent {
	return MessageCreatedEvent{
		EventID:     uuid.NewString(),
		RoomID:      uuid.NewString(),
		SenderID:    uuid.NewString(),
		ClientMsgID: uuid.NewString(),
		MessageType: MessageTypeText,
		Content:     "hello",
		ProducedAt:  "2026-08-31T12:00:00Z",
	}
}

func TestMessageCreatedEventValidate(t *testing.T) {
	e := validCreatedEvent()
	require.NoError(t, e.Validate())
}

func TestMessageCreatedEventValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MessageCreatedEvent)
	}{
		{"bad event id", func(e *MessageCreatedEvent) { e.EventID = "nope" }},
		{"bad room id", func(e *MessageCreatedEvent) { e.RoomID = "nope" }},
		{"bad sender id", func(e *MessageCreatedEvent) { e.SenderID = "" }},
		{"bad client msg id", func(e *MessageCreatedEvent) { e.ClientMsgID = "42" }},
		{"bad type", func(e *MessageCreatedEvent) { e.MessageType = "VIDEO" }},
		{"empty content", func(e *MessageCreatedEvent) { e.Content = "" }},
		{"oversized content", func(e *MessageCreatedEvent) {
			e.Content = strings.Repeat("a", MaxContentLength+1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validCreatedEvent()
			tt.mutate(&e)
			require.ErrorIs(t, e.Validate(), ErrInvalidEvent)
		})
	}
}

func TestMessagePersistedEventValidate(t *testing.T) {
	e := MessagePersistedEvent{
		MessageID:   ulid.Make().String(),
		RoomID:      uuid.NewString(),
		SenderID:    uuid.NewString(),
		ClientMsgID: uuid.NewString(),
		MessageType: MessageTypeText,
		Content:     "hello",
		CreatedAt:   "2026-08-31T12:00:00Z",
	}
	require.NoError(t, e.Validate())

	e.MessageID = "not-a-ulid"
	require.ErrorIs(t, e.Validate(), ErrInvalidEvent)
}
