package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/kafka"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/pkg/log"
)

// Persistor is the exactly-once-effect boundary: it consumes intake
// events, deduplicates through the store's uniqueness constraint, and
// republishes persisted notifications. Intake events for one room all
// arrive on one partition in publish order, so per-room persist order
// matches per-room publish order.
type Persistor struct {
	messages       repository.MessageRepository
	producer       kafka.Publisher
	idgen          *MessageIDGenerator
	publishTimeout time.Duration
}

func NewPersistor(messages repository.MessageRepository, producer kafka.Publisher, publishTimeout time.Duration) *Persistor {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &Persistor{
		messages:       messages,
		producer:       producer,
		idgen:          NewMessageIDGenerator(),
		publishTimeout: publishTimeout,
	}
}

// Handle processes one intake record. Returning nil acknowledges it;
// returning an error forces redelivery. Unparseable or invalid records
// are logged and acknowledged — that is the documented data-loss policy
// for corrupt input. Duplicates are a successful no-op: no second row,
// no pointer update, no second notification.
func (p *Persistor) Handle(ctx context.Context, key, value []byte) error {
	l := log.Ctx(ctx)

	var event domain.MessageCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.Error().Err(err).Msg("discarding unparseable intake event")
		return nil
	}
	if err := event.Validate(); err != nil {
		l.Error().Err(err).Str(log.FieldEventID, event.EventID).Msg("discarding invalid intake event")
		return nil
	}

	id, err := p.idgen.Next()
	if err != nil {
		return err
	}

	msg := &domain.Message{
		ID:          id,
		RoomID:      event.RoomID,
		SenderID:    event.SenderID,
		ClientMsgID: event.ClientMsgID,
		Type:        event.MessageType,
		Content:     event.Content,
		CreatedAt:   time.Now().UTC(),
	}

	persisted, err := p.messages.PersistNew(ctx, msg)
	if err != nil {
		// Not acknowledged: the broker redelivers and we retry until
		// it succeeds or an operator intervenes.
		return fmt.Errorf("persist failed: %w", err)
	}

	if !persisted {
		return nil
	}

	if err := p.publishPersisted(ctx, msg); err != nil {
		// The row is committed; redelivery will hit the duplicate path
		// and stop there. At-least-once on this hop is acceptable, lost
		// notifications are recovered by the catch-up query.
		return fmt.Errorf("publish persisted event failed: %w", err)
	}

	return nil
}

func (p *Persistor) publishPersisted(ctx context.Context, msg *domain.Message) error {
	event := &domain.MessagePersistedEvent{
		MessageID:   msg.ID,
		RoomID:      msg.RoomID,
		SenderID:    msg.SenderID,
		ClientMsgID: msg.ClientMsgID,
		MessageType: msg.Type,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt.Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	return p.producer.Publish(pubCtx, domain.TopicMessagesPersisted, event.RoomID, value)
}
