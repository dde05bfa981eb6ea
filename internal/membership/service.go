package membership

import (
	"context"
	"errors"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/pkg/log"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrAlreadyMember = errors.New("already a member of this room")
)

// Service owns rooms and membership, fronted by the read-through cache.
type Service struct {
	rooms   repository.RoomRepository
	members repository.MemberRepository
	cache   Cache
}

func NewService(rooms repository.RoomRepository, members repository.MemberRepository, cache Cache) *Service {
	return &Service{
		rooms:   rooms,
		members: members,
		cache:   cache,
	}
}

// CreateRoom creates a room and auto-joins the creator.
func (s *Service) CreateRoom(ctx context.Context, userID, name string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	room := &domain.Room{Name: name}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	member := &domain.RoomMember{RoomID: room.ID, UserID: userID}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	l.Info().Str(log.FieldRoomID, room.ID).Str(log.FieldUserID, userID).Msg("room created")
	return room, nil
}

// Join writes the durable membership record and then explicitly deletes
// the cache entry, so the next IsMember reads fresh state instead of
// waiting out the TTL. After Join returns, IsMember never reports false
// for this pair.
func (s *Service) Join(ctx context.Context, roomID, userID string) (*domain.RoomMember, error) {
	l := log.Ctx(ctx)

	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	exists, err := s.members.Exists(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	member := &domain.RoomMember{RoomID: roomID, UserID: userID}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, roomID, userID); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to invalidate membership cache")
	}

	l.Info().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("user joined room")
	return member, nil
}

// IsMember is the read-through membership check. On a cache miss the
// durable record is consulted and the boolean written back with a short
// TTL. Cache errors degrade to a store read, never to a failure.
func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx, roomID, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("membership cache read failed")
	}

	exists, err := s.members.Exists(ctx, roomID, userID)
	if err != nil {
		return false, err
	}

	if cerr := s.cache.Set(ctx, roomID, userID, exists); cerr != nil {
		l.Warn().Err(cerr).Str(log.FieldRoomID, roomID).Msg("membership cache write failed")
	}
	return exists, nil
}

// MyRooms returns the caller's rooms, newest first.
func (s *Service) MyRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	ids, err := s.members.RoomIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Room{}, nil
	}
	return s.rooms.ListByIDs(ctx, ids)
}

// Members returns the member list of a room.
func (s *Service) Members(ctx context.Context, roomID string) ([]domain.RoomMember, error) {
	return s.members.ListByRoom(ctx, roomID)
}

// UpdateReadCursor moves the caller's last-read pointer.
func (s *Service) UpdateReadCursor(ctx context.Context, roomID, userID, lastReadMessageID string) error {
	return s.members.UpdateReadCursor(ctx, roomID, userID, lastReadMessageID)
}
