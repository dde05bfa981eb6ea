package gateway

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/membership"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/pkg/log"
	"github.com/parley-chat/parley/pkg/response"
)

// HTTPHandler serves the room, message catch-up and presence API.
type HTTPHandler struct {
	membership     *membership.Service
	messages       repository.MessageRepository
	presence       presence.Registry
	authMiddleware *auth.Middleware
}

func NewHTTPHandler(
	ms *membership.Service,
	messages repository.MessageRepository,
	reg presence.Registry,
	authMiddleware *auth.Middleware,
) *HTTPHandler {
	return &HTTPHandler{
		membership:     ms,
		messages:       messages,
		presence:       reg,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware.RequireAuth())
	{
		rooms := api.Group("/rooms")
		{
			rooms.POST("", h.CreateRoom)
			rooms.GET("", h.MyRooms)
			rooms.POST("/:id/join", h.JoinRoom)
			rooms.GET("/:id/members", h.RoomMembers)
			rooms.GET("/:id/messages", h.RoomMessages)
			rooms.PUT("/:id/read-cursor", h.UpdateReadCursor)
		}
		api.GET("/presence/:userId", h.UserPresence)
	}
}

// CreateRoom creates a room; the creator is auto-joined.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := auth.GetUserID(c)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.membership.CreateRoom(ctx, userID, req.Name)
	if err != nil {
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	response.Created(c, room)
}

// JoinRoom joins the caller to a room.
func (h *HTTPHandler) JoinRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := auth.GetUserID(c)
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	member, err := h.membership.Join(ctx, roomID, userID)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrRoomNotFound):
			response.NotFound(c, "room not found")
		case errors.Is(err, membership.ErrAlreadyMember):
			response.Conflict(c, "already a member of this room")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to join room")
			response.InternalError(c, "failed to join room")
		}
		return
	}

	response.Created(c, member)
}

// MyRooms lists the caller's rooms, newest first.
func (h *HTTPHandler) MyRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	rooms, err := h.membership.MyRooms(ctx, auth.GetUserID(c))
	if err != nil {
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, rooms)
}

// RoomMembers lists a room's members; membership required.
func (h *HTTPHandler) RoomMembers(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := auth.GetUserID(c)
	roomID := c.Param("id")

	isMember, err := h.membership.IsMember(ctx, roomID, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("membership check failed")
		response.InternalError(c, "membership check failed")
		return
	}
	if !isMember {
		response.Forbidden(c, "not a member of this room")
		return
	}

	members, err := h.membership.Members(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list members")
		response.InternalError(c, "failed to list members")
		return
	}

	response.Success(c, members)
}

// RoomMessages is the pull-based catch-up query over a room's history.
// Clients that missed broadcasts while disconnected recover here.
func (h *HTTPHandler) RoomMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := auth.GetUserID(c)
	roomID := c.Param("id")

	isMember, err := h.membership.IsMember(ctx, roomID, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("membership check failed")
		response.InternalError(c, "membership check failed")
		return
	}
	if !isMember {
		response.Forbidden(c, "not a member of this room")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	query := domain.MessageQuery{
		Before: c.Query("before"),
		After:  c.Query("after"),
		Limit:  limit,
	}
	if err := query.Normalize(); err != nil {
		response.BadRequest(c, "invalid cursor")
		return
	}

	messages, err := h.messages.ListByRoom(ctx, roomID, query)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		response.InternalError(c, "failed to list messages")
		return
	}

	response.Success(c, messages)
}

// UpdateReadCursor moves the caller's read cursor in a room.
func (h *HTTPHandler) UpdateReadCursor(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := auth.GetUserID(c)
	roomID := c.Param("id")

	var req domain.UpdateReadCursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	isMember, err := h.membership.IsMember(ctx, roomID, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("membership check failed")
		response.InternalError(c, "membership check failed")
		return
	}
	if !isMember {
		response.Forbidden(c, "not a member of this room")
		return
	}

	if err := h.membership.UpdateReadCursor(ctx, roomID, userID, req.LastReadMessageID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			response.NotFound(c, "membership record not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to update read cursor")
		response.InternalError(c, "failed to update read cursor")
		return
	}

	response.Success(c, gin.H{"updated": true})
}

// UserPresence reports whether a user is currently online.
func (h *HTTPHandler) UserPresence(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	targetID := c.Param("userId")
	online, err := h.presence.IsOnline(ctx, targetID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, targetID).Msg("presence check failed")
		response.InternalError(c, "presence check failed")
		return
	}

	response.Success(c, gin.H{"user_id": targetID, "online": online})
}
