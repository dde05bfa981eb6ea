package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/hub"
	"github.com/parley-chat/parley/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler terminates client WebSocket connections. Authentication
// happens at the handshake: a connection without a valid bearer token
// is dropped immediately, with no retry from the server side.
type WSHandler struct {
	hub      *hub.Hub
	service  *Service
	verifier *auth.Verifier
	pumpCfg  hub.PumpConfig
}

func NewWSHandler(h *hub.Hub, svc *Service, verifier *auth.Verifier, pumpCfg hub.PumpConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		pumpCfg:  pumpCfg,
	}
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.L()

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		l.Warn().Err(err).Msg("connection rejected: invalid token")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), identity.UserID, h.hub, conn, h.pumpCfg)
	h.hub.Register(client)

	// The request context dies with the upgrade handler; connection
	// lifecycle work uses its own context.
	ctx := context.Background()
	h.service.HandleConnect(ctx, client)
	l.Info().
		Str(log.FieldConnID, client.ID).
		Str(log.FieldUserID, client.UserID).
		Msg("client connected")

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleFrame)
		// ReadPump returns once the connection is gone.
		h.service.HandleDisconnect(ctx, client)
		l.Info().
			Str(log.FieldConnID, client.ID).
			Str(log.FieldUserID, client.UserID).
			Msg("client disconnected")
	}()
}

func (h *WSHandler) handleFrame(client *hub.Client, message []byte) {
	var base domain.Envelope
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid frame format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var frame domain.JoinRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid join_room frame"))
			return
		}
		client.SendJSON(h.service.HandleJoinRoom(ctx, client, frame.RoomID))

	case domain.MsgTypeLeaveRoom:
		var frame domain.LeaveRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid leave_room frame"))
			return
		}
		h.service.HandleLeaveRoom(ctx, client, frame.RoomID)

	case domain.MsgTypeSendMessage:
		var frame domain.SendMessageFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid send_message frame"))
			return
		}
		client.SendJSON(h.service.HandleSendMessage(ctx, client, &frame))

	case domain.MsgTypeHeartbeat:
		client.SendJSON(h.service.HandleHeartbeat(ctx, client))

	default:
		client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown frame type"))
	}
}
