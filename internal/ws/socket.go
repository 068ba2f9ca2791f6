package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"group-service/internal/auth"
	"group-service/internal/chat"
	"group-service/internal/models"
	"group-service/internal/observability"
	"group-service/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketHandler serves the realtime endpoint. One connection binds a
// verified user to a single group room for its lifetime.
type SocketHandler struct {
	hub      *Hub
	registry *registry.Registry
	chat     *chat.Service
	verifier *auth.Verifier
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, reg *registry.Registry, chatSvc *chat.Service, verifier *auth.Verifier) *SocketHandler {
	return &SocketHandler{hub: hub, registry: reg, chat: chatSvc, verifier: verifier}
}

// Handle upgrades GET /socket?eventGroupId= and pumps inbound sendMessage
// frames. Membership is verified at handshake against live group state and
// again on every message, so kicks and bans take effect mid-session.
func (h *SocketHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Query("eventGroupId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event group id"})
		return
	}

	ctx, span := otel.Tracer("group-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}

	identity, err := h.verifier.FromHeader(header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.registry.IsMember(ctx, groupID, identity.UserID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Add(groupID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	headers := observability.BuildHeaders(requestID, info.TraceID)
	_ = observability.PublishEvent(ctx, roomRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload(groupID, info, "ws_connect", 0, ""),
	}, headers)

	go func() {
		var closeReason string
		defer func() {
			h.hub.Remove(groupID, conn)
			conn.Close()
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			_ = observability.PublishEvent(ctx, roomRoutingKey, observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   lifecyclePayload(groupID, info, "ws_disconnect", time.Since(info.ConnectedAt), closeReason),
			}, headers)
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.publishWSError(groupID, info, err)
				}
				return
			}
			h.handleFrame(groupID, identity.UserID, conn, payload)
		}
	}()
}

func (h *SocketHandler) handleFrame(groupID, userID int, conn *websocket.Conn, payload []byte) {
	frame, err := decodeClientFrame(payload)
	if err != nil {
		h.hub.SendTo(groupID, conn, models.RoomEvent{Event: models.RoomEventError, Reason: "malformed frame"})
		return
	}
	if frame.Event != "sendMessage" {
		h.hub.SendTo(groupID, conn, models.RoomEvent{Event: models.RoomEventError, Reason: "unknown event"})
		return
	}
	// Legacy clients address the room in the payload; the connection's
	// room wins, and the verified identity overrides data.senderId.
	if _, err := h.chat.Send(context.Background(), groupID, userID, frame.Data.Content); err != nil {
		h.hub.SendTo(groupID, conn, models.RoomEvent{Event: models.RoomEventError, Reason: err.Error()})
	}
}
