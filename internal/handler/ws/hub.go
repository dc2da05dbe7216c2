package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linguachat-backend/internal/domain"
	"linguachat-backend/pkg/jwt"
	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/metrics"
)

// dbTimeout bounds repository calls made from connection goroutines
const dbTimeout = 5 * time.Second

// PresenceStore mirrors presence transitions into shared storage
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID uuid.UUID) error
	SetUserOffline(ctx context.Context, userID uuid.UUID) error
	RefreshPresence(ctx context.Context, userID uuid.UUID) error
}

// UserStatusWriter persists the derived online flag on the user row
type UserStatusWriter interface {
	UpdateOnlineStatus(ctx context.Context, userID uuid.UUID, online bool) error
}

// ConversationSource lists the conversations a user belongs to, used to
// seed room subscriptions when a user connects
type ConversationSource interface {
	GetUserConversations(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
}

// ReadMarker processes an inbound read receipt. Implemented by the chat
// service, which persists the receipt and broadcasts it back to the room.
type ReadMarker interface {
	MarkRead(ctx context.Context, readerID, messageID uuid.UUID) error
}

// TokenValidator authenticates the token presented at upgrade time
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// Hub owns the connection registry and room table for this process and
// dispatches the WebSocket wire protocol.
type Hub struct {
	registry *Registry
	rooms    *Rooms

	tokens        TokenValidator
	presence      PresenceStore
	users         UserStatusWriter
	conversations ConversationSource

	// Set after construction to break the hub <-> chat service cycle
	reader ReadMarker

	upgrader websocket.Upgrader
}

// NewHub creates a hub with an empty registry and room table
func NewHub(tokens TokenValidator, presence PresenceStore, users UserStatusWriter, conversations ConversationSource) *Hub {
	return &Hub{
		registry:      NewRegistry(),
		rooms:         NewRooms(),
		tokens:        tokens,
		presence:      presence,
		users:         users,
		conversations: conversations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients authenticate with a token, not cookies, so
			// cross-origin upgrades are acceptable
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetReadMarker wires the read-receipt processor. Must be called before
// the first connection is served.
func (h *Hub) SetReadMarker(reader ReadMarker) {
	h.reader = reader
}

// Registry exposes the connection registry for presence queries
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS upgrades the HTTP request and runs the connection until it
// closes. The token travels as a query parameter because browsers cannot
// set headers on WebSocket upgrades.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		metrics.WebSocketConnectionTotal.WithLabelValues("upgrade_failed").Inc()
		return
	}

	claims, err := h.tokens.ValidateToken(c.Query("token"))
	if err != nil {
		// Policy violation close lets the client distinguish a bad token
		// from a transport failure
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(writeWait),
		)
		conn.Close()
		metrics.WebSocketConnectionTotal.WithLabelValues("rejected").Inc()
		return
	}

	client := newClient(h, conn, claims.UserID)
	h.register(client)
	metrics.WebSocketConnectionTotal.WithLabelValues("accepted").Inc()

	go client.writePump()
	client.readPump()
}

// register adds the connection, subscribes the user to their conversations
// and, on the first connection, announces the online transition.
func (h *Hub) register(c *Client) {
	cameOnline := h.registry.Add(c)

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	conversations, err := h.conversations.GetUserConversations(ctx, c.userID)
	if err != nil {
		logger.Error("failed to seed room subscriptions",
			zap.String("user_id", c.userID.String()),
			zap.Error(err),
		)
	}
	for _, conversation := range conversations {
		h.rooms.Join(conversation.ConversationID, c.userID)
	}

	if !cameOnline {
		return
	}

	metrics.PresenceTransitionsTotal.WithLabelValues("online").Inc()
	if err := h.presence.SetUserOnline(ctx, c.userID); err != nil {
		logger.Error("failed to mirror online presence", zap.Error(err))
	}
	if err := h.users.UpdateOnlineStatus(ctx, c.userID, true); err != nil {
		logger.Error("failed to persist online status", zap.Error(err))
	}
	h.registry.Broadcast(NewUserStatusEvent(c.userID, true))

	logger.Info("user connected",
		zap.String("user_id", c.userID.String()),
		zap.String("conn_id", c.connID.String()),
	)
}

// unregister removes the connection and, on the last one, announces the
// offline transition
func (h *Hub) unregister(c *Client) {
	wentOffline := h.registry.Remove(c)
	c.close()

	if !wentOffline {
		return
	}

	h.rooms.LeaveAll(c.userID)

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	metrics.PresenceTransitionsTotal.WithLabelValues("offline").Inc()
	if err := h.presence.SetUserOffline(ctx, c.userID); err != nil {
		logger.Error("failed to clear presence mirror", zap.Error(err))
	}
	if err := h.users.UpdateOnlineStatus(ctx, c.userID, false); err != nil {
		logger.Error("failed to persist offline status", zap.Error(err))
	}
	h.registry.Broadcast(NewUserStatusEvent(c.userID, false))

	logger.Info("user disconnected",
		zap.String("user_id", c.userID.String()),
		zap.String("conn_id", c.connID.String()),
	)
}

// handleFrame dispatches one inbound client frame
func (h *Hub) handleFrame(c *Client, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.enqueue(NewErrorEvent("malformed frame"))
		return
	}

	switch frame.Type {
	case FrameTypeTyping:
		h.handleTyping(c, frame)
	case FrameTypeRead:
		h.handleRead(c, frame)
	case FrameTypePing:
		h.handlePing(c)
	default:
		c.enqueue(NewErrorEvent("unknown frame type: " + frame.Type))
	}
}

// handleTyping relays a typing indicator to the other room members.
// Indicators are ephemeral and never persisted.
func (h *Hub) handleTyping(c *Client, frame ClientFrame) {
	if frame.ConversationID == uuid.Nil {
		c.enqueue(NewErrorEvent("typing frame requires conversation_id"))
		return
	}
	if !h.rooms.IsMember(frame.ConversationID, c.userID) {
		c.enqueue(NewErrorEvent("not a participant of this conversation"))
		return
	}
	h.publish(frame.ConversationID, NewTypingEvent(c.userID, frame.ConversationID, frame.IsTyping), c.userID)
}

// handleRead forwards a read receipt into the message pipeline
func (h *Hub) handleRead(c *Client, frame ClientFrame) {
	if frame.MessageID == uuid.Nil {
		c.enqueue(NewErrorEvent("read frame requires message_id"))
		return
	}
	if h.reader == nil {
		c.enqueue(NewErrorEvent("read receipts unavailable"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := h.reader.MarkRead(ctx, c.userID, frame.MessageID); err != nil {
		logger.Warn("read receipt rejected",
			zap.String("user_id", c.userID.String()),
			zap.String("message_id", frame.MessageID.String()),
			zap.Error(err),
		)
		c.enqueue(NewErrorEvent("could not mark message read"))
	}
}

// handlePing refreshes the presence TTL and answers with a pong
func (h *Hub) handlePing(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := h.presence.RefreshPresence(ctx, c.userID); err != nil {
		logger.Warn("failed to refresh presence", zap.Error(err))
	}
	c.enqueue(NewPongEvent())
}

// publish delivers a frame to every subscribed member of a conversation,
// optionally excluding one user
func (h *Hub) publish(conversationID uuid.UUID, payload []byte, exclude uuid.UUID) {
	for _, userID := range h.rooms.Members(conversationID) {
		if userID == exclude {
			continue
		}
		h.registry.SendTo(userID, payload)
	}
}

// JoinConversation subscribes an online user to a room. Used when a
// conversation is created after the user already connected.
func (h *Hub) JoinConversation(conversationID, userID uuid.UUID) {
	if h.registry.IsOnline(userID) {
		h.rooms.Join(conversationID, userID)
	}
}

// BroadcastMessage fans a freshly persisted message out to the room
func (h *Hub) BroadcastMessage(conversationID uuid.UUID, message *domain.MessageResponse) {
	h.publish(conversationID, NewMessageEvent(message), uuid.Nil)
}

// BroadcastMessageUpdated fans out a message whose translation completed
func (h *Hub) BroadcastMessageUpdated(conversationID uuid.UUID, message *domain.MessageResponse) {
	h.publish(conversationID, NewMessageUpdatedEvent(message), uuid.Nil)
}

// BroadcastMessageDeleted tells the room a message was removed
func (h *Hub) BroadcastMessageDeleted(conversationID, messageID uuid.UUID) {
	h.publish(conversationID, NewMessageDeletedEvent(messageID, conversationID), uuid.Nil)
}

// BroadcastRead tells the room a message was read. The reader already
// knows, so their own connections are excluded.
func (h *Hub) BroadcastRead(conversationID, readerID, messageID uuid.UUID, readAt time.Time) {
	h.publish(conversationID, NewReadEvent(readerID, messageID, conversationID, readAt), readerID)
}

// IsUserOnline reports in-process presence for a user
func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	return h.registry.IsOnline(userID)
}
