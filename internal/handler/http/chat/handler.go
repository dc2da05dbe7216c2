package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/middleware"
	chatservice "linguachat-backend/internal/service/chat"
	"linguachat-backend/pkg/response"
)

// Handler exposes the message and conversation endpoints
type Handler struct {
	chat *chatservice.Service
}

// NewHandler creates a chat handler
func NewHandler(chat *chatservice.Service) *Handler {
	return &Handler{chat: chat}
}

// RegisterRoutes mounts the chat routes; all require authentication
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	messages := router.Group("/messages")
	{
		messages.POST("", h.SendMessage)
		messages.POST("/:id/read", h.MarkRead)
		messages.DELETE("/:id", h.DeleteMessage)
	}

	conversations := router.Group("/conversations")
	{
		conversations.GET("", h.ListConversations)
		conversations.POST("", h.CreateConversation)
		conversations.GET("/:id", h.GetConversation)
		conversations.GET("/:id/messages", h.ListMessages)
	}
}

// SendMessage handles POST /messages
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var input domain.MessageCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	message, err := h.chat.SendMessage(c.Request.Context(), userID, &input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// MarkRead handles POST /messages/:id/read, the REST twin of the
// WebSocket read frame
func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid message id")
		return
	}

	if err := h.chat.MarkRead(c.Request.Context(), userID, messageID); err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message_id": messageID})
}

// DeleteMessage handles DELETE /messages/:id
func (h *Handler) DeleteMessage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid message id")
		return
	}

	if err := h.chat.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message_id": messageID})
}

// ListConversations handles GET /conversations
func (h *Handler) ListConversations(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	conversations, err := h.chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversations)
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var input domain.ConversationCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	conversation, err := h.chat.CreateConversation(c.Request.Context(), userID, &input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, conversation)
}

// GetConversation handles GET /conversations/:id
func (h *Handler) GetConversation(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid conversation id")
		return
	}

	conversation, err := h.chat.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversation)
}

// ListMessages handles GET /conversations/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid conversation id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.chat.ListMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}
