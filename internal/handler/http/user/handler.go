package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/middleware"
	authservice "linguachat-backend/internal/service/auth"
	"linguachat-backend/pkg/response"
)

// PresenceSource reports which users are currently online
type PresenceSource interface {
	IsUserOnline(userID uuid.UUID) bool
}

// Handler exposes user profile and settings endpoints
type Handler struct {
	auth     *authservice.Service
	presence PresenceSource
}

// NewHandler creates a user handler
func NewHandler(auth *authservice.Service, presence PresenceSource) *Handler {
	return &Handler{auth: auth, presence: presence}
}

// RegisterRoutes mounts the user routes; all require authentication.
// The :id route also accepts the literal "me" for the caller's own profile.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/languages", h.ListLanguages)

	group := router.Group("/users")
	{
		group.PATCH("/me", h.UpdateMe)
		group.GET("/:id", h.GetUser)
	}
}

// UpdateMe handles PATCH /users/me, covering profile and language settings
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var input domain.UserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	profile, err := h.auth.UpdateProfile(c.Request.Context(), userID, &input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// GetUser handles GET /users/:id. Presence is read from the live registry
// so it reflects this instant, not the last database write.
func (h *Handler) GetUser(c *gin.Context) {
	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	targetID := callerID
	if raw := c.Param("id"); raw != "me" {
		var err error
		targetID, err = uuid.Parse(raw)
		if err != nil {
			response.ValidationError(c, "invalid user id")
			return
		}
	}

	profile, err := h.auth.GetUser(c.Request.Context(), targetID)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	profile.IsOnline = h.presence.IsUserOnline(targetID)
	response.Success(c, http.StatusOK, profile)
}

// ListLanguages handles GET /languages
func (h *Handler) ListLanguages(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"languages": domain.SupportedLanguages,
		"tones":     []domain.Tone{domain.ToneCasual, domain.ToneStandard, domain.ToneFormal},
	})
}
