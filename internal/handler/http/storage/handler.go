package storage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/middleware"
	authservice "linguachat-backend/internal/service/auth"
	storageservice "linguachat-backend/internal/service/storage"
	"linguachat-backend/pkg/response"
)

// Handler exposes the avatar upload endpoint
type Handler struct {
	storage *storageservice.Service
	auth    *authservice.Service
}

// NewHandler creates a storage handler
func NewHandler(storage *storageservice.Service, auth *authservice.Service) *Handler {
	return &Handler{storage: storage, auth: auth}
}

// RegisterRoutes mounts the storage routes; all require authentication
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/users/me/avatar", h.UploadAvatar)
}

// UploadAvatar handles POST /users/me/avatar. Accepts a multipart form
// with an "avatar" file field, stores it and updates the caller's profile.
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.ValidationError(c, "missing avatar file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	avatarURL, err := h.storage.UploadAvatar(c.Request.Context(), userID, file, fileHeader.Size, contentType)
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	profile, err := h.auth.UpdateProfile(c.Request.Context(), userID, &domain.UserUpdate{
		AvatarURL: &avatarURL,
	})
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
