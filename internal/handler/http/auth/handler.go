package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/middleware"
	authservice "linguachat-backend/internal/service/auth"
	"linguachat-backend/pkg/response"
)

// Handler exposes the authentication endpoints
type Handler struct {
	auth *authservice.Service
}

// NewHandler creates an auth handler
func NewHandler(auth *authservice.Service) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes mounts the auth routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authRequired gin.HandlerFunc) {
	group := router.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
		group.POST("/refresh", h.Refresh)
		group.GET("/me", authRequired, h.Me)
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input domain.UserCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.auth.Register(c.Request.Context(), &input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input domain.UserLogin
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.auth.Login(c.Request.Context(), &input)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var input refreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Me handles GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	profile, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.FromAppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
