package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/domain/auth"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.FromUser(result.User),
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUser(u))
}

// Register handles POST /auth/users (admin only).
// The new user joins the caller's clinic.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	u := auth.NewUser(appctx.GetClinicID(c.Request.Context()), req.Email, req.Name, req.Roles)
	if err := h.service.Register(c.Request.Context(), u, req.Password); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, u.ID)
}
