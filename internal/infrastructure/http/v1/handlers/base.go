package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseIDParam parses a UUID path parameter; registers a validation error
// and returns false when malformed.
func (h *BaseHandler) ParseIDParam(c *gin.Context, key string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(key))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key+" format").WithDetail("field", key))
		return id.ID{}, false
	}
	return parsed, true
}

// OptionalID parses a UUID from a non-empty string, nil otherwise.
// Malformed values are ignored; binding validates format upstream.
func OptionalID(s string) *id.ID {
	if s == "" {
		return nil
	}
	parsed, err := id.Parse(s)
	if err != nil {
		return nil
	}
	return &parsed
}

// OptionalTime parses an RFC3339 timestamp from a non-empty string.
func OptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &parsed
}

// Created sends 201 response with ID.
func (h *BaseHandler) Created(c *gin.Context, entityID id.ID) {
	c.JSON(http.StatusCreated, dto.NewIDResponse(entityID))
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
