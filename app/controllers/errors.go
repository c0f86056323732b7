package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/responses"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/middleware"
	"github.com/psgc-resolver/internal/resolver"
)

// respondError trả về ErrorResponse và dừng chain
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: middleware.RequestIDFrom(c),
	})
}

// respondServiceError map lỗi service sang HTTP status
func respondServiceError(c *gin.Context, err error) {
	status, code := statusForError(err)
	_ = c.Error(err)
	respondError(c, status, code, err.Error())
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, resolver.ErrSessionClosed):
		return http.StatusGone, "SESSION_CLOSED"
	case errors.Is(err, resolver.ErrLevelDisabled):
		return http.StatusConflict, "LEVEL_DISABLED"
	case errors.Is(err, resolver.ErrOptionsNotLoaded):
		return http.StatusConflict, "OPTIONS_NOT_LOADED"
	case errors.Is(err, resolver.ErrUnknownOption):
		return http.StatusUnprocessableEntity, "UNKNOWN_OPTION"
	case errors.Is(err, resolver.ErrInvalidLevel):
		return http.StatusBadRequest, "INVALID_LEVEL"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, services.ErrFetch):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func invalidRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request không hợp lệ: "+err.Error())
}
