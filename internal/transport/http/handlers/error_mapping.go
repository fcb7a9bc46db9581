package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/usecase"
)

// statusFor maps every usecase kind to an HTTP status.
func statusFor(kind usecase.Kind) int {
	switch kind {
	case usecase.KindBadRequest:
		return http.StatusBadRequest
	case usecase.KindValidation:
		return http.StatusUnprocessableEntity
	case usecase.KindInvalidCredentials, usecase.KindUnauthorized:
		return http.StatusUnauthorized
	case usecase.KindRiskControlBlocked, usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindStoreUnavailable, usecase.KindCacheUnavailable, usecase.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError writes the error body for err. Causes of server-side
// failures are logged and never returned to the caller.
func RespondWithError(c *gin.Context, log *zap.Logger, err error) {
	kind := usecase.KindOf(err)
	message := "Server error"
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		message = ucErr.PublicMessage()
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context(), log).Error("request failed",
			zap.String("kind", kind.String()),
			zap.Int("code", kind.Code()),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, newErrorResponse(c, kind.Code(), kind.String(), message))
}

func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse(c, usecase.KindBadRequest.Code(), usecase.KindBadRequest.String(), message))
}

// respondBindError answers a failed ShouldBindJSON. A body cut short by the
// size limit is reported as 413, anything else as a bad request.
func respondBindError(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, newErrorResponse(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large"))
		return
	}
	respondBadRequest(c, message)
}
